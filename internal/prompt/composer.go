// Package prompt builds the agent system prompt from a middleware chain and
// expands @path references in user messages.
package prompt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"aide/internal/logging"
	"aide/internal/notes"
)

// Next continues the middleware chain with the prompt built so far.
type Next func(ctx context.Context, current string) string

// Middleware contributes one section to the system prompt. It receives the
// prompt built by earlier middlewares and calls next to let later ones run.
type Middleware func(ctx context.Context, current string, next Next) string

// Chain runs middlewares in order and returns the final prompt.
func Chain(ctx context.Context, initial string, middlewares ...Middleware) string {
	var run func(int) Next
	run = func(i int) Next {
		return func(ctx context.Context, current string) string {
			if i >= len(middlewares) {
				return current
			}
			return middlewares[i](ctx, current, run(i+1))
		}
	}
	return run(0)(ctx, initial)
}

// TaskInfo describes one CLI task surfaced in the skills section.
type TaskInfo struct {
	Name        string
	Description string
}

// Composer assembles the system prompt for one agent run.
type Composer struct {
	// OverrideDir holds per-project prompt body overrides.
	OverrideDir string

	// SkillDirs are scanned for skill bundles (directories with SKILL.md).
	SkillDirs []string

	// Tasks are the CLI tasks enumerated in the skills section.
	Tasks []TaskInfo

	// Notes supplies the global and contextual notes; nil skips the section.
	Notes *notes.Store

	// WorkDir keys the contextual note. Defaults to the process CWD.
	WorkDir string

	// Extra holds static user-supplied prompt bodies appended last.
	Extra []string
}

// Compose builds the full system prompt.
func (c *Composer) Compose(ctx context.Context) string {
	prompt := Chain(ctx, "",
		c.section("Persona", "persona"),
		c.section("Mandate", "mandate"),
		c.section("Context", "context"),
		c.notesSection(),
		c.skillsSection(),
		c.extraSection(),
	)
	logging.PromptDebug("Composed system prompt (%d bytes)", len(prompt))
	return strings.TrimSpace(prompt)
}

// section appends one named body resolved through the override/env/default
// chain. Empty bodies contribute nothing.
func (c *Composer) section(title, name string) Middleware {
	return func(ctx context.Context, current string, next Next) string {
		body := c.resolveBody(name)
		return next(ctx, appendSection(current, title, body))
	}
}

func (c *Composer) notesSection() Middleware {
	return func(ctx context.Context, current string, next Next) string {
		if c.Notes == nil {
			return next(ctx, current)
		}

		var parts []string
		if global, err := c.Notes.ReadGlobal(); err == nil && global != "" {
			parts = append(parts, "Long-term note:\n"+DemoteHeaders(global))
		}
		workDir := c.WorkDir
		if workDir == "" {
			workDir, _ = os.Getwd()
		}
		if contextual, err := c.Notes.Read(workDir); err == nil && contextual != "" {
			parts = append(parts, fmt.Sprintf("Contextual note for %s:\n%s", workDir, DemoteHeaders(contextual)))
		}
		return next(ctx, appendSection(current, "Notes", strings.Join(parts, "\n\n")))
	}
}

func (c *Composer) skillsSection() Middleware {
	return func(ctx context.Context, current string, next Next) string {
		var parts []string

		skills := c.scanSkills()
		if len(skills) > 0 {
			parts = append(parts, "Available skills:\n"+strings.Join(skills, "\n"))
		}
		if len(c.Tasks) > 0 {
			lines := make([]string, 0, len(c.Tasks))
			for _, task := range c.Tasks {
				lines = append(lines, fmt.Sprintf("- %s: %s", task.Name, task.Description))
			}
			parts = append(parts, "Available CLI tasks:\n"+strings.Join(lines, "\n"))
		}
		return next(ctx, appendSection(current, "Skills", strings.Join(parts, "\n\n")))
	}
}

func (c *Composer) extraSection() Middleware {
	return func(ctx context.Context, current string, next Next) string {
		var bodies []string
		for _, body := range c.Extra {
			if body = strings.TrimSpace(body); body != "" {
				bodies = append(bodies, DemoteHeaders(body))
			}
		}
		return next(ctx, appendSection(current, "Additional Instructions", strings.Join(bodies, "\n\n")))
	}
}

// scanSkills lists skill bundles: directories containing a SKILL.md whose
// first non-empty line becomes the description.
func (c *Composer) scanSkills() []string {
	var skills []string
	for _, dir := range c.SkillDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			manifest := filepath.Join(dir, entry.Name(), "SKILL.md")
			data, err := os.ReadFile(manifest)
			if err != nil {
				continue
			}
			desc := firstLine(string(data))
			skills = append(skills, fmt.Sprintf("- %s (%s): %s", entry.Name(), manifest, desc))
		}
	}
	sort.Strings(skills)
	return skills
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			return line
		}
	}
	return ""
}

// appendSection adds a titled section, skipping empty bodies.
func appendSection(current, title, body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return current
	}
	section := fmt.Sprintf("# %s\n\n%s", title, body)
	if current == "" {
		return section
	}
	return current + "\n\n" + section
}

// DemoteHeaders pushes every markdown header in body down one level so an
// included document cannot compete with the composed prompt's own headings.
func DemoteHeaders(body string) string {
	lines := strings.Split(body, "\n")
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(line, "#") {
			lines[i] = "#" + line
		}
	}
	return strings.Join(lines, "\n")
}
