// Package ux provides the line-oriented console surface the agent core
// talks through. The runner, the tool-call handler, and sub-agent delegation
// all print and prompt via the UI interface so output can be nested or
// captured.
package ux

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// UI is the interaction surface for one agent run.
type UI interface {
	// Print writes one or more lines of output.
	Print(text string)

	// Ask prompts the user and returns the trimmed answer.
	Ask(prompt string) (string, error)
}

// Console output uses a consistent prefix scheme: ✅ auto-approved,
// ℹ️ informational, ❌ error, >> indented sub-agent output.
var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	indentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Success formats an auto-approval line.
func Success(text string) string {
	return successStyle.Render("✅ " + text)
}

// Info formats an informational line.
func Info(text string) string {
	return infoStyle.Render("ℹ️ " + text)
}

// Error formats an error line.
func Error(text string) string {
	return errorStyle.Render("❌ " + text)
}

// Console is the default UI on stdio.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	in  *bufio.Reader
}

// NewConsole creates a console UI on the given streams. Passing nil selects
// stdout/stdin.
func NewConsole(out io.Writer, in io.Reader) *Console {
	if out == nil {
		out = os.Stdout
	}
	if in == nil {
		in = os.Stdin
	}
	return &Console{out: out, in: bufio.NewReader(in)}
}

// Print implements UI.
func (c *Console) Print(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

// Ask implements UI.
func (c *Console) Ask(prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, prompt)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// IndentedUI wraps another UI and prefixes every printed line so sub-agent
// output nests visually under its parent.
type IndentedUI struct {
	parent UI
	prefix string
}

// NewIndentedUI wraps parent with the standard ">> " prefix.
func NewIndentedUI(parent UI) *IndentedUI {
	return &IndentedUI{parent: parent, prefix: ">> "}
}

// Print implements UI. Each line of text gets the prefix.
func (u *IndentedUI) Print(text string) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = indentStyle.Render(u.prefix) + line
	}
	u.parent.Print(strings.Join(lines, "\n"))
}

// Ask implements UI. Prompts pass through to the parent so the user still
// answers at the top level.
func (u *IndentedUI) Ask(prompt string) (string, error) {
	return u.parent.Ask(u.prefix + prompt)
}

// RecordingUI captures output for tests and for hook payloads.
type RecordingUI struct {
	mu      sync.Mutex
	Lines   []string
	Answers []string
	Prompts []string
}

// Print implements UI.
func (u *RecordingUI) Print(text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Lines = append(u.Lines, text)
}

// Ask implements UI. Answers are consumed in order; an exhausted script
// answers "n".
func (u *RecordingUI) Ask(prompt string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Prompts = append(u.Prompts, prompt)
	if len(u.Answers) == 0 {
		return "n", nil
	}
	answer := u.Answers[0]
	u.Answers = u.Answers[1:]
	return answer, nil
}

// Output joins all printed lines.
func (u *RecordingUI) Output() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return strings.Join(u.Lines, "\n")
}
