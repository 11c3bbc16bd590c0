package prompt

import (
	"embed"
	"os"
	"path/filepath"
	"strings"

	"aide/internal/logging"
)

//go:embed defaults/*.md
var defaultBodies embed.FS

// resolveBody loads the prompt body for a section name, trying in order:
// the per-project override directory, an environment variable, then the
// packaged default. A missing body is an empty string, never an error.
func (c *Composer) resolveBody(name string) string {
	if c.OverrideDir != "" {
		path := filepath.Join(c.OverrideDir, name+".md")
		if data, err := os.ReadFile(path); err == nil {
			logging.PromptDebug("Loaded %s prompt from %s", name, path)
			return DemoteHeaders(string(data))
		}
	}

	envKey := "AIDE_" + strings.ToUpper(name) + "_PROMPT"
	if body := os.Getenv(envKey); body != "" {
		logging.PromptDebug("Loaded %s prompt from %s", name, envKey)
		return DemoteHeaders(body)
	}

	data, err := defaultBodies.ReadFile("defaults/" + name + ".md")
	if err != nil {
		return ""
	}
	return DemoteHeaders(string(data))
}
