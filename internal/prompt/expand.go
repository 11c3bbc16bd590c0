package prompt

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ExpandReferences inlines @path tokens in a user message. Tokens are
// whitespace- or comma-terminated, must contain a path separator, and must
// resolve to an existing file or directory; anything else is left as text.
// Each inlined reference carries an instruction telling the model not to
// re-read it.
func ExpandReferences(message string) string {
	var inlined []string
	seen := make(map[string]bool)

	for _, token := range tokenize(message) {
		if !strings.HasPrefix(token, "@") {
			continue
		}
		path := strings.TrimPrefix(token, "@")
		if path == "" || !strings.Contains(path, "/") || seen[path] {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		seen[path] = true

		if info.IsDir() {
			listing, err := renderListing(path)
			if err != nil {
				continue
			}
			inlined = append(inlined, fmt.Sprintf(
				"Contents of directory %s (already listed, do not call list_files on it again):\n%s",
				path, listing))
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		inlined = append(inlined, fmt.Sprintf(
			"Contents of %s (already provided with line numbers, do not call read_file on it again):\n%s",
			path, numberLines(string(data))))
	}

	if len(inlined) == 0 {
		return message
	}
	return message + "\n\n" + strings.Join(inlined, "\n\n")
}

// tokenize splits on whitespace and commas.
func tokenize(message string) []string {
	return strings.FieldsFunc(message, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == ','
	})
}

func numberLines(content string) string {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%d | %s\n", i+1, line)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderListing(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}
