package toolcall

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// DiffPreviewFormatter renders replace_in_file calls as a unified-diff style
// preview instead of raw JSON.
func DiffPreviewFormatter(call *Call) (string, bool) {
	if call.Name != "replace_in_file" || call.Args == nil {
		return "", false
	}
	path, _ := call.Args["path"].(string)
	oldText, _ := call.Args["old_text"].(string)
	newText, _ := call.Args["new_text"].(string)
	if oldText == "" && newText == "" {
		return "", false
	}
	return RenderDiff(path, oldText, newText), true
}

// RenderDiff produces the minus/plus preview of one exact-text replacement.
func RenderDiff(path, oldText, newText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s\n+++ %s\n", path, path)
	for _, line := range splitPreviewLines(oldText) {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	for _, line := range splitPreviewLines(newText) {
		fmt.Fprintf(&b, "+ %s\n", line)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func splitPreviewLines(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// TreePreviewFormatter renders write_files calls as a tree of target paths
// with content sizes, instead of dumping every file body.
func TreePreviewFormatter(call *Call) (string, bool) {
	if call.Name != "write_files" || call.Args == nil {
		return "", false
	}
	entries, ok := call.Args["files"].([]any)
	if !ok {
		return "", false
	}

	lines := make([]string, 0, len(entries))
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		path, _ := entry["path"].(string)
		content, _ := entry["content"].(string)
		mode, _ := entry["mode"].(string)
		if mode == "" {
			mode = "w"
		}
		marker := "create/overwrite"
		if mode == "a" {
			marker = "append"
		}
		if _, err := os.Stat(path); err == nil && mode == "w" {
			marker = "overwrite"
		} else if err != nil && mode == "w" {
			marker = "create"
		}
		lines = append(lines, fmt.Sprintf("├── %s (%s, %d bytes)", path, marker, len(content)))
	}
	if len(lines) == 0 {
		return "", false
	}
	sort.Strings(lines)
	lines[len(lines)-1] = "└──" + strings.TrimPrefix(lines[len(lines)-1], "├──")
	return fmt.Sprintf("Will write %d files:\n%s", len(lines), strings.Join(lines, "\n")), true
}
