// Package core provides the built-in file tools exposed to the model:
// reading with line numbers, writing with explicit modes, exact-match
// replacement, and file discovery.
package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"aide/internal/tools"
)

// NumberLines renders content with 1-based line numbers, matching the
// format read_file returns. Shared with the prompt expander.
func NumberLines(content string, start int) string {
	lines := strings.Split(content, "\n")
	var b strings.Builder
	for i, line := range lines {
		fmt.Fprintf(&b, "%d | %s\n", start+i, line)
	}
	return b.String()
}

// ReadFileTool returns the read_file tool.
// Reads a text file and returns its contents with line numbers, optionally
// restricted to a line range.
func ReadFileTool() *tools.Tool {
	return &tools.Tool{
		Name:        "read_file",
		Description: "Read a text file and return its contents with line numbers. Use start_line and end_line (1-based, inclusive) to read a portion of a large file.",
		Schema: tools.ToolSchema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path":       {Type: "string", Description: "Path of the file to read"},
				"start_line": {Type: "integer", Description: "First line to read (1-based, inclusive)"},
				"end_line":   {Type: "integer", Description: "Last line to read (1-based, inclusive)"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path := tools.StringArg(args, "path")
			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("failed to read %s: %w", path, err)
			}

			content := strings.TrimSuffix(string(data), "\n")
			lines := strings.Split(content, "\n")

			start := tools.IntArg(args, "start_line", 1)
			end := tools.IntArg(args, "end_line", len(lines))
			if start < 1 {
				start = 1
			}
			if end > len(lines) {
				end = len(lines)
			}
			if start > end {
				return "", fmt.Errorf("invalid line range %d..%d for %s (%d lines)", start, end, path, len(lines))
			}

			return NumberLines(strings.Join(lines[start-1:end], "\n"), start), nil
		},
	}
}

// writeOne writes a single file honoring the mode: "w" truncates, "a"
// appends, "x" fails if the file already exists.
func writeOne(path, content, mode string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE
	switch mode {
	case "", "w":
		flags |= os.O_TRUNC
	case "a":
		flags |= os.O_APPEND
	case "x":
		flags |= os.O_EXCL
	default:
		return fmt.Errorf("unknown write mode %q (want w, a, or x)", mode)
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// WriteFileTool returns the write_file tool.
func WriteFileTool() *tools.Tool {
	return &tools.Tool{
		Name:        "write_file",
		Description: "Write content to a file. Mode 'w' overwrites (default), 'a' appends, 'x' fails if the file exists. Parent directories are created as needed.",
		Schema: tools.ToolSchema{
			Required: []string{"path", "content"},
			Properties: map[string]tools.Property{
				"path":    {Type: "string", Description: "Path of the file to write"},
				"content": {Type: "string", Description: "Content to write"},
				"mode":    {Type: "string", Description: "Write mode", Default: "w", Enum: []any{"w", "a", "x"}},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			path := tools.StringArg(args, "path")
			content := tools.StringArg(args, "content")
			mode := tools.StringArg(args, "mode")
			if err := writeOne(path, content, mode); err != nil {
				return "", err
			}
			return fmt.Sprintf("Successfully wrote %s", path), nil
		},
	}
}

// WriteFilesTool returns the write_files tool, the batch form of write_file.
func WriteFilesTool() *tools.Tool {
	return &tools.Tool{
		Name:        "write_files",
		Description: "Write several files in one call. Each entry has path, content, and an optional mode (w/a/x).",
		Schema: tools.ToolSchema{
			Required: []string{"files"},
			Properties: map[string]tools.Property{
				"files": {
					Type:        "array",
					Description: "Files to write",
					Items: &tools.PropertyItems{
						Type: "object",
						Properties: map[string]tools.Property{
							"path":    {Type: "string", Description: "Path of the file to write"},
							"content": {Type: "string", Description: "Content to write"},
							"mode":    {Type: "string", Description: "Write mode", Default: "w"},
						},
					},
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			entries, ok := args["files"].([]any)
			if !ok {
				return "", fmt.Errorf("files must be a list of {path, content, mode} objects")
			}

			written := make([]string, 0, len(entries))
			for i, raw := range entries {
				entry, ok := raw.(map[string]any)
				if !ok {
					return "", fmt.Errorf("files[%d] is not an object", i)
				}
				path := tools.StringArg(entry, "path")
				if path == "" {
					return "", fmt.Errorf("files[%d] is missing a path", i)
				}
				if err := writeOne(path, tools.StringArg(entry, "content"), tools.StringArg(entry, "mode")); err != nil {
					return "", err
				}
				written = append(written, path)
			}
			return fmt.Sprintf("Successfully wrote %d files:\n%s", len(written), strings.Join(written, "\n")), nil
		},
	}
}

// replaceSpec is one exact-match replacement request.
type replaceSpec struct {
	path    string
	oldText string
	newText string
	count   int
}

func parseReplaceSpec(entry map[string]any) (replaceSpec, error) {
	spec := replaceSpec{
		path:    tools.StringArg(entry, "path"),
		oldText: tools.StringArg(entry, "old_text"),
		newText: tools.StringArg(entry, "new_text"),
		count:   tools.IntArg(entry, "count", -1),
	}
	if spec.path == "" {
		return spec, fmt.Errorf("path is required")
	}
	if spec.oldText == "" {
		return spec, fmt.Errorf("old_text is required")
	}
	return spec, nil
}

func applyReplace(spec replaceSpec) error {
	data, err := os.ReadFile(spec.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", spec.path, err)
	}

	content := string(data)
	if !strings.Contains(content, spec.oldText) {
		return fmt.Errorf("old_text not found in %s", spec.path)
	}

	updated := strings.Replace(content, spec.oldText, spec.newText, spec.count)
	if err := os.WriteFile(spec.path, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", spec.path, err)
	}
	return nil
}

// ReplaceInFileTool returns the replace_in_file tool.
// Accepts either a single replacement (path/old_text/new_text at the top
// level) or a list of replacements under "replacements".
func ReplaceInFileTool() *tools.Tool {
	return &tools.Tool{
		Name:        "replace_in_file",
		Description: "Replace exact text in a file. old_text must match the file contents exactly, including whitespace. count limits the number of occurrences replaced (-1 replaces all). Pass a replacements list to apply several edits in one call.",
		Schema: tools.ToolSchema{
			Properties: map[string]tools.Property{
				"path":     {Type: "string", Description: "Path of the file to edit"},
				"old_text": {Type: "string", Description: "Exact text to replace"},
				"new_text": {Type: "string", Description: "Replacement text"},
				"count":    {Type: "integer", Description: "Max occurrences to replace, -1 for all", Default: -1},
				"replacements": {
					Type:        "array",
					Description: "Batch form: list of {path, old_text, new_text, count} objects",
					Items: &tools.PropertyItems{
						Type: "object",
						Properties: map[string]tools.Property{
							"path":     {Type: "string", Description: "Path of the file to edit"},
							"old_text": {Type: "string", Description: "Exact text to replace"},
							"new_text": {Type: "string", Description: "Replacement text"},
							"count":    {Type: "integer", Description: "Max occurrences to replace", Default: -1},
						},
					},
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			if raw, ok := args["replacements"].([]any); ok {
				edited := make([]string, 0, len(raw))
				for i, item := range raw {
					entry, ok := item.(map[string]any)
					if !ok {
						return "", fmt.Errorf("replacements[%d] is not an object", i)
					}
					spec, err := parseReplaceSpec(entry)
					if err != nil {
						return "", fmt.Errorf("replacements[%d]: %w", i, err)
					}
					if err := applyReplace(spec); err != nil {
						return "", err
					}
					edited = append(edited, spec.path)
				}
				return fmt.Sprintf("Successfully applied %d replacements", len(edited)), nil
			}

			spec, err := parseReplaceSpec(args)
			if err != nil {
				return "", err
			}
			if err := applyReplace(spec); err != nil {
				return "", err
			}
			return fmt.Sprintf("Successfully replaced text in %s", spec.path), nil
		},
	}
}
