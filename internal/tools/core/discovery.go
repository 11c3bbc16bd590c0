package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"aide/internal/tools"
)

// skipDirs are directory names never descended into during discovery.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
}

// ListFilesTool returns the list_files tool.
func ListFilesTool() *tools.Tool {
	return &tools.Tool{
		Name:        "list_files",
		Description: "List the entries of a directory. Directories are suffixed with a slash.",
		Schema: tools.ToolSchema{
			Required: []string{"directory"},
			Properties: map[string]tools.Property{
				"directory": {Type: "string", Description: "Directory to list"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			dir := tools.StringArg(args, "directory")
			entries, err := os.ReadDir(dir)
			if err != nil {
				return "", fmt.Errorf("failed to list %s: %w", dir, err)
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
		},
	}
}

// GlobFilesTool returns the glob_files tool, matching files against a
// doublestar pattern (** crosses directory boundaries).
func GlobFilesTool() *tools.Tool {
	return &tools.Tool{
		Name:        "glob_files",
		Description: "Find files matching a glob pattern. Supports ** for recursive matching, e.g. '**/*.go'. path is the directory to search from (default current directory).",
		Schema: tools.ToolSchema{
			Required: []string{"pattern"},
			Properties: map[string]tools.Property{
				"pattern": {Type: "string", Description: "Glob pattern to match"},
				"path":    {Type: "string", Description: "Directory to search from", Default: "."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			pattern := tools.StringArg(args, "pattern")
			root := tools.StringArg(args, "path")
			if root == "" {
				root = "."
			}

			matches, err := doublestar.Glob(os.DirFS(root), pattern)
			if err != nil {
				return "", fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
			}
			if len(matches) == 0 {
				return fmt.Sprintf("No files match %q under %s", pattern, root), nil
			}

			sort.Strings(matches)
			for i, m := range matches {
				matches[i] = filepath.Join(root, m)
			}
			return strings.Join(matches, "\n"), nil
		},
	}
}

// SearchFilesTool returns the search_files tool, a recursive regex grep.
func SearchFilesTool() *tools.Tool {
	return &tools.Tool{
		Name:        "search_files",
		Description: "Search file contents recursively under a directory using a regular expression. Returns matching lines as path:line:text.",
		Schema: tools.ToolSchema{
			Required: []string{"directory", "pattern"},
			Properties: map[string]tools.Property{
				"directory": {Type: "string", Description: "Directory to search under"},
				"pattern":   {Type: "string", Description: "Regular expression to match against lines"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			dir := tools.StringArg(args, "directory")
			pattern := tools.StringArg(args, "pattern")

			re, err := regexp.Compile(pattern)
			if err != nil {
				return "", fmt.Errorf("invalid search pattern %q: %w", pattern, err)
			}

			var hits []string
			err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if d.IsDir() {
					if skipDirs[d.Name()] {
						return filepath.SkipDir
					}
					return nil
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}

				data, err := os.ReadFile(path)
				if err != nil || !isText(data) {
					return nil
				}
				for i, line := range strings.Split(string(data), "\n") {
					if re.MatchString(line) {
						hits = append(hits, fmt.Sprintf("%s:%d:%s", path, i+1, line))
					}
				}
				return nil
			})
			if err != nil {
				return "", fmt.Errorf("search failed: %w", err)
			}

			if len(hits) == 0 {
				return fmt.Sprintf("No matches for %q under %s", pattern, dir), nil
			}
			return strings.Join(hits, "\n"), nil
		},
	}
}

// isText rejects files containing NUL bytes in the first 8KB.
func isText(data []byte) bool {
	probe := data
	if len(probe) > 8192 {
		probe = probe[:8192]
	}
	for _, b := range probe {
		if b == 0 {
			return false
		}
	}
	return true
}
