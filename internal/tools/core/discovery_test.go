package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestListFiles(t *testing.T) {
	root := makeTree(t, map[string]string{
		"b.txt":     "",
		"a.txt":     "",
		"sub/c.txt": "",
	})

	out, err := ListFilesTool().Execute(context.Background(), map[string]any{"directory": root})
	require.NoError(t, err)
	assert.Equal(t, "a.txt\nb.txt\nsub/", out)
}

func TestListFilesMissingDir(t *testing.T) {
	_, err := ListFilesTool().Execute(context.Background(), map[string]any{
		"directory": filepath.Join(t.TempDir(), "nope"),
	})
	assert.Error(t, err)
}

func TestGlobFilesRecursive(t *testing.T) {
	root := makeTree(t, map[string]string{
		"main.go":        "",
		"pkg/util.go":    "",
		"pkg/util_test.go": "",
		"docs/readme.md": "",
	})

	out, err := GlobFilesTool().Execute(context.Background(), map[string]any{
		"pattern": "**/*.go", "path": root,
	})
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, out, filepath.Join(root, "main.go"))
	assert.Contains(t, out, filepath.Join(root, "pkg", "util.go"))
	assert.NotContains(t, out, "readme.md")
}

func TestGlobFilesNoMatches(t *testing.T) {
	root := t.TempDir()
	out, err := GlobFilesTool().Execute(context.Background(), map[string]any{
		"pattern": "*.rs", "path": root,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "No files match")
}

func TestGlobFilesInvalidPattern(t *testing.T) {
	_, err := GlobFilesTool().Execute(context.Background(), map[string]any{
		"pattern": "[", "path": t.TempDir(),
	})
	assert.Error(t, err)
}

func TestSearchFiles(t *testing.T) {
	root := makeTree(t, map[string]string{
		"a.go":     "package a\nfunc Hello() {}\n",
		"sub/b.go": "package b\nfunc HelloAgain() {}\n",
		"c.md":     "no functions here\n",
	})

	out, err := SearchFilesTool().Execute(context.Background(), map[string]any{
		"directory": root, "pattern": `func Hello`,
	})
	require.NoError(t, err)

	assert.Contains(t, out, filepath.Join(root, "a.go")+":2:func Hello() {}")
	assert.Contains(t, out, filepath.Join(root, "sub", "b.go")+":2:func HelloAgain() {}")
	assert.NotContains(t, out, "c.md")
}

func TestSearchFilesSkipsVendoredDirs(t *testing.T) {
	root := makeTree(t, map[string]string{
		"keep.txt":              "needle\n",
		".git/objects/x.txt":    "needle\n",
		"node_modules/dep.js":   "needle\n",
	})

	out, err := SearchFilesTool().Execute(context.Background(), map[string]any{
		"directory": root, "pattern": "needle",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "keep.txt")
	assert.NotContains(t, out, ".git")
	assert.NotContains(t, out, "node_modules")
}

func TestSearchFilesSkipsBinary(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "bin.dat"), []byte("needle\x00needle"), 0644))

	out, err := SearchFilesTool().Execute(context.Background(), map[string]any{
		"directory": root, "pattern": "needle",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "No matches")
}

func TestSearchFilesInvalidPattern(t *testing.T) {
	_, err := SearchFilesTool().Execute(context.Background(), map[string]any{
		"directory": t.TempDir(), "pattern": "([",
	})
	assert.Error(t, err)
}

func TestSearchFilesNoMatches(t *testing.T) {
	root := makeTree(t, map[string]string{"a.txt": "hay\n"})

	out, err := SearchFilesTool().Execute(context.Background(), map[string]any{
		"directory": root, "pattern": "needle",
	})
	require.NoError(t, err)
	assert.Contains(t, out, `No matches for "needle"`)
}
