package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandReferencesInlinesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0644))

	got := ExpandReferences("please review @" + path)

	assert.Contains(t, got, "please review @"+path)
	assert.Contains(t, got, "Contents of "+path)
	assert.Contains(t, got, "do not call read_file on it again")
	assert.Contains(t, got, "1 | package main")
	assert.Contains(t, got, "3 | func main() {}")
}

func TestExpandReferencesInlinesDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), nil, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))

	got := ExpandReferences("look at @" + dir)

	assert.Contains(t, got, "Contents of directory "+dir)
	assert.Contains(t, got, "do not call list_files on it again")
	assert.Contains(t, got, "b.txt")
	assert.Contains(t, got, "sub/")
}

func TestExpandReferencesIgnoresNonPaths(t *testing.T) {
	msg := "email @alice and @bob about this"
	assert.Equal(t, msg, ExpandReferences(msg))
}

func TestExpandReferencesIgnoresMissingPaths(t *testing.T) {
	msg := "see @/no/such/path/at/all.txt"
	assert.Equal(t, msg, ExpandReferences(msg))
}

func TestExpandReferencesDeduplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("once"), 0644))

	got := ExpandReferences("compare @" + path + " with @" + path)
	assert.Equal(t, 1, strings.Count(got, "Contents of "+path))
}

func TestExpandReferencesCommaTerminated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	got := ExpandReferences("check @" + path + ", then summarize")
	assert.Contains(t, got, "Contents of "+path)
}
