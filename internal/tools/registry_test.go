package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticTool(name, result string) *Tool {
	return &Tool{
		Name:        name,
		Description: "returns " + result,
		Schema:      ToolSchema{Properties: map[string]Property{}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return result, nil
		},
	}
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(staticTool("a", "x")))

	assert.NotNil(t, r.Get("a"))
	assert.Nil(t, r.Get("missing"))
	assert.True(t, r.Has("a"))
	assert.Equal(t, 1, r.Count())
}

func TestRegisterDuplicateFails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(staticTool("a", "x")))

	err := r.Register(staticTool("a", "y"))
	assert.ErrorIs(t, err, ErrToolAlreadyRegistered)
}

func TestRegisterInvalidTool(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(&Tool{Description: "nameless"}))
	assert.Error(t, r.Register(&Tool{Name: "no-exec"}))
}

func TestNamesSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(staticTool("zeta", "z")))
	require.NoError(t, r.Register(staticTool("alpha", "a")))

	assert.Equal(t, []string{"alpha", "zeta"}, r.Names())
}

func TestSubset(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(staticTool("a", "x")))
	require.NoError(t, r.Register(staticTool("b", "y")))
	require.NoError(t, r.Register(staticTool("c", "z")))

	sub := r.Subset([]string{"a", "c", "ghost"})
	assert.Equal(t, []string{"a", "c"}, sub.Names())

	// An empty list keeps everything.
	assert.Same(t, r, r.Subset(nil))
}

func TestExecute(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(staticTool("a", "hello")))

	result, err := r.Execute(context.Background(), "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", result.Result)
	assert.Equal(t, "a", result.ToolName)
}

func TestExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute(context.Background(), "ghost", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestExecuteMissingRequiredArg(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Tool{
		Name:        "needy",
		Description: "requires path",
		Schema: ToolSchema{
			Required:   []string{"path"},
			Properties: map[string]Property{"path": {Type: "string"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			t.Fatal("must not execute without required args")
			return "", nil
		},
	}))

	result, err := r.Execute(context.Background(), "needy", map[string]any{})
	assert.ErrorIs(t, err, ErrMissingRequiredArg)
	require.NotNil(t, result)
	assert.ErrorIs(t, result.Error, ErrMissingRequiredArg)
}

func TestArgHelpers(t *testing.T) {
	args := map[string]any{
		"s":     "text",
		"i":     float64(7),
		"exact": 3,
		"b":     true,
	}

	assert.Equal(t, "text", StringArg(args, "s"))
	assert.Equal(t, "", StringArg(args, "missing"))
	assert.Equal(t, 7, IntArg(args, "i", 0))
	assert.Equal(t, 3, IntArg(args, "exact", 0))
	assert.Equal(t, 9, IntArg(args, "missing", 9))
	assert.True(t, BoolArg(args, "b", false))
	assert.False(t, BoolArg(args, "missing", false))
}

func TestInputSchema(t *testing.T) {
	s := ToolSchema{
		Required:   []string{"path"},
		Properties: map[string]Property{"path": {Type: "string"}},
	}
	schema := s.InputSchema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"path"}, schema["required"])

	// No required key when nothing is required.
	_, ok := ToolSchema{Properties: map[string]Property{}}.InputSchema()["required"]
	assert.False(t, ok)
}
