package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/internal/conversation"
	"aide/internal/llm"
	"aide/internal/ux"
)

// memHistories keeps sub-agent conversations in a map.
type memHistories struct {
	saved map[string]*conversation.History
}

func newMemHistories() *memHistories {
	return &memHistories{saved: make(map[string]*conversation.History)}
}

func (m *memHistories) LoadSubAgent(parent, agent string) (*conversation.History, error) {
	if h, ok := m.saved[parent+"/"+agent]; ok {
		return h, nil
	}
	return conversation.NewHistory(), nil
}

func (m *memHistories) SaveSubAgent(parent, agent string, h *conversation.History) error {
	m.saved[parent+"/"+agent] = h
	return nil
}

func TestSubAgentRegistryLoadDefinitions(t *testing.T) {
	dir := t.TempDir()
	doc := `name: researcher
description: Digs through sources.
system_prompt: You research things.
tools: [read_file, glob_files]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "researcher.yaml"), []byte(doc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	r := NewSubAgentRegistry()
	require.NoError(t, r.LoadDefinitions(dir))

	def := r.Get("researcher")
	require.NotNil(t, def)
	assert.Equal(t, "Digs through sources.", def.Description)
	assert.Equal(t, []string{"read_file", "glob_files"}, def.Tools)
}

func TestSubAgentRegistryMissingDirOK(t *testing.T) {
	r := NewSubAgentRegistry()
	assert.NoError(t, r.LoadDefinitions(filepath.Join(t.TempDir(), "nope")))
}

func TestDelegateRunsNestedAgent(t *testing.T) {
	stub := &llm.StubClient{Script: []llm.Response{
		{Text: "Line1\nLine2", ToolCalls: []llm.ToolCall{
			{ID: "c1", Name: "echo", Args: map[string]any{"text": "probe"}},
		}},
		{Text: "found it"},
	}}

	parent := newTestAgent(stub, echoTool())
	registry := NewSubAgentRegistry()
	require.NoError(t, registry.Register(&SubAgentDefinition{
		Name:         "child",
		Description:  "A helper.",
		SystemPrompt: "You are the child.",
		Tools:        []string{"echo"},
	}))

	histories := newMemHistories()
	ui := &ux.RecordingUI{}
	tool := DelegateToAgentTool(registry, newTestRunner(), parent, "conv-1", histories, ui)

	assert.Contains(t, tool.Description, "child: A helper.")

	result, err := tool.Execute(context.Background(), map[string]any{
		"name": "child",
		"task": "find the thing",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sub-agent 'child' completed the task:\nfound it", result)

	// Intermediate child output nests under the parent with the indent prefix.
	out := ui.Output()
	assert.Contains(t, out, ">> Line1")
	assert.Contains(t, out, ">> Line2")

	// The child saw its own system prompt and only its tool subset.
	require.Len(t, stub.Requests, 2)
	assert.Equal(t, "You are the child.", stub.Requests[0].SystemPrompt)
	require.Len(t, stub.Requests[0].Tools, 1)
	assert.Equal(t, "echo", stub.Requests[0].Tools[0].Name)

	// The nested conversation persists under the parent conversation.
	saved := histories.saved["conv-1/child"]
	require.NotNil(t, saved)
	assert.NotEmpty(t, saved.Messages)
}

func TestDelegateAppendsContextToTask(t *testing.T) {
	stub := &llm.StubClient{Script: []llm.Response{{Text: "ok"}}}
	parent := newTestAgent(stub)
	registry := NewSubAgentRegistry()
	require.NoError(t, registry.Register(&SubAgentDefinition{Name: "child", Description: "x"}))

	tool := DelegateToAgentTool(registry, newTestRunner(), parent, "conv-1", newMemHistories(), &ux.RecordingUI{})
	_, err := tool.Execute(context.Background(), map[string]any{
		"name":    "child",
		"task":    "do it",
		"context": "the file lives in /tmp",
	})
	require.NoError(t, err)

	require.Len(t, stub.Requests, 1)
	assert.Contains(t, stub.Requests[0].Messages[0].Text(), "do it")
	assert.Contains(t, stub.Requests[0].Messages[0].Text(), "the file lives in /tmp")
}

func TestDelegateUnknownSubAgent(t *testing.T) {
	registry := NewSubAgentRegistry()
	require.NoError(t, registry.Register(&SubAgentDefinition{Name: "child", Description: "x"}))

	parent := newTestAgent(&llm.StubClient{})
	tool := DelegateToAgentTool(registry, newTestRunner(), parent, "conv-1", newMemHistories(), &ux.RecordingUI{})

	result, err := tool.Execute(context.Background(), map[string]any{"name": "ghost", "task": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Error executing sub-agent 'ghost': no such sub-agent (available: child)", result)
}

func TestDelegateChildFailureIsResultText(t *testing.T) {
	stub := &llm.StubClient{Err: errors.New("provider unavailable")}
	parent := newTestAgent(stub)
	registry := NewSubAgentRegistry()
	require.NoError(t, registry.Register(&SubAgentDefinition{Name: "child", Description: "x"}))

	tool := DelegateToAgentTool(registry, newTestRunner(), parent, "conv-1", newMemHistories(), &ux.RecordingUI{})
	result, err := tool.Execute(context.Background(), map[string]any{"name": "child", "task": "x"})
	require.NoError(t, err)
	assert.Contains(t, result, "Error executing sub-agent 'child':")
}
