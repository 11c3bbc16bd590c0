package task

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/internal/agent"
	"aide/internal/conversation"
	"aide/internal/llm"
	"aide/internal/notes"
	"aide/internal/prompt"
	"aide/internal/ratelimit"
	"aide/internal/toolcall"
	"aide/internal/tools"
	"aide/internal/ux"
)

func openTestNotes(t *testing.T) *notes.Store {
	t.Helper()
	store, err := notes.Open(filepath.Join(t.TempDir(), "notes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestTask(t *testing.T, stub *llm.StubClient) *LLMTask {
	t.Helper()
	registry := tools.NewRegistry()
	registry.MustRegister(&tools.Tool{
		Name:        "boom",
		Description: "Always fails.",
		Schema:      tools.ToolSchema{Properties: map[string]tools.Property{}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("kaput")
		},
	})

	return &LLMTask{
		Manager: conversation.NewManager(t.TempDir()),
		Client:  stub,
		Runner: &agent.Runner{
			Limiter: ratelimit.New(ratelimit.Config{MaxTokensPerRequest: 1 << 20}, nil),
			Handler: &toolcall.Handler{Yolo: true},
		},
		Registry:  registry,
		Composer:  &prompt.Composer{},
		UI:        &ux.RecordingUI{},
		AgentName: "aide",
		Retries:   1,
	}
}

func TestExecutePersistsSuccessfulTurn(t *testing.T) {
	stub := &llm.StubClient{Script: []llm.Response{{Text: "all good"}}}
	task := newTestTask(t, stub)

	output, err := task.Execute(context.Background(), "conv", "hello")
	require.NoError(t, err)
	assert.Equal(t, "all good", output)

	history, err := task.Manager.Load("conv")
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "hello", history.Messages[0].Text())
	assert.Equal(t, "all good", history.Messages[1].Text())
}

func TestExecuteRetriesAfterToolFailure(t *testing.T) {
	stub := &llm.StubClient{Script: []llm.Response{
		// First attempt calls the failing tool.
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "boom", Args: map[string]any{}}}},
		// The retry answers with text.
		{Text: "recovered"},
	}}
	task := newTestTask(t, stub)

	output, err := task.Execute(context.Background(), "conv", "do the thing")
	require.NoError(t, err)
	assert.Equal(t, "recovered", output)

	history, err := task.Manager.Load("conv")
	require.NoError(t, err)

	// The failed attempt survives in full: the user message, the tool call,
	// the synthetic Error: return, and the error note, then the retry turn.
	assert.True(t, conversation.PairsComplete(history.Messages))

	var texts []string
	for _, msg := range history.Messages {
		texts = append(texts, msg.Text())
	}
	joined := ""
	for _, text := range texts {
		joined += text + "\n"
	}
	assert.Contains(t, joined, "[System] Error occurred: tool boom failed: kaput")
	assert.Contains(t, joined, "[System] This is retry attempt 2\ndo the thing")
	assert.Contains(t, joined, "recovered")
}

func TestExecuteGivesUpAfterRetries(t *testing.T) {
	stub := &llm.StubClient{Err: errors.New("provider down")}
	task := newTestTask(t, stub)

	_, err := task.Execute(context.Background(), "conv", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "turn failed after 2 attempts")
	assert.Contains(t, err.Error(), "provider down")
}

func TestExecuteCancelledTurnNotPersisted(t *testing.T) {
	stub := &llm.StubClient{Script: []llm.Response{{Text: "unused"}}}
	task := newTestTask(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := task.Execute(ctx, "conv", "hi")
	require.ErrorIs(t, err, context.Canceled)

	history, err := task.Manager.Load("conv")
	require.NoError(t, err)
	assert.Empty(t, history.Messages)
}

func TestExecuteErrorHistoryPersistsForNextTurn(t *testing.T) {
	stub := &llm.StubClient{
		Script: []llm.Response{
			{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "boom", Args: map[string]any{}}}},
			{ToolCalls: []llm.ToolCall{{ID: "c2", Name: "boom", Args: map[string]any{}}}},
		},
	}
	task := newTestTask(t, stub)

	_, err := task.Execute(context.Background(), "conv", "hi")
	require.Error(t, err)

	history, loadErr := task.Manager.Load("conv")
	require.NoError(t, loadErr)
	assert.True(t, conversation.PairsComplete(history.Messages))

	last := history.Messages[len(history.Messages)-1]
	assert.Contains(t, last.Text(), "[System] Error occurred:")
}

func TestUpdateConversationMemoryTool(t *testing.T) {
	history := conversation.NewHistory()
	tool := UpdateConversationMemoryTool(history, openTestNotes(t))

	result, err := tool.Execute(context.Background(), map[string]any{
		"past_conversation_summary":    "we discussed files",
		"past_conversation_transcript": "U: hi\nA: hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "Conversation memory updated", result)
	assert.Equal(t, "we discussed files", history.PastConversationSummary)
	assert.Equal(t, "U: hi\nA: hello", history.PastConversationTranscript)
}

func TestUpdateConversationMemoryWritesNotes(t *testing.T) {
	history := conversation.NewHistory()
	store := openTestNotes(t)
	tool := UpdateConversationMemoryTool(history, store)

	_, err := tool.Execute(context.Background(), map[string]any{
		"past_conversation_summary":    "s",
		"past_conversation_transcript": "t",
		"long_term_note":               "user prefers Go",
		"contextual_note":              "repo uses make",
		"context_path":                 "/work/repo",
	})
	require.NoError(t, err)

	global, err := store.ReadGlobal()
	require.NoError(t, err)
	assert.Equal(t, "user prefers Go", global)

	contextual, err := store.Read("/work/repo")
	require.NoError(t, err)
	assert.Equal(t, "repo uses make", contextual)

	assert.Equal(t, "user prefers Go", history.LongTermNote)
	assert.Equal(t, "repo uses make", history.ContextualNote)
}
