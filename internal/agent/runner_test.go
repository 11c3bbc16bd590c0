package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/internal/conversation"
	"aide/internal/llm"
	"aide/internal/ratelimit"
	"aide/internal/toolcall"
	"aide/internal/tools"
	"aide/internal/ux"
)

func newTestRunner() *Runner {
	return &Runner{
		Limiter: ratelimit.New(ratelimit.Config{MaxTokensPerRequest: 1 << 20}, nil),
		Handler: &toolcall.Handler{Yolo: true},
	}
}

func echoTool() *tools.Tool {
	return &tools.Tool{
		Name:        "echo",
		Description: "Echoes its input back.",
		Schema: tools.ToolSchema{
			Required:   []string{"text"},
			Properties: map[string]tools.Property{"text": {Type: "string"}},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return tools.StringArg(args, "text"), nil
		},
	}
}

func failingTool(err error) *tools.Tool {
	return &tools.Tool{
		Name:        "broken",
		Description: "Always fails.",
		Schema:      tools.ToolSchema{Properties: map[string]tools.Property{}},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return "", err
		},
	}
}

func newTestAgent(client llm.Client, toolset ...*tools.Tool) *Agent {
	registry := tools.NewRegistry()
	for _, tool := range toolset {
		registry.MustRegister(tool)
	}
	return &Agent{Name: "test", SystemPrompt: "be brief", Client: client, Registry: registry}
}

func TestRunTextOnlyTurn(t *testing.T) {
	stub := &llm.StubClient{Script: []llm.Response{{Text: "hello back"}}}
	a := newTestAgent(stub)

	text, history, err := newTestRunner().Run(context.Background(), a, "hello", nil, &ux.RecordingUI{})
	require.NoError(t, err)
	assert.Equal(t, "hello back", text)

	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Text())
	assert.Equal(t, conversation.RoleAssistant, history[1].Role)
	assert.Equal(t, "hello back", history[1].Text())
}

func TestRunStripsThinkingTags(t *testing.T) {
	stub := &llm.StubClient{Script: []llm.Response{{Text: "<thinking>hmm</thinking>done"}}}
	a := newTestAgent(stub)

	text, history, err := newTestRunner().Run(context.Background(), a, "go", nil, &ux.RecordingUI{})
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Equal(t, "done", history[1].Text())
}

func TestRunExecutesToolCalls(t *testing.T) {
	stub := &llm.StubClient{Script: []llm.Response{
		{Text: "calling echo", ToolCalls: []llm.ToolCall{
			{ID: "c1", Name: "echo", Args: map[string]any{"text": "ping"}},
		}},
		{Text: "echoed"},
	}}
	a := newTestAgent(stub, echoTool())
	ui := &ux.RecordingUI{}

	text, history, err := newTestRunner().Run(context.Background(), a, "run it", nil, ui)
	require.NoError(t, err)
	assert.Equal(t, "echoed", text)
	assert.Contains(t, ui.Output(), "calling echo")

	// user, assistant(tool call), tool return, assistant(final)
	require.Len(t, history, 4)
	calls := history[1].ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "c1", calls[0].ToolCallID)

	returns := history[2].ToolReturns()
	require.Len(t, returns, 1)
	assert.Equal(t, "c1", returns[0].ToolCallID)
	assert.Equal(t, "ping", returns[0].ContentText())
	assert.True(t, conversation.PairsComplete(history))
}

func TestRunAssignsMissingToolCallIDs(t *testing.T) {
	stub := &llm.StubClient{Script: []llm.Response{
		{ToolCalls: []llm.ToolCall{{Name: "echo", Args: map[string]any{"text": "x"}}}},
		{Text: "ok"},
	}}
	a := newTestAgent(stub, echoTool())

	_, history, err := newTestRunner().Run(context.Background(), a, "go", nil, &ux.RecordingUI{})
	require.NoError(t, err)

	calls := history[1].ToolCalls()
	require.Len(t, calls, 1)
	assert.NotEmpty(t, calls[0].ToolCallID)
	assert.True(t, conversation.PairsComplete(history))
}

func TestRunDenialBecomesToolReturn(t *testing.T) {
	stub := &llm.StubClient{Script: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "echo", Args: map[string]any{"text": "x"}}}},
		{Text: "understood"},
	}}
	a := newTestAgent(stub, echoTool())

	r := newTestRunner()
	r.Handler = &toolcall.Handler{
		Yolo: true,
		Policies: []toolcall.Policy{
			func(call *toolcall.Call) toolcall.Decision {
				return toolcall.Denied{Reason: "not allowed here"}
			},
		},
	}

	text, history, err := r.Run(context.Background(), a, "go", nil, &ux.RecordingUI{})
	require.NoError(t, err)
	assert.Equal(t, "understood", text)

	returns := history[2].ToolReturns()
	require.Len(t, returns, 1)
	assert.Equal(t, "not allowed here", returns[0].ContentText())
}

func TestRunToolFailureReturnsRunError(t *testing.T) {
	boom := errors.New("disk on fire")
	stub := &llm.StubClient{Script: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "broken", Args: map[string]any{}}}},
	}}
	a := newTestAgent(stub, failingTool(boom))
	ui := &ux.RecordingUI{}

	_, history, err := newTestRunner().Run(context.Background(), a, "go", nil, ui)
	require.Error(t, err)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.ErrorIs(t, runErr.Err, boom)

	// The failed call and its synthetic Error: return both survive in the
	// history so a retry can resume from a consistent transcript.
	require.Len(t, runErr.History, 3)
	assert.True(t, conversation.PairsComplete(runErr.History))
	returns := runErr.History[2].ToolReturns()
	require.Len(t, returns, 1)
	assert.True(t, strings.HasPrefix(returns[0].ContentText(), "Error: "))
	assert.Contains(t, returns[0].ContentText(), "disk on fire")
	assert.Equal(t, runErr.History, history)
	assert.Contains(t, ui.Output(), "disk on fire")
}

func TestRunModelFailureReturnsRunError(t *testing.T) {
	stub := &llm.StubClient{Err: errors.New("rate limited upstream")}
	a := newTestAgent(stub)

	_, _, err := newTestRunner().Run(context.Background(), a, "go", nil, &ux.RecordingUI{})
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	require.Len(t, runErr.History, 1)
	assert.Equal(t, "go", runErr.History[0].Text())
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newTestAgent(&llm.StubClient{})
	_, _, err := newTestRunner().Run(ctx, a, "go", nil, &ux.RecordingUI{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunPreservesOldHistoryOutsideWindow(t *testing.T) {
	stub := &llm.StubClient{Script: []llm.Response{{Text: "short"}}}
	a := newTestAgent(stub)

	r := newTestRunner()
	// A tiny window forces pruning of everything but the new message.
	r.Limiter = ratelimit.New(ratelimit.Config{MaxTokensPerRequest: 30}, nil)

	old := []conversation.Message{
		conversation.NewUserMessage(strings.Repeat("ancient history ", 20)),
		conversation.NewAssistantMessage(strings.Repeat("long reply ", 20)),
	}

	_, history, err := r.Run(context.Background(), a, "hi", old, &ux.RecordingUI{})
	require.NoError(t, err)

	// The provider saw the pruned window only.
	require.Len(t, stub.Requests, 1)
	assert.Len(t, stub.Requests[0].Messages, 1)

	// The caller keeps the full transcript.
	require.Len(t, history, 4)
	assert.Contains(t, history[0].Text(), "ancient history")
}

func TestRunInjectsLongMessageReminderOnce(t *testing.T) {
	stub := &llm.StubClient{Script: []llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "echo", Args: map[string]any{"text": "x"}}}},
		{Text: "done"},
	}}
	a := newTestAgent(stub, echoTool())

	r := newTestRunner()
	r.LongMessageTokenThreshold = 1
	r.LongMessageWarningPrompt = "Please consolidate the conversation."

	_, history, err := r.Run(context.Background(), a, "a fairly long message", nil, &ux.RecordingUI{})
	require.NoError(t, err)

	count := 0
	for _, msg := range history {
		if strings.Contains(msg.Text(), "Please consolidate") {
			count++
		}
	}
	assert.Equal(t, 1, count, "reminder is injected exactly once per run")
}
