package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"aide/internal/conversation"
	"aide/internal/hooks"
	"aide/internal/llm"
	"aide/internal/logging"
	"aide/internal/ratelimit"
	"aide/internal/summarize"
	"aide/internal/toolcall"
	"aide/internal/ux"
)

// Runner executes full agent turns.
type Runner struct {
	Limiter *ratelimit.Limiter
	Handler *toolcall.Handler

	// Summarizer, when set, compresses oversized tool returns in place.
	Summarizer *summarize.Summarizer

	// Hooks, when set, receives pre/post-tool-use events. Pre-tool hook
	// modifications with a tool_args key are merged into the pending call.
	Hooks *hooks.Dispatcher

	// LongMessageTokenThreshold triggers a one-time consolidation reminder
	// once the accumulated conversation grows past it. Zero disables.
	LongMessageTokenThreshold int
	LongMessageWarningPrompt  string
}

// Run performs one full model loop: submit message+history, resolve every
// tool call, and repeat until the model answers with text only. The
// returned history contains the new user message, every assistant response,
// and every tool return. On failure the error is a *RunError carrying the
// history accumulated so far.
// The provider sees only the fitted context window; the full history stays
// owned by the caller and grows by this turn's messages.
func (r *Runner) Run(ctx context.Context, a *Agent, message string, history []conversation.Message, ui ux.UI) (string, []conversation.Message, error) {
	userMsg := conversation.NewUserMessage(message)
	window := r.Limiter.FitContextWindow(history, userMsg)

	full := make([]conversation.Message, len(history), len(history)+8)
	copy(full, history)
	full = append(full, userMsg)

	sent := make([]conversation.Message, 0, len(window)+8)
	sent = append(sent, window...)
	sent = append(sent, userMsg)

	appendBoth := func(msg conversation.Message) {
		full = append(full, msg)
		sent = append(sent, msg)
	}

	defs := a.Declarations()
	warned := false

	for {
		if err := ctx.Err(); err != nil {
			return "", full, &RunError{Err: err, History: full}
		}

		if !warned && r.LongMessageTokenThreshold > 0 && r.historyTokens(sent) > r.LongMessageTokenThreshold {
			warned = true
			logging.Agent("Conversation passed %d tokens, injecting consolidation reminder", r.LongMessageTokenThreshold)
			appendBoth(conversation.NewUserMessage(r.LongMessageWarningPrompt))
		}

		payload := ratelimit.EstimatePayload(sent)
		if err := r.Limiter.Acquire(ctx, payload, func(note string) { ui.Print(ux.Info(note)) }); err != nil {
			return "", full, &RunError{Err: err, History: full}
		}

		resp, err := a.Client.Chat(ctx, llm.ChatRequest{
			SystemPrompt: a.SystemPrompt,
			Messages:     sent,
			Tools:        defs,
		})
		if err != nil {
			return "", full, &RunError{Err: fmt.Errorf("model call failed: %w", err), History: full}
		}

		text := RemoveThinkingTags(resp.Text)
		appendBoth(buildAssistantMessage(text, resp.ToolCalls))

		if len(resp.ToolCalls) == 0 {
			logging.Agent("Turn complete after %d new messages", len(full)-len(history))
			return text, full, nil
		}

		if text != "" {
			ui.Print(text)
		}

		for _, call := range resp.ToolCalls {
			content, execErr := r.resolveCall(ctx, a, &call, ui)
			appendBoth(conversation.NewToolReturnMessage(call.Name, call.ID, content))
			if execErr != nil {
				return "", full, &RunError{Err: execErr, History: full}
			}
		}
	}
}

// resolveCall runs one tool call through the handler and the registry.
// Denials and hook output become tool-return content; only execution
// failures return an error, with the synthetic Error: return already
// recorded by the caller.
func (r *Runner) resolveCall(ctx context.Context, a *Agent, call *llm.ToolCall, ui ux.UI) (string, error) {
	args := call.Args

	if r.Hooks != nil {
		results := r.Hooks.Execute(ctx, hooks.EventPreToolUse, map[string]any{
			"tool_name": call.Name,
			"tool_args": args,
		})
		args = hooks.MergeToolArgs(args, results)
	}

	decision := r.Handler.Handle(ctx, ui, &toolcall.Call{
		ID:   call.ID,
		Name: call.Name,
		Args: args,
	})

	switch d := decision.(type) {
	case toolcall.Denied:
		logging.Agent("Tool %s denied: %s", call.Name, d.Reason)
		return d.Reason, nil
	case toolcall.Approved:
		if d.OverrideArgs != nil {
			args = d.OverrideArgs
		}
	}

	result, err := a.Registry.Execute(ctx, call.Name, args)
	content := ""
	if err != nil {
		content = fmt.Sprintf("Error: %v", err)
		ui.Print(ux.Error(fmt.Sprintf("Tool '%s' failed: %v", call.Name, err)))
	} else {
		content = result.Result
	}

	if r.Hooks != nil {
		r.Hooks.Execute(ctx, hooks.EventPostToolUse, map[string]any{
			"tool_name":   call.Name,
			"tool_args":   args,
			"tool_result": content,
			"success":     err == nil,
		})
	}

	if err != nil {
		return content, fmt.Errorf("tool %s failed: %w", call.Name, err)
	}

	if r.Summarizer != nil {
		content = r.Summarizer.ProcessToolReturn(ctx, content)
	}
	return content, nil
}

func (r *Runner) historyTokens(msgs []conversation.Message) int {
	total := 0
	for i := range msgs {
		total += r.Limiter.MessageTokens(msgs[i])
	}
	return total
}

// buildAssistantMessage assembles the persisted form of one model response.
// Tool calls without a provider ID get a generated one so returns can be
// paired.
func buildAssistantMessage(text string, calls []llm.ToolCall) conversation.Message {
	msg := conversation.Message{Role: conversation.RoleAssistant}
	if text != "" {
		msg.Parts = append(msg.Parts, conversation.Part{Kind: conversation.PartText, Text: text})
	}
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = uuid.NewString()
		}
		msg.Parts = append(msg.Parts, conversation.Part{
			Kind:       conversation.PartToolCall,
			ToolName:   calls[i].Name,
			ToolCallID: calls[i].ID,
			Args:       calls[i].Args,
		})
	}
	return msg
}
