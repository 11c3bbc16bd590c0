// Package task wires one user turn end to end: load the conversation,
// compose the system prompt, run the agent, and persist the result. Failed
// turns keep their partial history so a retry can recover from it.
package task

import (
	"context"
	"errors"
	"fmt"

	"aide/internal/agent"
	"aide/internal/conversation"
	"aide/internal/hooks"
	"aide/internal/llm"
	"aide/internal/logging"
	"aide/internal/notes"
	"aide/internal/prompt"
	"aide/internal/summarize"
	"aide/internal/tools"
	"aide/internal/ux"
)

// LLMTask executes user turns against one conversation.
type LLMTask struct {
	Manager    *conversation.Manager
	Notes      *notes.Store
	Client     llm.Client
	Runner     *agent.Runner
	Registry   *tools.Registry
	SubAgents  *agent.SubAgentRegistry
	Composer   *prompt.Composer
	Summarizer *summarize.Summarizer
	Hooks      *hooks.Dispatcher
	UI         ux.UI

	// AgentName labels the top-level agent in logs.
	AgentName string

	// Retries is the number of additional attempts after a failed turn.
	Retries int
}

// Execute runs one user turn, retrying on failure. Each retry resumes from
// the persisted history of the failed attempt, with the new user message
// prefixed by a retry note so the model knows it is recovering.
func (t *LLMTask) Execute(ctx context.Context, conversationName, message string) (string, error) {
	expanded := prompt.ExpandReferences(message)

	if t.Hooks != nil {
		t.Hooks.Execute(ctx, hooks.EventUserPromptSubmit, map[string]any{
			"conversation": conversationName,
			"prompt":       message,
		})
	}

	var lastErr error
	for attempt := 1; attempt <= t.Retries+1; attempt++ {
		turnMessage := expanded
		if attempt > 1 {
			turnMessage = fmt.Sprintf("[System] This is retry attempt %d\n%s", attempt, expanded)
			logging.Session("Retrying turn on %s (attempt %d)", conversationName, attempt)
		}

		output, err := t.runOnce(ctx, conversationName, turnMessage)
		if err == nil {
			return output, nil
		}
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		lastErr = err
		logging.Session("Turn failed on %s (attempt %d): %v", conversationName, attempt, err)
	}
	return "", fmt.Errorf("turn failed after %d attempts: %w", t.Retries+1, lastErr)
}

// runOnce performs a single attempt. On failure the partial history
// (including the synthetic error return) is persisted so the next attempt
// resumes from it; a cancelled turn is not persisted.
func (t *LLMTask) runOnce(ctx context.Context, conversationName, message string) (string, error) {
	history, err := t.Manager.Load(conversationName)
	if err != nil {
		return "", err
	}

	msgs := history.Messages
	if t.Summarizer != nil {
		t.Summarizer.CompressToolReturns(ctx, msgs)
		msgs, err = t.Summarizer.Summarize(ctx, msgs)
		if err != nil {
			logging.Session("History summarization failed, continuing unsummarized: %v", err)
			msgs = history.Messages
		}
	}

	a := t.buildAgent(ctx, conversationName, history)

	output, newMsgs, err := t.Runner.Run(ctx, a, message, msgs, t.UI)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logging.Session("Turn on %s cancelled, discarding partial history", conversationName)
			return "", err
		}

		var runErr *agent.RunError
		if errors.As(err, &runErr) {
			history.Messages = append(runErr.History, conversation.NewUserMessage(
				fmt.Sprintf("[System] Error occurred: %v", runErr.Err)))
			t.Manager.Update(conversationName, history)
			if saveErr := t.Manager.Save(conversationName); saveErr != nil {
				logging.Session("Failed to persist error history for %s: %v", conversationName, saveErr)
			}
		}
		return "", err
	}

	history.Messages = newMsgs
	t.Manager.Update(conversationName, history)
	if err := t.Manager.Save(conversationName); err != nil {
		return "", fmt.Errorf("failed to persist conversation: %w", err)
	}
	return output, nil
}

// buildAgent assembles the top-level agent for one attempt: the shared
// registry plus the per-conversation memory and delegation tools.
func (t *LLMTask) buildAgent(ctx context.Context, conversationName string, history *conversation.History) *agent.Agent {
	registry := tools.NewRegistry()
	for _, tool := range t.Registry.All() {
		registry.MustRegister(tool)
	}
	registry.MustRegister(UpdateConversationMemoryTool(history, t.Notes))

	a := &agent.Agent{
		Name:         t.AgentName,
		SystemPrompt: t.Composer.Compose(ctx),
		Client:       t.Client,
		Registry:     registry,
	}

	if t.SubAgents != nil && len(t.SubAgents.Names()) > 0 {
		registry.MustRegister(agent.DelegateToAgentTool(
			t.SubAgents, t.Runner, a, conversationName, t.Manager, t.UI))
	}
	return a
}
