// Package agent drives the model loop: it submits the conversation, resolves
// tool calls through the approval handler, executes approved tools, and
// feeds the returns back until the model produces a terminal text response.
package agent

import (
	"fmt"

	"aide/internal/conversation"
	"aide/internal/llm"
	"aide/internal/tools"
)

// Agent is one configured assistant: a model client, a system prompt, and
// the tools it may call.
type Agent struct {
	Name         string
	SystemPrompt string
	Client       llm.Client
	Registry     *tools.Registry
}

// Declarations renders the agent's tools for the provider.
func (a *Agent) Declarations() []llm.ToolDefinition {
	all := a.Registry.All()
	defs := make([]llm.ToolDefinition, 0, len(all))
	for _, tool := range all {
		defs = append(defs, llm.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.Schema.InputSchema(),
		})
	}
	return defs
}

// RunError carries the full history accumulated before a run failed, so a
// retry can resume from it instead of losing the partial turn.
type RunError struct {
	Err     error
	History []conversation.Message
}

func (e *RunError) Error() string {
	return fmt.Sprintf("agent run failed: %v", e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
