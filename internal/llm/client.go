// Package llm defines the model-provider capability used by the agent core.
//
// The concrete SDK is an implementation detail behind the Client interface;
// the core only needs text completion and tool-calling chat.
package llm

import (
	"context"

	"aide/internal/conversation"
)

// ToolDefinition describes a tool the model may invoke.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"` // JSON Schema for parameters
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Usage captures token usage metrics from the provider.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Response contains the model's reply for one chat call.
type Response struct {
	// Text is the assistant prose (may be empty when only tools are called).
	Text string `json:"text"`

	// ToolCalls are the tool invocations the model requested, in emission
	// order.
	ToolCalls []ToolCall `json:"tool_calls"`

	// Usage holds token accounting when the provider reports it.
	Usage Usage `json:"usage"`
}

// ChatRequest is one model turn: a system prompt, the conversation window,
// and the tool definitions the model may use.
type ChatRequest struct {
	SystemPrompt string
	Messages     []conversation.Message
	Tools        []ToolDefinition
}

// Client is the provider capability.
type Client interface {
	// Complete runs a single plain completion. Used by prompt hooks and the
	// summarizer.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Chat runs one conversational turn with tool calling.
	Chat(ctx context.Context, req ChatRequest) (*Response, error)
}
