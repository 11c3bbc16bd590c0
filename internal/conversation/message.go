// Package conversation defines the message model shared by the agent core.
//
// A conversation is an ordered sequence of messages. Request messages carry
// user prompts and tool returns; response messages carry assistant text and
// tool calls. Every tool call has exactly one matching tool return within the
// same conversation, and the pair is never split by a summary boundary or by
// context-window pruning.
package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the side of the conversation a message belongs to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartKind identifies the payload of a message part.
type PartKind string

const (
	// PartUserPrompt is a user-authored prompt (request messages).
	PartUserPrompt PartKind = "user_prompt"

	// PartToolReturn is the result of an executed tool call (request messages).
	PartToolReturn PartKind = "tool_return"

	// PartText is assistant prose (response messages).
	PartText PartKind = "text"

	// PartToolCall is a tool invocation emitted by the model (response messages).
	PartToolCall PartKind = "tool_call"
)

// Part is one unit of message content.
type Part struct {
	Kind PartKind `json:"kind"`

	// Text carries user_prompt and text parts.
	Text string `json:"text,omitempty"`

	// ToolName and ToolCallID are set on tool_call and tool_return parts.
	ToolName   string `json:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Args holds tool-call arguments. Opaque: a JSON string or a mapping,
	// exactly as the model emitted it.
	Args any `json:"args,omitempty"`

	// Content holds tool-return content, a string or structured value.
	Content any `json:"content,omitempty"`
}

// Message is either a request (user prompts, tool returns) or a response
// (assistant text, tool calls).
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserMessage builds a request message holding a single user prompt.
func NewUserMessage(text string) Message {
	return Message{
		Role:  RoleUser,
		Parts: []Part{{Kind: PartUserPrompt, Text: text}},
	}
}

// NewAssistantMessage builds a response message holding assistant text.
func NewAssistantMessage(text string) Message {
	return Message{
		Role:  RoleAssistant,
		Parts: []Part{{Kind: PartText, Text: text}},
	}
}

// NewToolReturnMessage builds a request message carrying one tool return.
func NewToolReturnMessage(toolName, toolCallID string, content any) Message {
	return Message{
		Role: RoleUser,
		Parts: []Part{{
			Kind:       PartToolReturn,
			ToolName:   toolName,
			ToolCallID: toolCallID,
			Content:    content,
		}},
	}
}

// IsRequest reports whether the message is a request (user side).
func (m Message) IsRequest() bool {
	return m.Role == RoleUser
}

// HasUserPrompt reports whether the message carries a user-authored prompt.
func (m Message) HasUserPrompt() bool {
	for _, p := range m.Parts {
		if p.Kind == PartUserPrompt {
			return true
		}
	}
	return false
}

// ToolCalls returns the tool-call parts of the message.
func (m Message) ToolCalls() []Part {
	var calls []Part
	for _, p := range m.Parts {
		if p.Kind == PartToolCall {
			calls = append(calls, p)
		}
	}
	return calls
}

// ToolReturns returns the tool-return parts of the message.
func (m Message) ToolReturns() []Part {
	var returns []Part
	for _, p := range m.Parts {
		if p.Kind == PartToolReturn {
			returns = append(returns, p)
		}
	}
	return returns
}

// Text concatenates the textual parts of the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Kind == PartText || p.Kind == PartUserPrompt {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// Merge combines another message's parts into this one. Used to keep the
// user/assistant alternation contract after summarization: two adjacent
// messages sharing a role become a single message.
func (m Message) Merge(other Message) Message {
	merged := Message{Role: m.Role}
	merged.Parts = append(merged.Parts, m.Parts...)
	merged.Parts = append(merged.Parts, other.Parts...)
	return merged
}

// ArgsMap decodes the part's tool-call arguments into a mapping. A JSON
// string argument payload is parsed; malformed payloads report ok=false and
// callers are expected to pass the call through untouched.
func (p Part) ArgsMap() (map[string]any, bool) {
	switch v := p.Args.(type) {
	case nil:
		return map[string]any{}, true
	case map[string]any:
		return v, true
	case string:
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, false
		}
		return m, true
	case json.RawMessage:
		var m map[string]any
		if err := json.Unmarshal(v, &m); err != nil {
			return nil, false
		}
		return m, true
	default:
		return nil, false
	}
}

// ContentText renders tool-return content as text. Structured content is
// serialized to JSON.
func (p Part) ContentText() string {
	switch v := p.Content.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// ArgsText renders tool-call arguments as text for display.
func (p Part) ArgsText() string {
	switch v := p.Args.(type) {
	case nil:
		return "{}"
	case string:
		return v
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
