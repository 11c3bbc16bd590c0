// Package toolcall decides whether a model-emitted tool call may run.
//
// A handler composes three ordered middleware stacks: argument formatters
// rewrite how the call's arguments are shown to the user, tool policies make
// pre-confirmation decisions, and response handlers interpret non-y/n
// answers. Decisions are values, not errors; a denied call becomes a
// tool-return the model can react to.
package toolcall

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"aide/internal/logging"
	"aide/internal/ux"
)

// Call is one pending tool invocation.
type Call struct {
	ID   string
	Name string

	// Args is the parsed argument map, nil when the raw arguments did not
	// parse. Policies must tolerate nil.
	Args map[string]any

	// Raw is the original argument text, kept for display when Args is nil.
	Raw string
}

// Decision is the outcome of handling a call.
type Decision interface{ decision() }

// Approved allows the call. OverrideArgs, when non-nil, replaces the call's
// arguments before execution.
type Approved struct {
	OverrideArgs map[string]any
}

// Denied blocks the call. Reason is surfaced to the model as the tool-return
// content.
type Denied struct {
	Reason string
}

func (Approved) decision() {}
func (Denied) decision()   {}

// ArgumentFormatter rewrites the argument rendering shown to the user.
// Returning ("", false) passes through to the next formatter.
type ArgumentFormatter func(call *Call) (string, bool)

// Policy makes a pre-confirmation decision. Returning nil delegates to the
// next policy.
type Policy func(call *Call) Decision

// ResponseHandler interprets a user answer other than y/n. Returning nil
// delegates to the next handler.
type ResponseHandler func(ctx context.Context, ui ux.UI, call *Call, answer string) Decision

// Handler runs the three middleware stacks for every call.
type Handler struct {
	Formatters []ArgumentFormatter
	Policies   []Policy
	Responses  []ResponseHandler

	// Yolo skips the user prompt. Formatters, policies, and response
	// handlers still run, so validation denials still apply.
	Yolo bool
}

// Handle resolves one call to Approved or Denied.
func (h *Handler) Handle(ctx context.Context, ui ux.UI, call *Call) Decision {
	rendering := h.renderArgs(call)

	for _, policy := range h.Policies {
		decision := policy(call)
		switch d := decision.(type) {
		case Approved:
			logging.ToolCall("Tool %s auto-approved by policy", call.Name)
			ui.Print(ux.Success(fmt.Sprintf("Tool '%s' auto-approved", call.Name)))
			return d
		case Denied:
			logging.ToolCall("Tool %s denied by policy: %s", call.Name, d.Reason)
			ui.Print(ux.Error(fmt.Sprintf("Tool '%s' denied: %s", call.Name, d.Reason)))
			return d
		}
	}

	if h.Yolo {
		logging.ToolCallDebug("YOLO mode, approving %s without prompt", call.Name)
		ui.Print(ux.Success(fmt.Sprintf("Tool '%s' approved (YOLO mode)", call.Name)))
		return Approved{}
	}

	ui.Print(ux.Info(fmt.Sprintf("Tool '%s' wants to run with:", call.Name)))
	ui.Print(rendering)

	answer, err := ui.Ask("Approve? [y/n/other]: ")
	if err != nil {
		return Denied{Reason: fmt.Sprintf("Approval prompt failed: %v", err)}
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		logging.ToolCall("Tool %s approved by user", call.Name)
		return Approved{}
	case "n", "no":
		logging.ToolCall("Tool %s denied by user", call.Name)
		return Denied{Reason: "User denied the tool call"}
	}

	for _, handler := range h.Responses {
		if decision := handler(ctx, ui, call, answer); decision != nil {
			return decision
		}
	}

	logging.ToolCall("Tool %s denied with instruction: %s", call.Name, answer)
	return Denied{Reason: fmt.Sprintf("User denied the tool call with instruction: %s", answer)}
}

// renderArgs produces the argument section shown to the user, letting the
// first matching formatter replace the default JSON rendering.
func (h *Handler) renderArgs(call *Call) string {
	for _, format := range h.Formatters {
		if out, ok := format(call); ok {
			return out
		}
	}
	if call.Args == nil {
		return call.Raw
	}
	pretty, err := json.MarshalIndent(call.Args, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", call.Args)
	}
	return string(pretty)
}
