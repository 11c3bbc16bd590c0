// Package hooks runs user-registered callbacks around agent lifecycle
// events. Hooks declare matchers over the event payload, run in parallel on
// a bounded worker pool, and report results in priority order.
package hooks

import (
	"context"
	"time"
)

// Event identifies a lifecycle point hooks can attach to.
type Event string

// The closed set of hook events.
const (
	EventSessionStart     Event = "session_start"
	EventSessionEnd       Event = "session_end"
	EventPreToolUse       Event = "pre_tool_use"
	EventPostToolUse      Event = "post_tool_use"
	EventNotification     Event = "notification"
	EventUserPromptSubmit Event = "user_prompt_submit"
)

// AllEvents lists every valid event.
var AllEvents = []Event{
	EventSessionStart,
	EventSessionEnd,
	EventPreToolUse,
	EventPostToolUse,
	EventNotification,
	EventUserPromptSubmit,
}

// ValidEvent reports whether e names a known event.
func ValidEvent(e Event) bool {
	for _, known := range AllEvents {
		if e == known {
			return true
		}
	}
	return false
}

// SkippedMessage is the exact result message of a hook whose matchers did
// not match the payload.
const SkippedMessage = "Skipped due to matchers"

// TimeoutExitCode marks a hook killed by its timeout.
const TimeoutExitCode = 124

// Matcher is one condition over the event payload. Field supports dotted
// access into nested maps, e.g. "metadata.user_id".
type Matcher struct {
	Field         string `yaml:"field" json:"field"`
	Operator      string `yaml:"operator" json:"operator"`
	Value         string `yaml:"value" json:"value"`
	CaseSensitive bool   `yaml:"case_sensitive" json:"case_sensitive"`
}

// Func is the callable a hook executes once its matchers pass.
type Func func(ctx context.Context, payload map[string]any) (*Result, error)

// Definition is the static record of one hook.
type Definition struct {
	Name     string         `yaml:"name" json:"name"`
	Events   []Event        `yaml:"events" json:"events"`
	Type     string         `yaml:"type" json:"type"`
	Config   map[string]any `yaml:"config" json:"config"`
	Matchers []Matcher      `yaml:"matchers" json:"matchers"`
	Priority int            `yaml:"priority" json:"priority"`
	Enabled  *bool          `yaml:"enabled" json:"enabled"`
	Timeout  time.Duration  `yaml:"timeout" json:"timeout"`
}

// IsEnabled treats a missing enabled field as true.
func (d *Definition) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// Hook pairs a definition with its runnable form.
type Hook struct {
	Definition
	Run Func
}

// Result is the outcome of one hook execution.
type Result struct {
	HookName string         `json:"hook_name"`
	Success  bool           `json:"success"`
	Output   string         `json:"output,omitempty"`
	Message  string         `json:"message,omitempty"`
	ExitCode int            `json:"exit_code"`
	Duration time.Duration  `json:"duration"`

	// Modifications is a free-form mapping the caller may act on. For
	// pre-tool-use hooks the "tool_args" key is merged into the pending
	// call's arguments.
	Modifications map[string]any `json:"modifications,omitempty"`
}

// MergeToolArgs folds tool_args modifications from results into args, in
// result order. Later hooks win on key conflicts.
func MergeToolArgs(args map[string]any, results []Result) map[string]any {
	merged := args
	for _, res := range results {
		overlay, ok := res.Modifications["tool_args"].(map[string]any)
		if !ok || len(overlay) == 0 {
			continue
		}
		if merged == nil {
			merged = make(map[string]any)
		}
		for k, v := range overlay {
			merged[k] = v
		}
	}
	return merged
}
