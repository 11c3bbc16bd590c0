package conversation

// History is an owned, mutable conversation record. The Manager owns the
// lifecycle; other components borrow slices of Messages (the context-fit
// window) without mutating the owner.
type History struct {
	// Messages is the ordered transcript of the conversation.
	Messages []Message `json:"history"`

	// PastConversationSummary condenses turns that were summarized away.
	PastConversationSummary string `json:"past_conversation_summary"`

	// PastConversationTranscript is a readable transcript of summarized turns.
	PastConversationTranscript string `json:"past_conversation_transcript"`

	// LongTermNote is the global note.
	LongTermNote string `json:"long_term_note"`

	// ContextualNote is the note for the conversation's working directory.
	ContextualNote string `json:"contextual_note"`
}

// NewHistory returns an empty conversation history.
func NewHistory() *History {
	return &History{Messages: []Message{}}
}

// Append adds messages to the transcript.
func (h *History) Append(msgs ...Message) {
	h.Messages = append(h.Messages, msgs...)
}

// Clone returns a deep-enough copy for borrowing: the message slice is
// copied, parts are shared (parts are treated as immutable once appended).
func (h *History) Clone() *History {
	c := *h
	c.Messages = make([]Message, len(h.Messages))
	copy(c.Messages, h.Messages)
	return &c
}

// pendingToolCalls returns the set of tool_call_ids in msgs that have no
// matching tool_return in msgs.
func pendingToolCalls(msgs []Message) map[string]bool {
	pending := make(map[string]bool)
	for _, m := range msgs {
		for _, p := range m.Parts {
			switch p.Kind {
			case PartToolCall:
				pending[p.ToolCallID] = true
			case PartToolReturn:
				delete(pending, p.ToolCallID)
			}
		}
	}
	return pending
}

// PairsComplete reports whether every tool call in msgs has its matching
// tool return in msgs.
func PairsComplete(msgs []Message) bool {
	return len(pendingToolCalls(msgs)) == 0
}

// IsTurnBoundary reports whether index i is a turn boundary in msgs: the
// message at i starts a fresh user turn and no tool call before i is still
// awaiting its return. Cutting the list at a turn boundary never splits a
// tool pair.
func IsTurnBoundary(msgs []Message, i int) bool {
	if i <= 0 || i >= len(msgs) {
		return false
	}
	if msgs[i].Role != RoleUser || !msgs[i].HasUserPrompt() {
		return false
	}
	return PairsComplete(msgs[:i])
}

// LatestBoundaryBefore returns the largest turn boundary index <= limit, or
// 0 when none exists. A return value of 0 means "keep everything" (or "drop
// everything", depending on the caller's direction).
func LatestBoundaryBefore(msgs []Message, limit int) int {
	if limit > len(msgs) {
		limit = len(msgs)
	}
	for i := limit; i > 0; i-- {
		if IsTurnBoundary(msgs, i) {
			return i
		}
	}
	return 0
}

// EarliestBoundaryAfter returns the smallest turn boundary index >= from, or
// len(msgs) when none exists.
func EarliestBoundaryAfter(msgs []Message, from int) int {
	if from < 1 {
		from = 1
	}
	for i := from; i < len(msgs); i++ {
		if IsTurnBoundary(msgs, i) {
			return i
		}
	}
	return len(msgs)
}
