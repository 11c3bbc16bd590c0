package task

import (
	"context"

	"aide/internal/conversation"
	"aide/internal/logging"
	"aide/internal/notes"
	"aide/internal/tools"
)

// UpdateConversationMemoryTool builds the update_conversation_memory tool.
// It is the only tool allowed to mutate the conversation's summary and
// transcript fields; note arguments are written through to the note store.
func UpdateConversationMemoryTool(history *conversation.History, store *notes.Store) *tools.Tool {
	return &tools.Tool{
		Name: "update_conversation_memory",
		Description: "Update the conversation's persistent memory: the condensed summary of " +
			"past turns, the raw transcript tail, and optionally the long-term or contextual note. " +
			"Call this when asked to consolidate context.",
		Schema: tools.ToolSchema{
			Required: []string{"past_conversation_summary", "past_conversation_transcript"},
			Properties: map[string]tools.Property{
				"past_conversation_summary":    {Type: "string", Description: "Condensed summary of the conversation so far"},
				"past_conversation_transcript": {Type: "string", Description: "Verbatim transcript of the most recent turns"},
				"long_term_note":               {Type: "string", Description: "New global long-term note content"},
				"contextual_note":              {Type: "string", Description: "New contextual note content"},
				"context_path":                 {Type: "string", Description: "Directory the contextual note applies to (default: current directory)"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			history.PastConversationSummary = tools.StringArg(args, "past_conversation_summary")
			history.PastConversationTranscript = tools.StringArg(args, "past_conversation_transcript")

			if note, ok := args["long_term_note"].(string); ok {
				if err := store.WriteGlobal(note); err != nil {
					return "", err
				}
				history.LongTermNote = note
			}
			if note, ok := args["contextual_note"].(string); ok {
				key := tools.StringArg(args, "context_path")
				if err := store.Write(key, note); err != nil {
					return "", err
				}
				history.ContextualNote = note
			}

			logging.Session("Conversation memory updated (summary %d bytes, transcript %d bytes)",
				len(history.PastConversationSummary), len(history.PastConversationTranscript))
			return "Conversation memory updated", nil
		},
	}
}
