// Package summarize compacts conversation histories that outgrow the
// conversational token budget. The head of the history is condensed into a
// single synthetic restoration message while a recent tail is kept verbatim,
// and oversized tool returns are compressed in place.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"aide/internal/conversation"
	"aide/internal/llm"
	"aide/internal/logging"
	"aide/internal/ratelimit"
)

// RestorationPrefix marks a synthetic message carrying condensed prior
// context. Downstream code treats messages bearing it as already summarized.
const RestorationPrefix = "SYSTEM: Automated Context Restoration"

// Tool-return compression prefixes. Contents already carrying one are
// never reprocessed.
const (
	summaryPrefix   = "SUMMARY of tool result:"
	truncatedPrefix = "TRUNCATED tool result:"
)

// chunkFraction of the conversational threshold bounds one summarization
// chunk.
const chunkFraction = 0.9

// Config carries the summarizer thresholds.
type Config struct {
	// ConversationalTokenThreshold is the total size above which the
	// history gets summarized.
	ConversationalTokenThreshold int

	// SummaryWindow is the minimum number of most-recent messages kept
	// verbatim.
	SummaryWindow int

	// ToolResultMessageThreshold is the per-message token count above which
	// a tool return is summarized in place.
	ToolResultMessageThreshold int

	// ToolResultInsanityThreshold is the token count above which a tool
	// return is truncated before summarization.
	ToolResultInsanityThreshold int
}

// Summarizer condenses histories using a dedicated summarization model call.
type Summarizer struct {
	client  llm.Client
	limiter *ratelimit.Limiter
	cfg     Config
}

// New creates a summarizer.
func New(client llm.Client, limiter *ratelimit.Limiter, cfg Config) *Summarizer {
	return &Summarizer{client: client, limiter: limiter, cfg: cfg}
}

const condensePrompt = `You are a conversation archivist. Condense the transcript below into a
compact context snapshot a future assistant turn can resume from. Preserve:
user goals and constraints, decisions made, file paths and commands touched,
unresolved questions, and any state the assistant promised to track.
Write plain prose, no preamble.`

const consolidatePrompt = `You are a conversation archivist. Merge the partial context snapshots
below into one coherent snapshot, removing repetition while keeping every
goal, decision, path, and open item. Write plain prose, no preamble.`

const toolResultPrompt = `Summarize the tool output below, keeping every concrete fact a coding
assistant might still need (paths, names, values, errors). Be brief.`

// Summarize returns the history unchanged while it fits the conversational
// threshold, otherwise replaces the oldest turns with a restoration message.
func (s *Summarizer) Summarize(ctx context.Context, msgs []conversation.Message) ([]conversation.Message, error) {
	total := s.historyTokens(msgs)
	if total <= s.cfg.ConversationalTokenThreshold {
		logging.ContextDebug("History at %d tokens, under threshold %d, skipping summarization",
			total, s.cfg.ConversationalTokenThreshold)
		return msgs, nil
	}

	split := s.splitPoint(msgs)
	if split <= 0 {
		logging.Context("History over threshold but no safe split point, keeping as is")
		return msgs, nil
	}

	head, tail := msgs[:split], msgs[split:]
	logging.Context("Summarizing %d messages, keeping %d verbatim (total %d tokens)",
		len(head), len(tail), total)

	summary, err := s.summarizeHead(ctx, head)
	if err != nil {
		return msgs, fmt.Errorf("failed to summarize history: %w", err)
	}

	snapshot := conversation.NewUserMessage(fmt.Sprintf(
		"%s\nThe conversation so far, condensed:\n%s", RestorationPrefix, summary))

	result := make([]conversation.Message, 0, len(tail)+1)
	if len(tail) > 0 && tail[0].Role == conversation.RoleUser {
		merged := snapshot.Merge(tail[0])
		result = append(result, merged)
		result = append(result, tail[1:]...)
	} else {
		result = append(result, snapshot)
		result = append(result, tail...)
	}
	return result, nil
}

// splitPoint finds the latest turn boundary leaving a tail of at least
// SummaryWindow messages. Returns 0 when no such boundary exists.
func (s *Summarizer) splitPoint(msgs []conversation.Message) int {
	latest := len(msgs) - s.cfg.SummaryWindow
	if latest <= 0 {
		return 0
	}
	return conversation.LatestBoundaryBefore(msgs, latest)
}

// summarizeHead condenses head into one summary string, chunking when the
// head alone exceeds the chunk budget.
func (s *Summarizer) summarizeHead(ctx context.Context, head []conversation.Message) (string, error) {
	budget := int(float64(s.cfg.ConversationalTokenThreshold) * chunkFraction)

	if s.historyTokens(head) <= budget {
		return s.condense(ctx, condensePrompt, renderTranscript(head))
	}

	chunks := s.chunk(head, budget)
	logging.ContextDebug("Head exceeds chunk budget, summarizing %d chunks", len(chunks))

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		partial, err := s.condense(ctx, condensePrompt, renderTranscript(chunk))
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		partials = append(partials, partial)
	}
	if len(partials) == 1 {
		return partials[0], nil
	}
	return s.condense(ctx, consolidatePrompt, strings.Join(partials, "\n\n---\n\n"))
}

// chunk splits messages into sequential runs, each under the token budget,
// cutting only on turn boundaries so tool pairs stay together.
func (s *Summarizer) chunk(msgs []conversation.Message, budget int) [][]conversation.Message {
	var chunks [][]conversation.Message
	start := 0
	running := 0

	for i := range msgs {
		size := s.limiter.MessageTokens(msgs[i])
		if running+size > budget && i > start {
			cut := conversation.LatestBoundaryBefore(msgs[:i+1], i)
			if cut > start {
				chunks = append(chunks, msgs[start:cut])
				start = cut
				running = s.historyTokens(msgs[start : i+1])
				continue
			}
		}
		running += size
	}
	if start < len(msgs) {
		chunks = append(chunks, msgs[start:])
	}
	return chunks
}

// condense performs one summarization model call behind the rate limiter.
func (s *Summarizer) condense(ctx context.Context, system, text string) (string, error) {
	if err := s.limiter.Acquire(ctx, text, nil); err != nil {
		return "", err
	}
	out, err := s.client.Complete(ctx, system, text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// historyTokens estimates the total size of a message slice.
func (s *Summarizer) historyTokens(msgs []conversation.Message) int {
	total := 0
	for i := range msgs {
		total += s.limiter.MessageTokens(msgs[i])
	}
	return total
}

// renderTranscript flattens messages into a plain-text transcript for the
// summarization model.
func renderTranscript(msgs []conversation.Message) string {
	var b strings.Builder
	for i := range msgs {
		msg := &msgs[i]
		for _, part := range msg.Parts {
			switch part.Kind {
			case conversation.PartUserPrompt:
				fmt.Fprintf(&b, "[user] %s\n", part.Text)
			case conversation.PartText:
				fmt.Fprintf(&b, "[assistant] %s\n", part.Text)
			case conversation.PartToolCall:
				fmt.Fprintf(&b, "[assistant calls %s] %s\n", part.ToolName, part.ArgsText())
			case conversation.PartToolReturn:
				fmt.Fprintf(&b, "[%s returned] %s\n", part.ToolName, part.ContentText())
			}
		}
	}
	return b.String()
}

// ProcessToolReturn compresses an oversized tool-return content string.
// Returns the content unchanged when it is under the message threshold or
// already carries a compression prefix. Past the insanity threshold the
// content is truncated before summarization; if summarization then fails,
// the truncated text is returned with the truncation prefix rather than
// failing the turn.
func (s *Summarizer) ProcessToolReturn(ctx context.Context, content string) string {
	if strings.HasPrefix(content, summaryPrefix) || strings.HasPrefix(content, truncatedPrefix) {
		return content
	}

	size := s.limiter.CountTokens(content)
	if size <= s.cfg.ToolResultMessageThreshold {
		return content
	}

	working := content
	truncated := false
	if size > s.cfg.ToolResultInsanityThreshold {
		working = s.limiter.TruncateText(working, s.cfg.ToolResultInsanityThreshold)
		truncated = true
		logging.ContextDebug("Tool return truncated from %d tokens before summarization", size)
	}

	summary, err := s.condense(ctx, toolResultPrompt, working)
	if err != nil {
		logging.Context("Tool-return summarization failed: %v", err)
		if truncated {
			return truncatedPrefix + "\n" + working
		}
		return content
	}
	return summaryPrefix + "\n" + summary
}

// CompressToolReturns applies ProcessToolReturn to every tool-return part
// in place.
func (s *Summarizer) CompressToolReturns(ctx context.Context, msgs []conversation.Message) {
	for i := range msgs {
		for j := range msgs[i].Parts {
			part := &msgs[i].Parts[j]
			if part.Kind != conversation.PartToolReturn {
				continue
			}
			text := part.ContentText()
			processed := s.ProcessToolReturn(ctx, text)
			if processed != text {
				part.Content = processed
			}
		}
	}
}
