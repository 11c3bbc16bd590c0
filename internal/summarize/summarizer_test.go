package summarize

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aide/internal/conversation"
	"aide/internal/llm"
	"aide/internal/ratelimit"
)

// wordCounter makes token math predictable in tests.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func newTestSummarizer(cfg Config, reply string) (*Summarizer, *llm.StubClient) {
	stub := &llm.StubClient{
		CompleteFn: func(system, user string) (string, error) { return reply, nil },
	}
	limiter := ratelimit.New(ratelimit.Config{}, wordCounter{})
	return New(stub, limiter, cfg), stub
}

func TestSummarizeUnderThresholdUnchanged(t *testing.T) {
	s, _ := newTestSummarizer(Config{ConversationalTokenThreshold: 1000, SummaryWindow: 2}, "unused")

	msgs := []conversation.Message{
		conversation.NewUserMessage("A"),
		conversation.NewAssistantMessage("B"),
	}
	got, err := s.Summarize(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, msgs, got)
}

func TestSummarizeAlternation(t *testing.T) {
	s, _ := newTestSummarizer(Config{ConversationalTokenThreshold: 1, SummaryWindow: 2}, "A then B")

	msgs := []conversation.Message{
		conversation.NewUserMessage("A"),
		conversation.NewAssistantMessage("B"),
		conversation.NewUserMessage("C"),
		conversation.NewAssistantMessage("D"),
	}

	got, err := s.Summarize(context.Background(), msgs)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// First message merges the restoration summary with the preserved user
	// turn so the user/assistant alternation survives.
	assert.Equal(t, conversation.RoleUser, got[0].Role)
	text := got[0].Text()
	assert.Contains(t, text, RestorationPrefix)
	assert.Contains(t, text, "A then B")
	assert.Contains(t, text, "C")

	assert.Equal(t, conversation.RoleAssistant, got[1].Role)
	assert.Contains(t, got[1].Text(), "D")
}

func TestSummarizeKeepsToolPairsTogether(t *testing.T) {
	s, _ := newTestSummarizer(Config{ConversationalTokenThreshold: 1, SummaryWindow: 2}, "condensed")

	msgs := []conversation.Message{
		conversation.NewUserMessage("first"),
		{Role: conversation.RoleAssistant, Parts: []conversation.Part{
			{Kind: conversation.PartToolCall, ToolName: "read_file", ToolCallID: "c1"},
		}},
		conversation.NewToolReturnMessage("read_file", "c1", "contents"),
		conversation.NewAssistantMessage("done"),
		conversation.NewUserMessage("second"),
		conversation.NewAssistantMessage("reply"),
	}

	got, err := s.Summarize(context.Background(), msgs)
	require.NoError(t, err)
	assert.True(t, conversation.PairsComplete(got))
	// The tail keeps the last complete turn verbatim.
	assert.Contains(t, got[len(got)-1].Text(), "reply")
}

func TestSummarizeNoSafeSplitKeepsHistory(t *testing.T) {
	s, _ := newTestSummarizer(Config{ConversationalTokenThreshold: 1, SummaryWindow: 5}, "unused")

	msgs := []conversation.Message{
		conversation.NewUserMessage("only turn with many words in it"),
		conversation.NewAssistantMessage("reply"),
	}
	got, err := s.Summarize(context.Background(), msgs)
	require.NoError(t, err)
	assert.Equal(t, msgs, got)
}

func TestSummarizeChunksLargeHead(t *testing.T) {
	calls := 0
	stub := &llm.StubClient{
		CompleteFn: func(system, user string) (string, error) {
			calls++
			return "partial summary", nil
		},
	}
	limiter := ratelimit.New(ratelimit.Config{}, wordCounter{})
	s := New(stub, limiter, Config{ConversationalTokenThreshold: 40, SummaryWindow: 2})

	var msgs []conversation.Message
	for i := 0; i < 8; i++ {
		msgs = append(msgs,
			conversation.NewUserMessage(strings.Repeat("question ", 10)),
			conversation.NewAssistantMessage(strings.Repeat("answer ", 10)),
		)
	}

	got, err := s.Summarize(context.Background(), msgs)
	require.NoError(t, err)
	assert.Less(t, len(got), len(msgs))
	// Chunked heads need one call per chunk plus a consolidation pass.
	assert.Greater(t, calls, 2)
}

func TestProcessToolReturnUnderThreshold(t *testing.T) {
	s, _ := newTestSummarizer(Config{ToolResultMessageThreshold: 100, ToolResultInsanityThreshold: 1000}, "unused")
	content := "short result"
	assert.Equal(t, content, s.ProcessToolReturn(context.Background(), content))
}

func TestProcessToolReturnSummarizes(t *testing.T) {
	s, _ := newTestSummarizer(Config{ToolResultMessageThreshold: 5, ToolResultInsanityThreshold: 1000}, "the gist")
	content := strings.Repeat("word ", 20)

	got := s.ProcessToolReturn(context.Background(), content)
	assert.True(t, strings.HasPrefix(got, summaryPrefix))
	assert.Contains(t, got, "the gist")
}

func TestProcessToolReturnTruncatesInsaneContent(t *testing.T) {
	stub := &llm.StubClient{
		CompleteFn: func(system, user string) (string, error) {
			return "", assert.AnError
		},
	}
	limiter := ratelimit.New(ratelimit.Config{}, wordCounter{})
	s := New(stub, limiter, Config{ToolResultMessageThreshold: 5, ToolResultInsanityThreshold: 10})

	content := strings.Repeat("word ", 50)
	got := s.ProcessToolReturn(context.Background(), content)
	assert.True(t, strings.HasPrefix(got, truncatedPrefix))
	assert.Less(t, len(got), len(content))
}

func TestProcessToolReturnIdempotent(t *testing.T) {
	s, stub := newTestSummarizer(Config{ToolResultMessageThreshold: 1, ToolResultInsanityThreshold: 1000}, "gist")

	first := s.ProcessToolReturn(context.Background(), strings.Repeat("word ", 20))
	require.True(t, strings.HasPrefix(first, summaryPrefix))

	stub.CompleteFn = func(system, user string) (string, error) {
		t.Fatal("already-summarized content must not be reprocessed")
		return "", nil
	}
	second := s.ProcessToolReturn(context.Background(), first)
	assert.Equal(t, first, second)
}

func TestCompressToolReturnsInPlace(t *testing.T) {
	s, _ := newTestSummarizer(Config{ToolResultMessageThreshold: 5, ToolResultInsanityThreshold: 1000}, "gist")

	msgs := []conversation.Message{
		conversation.NewToolReturnMessage("run_shell_command", "c1", strings.Repeat("line ", 30)),
		conversation.NewUserMessage("untouched"),
	}
	s.CompressToolReturns(context.Background(), msgs)

	assert.True(t, strings.HasPrefix(msgs[0].Parts[0].ContentText(), summaryPrefix))
	assert.Equal(t, "untouched", msgs[1].Text())
}
