// Package ratelimit enforces the model provider budgets and fits the
// conversation window under the per-request token limit.
//
// The limiter holds process-wide sliding-window counters protected by its
// own mutex; Acquire is the only mutator. Waiting is cooperative: the
// limiter sleeps rather than erroring and reports progress through a
// notifier callback.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"aide/internal/conversation"
	"aide/internal/logging"
)

// TokenCounter counts tokens in text. Implementations may wrap a real
// tokenizer; the limiter falls back to a character heuristic when none is
// configured.
type TokenCounter interface {
	Count(text string) int
}

// Notifier receives human-readable progress messages while Acquire waits.
type Notifier func(message string)

// Config holds the limiter budgets.
type Config struct {
	MaxTokensPerRequest  int
	MaxTokensPerMinute   int
	MaxRequestsPerMinute int
}

// windowFraction keeps the fitted window under the request budget with
// headroom for the system prompt and response.
const windowFraction = 0.95

// Limiter counts tokens and throttles requests under sliding-window caps.
type Limiter struct {
	cfg     Config
	counter TokenCounter

	mu       sync.Mutex
	requests []time.Time
	tokens   []tokenGrant

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

type tokenGrant struct {
	at    time.Time
	count int
}

// New creates a limiter with the given budgets. counter may be nil, in
// which case the len/3 fallback is used.
func New(cfg Config, counter TokenCounter) *Limiter {
	return &Limiter{
		cfg:     cfg,
		counter: counter,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
}

// CountTokens estimates tokens in text. Uses the configured tokenizer when
// available, otherwise len(text)/3.
func (l *Limiter) CountTokens(text string) int {
	if l.counter != nil {
		return l.counter.Count(text)
	}
	return len(text) / 3
}

// TruncateText shortens text so that it counts at most maxTokens. With the
// fallback counter the result is at most 3*maxTokens bytes.
func (l *Limiter) TruncateText(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if l.CountTokens(text) <= maxTokens {
		return text
	}
	if l.counter == nil {
		limit := maxTokens * 3
		if limit >= len(text) {
			return text
		}
		return text[:limit]
	}
	// Binary search on the prefix length for real tokenizers.
	lo, hi := 0, len(text)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if l.counter.Count(text[:mid]) <= maxTokens {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return text[:lo]
}

// MessageTokens estimates tokens for one message, parts included.
func (l *Limiter) MessageTokens(msg conversation.Message) int {
	total := 0
	for _, p := range msg.Parts {
		total += l.CountTokens(p.Text)
		total += l.CountTokens(p.ContentText())
		if p.Args != nil {
			total += l.CountTokens(p.ArgsText())
		}
		total += l.CountTokens(p.ToolName)
	}
	return total
}

// historyTokens estimates tokens for a message slice.
func (l *Limiter) historyTokens(msgs []conversation.Message) int {
	total := 0
	for _, m := range msgs {
		total += l.MessageTokens(m)
	}
	return total
}

// FitContextWindow returns a suffix of history such that the estimated
// token total of suffix+newMessage stays below 95% of the per-request
// budget. Pruning cuts on turn boundaries only so tool pairs stay together.
// When even the empty history plus newMessage exceeds the limit, the empty
// slice is returned.
func (l *Limiter) FitContextWindow(history []conversation.Message, newMessage conversation.Message) []conversation.Message {
	budget := int(float64(l.cfg.MaxTokensPerRequest) * windowFraction)
	newTokens := l.MessageTokens(newMessage)

	if newTokens >= budget {
		logging.Context("New message alone exceeds the window budget (%d >= %d), dropping history", newTokens, budget)
		return []conversation.Message{}
	}

	kept := history
	total := l.historyTokens(kept) + newTokens
	for total > budget && len(kept) > 0 {
		cut := conversation.EarliestBoundaryAfter(kept, 1)
		if cut >= len(kept) {
			// No further boundary: the remaining turn is indivisible.
			logging.Context("Dropping final indivisible turn of %d messages to fit window", len(kept))
			kept = kept[:0]
			break
		}
		logging.ContextDebug("Pruning %d oldest messages to fit window", cut)
		kept = kept[cut:]
		total = l.historyTokens(kept) + newTokens
	}

	if len(kept) < len(history) {
		logging.Context("Context window fitted: %d -> %d messages (~%d tokens, budget %d)",
			len(history), len(kept), total, budget)
	}
	return kept
}

// Acquire blocks until the request described by text may proceed under the
// requests/minute and tokens/minute caps. It sleeps rather than erroring;
// the notifier is told whenever a wait begins.
func (l *Limiter) Acquire(ctx context.Context, text string, notify Notifier) error {
	need := l.CountTokens(text)

	for {
		l.mu.Lock()
		now := time.Now()
		l.prune(now)

		overRequests := l.cfg.MaxRequestsPerMinute > 0 && len(l.requests) >= l.cfg.MaxRequestsPerMinute
		used := 0
		for _, g := range l.tokens {
			used += g.count
		}
		overTokens := l.cfg.MaxTokensPerMinute > 0 && used+need > l.cfg.MaxTokensPerMinute

		if !overRequests && !overTokens {
			l.requests = append(l.requests, now)
			l.tokens = append(l.tokens, tokenGrant{at: now, count: need})
			l.mu.Unlock()
			logging.APIDebug("Limiter grant: %d tokens (window: %d requests, %d tokens)", need, len(l.requests), used+need)
			return nil
		}

		wait := l.nextExpiry(now)
		l.mu.Unlock()

		reason := "token"
		if overRequests {
			reason = "request"
		}
		if notify != nil {
			notify(fmt.Sprintf("Waiting %s for the %s budget to free up...", wait.Round(time.Second), reason))
		}
		logging.API("Limiter waiting %v (%s budget)", wait, reason)

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// prune drops window entries older than one minute. Caller holds the lock.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(l.requests) && l.requests[i].Before(cutoff) {
		i++
	}
	l.requests = l.requests[i:]

	j := 0
	for j < len(l.tokens) && l.tokens[j].at.Before(cutoff) {
		j++
	}
	l.tokens = l.tokens[j:]
}

// nextExpiry computes how long until the oldest window entry ages out.
// Caller holds the lock.
func (l *Limiter) nextExpiry(now time.Time) time.Duration {
	oldest := now
	if len(l.requests) > 0 && l.requests[0].Before(oldest) {
		oldest = l.requests[0]
	}
	if len(l.tokens) > 0 && l.tokens[0].at.Before(oldest) {
		oldest = l.tokens[0].at
	}
	wait := oldest.Add(time.Minute).Sub(now)
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}

// EstimatePayload renders an arbitrary request payload for counting.
func EstimatePayload(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// -----------------------------------------------------------------------------
// Global Limiter Instance
// -----------------------------------------------------------------------------

var (
	globalLimiter *Limiter
	globalMu      sync.Mutex
)

// Global returns the process-wide limiter, creating it with the given
// config on first use. Later calls ignore the config.
func Global(cfg Config) *Limiter {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLimiter == nil {
		globalLimiter = New(cfg, nil)
		logging.API("Limiter initialized: %d req/min, %d tok/min, %d tok/req",
			cfg.MaxRequestsPerMinute, cfg.MaxTokensPerMinute, cfg.MaxTokensPerRequest)
	}
	return globalLimiter
}

// ResetGlobal discards the process-wide limiter. The next Global call
// recreates it.
func ResetGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLimiter = nil
}
