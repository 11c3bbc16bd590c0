package llm

import (
	"context"
	"fmt"
	"sync"
)

// StubClient replays a scripted sequence of responses. Tests use it to drive
// the agent loop without a provider.
type StubClient struct {
	mu sync.Mutex

	// Script is consumed one response per Chat call.
	Script []Response

	// CompleteFn overrides Complete; defaults to echoing a fixed summary.
	CompleteFn func(systemPrompt, userPrompt string) (string, error)

	// Requests records every chat request for assertions.
	Requests []ChatRequest

	// Err, when set, fails every call.
	Err error
}

// Complete implements Client.
func (s *StubClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if s.CompleteFn != nil {
		return s.CompleteFn(systemPrompt, userPrompt)
	}
	return "stub completion", nil
}

// Chat implements Client.
func (s *StubClient) Chat(ctx context.Context, req ChatRequest) (*Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	s.Requests = append(s.Requests, req)
	if len(s.Script) == 0 {
		return nil, fmt.Errorf("stub script exhausted after %d calls", len(s.Requests))
	}

	resp := s.Script[0]
	s.Script = s.Script[1:]
	return &resp, nil
}
