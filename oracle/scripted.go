package oracle

import (
	"context"
	"fmt"
	"sync"
)

// Scripted is a deterministic in-memory Oracle useful for tests and offline
// demos. Decisions are returned in FIFO order; every received request is
// recorded for later inspection.
type Scripted struct {
	mu        sync.Mutex
	decisions []Decision
	requests  []Request
}

// NewScripted constructs a scripted oracle that will replay the given
// decisions in order.
func NewScripted(decisions ...Decision) *Scripted {
	return &Scripted{decisions: decisions}
}

// Enqueue appends further decisions to the script.
func (s *Scripted) Enqueue(decisions ...Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, decisions...)
}

// Decide implements Oracle, popping the next scripted decision.
func (s *Scripted) Decide(_ context.Context, req Request) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)

	if len(s.decisions) == 0 {
		return Decision{}, fmt.Errorf("scripted oracle exhausted after %d requests", len(s.requests))
	}

	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d, nil
}

// Requests returns a copy of every request received so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}
