package mocks

import (
	"fmt"
	"sync"
)

// MockRandom is a deterministic Random for tests. Queued tokens are returned
// in order; when the queue is empty a counter-based token is generated so
// tests that don't care about ids still get unique ones.
type MockRandom struct {
	mu      sync.Mutex
	tokens  []string
	counter int
}

// NewMockRandom creates an empty MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// QueueToken queues tokens to be returned by Token
func (r *MockRandom) QueueToken(tokens ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens = append(r.tokens, tokens...)
}

// Token returns the next queued token, or a generated unique one
func (r *MockRandom) Token(prefix string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.tokens) > 0 {
		t := r.tokens[0]
		r.tokens = r.tokens[1:]
		return t
	}
	r.counter++
	return fmt.Sprintf("%smock%d", prefix, r.counter)
}
