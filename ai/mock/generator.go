package mock

import (
	"context"
	"sync"

	"github.com/poiesic/attest/ai"
)

// DefaultReply is returned by a MockGenerator with no queued replies and no GenerateFunc.
const DefaultReply = "This is a generated answer."

// MockGenerator is a test double for ai.Generator.
// Behavior is chosen in order: GenerateFunc if set, then the next queued
// reply, then DefaultReply.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error)

	mu        sync.Mutex
	replies   []string
	prompts   []string
	options   []ai.GenerateOptions
	callCount int
}

// NewMockGenerator creates a mock generator with default behavior.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// WithGenerateFunc sets GenerateFunc and returns m.
func (m *MockGenerator) WithGenerateFunc(fn func(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error)) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateFunc = fn
	return m
}

// QueueReplies appends replies returned by subsequent calls, one per call.
func (m *MockGenerator) QueueReplies(replies ...string) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
	return m
}

// Generate records the call and returns the configured reply.
func (m *MockGenerator) Generate(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	o := ai.ApplyGenerateOptions(opts...)

	m.mu.Lock()
	m.callCount++
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, o)
	fn := m.GenerateFunc
	var reply string
	queued := false
	if fn == nil && len(m.replies) > 0 {
		reply, m.replies = m.replies[0], m.replies[1:]
		queued = true
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	var err error
	switch {
	case fn != nil:
		reply, err = fn(ctx, prompt, o)
	case !queued:
		reply = DefaultReply
	}
	if err != nil {
		return "", err
	}

	if o.Stream != nil {
		if err := o.Stream(ctx, []byte(reply)); err != nil {
			return "", err
		}
	}
	return reply, nil
}

// CallCount returns the number of Generate calls.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns a copy of every prompt received, in call order.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Options returns a copy of the options of every call, in call order.
func (m *MockGenerator) Options() []ai.GenerateOptions {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.GenerateOptions(nil), m.options...)
}

// Reset clears recorded calls, queued replies and injected behavior.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.replies = nil
	m.prompts = nil
	m.options = nil
	m.GenerateFunc = nil
}
