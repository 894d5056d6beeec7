package services

import (
	"context"
	"sync"
)

// MockLLM is a scripted TextGenerator and ImageGenerator for tests.
type MockLLM struct {
	GenerateTextFunc  func(ctx context.Context, req TextRequest) (string, error)
	GenerateImageFunc func(ctx context.Context, req ImageRequest) (string, error)

	// Track calls for testing
	TextCalls  []TextRequest
	ImageCalls []ImageRequest

	// Queued replies are used in order before falling back to the funcs.
	textReplies []mockReply

	mu sync.Mutex // protects all fields above
}

type mockReply struct {
	text string
	err  error
}

var (
	_ TextGenerator  = (*MockLLM)(nil)
	_ ImageGenerator = (*MockLLM)(nil)
)

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// QueueText appends a successful text reply.
func (m *MockLLM) QueueText(text string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textReplies = append(m.textReplies, mockReply{text: text})
	return m
}

// QueueTextError appends a failing text reply.
func (m *MockLLM) QueueTextError(err error) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.textReplies = append(m.textReplies, mockReply{err: err})
	return m
}

func (m *MockLLM) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	m.mu.Lock()
	m.TextCalls = append(m.TextCalls, req)
	if len(m.textReplies) > 0 {
		r := m.textReplies[0]
		m.textReplies = m.textReplies[1:]
		m.mu.Unlock()
		return r.text, r.err
	}
	fn := m.GenerateTextFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return "Mock response", nil
}

func (m *MockLLM) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	m.mu.Lock()
	m.ImageCalls = append(m.ImageCalls, req)
	fn := m.GenerateImageFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return "https://images.example/mock.png", nil
}

// TextCallCount returns the number of GenerateText calls so far.
func (m *MockLLM) TextCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.TextCalls)
}

// ImageCallCount returns the number of GenerateImage calls so far.
func (m *MockLLM) ImageCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ImageCalls)
}

// Reset clears all call tracking and queued replies.
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TextCalls = nil
	m.ImageCalls = nil
	m.textReplies = nil
}
