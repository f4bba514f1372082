package generator

import (
	"context"
	"strings"
	"sync"
)

// MockCompleter returns canned responses. With no responses queued it echoes
// the draft under review, or the last paragraph of the prompt when there is
// no draft, so the full chain works offline.
type MockCompleter struct {
	Responses []string
	Err       error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one Complete invocation.
type MockCall struct {
	System string
	User   string
}

// Name returns the provider name.
func (m *MockCompleter) Name() string {
	return "mock"
}

// Complete implements Completer.
func (m *MockCompleter) Complete(_ context.Context, system, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{System: system, User: user})
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) > 0 {
		resp := m.Responses[0]
		m.Responses = m.Responses[1:]
		return resp, nil
	}

	if _, draft, ok := strings.Cut(user, draftMarker); ok {
		return strings.TrimSpace(draft), nil
	}
	paragraphs := strings.Split(strings.TrimSpace(user), "\n\n")
	return strings.TrimSpace(paragraphs[len(paragraphs)-1]), nil
}

// Calls returns the recorded invocations.
func (m *MockCompleter) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}
