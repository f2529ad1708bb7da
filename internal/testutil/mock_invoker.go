// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/skillbench/skillbench/internal/provider"
)

// MockInvoker is a configurable mock for provider.Invoker used across test
// packages. Safe for concurrent use.
type MockInvoker struct {
	mu sync.Mutex

	// Responses maps prompt substrings to canned responses. The first
	// matching key wins; map iteration order makes multi-match setups
	// ambiguous, so tests should use disjoint keys.
	Responses map[string]string

	// DefaultResponse is returned when no key matches.
	DefaultResponse string

	// Failure, when set, is returned for every call.
	Failure *provider.Failure

	// Calls counts invocations; Prompts records them in order.
	Calls   int
	Prompts []string

	// Unavailable makes the Available probe report false.
	Unavailable bool
}

func (m *MockInvoker) Invoke(_ context.Context, prompt string, _ provider.ModelConfig) provider.InvocationResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.Prompts = append(m.Prompts, prompt)

	if m.Failure != nil {
		return provider.InvocationResult{Failure: m.Failure}
	}

	for key, resp := range m.Responses {
		if strings.Contains(prompt, key) {
			return provider.Respond(resp)
		}
	}

	if m.DefaultResponse != "" {
		return provider.Respond(m.DefaultResponse)
	}
	return provider.Respond("mock response")
}

func (m *MockInvoker) Available(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.Unavailable
}

// LastPrompt returns the most recent prompt, or "" when nothing was called.
func (m *MockInvoker) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}
