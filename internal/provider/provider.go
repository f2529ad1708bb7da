// Package provider defines the model invocation port: "send prompt, get
// text response" behind a narrow interface, with provider-specific adapters
// on the far side. Failures cross the boundary as classified results, never
// as panics or raw transport errors.
package provider

import (
	"context"
	"fmt"
	"strings"
)

// ModelConfig identifies one (provider, model) combination plus its
// provider-specific settings. Two configs sharing a model name across
// providers are distinct combinations.
type ModelConfig struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	BaseURL     string  `json:"base_url,omitempty"`
	Temperature float64 `json:"temperature"`

	// ExtraArgs is an opaque provider-specific argument string, recorded in
	// results but not interpreted by the engine.
	ExtraArgs string `json:"extra_args,omitempty"`
}

// Key returns the result-namespace key for this combination.
func (c ModelConfig) Key() string {
	return c.Provider + "/" + c.Model
}

// FailureKind classifies why an invocation produced no usable response.
type FailureKind string

const (
	FailureTimeout   FailureKind = "timeout"
	FailureTransport FailureKind = "transport"
	FailureEmpty     FailureKind = "empty"
)

// Failure describes a classified invocation failure.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// InvocationResult is the tagged outcome of one model call: either a text
// response or a classified failure. Exactly one of the two is set.
type InvocationResult struct {
	Text    string   `json:"text,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// OK reports whether the invocation produced a response.
func (r InvocationResult) OK() bool {
	return r.Failure == nil
}

// Respond builds a successful result.
func Respond(text string) InvocationResult {
	return InvocationResult{Text: text}
}

// Fail builds a classified failure result.
func Fail(kind FailureKind, format string, args ...any) InvocationResult {
	return InvocationResult{Failure: &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}}
}

// Invoker is the model invocation port. Baseline, skill and judge calls all
// go through the same implementation, so they share one timeout and retry
// policy.
type Invoker interface {
	// Invoke sends one complete prompt and blocks until a response or a
	// classified failure. Implementations must not leak partial output:
	// each retry re-sends the full prompt and only the terminal attempt's
	// outcome is returned.
	Invoke(ctx context.Context, prompt string, cfg ModelConfig) InvocationResult
}

// Prober is implemented by adapters that can cheaply check whether their
// backing service is reachable before a unit starts.
type Prober interface {
	Available(ctx context.Context) bool
}

// UnsupportedProviderError is returned when no adapter exists for a
// requested provider name.
type UnsupportedProviderError struct {
	Name string
}

func (e *UnsupportedProviderError) Error() string {
	return "unsupported provider: " + e.Name
}

// knownProviders enumerates the provider names with a working adapter. All
// of them speak the OpenAI-compatible chat completion API.
var knownProviders = map[string]bool{
	"openai":     true,
	"ollama":     true,
	"kserve":     true,
	"openrouter": true,
	"groq":       true,
	"together":   true,
	"vllm":       true,
}

// NewInvoker builds the adapter for a named provider. Unknown names fail
// with UnsupportedProviderError before any test executes.
func NewInvoker(providerName string, opts ...Option) (Invoker, error) {
	if !knownProviders[providerName] {
		return nil, &UnsupportedProviderError{Name: providerName}
	}
	return NewOpenAIInvoker(opts...), nil
}

// CredentialEnv returns the environment variable that supplies the API key
// for a provider, and whether the key is mandatory. Local providers such as
// ollama accept a key but run without one.
func CredentialEnv(providerName string) (envVar string, required bool) {
	switch providerName {
	case "ollama":
		return "OLLAMA_API_KEY", false
	case "kserve":
		// In-cluster endpoints authenticate via the cluster, not API keys.
		return "", false
	default:
		return strings.ToUpper(strings.ReplaceAll(providerName, "-", "_")) + "_API_KEY", true
	}
}

// DefaultBaseURL returns the conventional endpoint for a provider when no
// explicit base URL is configured.
func DefaultBaseURL(providerName string) string {
	switch providerName {
	case "ollama":
		return "http://localhost:11434/v1"
	default:
		return ""
	}
}
