package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestModelConfigKey(t *testing.T) {
	cfg := ModelConfig{Provider: "openai", Model: "gpt-4o"}
	assert.Equal(t, "openai/gpt-4o", cfg.Key())

	// Same model name under two providers is two distinct combinations.
	other := ModelConfig{Provider: "ollama", Model: "gpt-4o"}
	assert.NotEqual(t, cfg.Key(), other.Key())
}

func TestInvocationResult(t *testing.T) {
	ok := Respond("hello")
	assert.True(t, ok.OK())
	assert.Equal(t, "hello", ok.Text)

	failed := Fail(FailureTransport, "connection refused to %s", "host")
	assert.False(t, failed.OK())
	assert.Equal(t, FailureTransport, failed.Failure.Kind)
	assert.Equal(t, "connection refused to host", failed.Failure.Message)
}

func TestCredentialEnv(t *testing.T) {
	tests := []struct {
		provider string
		envVar   string
		required bool
	}{
		{"openai", "OPENAI_API_KEY", true},
		{"anthropic", "ANTHROPIC_API_KEY", true},
		{"some-vendor", "SOME_VENDOR_API_KEY", true},
		{"ollama", "OLLAMA_API_KEY", false},
		{"kserve", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			envVar, required := CredentialEnv(tt.provider)
			assert.Equal(t, tt.envVar, envVar)
			assert.Equal(t, tt.required, required)
		})
	}
}

func TestDefaultBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:11434/v1", DefaultBaseURL("ollama"))
	assert.Empty(t, DefaultBaseURL("openai"))
}

func TestUnsupportedProviderError(t *testing.T) {
	err := &UnsupportedProviderError{Name: "carrier-pigeon"}
	assert.Equal(t, "unsupported provider: carrier-pigeon", err.Error())
}

func TestNewInvoker(t *testing.T) {
	invoker, err := NewInvoker("openai")
	assert.NoError(t, err)
	assert.NotNil(t, invoker)

	_, err = NewInvoker("carrier-pigeon")
	var unsupported *UnsupportedProviderError
	assert.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "carrier-pigeon", unsupported.Name)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"server error", &openai.APIError{HTTPStatusCode: http.StatusInternalServerError}, true},
		{"rate limited", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, true},
		{"unauthorized", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized}, false},
		{"bad request", &openai.APIError{HTTPStatusCode: http.StatusBadRequest}, false},
		{"request error", &openai.RequestError{HTTPStatusCode: http.StatusBadGateway, Err: errors.New("bad gateway")}, true},
		{"plain connection error", errors.New("connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestClassifyError(t *testing.T) {
	timeout := classifyError(context.DeadlineExceeded)
	assert.Equal(t, FailureTimeout, timeout.Failure.Kind)

	cancelled := classifyError(context.Canceled)
	assert.Equal(t, FailureTimeout, cancelled.Failure.Kind)

	transport := classifyError(errors.New("connection reset"))
	assert.Equal(t, FailureTransport, transport.Failure.Kind)
}
