package provider

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	defaultCallTimeout = 5 * time.Minute

	// maxAttempts bounds the retry policy: one initial call plus at most
	// two retries on network-class errors.
	maxAttempts   = 3
	initialDelay  = 2 * time.Second
	maxRetryDelay = 30 * time.Second
)

// OpenAIInvoker is the reference adapter for any OpenAI-compatible chat
// completion API (OpenAI, Ollama, vLLM behind KServe). It classifies
// failures, retries transient transport errors with backoff, and honours a
// shared per-provider rate limiter.
type OpenAIInvoker struct {
	client      *openai.Client
	callTimeout time.Duration
	limiter     *rate.Limiter
}

type invokerConfig struct {
	baseURL     string
	apiKey      string
	callTimeout time.Duration
	limiter     *rate.Limiter
}

// Option is a functional option for configuring an OpenAIInvoker.
type Option func(*invokerConfig)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *invokerConfig) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *invokerConfig) {
		if key != "" {
			c.apiKey = key
		}
	}
}

// WithCallTimeout bounds each individual model call.
func WithCallTimeout(d time.Duration) Option {
	return func(c *invokerConfig) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithRateLimiter attaches a limiter shared by every unit that talks to the
// same provider credential, serializing calls when the provider enforces
// rate limits.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *invokerConfig) {
		c.limiter = l
	}
}

// NewOpenAIInvoker creates the reference adapter.
func NewOpenAIInvoker(opts ...Option) *OpenAIInvoker {
	cfg := &invokerConfig{
		apiKey:      "not-needed",
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	clientCfg := openai.DefaultConfig(cfg.apiKey)
	if cfg.baseURL != "" {
		clientCfg.BaseURL = cfg.baseURL
	}

	return &OpenAIInvoker{
		client:      openai.NewClientWithConfig(clientCfg),
		callTimeout: cfg.callTimeout,
		limiter:     cfg.limiter,
	}
}

// Invoke sends the full prompt as a single user message. Transient
// transport failures are retried with exponential backoff; authentication
// and other 4xx errors are not. Only the terminal attempt's outcome is
// returned.
func (o *OpenAIInvoker) Invoke(ctx context.Context, prompt string, cfg ModelConfig) InvocationResult {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return Fail(FailureTimeout, "rate limiter wait aborted: %v", err)
		}
	}

	var resp openai.ChatCompletionResponse

	err := retry.Do(
		func() error {
			callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
			defer cancel()

			var apiErr error
			resp, apiErr = o.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
				Model: cfg.Model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleUser, Content: prompt},
				},
				Temperature: float32(cfg.Temperature),
			})
			return apiErr
		},
		retry.RetryIf(isRetryableError),
		retry.Attempts(maxAttempts),
		retry.Delay(initialDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("retrying model call",
				"provider", cfg.Provider,
				"model", cfg.Model,
				"attempt", n+1,
				"error", err,
			)
		}),
	)
	if err != nil {
		return classifyError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return Fail(FailureEmpty, "model %s returned an empty response", cfg.Model)
	}

	return Respond(resp.Choices[0].Message.Content)
}

// Available probes the endpoint by listing models, with a short timeout.
func (o *OpenAIInvoker) Available(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := o.client.ListModels(probeCtx)
	return err == nil
}

// isRetryableError permits retries only for network-class failures: server
// errors, rate limiting and connection problems. Authentication and other
// client errors fail immediately.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.HTTPStatusCode
		return code >= 500 || code == 429
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return true
	}

	// Unwrapped connection errors (refused, reset, DNS).
	return true
}

func classifyError(err error) InvocationResult {
	if errors.Is(err, context.DeadlineExceeded) {
		return Fail(FailureTimeout, "model call timed out: %v", err)
	}
	if errors.Is(err, context.Canceled) {
		return Fail(FailureTimeout, "model call cancelled: %v", err)
	}
	return Fail(FailureTransport, "model call failed: %v", err)
}
