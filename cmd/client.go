package cmd

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/skillbench/skillbench/internal/provider"
)

// newInvokerFromFlags builds the invoker for one (provider, model) unit
// from common CLI flags. An explicit endpoint wins over the provider's
// default base URL; the API key falls back to the provider's conventional
// environment variable.
func newInvokerFromFlags(providerName, endpoint, apiKey string, callTimeout time.Duration, limiter *rate.Limiter) (provider.Invoker, error) {
	var opts []provider.Option

	baseURL := endpoint
	if baseURL == "" {
		baseURL = provider.DefaultBaseURL(providerName)
	}
	if baseURL != "" {
		opts = append(opts, provider.WithBaseURL(baseURL))
	}

	if apiKey == "" {
		if envVar, _ := provider.CredentialEnv(providerName); envVar != "" {
			apiKey = os.Getenv(envVar)
		}
	}
	if apiKey != "" {
		opts = append(opts, provider.WithAPIKey(apiKey))
	}

	if callTimeout > 0 {
		opts = append(opts, provider.WithCallTimeout(callTimeout))
	}
	if limiter != nil {
		opts = append(opts, provider.WithRateLimiter(limiter))
	}

	return provider.NewInvoker(providerName, opts...)
}

// checkCredentials verifies before any test runs that every provider in
// the matrix has its API key available, so a misconfigured matrix fails
// up front instead of mid-run.
func checkCredentials(providers []string, apiKey, endpoint string) error {
	if apiKey != "" || endpoint != "" {
		return nil
	}

	checked := make(map[string]bool, len(providers))
	for _, p := range providers {
		if checked[p] {
			continue
		}
		checked[p] = true

		envVar, required := provider.CredentialEnv(p)
		if required && os.Getenv(envVar) == "" {
			return fmt.Errorf("provider %s requires %s to be set (or pass --api-key)", p, envVar)
		}
	}
	return nil
}
