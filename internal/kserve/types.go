package kserve

import "time"

// ServingConfig describes a candidate model to serve via a KServe
// InferenceService for the duration of a benchmark unit.
type ServingConfig struct {
	// Name identifies the InferenceService resource.
	Name string

	// ModelURI is the model storage URI (e.g. "hf://mistralai/Mistral-7B-Instruct-v0.3").
	ModelURI string

	// Runtime is the KServe serving runtime (default: "kserve-vllm").
	Runtime string

	// GPUCount is the number of GPUs to request.
	GPUCount int

	// RuntimeArgs are additional arguments passed to the vLLM runtime.
	RuntimeArgs []string

	// ReadyTimeout is how long to wait for the InferenceService to become ready.
	ReadyTimeout time.Duration
}

// EndpointStatus is the observed state of a served model. EndpointURL is
// the OpenAI-compatible base URL benchmark units invoke against.
type EndpointStatus struct {
	Name        string `json:"name"`
	Ready       bool   `json:"ready"`
	EndpointURL string `json:"endpoint_url,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	Message     string `json:"message,omitempty"`
}

// DefaultServingConfig returns sensible defaults for serving a model.
func DefaultServingConfig(name, modelURI string) ServingConfig {
	return ServingConfig{
		Name:         name,
		ModelURI:     modelURI,
		Runtime:      "kserve-vllm",
		GPUCount:     1,
		ReadyTimeout: 10 * time.Minute,
	}
}
