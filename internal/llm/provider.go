// Package llm contains the LLM backend adapters. Each backend is reached
// through the same narrow capability: send prompt text, receive reply text.
package llm

import "context"

// Provider is the closed capability interface the query parser depends on.
// One concrete adapter exists per backend; the adapter is selected once at
// startup from configuration.
type Provider interface {
	// Name identifies the backend for logging and error reporting.
	Name() string

	// Complete sends the prompt and returns the reply text. Implementations
	// return *domain.ProviderError on network, authentication, timeout, or
	// rate-limit failure and *domain.EmptyReplyError when the backend
	// replies with no usable text. The context bounds the outbound call.
	Complete(ctx context.Context, prompt string) (string, error)
}
