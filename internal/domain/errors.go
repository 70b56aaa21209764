package domain

import "fmt"

// InputError rejects empty, whitespace-only, or oversized query text before
// any parser runs. It is the only error type visible to callers of the
// router and is never retried.
type InputError struct {
	Reason string
}

// Error implements the error interface
func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// NewInputError creates a new InputError
func NewInputError(reason string) *InputError {
	return &InputError{Reason: reason}
}

// ProviderError reports a network, authentication, timeout, or rate-limit
// failure from the LLM backend. It is recovered locally by falling back to
// the pattern parser and never surfaces past the router.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps a backend failure with its provider name
func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}

// MalformedResponseError reports an LLM reply that is not parseable as the
// expected structure or fails schema checks, including a confidence score
// that is missing or outside the [0,10] scale.
type MalformedResponseError struct {
	Reason string
	Raw    string
}

// Error implements the error interface
func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed LLM response: %s", e.Reason)
}

const rawSnippetLimit = 200

// NewMalformedResponseError records the failure reason and a truncated
// snippet of the raw reply for diagnostics.
func NewMalformedResponseError(reason, raw string) *MalformedResponseError {
	if len(raw) > rawSnippetLimit {
		raw = raw[:rawSnippetLimit]
	}
	return &MalformedResponseError{Reason: reason, Raw: raw}
}

// EmptyReplyError reports that the provider returned no usable text.
type EmptyReplyError struct {
	Provider string
}

// Error implements the error interface
func (e *EmptyReplyError) Error() string {
	return fmt.Sprintf("provider %s returned an empty reply", e.Provider)
}
