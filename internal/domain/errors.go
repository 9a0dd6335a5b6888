package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredential indicates the upstream rejected the key (401/403).
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrRateLimited indicates the upstream throttled the request (429).
	ErrRateLimited = errors.New("rate limited")

	// ErrUpstream covers any other upstream status or transport failure.
	ErrUpstream = errors.New("upstream error")

	// ErrProviderNotFound indicates an unknown provider code.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrModelNotFound indicates a model code missing from the catalog.
	ErrModelNotFound = errors.New("model not found")

	// ErrChatNotFound indicates a missing chat turn.
	ErrChatNotFound = errors.New("chat not found")

	// ErrCatalogEmpty indicates a provider without any catalog models.
	ErrCatalogEmpty = errors.New("model catalog empty")

	// ErrCrypto indicates a credential could not be sealed or opened.
	ErrCrypto = errors.New("credential crypto failure")

	// ErrInvalidInput indicates a request that fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrQueueFull indicates the worker pool rejected a task.
	ErrQueueFull = errors.New("processing queue full")

	// ErrStreamTruncated indicates the upstream stream ended without a completion signal.
	ErrStreamTruncated = fmt.Errorf("%w: stream ended without completion signal", ErrUpstream)
)

// UpstreamError is returned by adapters for a rejected or failed upstream call.
// It unwraps to one of ErrInvalidCredential, ErrRateLimited or ErrUpstream.
type UpstreamError struct {
	Kind       error
	Provider   string
	StatusCode int
	Body       string
	Cause      error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode > 0:
		return fmt.Sprintf("provider %q: %v (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Body)
	case e.Cause != nil:
		return fmt.Sprintf("provider %q: %v: %v", e.Provider, e.Kind, e.Cause)
	default:
		return fmt.Sprintf("provider %q: %v", e.Provider, e.Kind)
	}
}

// Unwrap exposes both the error kind and the transport cause.
func (e *UpstreamError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// KindForStatus classifies an upstream HTTP status code.
func KindForStatus(status int) error {
	switch {
	case status == 401 || status == 403:
		return ErrInvalidCredential
	case status == 429:
		return ErrRateLimited
	default:
		return ErrUpstream
	}
}

// ErrorKindLabel returns a short label for metrics and logs.
func ErrorKindLabel(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrProviderNotFound):
		return "provider_not_found"
	case errors.Is(err, ErrChatNotFound):
		return "chat_not_found"
	case errors.Is(err, ErrCrypto):
		return "crypto"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	default:
		return "internal"
	}
}
