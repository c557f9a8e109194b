package model

import (
	"errors"
	"fmt"
)

// ProviderErrorKind classifies provider failures into a small set of
// categories suitable for tier-router fallback decisions (spec §4.2 step 4:
// "any exception, or non-retriable API error" consumes the endpoint and
// moves to the next weighted pick).
type ProviderErrorKind string

const (
	// ProviderErrorKindAuth indicates authentication/authorization failures
	// (e.g. a missing or revoked API key) — not retryable.
	ProviderErrorKindAuth ProviderErrorKind = "auth"

	// ProviderErrorKindInvalidRequest indicates the request itself is
	// invalid; retrying without changing it will not succeed.
	ProviderErrorKindInvalidRequest ProviderErrorKind = "invalid_request"

	// ProviderErrorKindRateLimited indicates the provider is throttling
	// requests; the router treats this as exhausting this endpoint for the
	// current attempt and moves to the next weighted pick in tier.
	ProviderErrorKindRateLimited ProviderErrorKind = "rate_limited"

	// ProviderErrorKindUnavailable indicates a transient provider failure
	// (5xx, network issues) where a retry may succeed.
	ProviderErrorKindUnavailable ProviderErrorKind = "unavailable"

	// ProviderErrorKindUnknown indicates an unclassified provider failure.
	ProviderErrorKindUnknown ProviderErrorKind = "unknown"
)

// ProviderError describes a failure returned by a model provider. It
// crosses the llm/provider package boundary so the tier router can make
// stable, structured fallback decisions without depending on any one SDK's
// error types.
type ProviderError struct {
	provider  string
	operation string
	http      int
	kind      ProviderErrorKind
	code      string
	message   string
	requestID string
	retryable bool
	cause     error
}

// NewProviderError constructs a ProviderError. provider and kind are required.
func NewProviderError(provider, operation string, httpStatus int, kind ProviderErrorKind, code, message, requestID string, retryable bool, cause error) *ProviderError {
	if provider == "" {
		panic("model: provider is required")
	}
	if kind == "" {
		panic("model: provider error kind is required")
	}
	return &ProviderError{
		provider:  provider,
		operation: operation,
		http:      httpStatus,
		kind:      kind,
		code:      code,
		message:   message,
		requestID: requestID,
		retryable: retryable,
		cause:     cause,
	}
}

func (e *ProviderError) Provider() string        { return e.provider }
func (e *ProviderError) Operation() string       { return e.operation }
func (e *ProviderError) HTTPStatus() int         { return e.http }
func (e *ProviderError) Kind() ProviderErrorKind { return e.kind }
func (e *ProviderError) Code() string            { return e.code }
func (e *ProviderError) Message() string         { return e.message }
func (e *ProviderError) RequestID() string       { return e.requestID }

// Retryable reports whether retrying the call may succeed without changing
// the request. Nothing in this module consults it; the weighted-pick
// fallback across endpoints (spec §4.2 step 4) applies to every error
// regardless of Retryable.
func (e *ProviderError) Retryable() bool { return e.retryable }

func (e *ProviderError) Error() string {
	op := e.operation
	if op == "" {
		op = "request"
	}
	status := ""
	if e.http > 0 {
		status = fmt.Sprintf("%d ", e.http)
	}
	code := ""
	if e.code != "" {
		code = e.code + ": "
	}
	msg := e.message
	if msg == "" && e.cause != nil {
		msg = e.cause.Error()
	}
	if msg == "" {
		msg = "provider error"
	}
	return fmt.Sprintf("%s %s %s(%s): %s", e.provider, e.kind, status, op, code+msg)
}

// Unwrap returns the underlying provider error to preserve the error chain.
func (e *ProviderError) Unwrap() error { return e.cause }

// AsProviderError returns the first ProviderError in err's chain, if any.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
