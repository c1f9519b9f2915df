package errors

import (
	"errors"
)

// Sentinel errors for the failure taxonomy. Component boundaries convert
// external failures into one of these; nothing past a boundary sees the
// underlying transport or driver error.
var (
	// ErrConnectivity - cache or upstream unreachable. Cache degrades to a
	// miss; upstream surfaces as a structured error result.
	ErrConnectivity = errors.New("connectivity error")

	// ErrMalformedResponse - upstream body is not JSON or has an unexpected
	// shape. The normalizer still produces a canonical value.
	ErrMalformedResponse = errors.New("malformed upstream response")

	// ErrDecision - the model's structured routing decision failed or named
	// an unknown strategy. The router falls back to the default strategy.
	ErrDecision = errors.New("route decision failed")

	// ErrTimeout - an external call exceeded its bound. The turn resolves to
	// an error result and is still recorded.
	ErrTimeout = errors.New("timeout")

	// ErrInvalidInput - caller supplied an unusable request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - resource not found.
	ErrNotFound = errors.New("not found")
)

// Kind maps an error to the short taxonomy name surfaced to callers.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConnectivity):
		return "connectivity"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrDecision):
		return "decision"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
