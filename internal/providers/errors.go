package providers

import (
	"fmt"
	"net/http"
	"strings"
)

// Reason categorizes why a backend request failed. The runner records the
// reason in the sentineled trial result; backends use it to decide whether
// an internal retry could succeed.
type Reason string

const (
	// ReasonRateLimit indicates rate limiting (HTTP 429)
	ReasonRateLimit Reason = "rate_limit"

	// ReasonAuth indicates authentication failure (HTTP 401, 403)
	ReasonAuth Reason = "auth"

	// ReasonTimeout indicates a request timeout or exceeded deadline
	ReasonTimeout Reason = "timeout"

	// ReasonServerError indicates provider-side issues (HTTP 5xx)
	ReasonServerError Reason = "server_error"

	// ReasonInvalidRequest indicates client-side issues (HTTP 400)
	ReasonInvalidRequest Reason = "invalid_request"

	// ReasonModelUnavailable indicates the requested model does not exist
	ReasonModelUnavailable Reason = "model_unavailable"

	// ReasonUnknown indicates an unclassified error
	ReasonUnknown Reason = "unknown"
)

// Retryable returns true if the reason suggests an internal retry may
// succeed. Auth and validation failures never do.
func (r Reason) Retryable() bool {
	switch r {
	case ReasonRateLimit, ReasonTimeout, ReasonServerError:
		return true
	default:
		return false
	}
}

// ProviderError is a structured error from a model backend. Trials that
// hit one are sentineled, never retried by the runner itself.
type ProviderError struct {
	// Reason categorizes the error
	Reason Reason

	// Provider is the backend name (e.g. "anthropic", "openai", "cohere")
	Provider string

	// Model is the model that was requested
	Model string

	// Status is the HTTP status code, if known
	Status int

	// Message is the human-readable error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	parts := []string{fmt.Sprintf("[%s]", e.Reason)}
	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError wraps cause in a classified ProviderError.
func NewProviderError(provider, model string, cause error) *ProviderError {
	err := &ProviderError{
		Provider: provider,
		Model:    model,
		Cause:    cause,
		Reason:   ReasonUnknown,
	}
	if cause != nil {
		err.Message = cause.Error()
		err.Reason = ClassifyError(cause)
	}
	return err
}

// WithStatus adds an HTTP status to the error and reclassifies from it.
func (e *ProviderError) WithStatus(status int) *ProviderError {
	e.Status = status
	if reason := classifyStatusCode(status); reason != ReasonUnknown {
		e.Reason = reason
	}
	return e
}

// ClassifyError inspects an error message and returns the appropriate Reason.
func ClassifyError(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context deadline") {
		return ReasonTimeout
	}

	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "rate_limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429") {
		return ReasonRateLimit
	}

	if strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "invalid api key") ||
		strings.Contains(errStr, "invalid_api_key") ||
		strings.Contains(errStr, "authentication") ||
		strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") {
		return ReasonAuth
	}

	if strings.Contains(errStr, "model not found") ||
		strings.Contains(errStr, "model_not_found") ||
		strings.Contains(errStr, "does not exist") {
		return ReasonModelUnavailable
	}

	if strings.Contains(errStr, "internal server") ||
		strings.Contains(errStr, "server error") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504") {
		return ReasonServerError
	}

	return ReasonUnknown
}

// classifyStatusCode returns a Reason based on HTTP status code.
func classifyStatusCode(status int) Reason {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ReasonAuth
	case status == http.StatusTooManyRequests:
		return ReasonRateLimit
	case status == http.StatusBadRequest:
		return ReasonInvalidRequest
	case status == http.StatusNotFound:
		return ReasonModelUnavailable
	case status >= 500:
		return ReasonServerError
	default:
		return ReasonUnknown
	}
}
