package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeConfiguration     ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeStartup           ErrorType = "STARTUP_ERROR"
	ErrorTypeAuthentication    ErrorType = "AUTHENTICATION_ERROR"
	ErrorTypeRateLimit         ErrorType = "RATE_LIMIT_ERROR"
	ErrorTypeProvider          ErrorType = "PROVIDER_ERROR"
	ErrorTypeMalformedResponse ErrorType = "MALFORMED_RESPONSE_ERROR"
)

// AppError represents a structured error for the application
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode,omitempty"`
	ErrorCode  string    `json:"errorCode"`
	Recovery   string    `json:"recoverySuggestion,omitempty"`
	Err        error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// RecoveryFor returns the recovery suggestion of the first AppError in err's
// chain, or "" when there is none.
func RecoveryFor(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.RecoverySuggestion()
	}
	return ""
}

// NewConfigurationError creates an error for malformed configuration values
func NewConfigurationError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeConfiguration,
		Message:   message,
		ErrorCode: errorCode,
		Recovery:  "Check the environment variables and config.yaml.",
		Err:       err,
	}
}

// NewStartupError creates an error that prevents the chat loop from starting
func NewStartupError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeStartup,
		Message:   message,
		ErrorCode: errorCode,
		Recovery:  "Check your model provider credentials.",
		Err:       err,
	}
}

// NewAuthenticationError creates a provider authentication error (401/403)
func NewAuthenticationError(provider string, statusCode int, body string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthentication,
		Message:    fmt.Sprintf("%s API authentication failed: %s", provider, body),
		StatusCode: statusCode,
		ErrorCode:  "PROVIDER_AUTH_FAILED",
		Recovery:   "Verify the API key for " + provider + ".",
	}
}

// NewRateLimitError creates a provider rate limit error (429)
func NewRateLimitError(provider string, body string) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimit,
		Message:    fmt.Sprintf("%s API rate limit exceeded: %s", provider, body),
		StatusCode: http.StatusTooManyRequests,
		ErrorCode:  "PROVIDER_RATE_LIMITED",
		Recovery:   "Wait a moment before sending the next message.",
	}
}

// NewProviderError creates a generic provider error for any other failing status
func NewProviderError(provider string, statusCode int, body string) *AppError {
	return &AppError{
		Type:       ErrorTypeProvider,
		Message:    fmt.Sprintf("%s API error: %s", provider, body),
		StatusCode: statusCode,
		ErrorCode:  "PROVIDER_ERROR",
	}
}

// NewMalformedResponseError creates an error for responses that cannot be decoded to text
func NewMalformedResponseError(provider string, err error) *AppError {
	return &AppError{
		Type:      ErrorTypeMalformedResponse,
		Message:   fmt.Sprintf("%s returned a malformed response", provider),
		ErrorCode: "PROVIDER_MALFORMED_RESPONSE",
		Err:       err,
	}
}

// FromStatus classifies a failed provider HTTP response.
func FromStatus(provider string, statusCode int, body string) *AppError {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return NewAuthenticationError(provider, statusCode, body)
	case statusCode == http.StatusTooManyRequests:
		return NewRateLimitError(provider, body)
	default:
		return NewProviderError(provider, statusCode, body)
	}
}
