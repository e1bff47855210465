package auth

import (
	"errors"
	"fmt"
)

// AuthenticationError represents authentication-related errors. Every failure
// of a token provider surfaces as one of these, with Type identifying the
// step that failed. Secrets (PKCE verifiers, refresh tokens) never appear in
// the message.
type AuthenticationError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// Common authentication error types.
var (
	ErrInvalidConfiguration = &AuthenticationError{
		Type:    "invalid_configuration",
		Message: "OAuth configuration is missing a required setting",
	}

	ErrDiscoveryFailed = &AuthenticationError{
		Type:    "discovery_failed",
		Message: "Failed to fetch the OIDC discovery document",
	}

	ErrServerStartFailed = &AuthenticationError{
		Type:    "server_start_failed",
		Message: "Failed to start OAuth callback server",
	}

	ErrBrowserOpenFailed = &AuthenticationError{
		Type:    "browser_open_failed",
		Message: "Failed to open browser for authentication",
	}

	ErrInvalidState = &AuthenticationError{
		Type:    "invalid_state",
		Message: "OAuth callback state mismatch (possible CSRF attack)",
	}

	ErrNoAuthorizationCode = &AuthenticationError{
		Type:    "no_authorization_code",
		Message: "No authorization code in OAuth callback",
	}

	ErrCallbackFailed = &AuthenticationError{
		Type:    "callback_failed",
		Message: "OAuth authorization failed",
	}

	ErrCallbackTimeout = &AuthenticationError{
		Type:    "callback_timeout",
		Message: "Timeout waiting for OAuth callback",
	}

	ErrExchangeFailed = &AuthenticationError{
		Type:    "exchange_failed",
		Message: "Failed to exchange authorization code for tokens",
	}

	ErrServerFlowFailed = &AuthenticationError{
		Type:    "server_flow_failed",
		Message: "Server-side OAuth authentication failed",
	}

	ErrPollTimeout = &AuthenticationError{
		Type:    "poll_timeout",
		Message: "Server-side OAuth authentication timed out",
	}
)

// NewAuthenticationError creates a new authentication error with a cause.
func NewAuthenticationError(baseErr *AuthenticationError, cause error) *AuthenticationError {
	return &AuthenticationError{
		Type:    baseErr.Type,
		Message: baseErr.Message,
		Cause:   cause,
	}
}

// authErrorWithCause builds an authentication error with both a custom
// message and a cause.
func authErrorWithCause(baseErr *AuthenticationError, message string, cause error) *AuthenticationError {
	return &AuthenticationError{
		Type:    baseErr.Type,
		Message: message,
		Cause:   cause,
	}
}

// authErrorf creates an authentication error of the given type with a
// formatted message replacing the base one.
func authErrorf(baseErr *AuthenticationError, format string, a ...any) *AuthenticationError {
	return &AuthenticationError{
		Type:    baseErr.Type,
		Message: fmt.Sprintf(format, a...),
	}
}

// IsAuthenticationError checks if an error is an authentication error.
func IsAuthenticationError(err error) bool {
	var authenticationError *AuthenticationError
	return errors.As(err, &authenticationError)
}

// IsType reports whether err is an AuthenticationError of the same type as
// baseErr.
func IsType(err error, baseErr *AuthenticationError) bool {
	var authenticationError *AuthenticationError
	if !errors.As(err, &authenticationError) {
		return false
	}
	return authenticationError.Type == baseErr.Type
}
