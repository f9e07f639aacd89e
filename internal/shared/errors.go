package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrConfigMissing = fmt.Errorf("configuration missing")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Local environment errors
	ErrCryptoUnavailable    = fmt.Errorf("secure random source unavailable")
	ErrClipboardUnavailable = fmt.Errorf("clipboard unavailable")

	// Authorization flow errors
	ErrProviderDenied     = fmt.Errorf("authorization denied by provider")
	ErrNoCode             = fmt.Errorf("no authorization code in callback")
	ErrStateMismatch      = fmt.Errorf("state parameter mismatch")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrFlowNotFound       = fmt.Errorf("authorization flow not found")
	ErrInvalidTransition  = fmt.Errorf("invalid flow transition")

	// Session errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API errors
	ErrTokenExchange    = fmt.Errorf("token exchange failed")
	ErrProfileFetch     = fmt.Errorf("profile fetch failed")
	ErrPageFetch        = fmt.Errorf("page fetch failed")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// HTTPError is a non-success response from the provider.
//
// Unwraps to Kind so callers can match with [errors.Is].
type HTTPError struct {
	Kind   error
	Status int
	URL    string
	Body   string
}

func (e *HTTPError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%v: status %d from %s: %s", e.Kind, e.Status, e.URL, e.Body)
	}
	return fmt.Sprintf("%v: status %d: %s", e.Kind, e.Status, e.Body)
}

func (e *HTTPError) Unwrap() error {
	return e.Kind
}

// NewHTTPError creates an [HTTPError] of the given kind.
func NewHTTPError(kind error, status int, url string, body []byte) *HTTPError {
	return &HTTPError{Kind: kind, Status: status, URL: url, Body: string(body)}
}

// AsHTTPError extracts an [HTTPError] from err's chain.
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// IsSecurityError reports whether err halts the automated flow and needs manual intervention.
func IsSecurityError(err error) bool {
	return errors.Is(err, ErrStateMismatch) || errors.Is(err, ErrProviderDenied)
}
