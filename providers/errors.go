package providers

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTokenTypeHint is returned when a revocation is requested with an
// unsupported token_type_hint.
var ErrInvalidTokenTypeHint = errors.New("token_type_hint must be access_token or refresh_token")

// ConfigurationError indicates broken deployment configuration (e.g. a malformed
// signing key). It is never retried.
type ConfigurationError struct {
	Reason string
	Err    error
}

// Error implements the error interface
func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

// Unwrap returns the underlying error
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Attempt records the outcome of one call to the provider with one client identity.
type Attempt struct {
	// ClientID is the client identity that was attempted
	ClientID string `json:"client_id"`

	// StatusCode is the HTTP status returned (0 if no response was received)
	StatusCode int `json:"status,omitempty"`

	// Body is the (truncated) response body returned by the provider
	Body string `json:"body,omitempty"`

	// Err is set when the call failed before an HTTP status was available,
	// or when the body of a rejection could not be read
	Err error `json:"-"`
}

// String renders the attempt for logs and error details
func (a Attempt) String() string {
	if a.Err != nil {
		if a.StatusCode != 0 {
			return fmt.Sprintf("%s: %d - %v", a.ClientID, a.StatusCode, a.Err)
		}
		return fmt.Sprintf("%s: %v", a.ClientID, a.Err)
	}
	if a.Body != "" {
		return fmt.Sprintf("%s: %d - %s", a.ClientID, a.StatusCode, a.Body)
	}
	return fmt.Sprintf("%s: %d", a.ClientID, a.StatusCode)
}

// ExchangeExhaustedError is returned when every client identity was rejected
// by the token endpoint.
type ExchangeExhaustedError struct {
	Attempts []Attempt
}

// Error implements the error interface
func (e *ExchangeExhaustedError) Error() string {
	return "token exchange failed for all client identities: " + joinAttempts(e.Attempts)
}

// RevocationExhaustedError is returned when every client identity was rejected
// by the revocation endpoint.
type RevocationExhaustedError struct {
	Attempts []Attempt
}

// Error implements the error interface
func (e *RevocationExhaustedError) Error() string {
	return "token revocation failed for all client identities: " + joinAttempts(e.Attempts)
}

func joinAttempts(attempts []Attempt) string {
	if len(attempts) == 0 {
		return "no client identities attempted"
	}
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, "; ")
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
