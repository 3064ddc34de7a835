package security

// Event type constants for security audit logging.
const (
	// Code exchange events

	// EventCodeExchanged is logged when an authorization code was redeemed
	EventCodeExchanged = "code_exchanged"

	// EventCodeExchangeExhausted is logged when every client identity was rejected for a code
	EventCodeExchangeExhausted = "code_exchange_exhausted"

	// Revocation events

	// EventTokenRevoked is logged when a token was revoked at the provider
	EventTokenRevoked = "token_revoked"

	// EventTokenRevocationExhausted is logged when every client identity was rejected for a revocation
	EventTokenRevocationExhausted = "token_revocation_exhausted" //nolint:gosec // G101: event type name, not a credential

	// Callback events

	// EventCallbackRedirected is logged when a browser callback was handed to the app
	EventCallbackRedirected = "callback_redirected"

	// EventCallbackAborted is logged when a callback was refused under the closed failure policy
	EventCallbackAborted = "callback_aborted"

	// Operational events

	// EventConfigurationError is logged when a request fails because of broken signing configuration
	EventConfigurationError = "configuration_error"
)
