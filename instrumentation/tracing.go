package instrumentation

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common span attribute keys
//
// SECURITY WARNING: Never record authorization codes, access tokens, refresh tokens,
// identity tokens or client assertions in traces or metrics. Only record metadata
// such as which client identity was tried, token type hints and outcomes.
const (
	// Bridge flow attributes
	AttrClientID         = "bridge.client_id"          // Client identity (non-secret)
	AttrClientHint       = "bridge.client_hint"        // Client identity hinted by an identity token
	AttrAttempt          = "bridge.attempt"            // 1-based attempt index within the fallback loop
	AttrAttemptCount     = "bridge.attempt_count"      // Number of identities tried
	AttrTokenTypeHint    = "bridge.token_type_hint"    //nolint:gosec // token_type_hint value, not a token
	AttrCodePresent      = "bridge.code_present"       // Whether the callback carried a code
	AttrUserPresent      = "bridge.user_present"       // Whether the callback carried a user fragment
	AttrTokensAttached   = "bridge.tokens_attached"    //nolint:gosec // Whether exchanged tokens were added to the deep link
	AttrFailurePolicy    = "bridge.callback_policy"    // Callback failure policy (open/closed)
	AttrParameterCount   = "bridge.parameter_count"    // Number of fields in the deep link
	AttrError            = "bridge.error"              // Error class
	AttrRevokedTokenType = "bridge.revoked_token_type" //nolint:gosec // Which token type was revoked

	// Provider attributes
	AttrProviderName      = "provider.name"
	AttrProviderOperation = "provider.operation"
	AttrProviderStatus    = "provider.status"

	// Security attributes
	AttrClientIP       = "security.client_ip"
	AttrAuditEventType = "security.audit.event_type"

	// HTTP attributes (in addition to standard semantic conventions)
	AttrHTTPEndpoint   = "http.endpoint"
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
)

// RecordError records an error on a span with proper status codes (nil-safe)
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess marks a span as successful (nil-safe)
func SetSpanSuccess(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// SetSpanError sets an error status on a span (nil-safe)
func SetSpanError(span trace.Span, message string) {
	if span != nil {
		span.SetStatus(codes.Error, message)
	}
}

// SetSpanAttributes sets attributes on a span (nil-safe)
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// AddProviderAttributes adds provider attributes to a span (nil-safe)
func AddProviderAttributes(span trace.Span, providerName, operation string) {
	SetSpanAttributes(span,
		attribute.String(AttrProviderName, providerName),
		attribute.String(AttrProviderOperation, operation),
	)
}

// AddAttemptAttributes adds fallback-loop attempt attributes to a span (nil-safe)
func AddAttemptAttributes(span trace.Span, clientID string, attempt, statusCode int) {
	SetSpanAttributes(span,
		attribute.String(AttrClientID, clientID),
		attribute.Int(AttrAttempt, attempt),
	)
	if statusCode != 0 {
		SetSpanAttributes(span, attribute.Int(AttrProviderStatus, statusCode))
	}
}

// AddHTTPAttributes adds HTTP request attributes to a span (nil-safe)
func AddHTTPAttributes(span trace.Span, method, endpoint string, statusCode int) {
	SetSpanAttributes(span,
		attribute.String(AttrHTTPMethod, method),
		attribute.String(AttrHTTPEndpoint, endpoint),
		attribute.Int(AttrHTTPStatusCode, statusCode),
	)
}

// AddSecurityAttributes adds security-related attributes to a span (nil-safe)
//
// PRIVACY NOTE: Client IP addresses may be considered PII.
// Check Instrumentation.ShouldLogClientIPs() before calling this.
func AddSecurityAttributes(span trace.Span, clientIP string) {
	if clientIP != "" {
		SetSpanAttributes(span, attribute.String(AttrClientIP, clientIP))
	}
}
