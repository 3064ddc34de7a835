package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/User184/apple-signin-bridge/instrumentation"
)

// Auditor handles security event logging with PII protection.
type Auditor struct {
	logger          *slog.Logger
	enabled         bool
	instrumentation *instrumentation.Instrumentation
}

// NewAuditor creates a new security auditor
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// SetInstrumentation enables counting of audit events by type
func (a *Auditor) SetInstrumentation(inst *instrumentation.Instrumentation) {
	a.instrumentation = inst
}

// Event represents a security audit event
type Event struct {
	Type      string
	UserID    string
	ClientID  string
	IPAddress string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs a security event with hashed PII.
// A nil Auditor is valid and discards every event.
func (a *Auditor) LogEvent(ctx context.Context, event Event) {
	if a == nil || !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	attrs := []any{
		"event_type", event.Type,
		"user_id_hash", hashForLogging(event.UserID),
		"client_id", event.ClientID,
		"ip_address", event.IPAddress,
		"details", event.Details,
		"timestamp", event.Timestamp,
	}
	if requestID := GetRequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}

	a.logger.InfoContext(ctx, "security_audit", attrs...)

	if a.instrumentation != nil {
		a.instrumentation.Metrics().RecordAuditEvent(ctx, event.Type)
	}
}

// LogCodeExchanged logs a successful authorization code exchange
func (a *Auditor) LogCodeExchanged(ctx context.Context, userID, clientID, ipAddress, source string) {
	a.LogEvent(ctx, Event{
		Type:      EventCodeExchanged,
		UserID:    userID,
		ClientID:  clientID,
		IPAddress: ipAddress,
		Details: map[string]any{
			"source": source,
		},
	})
}

// LogCodeExchangeExhausted logs an exchange that every client identity failed
func (a *Auditor) LogCodeExchangeExhausted(ctx context.Context, ipAddress, source string, attempts int) {
	a.LogEvent(ctx, Event{
		Type:      EventCodeExchangeExhausted,
		IPAddress: ipAddress,
		Details: map[string]any{
			"source":   source,
			"attempts": attempts,
		},
	})
}

// LogTokenRevoked logs when a token is revoked
func (a *Auditor) LogTokenRevoked(ctx context.Context, clientID, ipAddress, tokenType string) {
	a.LogEvent(ctx, Event{
		Type:      EventTokenRevoked,
		ClientID:  clientID,
		IPAddress: ipAddress,
		Details: map[string]any{
			"token_type": tokenType,
		},
	})
}

// LogTokenRevocationExhausted logs a revocation that every client identity failed
func (a *Auditor) LogTokenRevocationExhausted(ctx context.Context, ipAddress, tokenType string, attempts int) {
	a.LogEvent(ctx, Event{
		Type:      EventTokenRevocationExhausted,
		IPAddress: ipAddress,
		Details: map[string]any{
			"token_type": tokenType,
			"attempts":   attempts,
		},
	})
}

// LogCallbackRedirected logs a callback handed off to the native app
func (a *Auditor) LogCallbackRedirected(ctx context.Context, userID, clientID, ipAddress string, tokensAttached bool) {
	a.LogEvent(ctx, Event{
		Type:      EventCallbackRedirected,
		UserID:    userID,
		ClientID:  clientID,
		IPAddress: ipAddress,
		Details: map[string]any{
			"tokens_attached": tokensAttached,
		},
	})
}

// LogCallbackAborted logs a callback refused because the code exchange failed
func (a *Auditor) LogCallbackAborted(ctx context.Context, ipAddress, reason string) {
	a.LogEvent(ctx, Event{
		Type:      EventCallbackAborted,
		IPAddress: ipAddress,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// LogConfigurationError logs a request that failed on broken configuration
func (a *Auditor) LogConfigurationError(ctx context.Context, operation, reason string) {
	a.LogEvent(ctx, Event{
		Type: EventConfigurationError,
		Details: map[string]any{
			"operation": operation,
			"reason":    reason,
		},
	})
}

// hashForLogging creates a SHA256 hash of sensitive data for logging
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
