// Package security provides the security plumbing shared by the bridge's HTTP
// endpoints: response headers, request ID propagation, client IP extraction
// and audit logging.
//
// # Audit Logging
//
// The Auditor writes one structured log record per security-relevant event
// (code exchanged, token revoked, every identity rejected, ...). User subjects
// are hashed before logging and tokens are never logged at all.
//
//	auditor := security.NewAuditor(logger, true)
//	auditor.LogTokenRevoked(ctx, clientID, clientIP, "refresh_token")
//
// # Client IPs
//
// GetClientIP only honours X-Forwarded-For and X-Real-IP when the bridge is
// configured to sit behind a trusted proxy. Otherwise the TCP peer address is
// used, since forwarding headers are trivially spoofed.
package security
