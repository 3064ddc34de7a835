// Package providers defines the identity provider abstraction used by the bridge.
//
// This package contains the Provider interface, the TokenSet and RevocationResult
// result types, the per-attempt diagnostics returned when every client identity is
// rejected, and best-effort decoding of identity assertions.
//
// Implementations are provided in subpackages:
//   - providers/apple: Sign in with Apple (two client identities, ES256 client assertions)
//   - providers/mock: Mock provider for testing
//
// Provider implementations handle:
//   - Authorization code exchange with ordered client identity fallback
//   - Token revocation with the same fallback
//   - Health checks
//
// Example usage:
//
//	provider, err := apple.NewProvider(&apple.Config{
//	    TeamID:        "TEAMID1234",
//	    KeyID:         "KEYID12345",
//	    PrivateKeyPEM: pemBytes,
//	    BundleID:      "com.example.app",
//	    ServiceID:     "com.example.app.signin",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tokens, err := provider.ExchangeCode(ctx, code, "")
package providers
