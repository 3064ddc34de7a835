package providers

import (
	"context"
)

// Token type hints accepted by revocation endpoints (RFC 7009).
const (
	TokenTypeAccessToken  = "access_token"
	TokenTypeRefreshToken = "refresh_token"
)

// Provider defines the operations the bridge performs against an identity provider
// that recognizes more than one client identity for the same product.
type Provider interface {
	// Name returns the provider name (e.g., "apple")
	Name() string

	// ExchangeCode exchanges an authorization code for a token set.
	// hint is an optional client identity to try first (empty for the default order).
	ExchangeCode(ctx context.Context, code string, hint string) (*TokenSet, error)

	// RevokeToken revokes an access or refresh token.
	// tokenTypeHint must be TokenTypeAccessToken or TokenTypeRefreshToken.
	RevokeToken(ctx context.Context, token, tokenTypeHint, hint string) (*RevocationResult, error)

	// HealthCheck verifies the provider is usable with the current configuration.
	HealthCheck(ctx context.Context) error
}

// TokenSet is the token response returned by a successful code exchange.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string

	// ExpiresIn is the access token lifetime in seconds (0 if not reported)
	ExpiresIn int64

	// ClientID is the client identity the exchange succeeded with
	ClientID string
}

// RevocationResult reports which client identity the provider accepted a revocation for.
type RevocationResult struct {
	ClientID string
}

// ValidTokenTypeHint reports whether hint is a supported token_type_hint value.
func ValidTokenTypeHint(hint string) bool {
	return hint == TokenTypeAccessToken || hint == TokenTypeRefreshToken
}
