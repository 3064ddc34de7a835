package apple

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/User184/apple-signin-bridge/instrumentation"
	"github.com/User184/apple-signin-bridge/internal/util"
	"github.com/User184/apple-signin-bridge/providers"
)

const (
	// TokenURL is Apple's token endpoint
	TokenURL = "https://appleid.apple.com/auth/token"

	// RevokeURL is Apple's revocation endpoint
	RevokeURL = "https://appleid.apple.com/auth/revoke"

	providerName = "apple"

	// maxDiagnosticBody bounds how much of a rejected response is kept per attempt
	maxDiagnosticBody = 1024
)

// Provider implements providers.Provider for Sign in with Apple.
// It holds no per-request state and may be shared across goroutines.
type Provider struct {
	minter     *Minter
	resolver   *Resolver
	tokenURL   string
	revokeURL  string
	httpClient *http.Client
	logger     *slog.Logger

	instrumentation *instrumentation.Instrumentation
	tracer          trace.Tracer
}

// Config holds Sign in with Apple configuration
type Config struct {
	// TeamID is the Apple developer team ID (assertion issuer)
	TeamID string

	// KeyID is the Sign in with Apple key ID (assertion header kid)
	KeyID string

	// PrivateKeyPEM is the contents of the .p8 key file
	PrivateKeyPEM []byte

	// BundleID is the app bundle identifier used by native iOS sign-in
	BundleID string

	// ServiceID is the Services ID used by web and Android sign-in
	ServiceID string

	// ClientOrder decides which identity is tried first without a hint (default: BundleFirst)
	ClientOrder ClientOrder

	// TokenURL overrides the token endpoint (default: TokenURL)
	TokenURL string

	// RevokeURL overrides the revocation endpoint (default: RevokeURL)
	RevokeURL string

	// HTTPClient is an optional custom HTTP client
	HTTPClient *http.Client

	// Logger for structured logging (optional)
	Logger *slog.Logger

	// Instrumentation enables provider spans and metrics (optional)
	Instrumentation *instrumentation.Instrumentation

	// Now overrides the clock used for assertion timestamps (optional)
	Now func() time.Time
}

// NewProvider creates a new Sign in with Apple provider.
// Configuration problems are returned as *providers.ConfigurationError.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		return nil, &providers.ConfigurationError{Reason: "apple config is required"}
	}

	cred, err := ParseCredential(cfg.TeamID, cfg.KeyID, cfg.PrivateKeyPEM)
	if err != nil {
		return nil, err
	}

	resolver, err := NewResolver(cfg.BundleID, cfg.ServiceID, cfg.ClientOrder)
	if err != nil {
		return nil, &providers.ConfigurationError{Reason: "invalid client identities", Err: err}
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = TokenURL
	}
	revokeURL := cfg.RevokeURL
	if revokeURL == "" {
		revokeURL = RevokeURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Provider{
		minter:          NewMinter(cred, cfg.Now),
		resolver:        resolver,
		tokenURL:        tokenURL,
		revokeURL:       revokeURL,
		httpClient:      httpClient,
		logger:          logger,
		instrumentation: cfg.Instrumentation,
	}
	if cfg.Instrumentation != nil {
		p.tracer = cfg.Instrumentation.Tracer("provider")
	}

	return p, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return providerName
}

// Resolver returns the identity resolver used by the provider
func (p *Provider) Resolver() *Resolver {
	return p.resolver
}

// ExchangeCode exchanges an authorization code for tokens, trying each client
// identity in turn until the token endpoint accepts one.
//
// Identities are tried strictly one after another: the code is single-use, so
// concurrent attempts would race each other for it.
func (p *Provider) ExchangeCode(ctx context.Context, code string, hint string) (*providers.TokenSet, error) {
	if code == "" {
		return nil, fmt.Errorf("authorization code is required")
	}

	ctx, span := p.startSpan(ctx, "apple.exchange_code")
	if span != nil {
		defer span.End()
	}
	instrumentation.AddProviderAttributes(span, providerName, "exchange_code")

	var attempts []providers.Attempt
	for i, clientID := range p.resolver.Order(hint) {
		if err := ctx.Err(); err != nil {
			instrumentation.RecordError(span, err)
			return nil, fmt.Errorf("token exchange aborted: %w", err)
		}

		tokens, attempt, err := p.exchangeWith(ctx, clientID, code)
		if err != nil {
			// Configuration errors and cancellation end the loop
			instrumentation.RecordError(span, err)
			return nil, err
		}
		if tokens != nil {
			instrumentation.AddAttemptAttributes(span, clientID, i+1, http.StatusOK)
			instrumentation.SetSpanSuccess(span)
			p.logger.Debug("Token exchange succeeded", "client_id", clientID, "attempt", i+1)
			return tokens, nil
		}

		p.logger.Info("Token exchange rejected, trying next client identity",
			"client_id", clientID,
			"attempt", i+1,
			"status", attempt.StatusCode,
			"error", attempt.Err)
		attempts = append(attempts, *attempt)
	}

	exhausted := &providers.ExchangeExhaustedError{Attempts: attempts}
	instrumentation.RecordError(span, exhausted)
	return nil, exhausted
}

// exchangeWith performs one token endpoint call. A rejected or failed call is
// returned as an Attempt; only fatal conditions are returned as errors.
func (p *Provider) exchangeWith(ctx context.Context, clientID, code string) (*providers.TokenSet, *providers.Attempt, error) {
	secret, err := p.mint(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: secret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  p.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	// Use custom HTTP client
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	start := time.Now()
	token, err := config.Exchange(ctx, code)
	if err != nil {
		attempt := &providers.Attempt{ClientID: clientID}

		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			attempt.StatusCode = retrieveErr.Response.StatusCode
			attempt.Body = util.SafeTruncate(string(retrieveErr.Body), maxDiagnosticBody)
		} else {
			attempt.Err = err
		}
		p.recordAPICall(ctx, "exchange_code", clientID, attempt.StatusCode, start, err)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, fmt.Errorf("token exchange aborted: %w", ctxErr)
		}
		return nil, attempt, nil
	}
	p.recordAPICall(ctx, "exchange_code", clientID, http.StatusOK, start, nil)

	return &providers.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      extraString(token, "id_token"),
		TokenType:    token.TokenType,
		ExpiresIn:    expiresIn(token),
		ClientID:     clientID,
	}, nil, nil
}

// RevokeToken revokes a token, trying each client identity in turn.
// An HTTP 200 from the revocation endpoint is success regardless of the body.
func (p *Provider) RevokeToken(ctx context.Context, token, tokenTypeHint, hint string) (*providers.RevocationResult, error) {
	if token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if !providers.ValidTokenTypeHint(tokenTypeHint) {
		return nil, providers.ErrInvalidTokenTypeHint
	}

	ctx, span := p.startSpan(ctx, "apple.revoke_token")
	if span != nil {
		defer span.End()
	}
	instrumentation.AddProviderAttributes(span, providerName, "revoke_token")

	var attempts []providers.Attempt
	for i, clientID := range p.resolver.Order(hint) {
		if err := ctx.Err(); err != nil {
			instrumentation.RecordError(span, err)
			return nil, fmt.Errorf("token revocation aborted: %w", err)
		}

		attempt, err := p.revokeWith(ctx, clientID, token, tokenTypeHint)
		if err != nil {
			instrumentation.RecordError(span, err)
			return nil, err
		}
		if attempt == nil {
			instrumentation.AddAttemptAttributes(span, clientID, i+1, http.StatusOK)
			instrumentation.SetSpanSuccess(span)
			p.logger.Debug("Token revoked", "client_id", clientID, "attempt", i+1)
			return &providers.RevocationResult{ClientID: clientID}, nil
		}

		p.logger.Info("Token revocation rejected, trying next client identity",
			"client_id", clientID,
			"attempt", i+1,
			"status", attempt.StatusCode,
			"error", attempt.Err)
		attempts = append(attempts, *attempt)
	}

	exhausted := &providers.RevocationExhaustedError{Attempts: attempts}
	instrumentation.RecordError(span, exhausted)
	return nil, exhausted
}

// revokeWith performs one revocation call. It returns a nil Attempt on success.
func (p *Provider) revokeWith(ctx context.Context, clientID, token, tokenTypeHint string) (*providers.Attempt, error) {
	secret, err := p.mint(ctx, clientID)
	if err != nil {
		return nil, err
	}

	data := url.Values{}
	data.Set("client_id", clientID)
	data.Set("client_secret", secret)
	data.Set("token", token)
	data.Set("token_type_hint", tokenTypeHint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.recordAPICall(ctx, "revoke_token", clientID, 0, start, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("token revocation aborted: %w", ctxErr)
		}
		return &providers.Attempt{ClientID: clientID, Err: err}, nil
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxDiagnosticBody))

	// a 200 is success whatever its body
	if resp.StatusCode == http.StatusOK {
		p.recordAPICall(ctx, "revoke_token", clientID, resp.StatusCode, start, nil)
		return nil, nil
	}

	rejected := fmt.Errorf("token revocation failed with status %d", resp.StatusCode)
	p.recordAPICall(ctx, "revoke_token", clientID, resp.StatusCode, start, rejected)

	attempt := &providers.Attempt{
		ClientID:   clientID,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
	if readErr != nil {
		attempt.Err = fmt.Errorf("read revocation response: %w", readErr)
	}
	return attempt, nil
}

// HealthCheck verifies that client assertions can be minted for every identity.
// It does not call Apple: there is no side-effect free endpoint to probe.
func (p *Provider) HealthCheck(ctx context.Context) error {
	for _, clientID := range p.resolver.Order("") {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.minter.Mint(clientID); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) mint(ctx context.Context, clientID string) (string, error) {
	secret, err := p.minter.Mint(clientID)
	if err != nil {
		p.logger.Error("Failed to mint client assertion", "client_id", clientID, "error", err)
		return "", err
	}
	if p.instrumentation != nil {
		p.instrumentation.Metrics().RecordClientSecretMinted(ctx, clientID)
	}
	return secret, nil
}

func (p *Provider) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if p.tracer == nil {
		return ctx, nil
	}
	return p.tracer.Start(ctx, name)
}

func (p *Provider) recordAPICall(ctx context.Context, operation, clientID string, status int, start time.Time, err error) {
	if p.instrumentation == nil {
		return
	}
	duration := time.Since(start).Seconds() * 1000
	p.instrumentation.Metrics().RecordProviderAPICall(ctx, providerName, operation, clientID, status, duration, err)
}

func extraString(token *oauth2.Token, key string) string {
	if v, ok := token.Extra(key).(string); ok {
		return v
	}
	return ""
}

// expiresIn recovers the wire expires_in value. x/oauth2 converts it into
// Expiry, so the raw field is preferred and Expiry is the fallback.
func expiresIn(token *oauth2.Token) int64 {
	if token.ExpiresIn > 0 {
		return token.ExpiresIn
	}
	switch v := token.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case string:
		var n int64
		if _, err := fmt.Sscan(v, &n); err == nil {
			return n
		}
	}
	if !token.Expiry.IsZero() {
		if secs := int64(time.Until(token.Expiry).Round(time.Second).Seconds()); secs > 0 {
			return secs
		}
	}
	return 0
}
