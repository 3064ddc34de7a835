package server

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/User184/apple-signin-bridge/instrumentation"
	"github.com/User184/apple-signin-bridge/providers"
)

// Field names read from and added to the callback parameters.
const (
	ParamCode           = "code"
	ParamUser           = "user"
	ParamIDToken        = "id_token"
	ParamAccessToken    = "access_token"
	ParamRefreshToken   = "refresh_token"
	ParamUserIdentifier = "userIdentifier"
	ParamEmail          = "email"
)

var (
	// ErrMissingAuthorizationCode is returned when an exchange is requested without a code
	ErrMissingAuthorizationCode = errors.New("authorization code is required")

	// ErrNoRevocableToken is returned when a revocation request yields neither a
	// refresh token nor an access token
	ErrNoRevocableToken = errors.New("no refresh token or access token to revoke")
)

// CallbackResult describes the outcome of a browser callback.
type CallbackResult struct {
	// Target is the deep link the browser is redirected to
	Target string

	// Parameters holds the original fields plus every derived field
	Parameters *ParameterSet

	// ClientID is the client identity that redeemed the code ("" if none did)
	ClientID string

	// Subject is the user identifier, when one could be derived
	Subject string

	// TokensAttached reports whether exchanged tokens were added
	TokensAttached bool

	// ExchangeErr is the code exchange failure, kept for diagnostics
	ExchangeErr error

	// DecodeErr is the user fragment decode failure, kept for diagnostics
	DecodeErr error
}

// CallbackError is returned by HandleCallback under FailClosed when the code
// exchange failed. Under FailOpen the callback never fails.
type CallbackError struct {
	Err error
}

// Error implements the error interface
func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback aborted: %v", e.Err)
}

// Unwrap returns the exchange error
func (e *CallbackError) Unwrap() error {
	return e.Err
}

// HandleCallback runs the callback pipeline over params and returns the deep
// link target. params is modified in place.
//
// Exchanged tokens are inserted right after "code" and the user fields right
// after "user", so the original fields are never reordered or dropped.
func (s *Server) HandleCallback(ctx context.Context, params *ParameterSet, clientIP string) (*CallbackResult, error) {
	ctx, span := s.startSpan(ctx, "server.handle_callback")
	if span != nil {
		defer span.End()
	}

	if params == nil {
		params = &ParameterSet{}
	}
	result := &CallbackResult{Parameters: params}

	code := params.Get(ParamCode)
	instrumentation.SetSpanAttributes(span,
		attribute.Bool(instrumentation.AttrCodePresent, code != ""),
		attribute.Bool(instrumentation.AttrUserPresent, params.Has(ParamUser)),
		attribute.String(instrumentation.AttrFailurePolicy, string(s.Config.CallbackFailurePolicy)),
	)

	if code != "" {
		hint := s.identityTokenHint(ctx, params.Get(ParamIDToken))

		tokens, err := s.provider.ExchangeCode(ctx, code, hint)
		if err != nil {
			result.ExchangeErr = err
			s.recordExchangeFailure(ctx, err, clientIP, "callback")

			if s.Config.CallbackFailurePolicy == FailClosed {
				instrumentation.RecordError(span, err)
				s.Auditor.LogCallbackAborted(ctx, clientIP, "code exchange failed")
				return result, &CallbackError{Err: err}
			}
			s.Logger.Warn("Code exchange failed, redirecting without tokens", "error", err)
		} else {
			result.ClientID = tokens.ClientID
			result.TokensAttached = attachTokens(params, tokens)
			s.recordExchangeSuccess(ctx, tokens, clientIP, "callback")
		}
	}

	if params.Has(ParamUser) {
		assertion, err := providers.DecodeUserFragment(params.Get(ParamUser))
		if err != nil {
			result.DecodeErr = err
			if m := s.metrics(); m != nil {
				m.RecordAssertionDecodeFailed(ctx, ParamUser)
			}
			s.Logger.Debug("User fragment could not be decoded, skipping", "error", err)
		} else {
			result.Subject = attachUser(params, assertion)
		}
	}

	result.Target = s.Config.DeepLink(params)

	instrumentation.SetSpanAttributes(span,
		attribute.Bool(instrumentation.AttrTokensAttached, result.TokensAttached),
		attribute.Int(instrumentation.AttrParameterCount, params.Len()),
	)
	instrumentation.SetSpanSuccess(span)

	if m := s.metrics(); m != nil {
		m.RecordCallbackProcessed(ctx, result.ClientID, result.TokensAttached)
	}
	s.Auditor.LogCallbackRedirected(ctx, result.Subject, result.ClientID, clientIP, result.TokensAttached)

	s.Logger.Info("Callback redirected to app",
		"client_id", result.ClientID,
		"tokens_attached", result.TokensAttached,
		"parameters", params.Len())

	return result, nil
}

// attachTokens inserts the non-empty tokens after the code field, in
// access/refresh/id order. Fields the provider already sent are left alone.
// It reports whether anything was added.
func attachTokens(params *ParameterSet, tokens *providers.TokenSet) bool {
	anchor := ParamCode
	attached := false
	for _, field := range []Parameter{
		{Key: ParamAccessToken, Value: tokens.AccessToken},
		{Key: ParamRefreshToken, Value: tokens.RefreshToken},
		{Key: ParamIDToken, Value: tokens.IDToken},
	} {
		if field.Value == "" {
			continue
		}
		if params.InsertAfter(anchor, field.Key, field.Value) {
			anchor = field.Key
			attached = true
		}
	}
	return attached
}

// attachUser inserts userIdentifier and email after the user field and returns the subject.
// Inbound fields of the same name win.
func attachUser(params *ParameterSet, assertion *providers.IdentityAssertion) string {
	anchor := ParamUser
	if assertion.Subject != "" && params.InsertAfter(anchor, ParamUserIdentifier, assertion.Subject) {
		anchor = ParamUserIdentifier
	}
	if assertion.Email != "" {
		params.InsertAfter(anchor, ParamEmail, assertion.Email)
	}
	return assertion.Subject
}

// ExchangeCode exchanges an authorization code on behalf of a native client.
// identityToken is optional; its audience is used to pick the first client identity.
func (s *Server) ExchangeCode(ctx context.Context, code, identityToken, clientIP string) (*providers.TokenSet, error) {
	if code == "" {
		return nil, ErrMissingAuthorizationCode
	}

	ctx, span := s.startSpan(ctx, "server.exchange_code")
	if span != nil {
		defer span.End()
	}

	hint := s.identityTokenHint(ctx, identityToken)
	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrClientHint, hint))

	tokens, err := s.provider.ExchangeCode(ctx, code, hint)
	if err != nil {
		instrumentation.RecordError(span, err)
		s.recordExchangeFailure(ctx, err, clientIP, "exchange")
		return nil, err
	}

	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrClientID, tokens.ClientID))
	instrumentation.SetSpanSuccess(span)
	s.recordExchangeSuccess(ctx, tokens, clientIP, "exchange")

	s.Logger.Info("Authorization code exchanged", "client_id", tokens.ClientID)
	return tokens, nil
}

// RevokeRequest describes what a client asked to revoke. Any field may be empty.
type RevokeRequest struct {
	AuthorizationCode string
	IdentityToken     string
	RefreshToken      string
	AccessToken       string
}

// RevokeResult reports which token was revoked and with which client identity
type RevokeResult struct {
	RevokedTokenType string
	ClientID         string
}

// RevokeToken revokes the best token available in req.
//
// The refresh token is preferred over the access token. When neither is given
// but an authorization code is, the code is exchanged first and the resulting
// tokens are revoked with the identity that redeemed it; a failed exchange
// leaves nothing to revoke.
func (s *Server) RevokeToken(ctx context.Context, req *RevokeRequest, clientIP string) (*RevokeResult, error) {
	if req == nil {
		return nil, ErrNoRevocableToken
	}

	ctx, span := s.startSpan(ctx, "server.revoke_token")
	if span != nil {
		defer span.End()
	}

	hint := s.identityTokenHint(ctx, req.IdentityToken)
	refreshToken, accessToken := req.RefreshToken, req.AccessToken

	if refreshToken == "" && accessToken == "" && req.AuthorizationCode != "" {
		tokens, err := s.provider.ExchangeCode(ctx, req.AuthorizationCode, hint)
		switch {
		case err == nil:
			refreshToken, accessToken = tokens.RefreshToken, tokens.AccessToken
			hint = tokens.ClientID
			s.recordExchangeSuccess(ctx, tokens, clientIP, "revoke")
		case providers.IsConfigurationError(err), ctx.Err() != nil:
			instrumentation.RecordError(span, err)
			s.recordExchangeFailure(ctx, err, clientIP, "revoke")
			return nil, err
		default:
			s.recordExchangeFailure(ctx, err, clientIP, "revoke")
			s.Logger.Warn("Code exchange before revocation failed", "error", err)
		}
	}

	token, tokenType := refreshToken, providers.TokenTypeRefreshToken
	if token == "" {
		token, tokenType = accessToken, providers.TokenTypeAccessToken
	}
	if token == "" {
		instrumentation.SetSpanError(span, ErrNoRevocableToken.Error())
		return nil, ErrNoRevocableToken
	}

	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrTokenTypeHint, tokenType),
		attribute.String(instrumentation.AttrClientHint, hint),
	)

	revoked, err := s.provider.RevokeToken(ctx, token, tokenType, hint)
	if err != nil {
		instrumentation.RecordError(span, err)
		if m := s.metrics(); m != nil {
			m.RecordTokenRevocation(ctx, "", tokenType, false)
		}

		var exhausted *providers.RevocationExhaustedError
		switch {
		case errors.As(err, &exhausted):
			s.Auditor.LogTokenRevocationExhausted(ctx, clientIP, tokenType, len(exhausted.Attempts))
			s.Logger.Warn("Token revocation rejected for every client identity", "token_type", tokenType, "error", err)
		case providers.IsConfigurationError(err):
			s.Auditor.LogConfigurationError(ctx, "revoke", err.Error())
			s.Logger.Error("Token revocation failed on configuration", "error", err)
		}
		return nil, err
	}

	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrClientID, revoked.ClientID),
		attribute.String(instrumentation.AttrRevokedTokenType, tokenType),
	)
	instrumentation.SetSpanSuccess(span)

	if m := s.metrics(); m != nil {
		m.RecordTokenRevocation(ctx, revoked.ClientID, tokenType, true)
	}
	s.Auditor.LogTokenRevoked(ctx, revoked.ClientID, clientIP, tokenType)
	s.Logger.Info("Token revoked", "client_id", revoked.ClientID, "token_type", tokenType)

	return &RevokeResult{
		RevokedTokenType: tokenType,
		ClientID:         revoked.ClientID,
	}, nil
}

// identityTokenHint returns the audience of an unverified identity token, or ""
func (s *Server) identityTokenHint(ctx context.Context, identityToken string) string {
	if identityToken == "" {
		return ""
	}
	assertion, err := providers.DecodeIdentityToken(identityToken)
	if err != nil {
		if m := s.metrics(); m != nil {
			m.RecordAssertionDecodeFailed(ctx, ParamIDToken)
		}
		s.Logger.Debug("Identity token could not be decoded, using default client order", "error", err)
		return ""
	}
	return assertion.FirstAudience()
}

func (s *Server) recordExchangeSuccess(ctx context.Context, tokens *providers.TokenSet, clientIP, source string) {
	if m := s.metrics(); m != nil {
		m.RecordCodeExchange(ctx, tokens.ClientID, true)
	}

	var subject string
	if tokens.IDToken != "" {
		if assertion, err := providers.DecodeIdentityToken(tokens.IDToken); err == nil {
			subject = assertion.Subject
		}
	}
	s.Auditor.LogCodeExchanged(ctx, subject, tokens.ClientID, clientIP, source)
}

func (s *Server) recordExchangeFailure(ctx context.Context, err error, clientIP, source string) {
	if m := s.metrics(); m != nil {
		m.RecordCodeExchange(ctx, "", false)
	}

	var exhausted *providers.ExchangeExhaustedError
	switch {
	case errors.As(err, &exhausted):
		s.Auditor.LogCodeExchangeExhausted(ctx, clientIP, source, len(exhausted.Attempts))
	case providers.IsConfigurationError(err):
		s.Auditor.LogConfigurationError(ctx, "exchange", err.Error())
		s.Logger.Error("Code exchange failed on configuration", "error", err)
	}
}
