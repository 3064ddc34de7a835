package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUndecodableAssertion is returned when an identity assertion fragment cannot be decoded.
// Callers treat it as "no assertion" rather than a failure.
var ErrUndecodableAssertion = errors.New("identity assertion could not be decoded")

// IdentityAssertion is the subset of an identity token payload the bridge uses.
// It is decoded from untrusted input and never verified.
type IdentityAssertion struct {
	Subject  string
	Email    string
	Audience []string
}

// FirstAudience returns the first audience entry, or "" if there is none.
// For provider-issued identity tokens this is the client identity the token was issued for.
func (a *IdentityAssertion) FirstAudience() string {
	if a == nil || len(a.Audience) == 0 {
		return ""
	}
	return a.Audience[0]
}

type identityClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// DecodeIdentityToken extracts claims from a compact JWT without verifying its signature.
// Only the audience claim is used as a routing hint; nothing here is trusted for authentication.
func DecodeIdentityToken(token string) (*IdentityAssertion, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUndecodableAssertion
	}

	claims := &identityClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableAssertion, err)
	}

	return &IdentityAssertion{
		Subject:  claims.Subject,
		Email:    claims.Email,
		Audience: []string(claims.Audience),
	}, nil
}

// DecodeUserFragment decodes the JSON "user" fragment delivered to the callback.
// A fragment that is not a JSON object yields ErrUndecodableAssertion. Within
// an object each claim is read on its own, so a sub, email or aud of an
// unexpected type is ignored without losing the others.
func DecodeUserFragment(raw string) (*IdentityAssertion, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil, ErrUndecodableAssertion
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodableAssertion, err)
	}

	assertion := &IdentityAssertion{}
	decodeClaim(fields["sub"], &assertion.Subject)
	decodeClaim(fields["email"], &assertion.Email)

	var aud jwt.ClaimStrings
	if decodeClaim(fields["aud"], &aud) {
		assertion.Audience = []string(aud)
	}
	return assertion, nil
}

// decodeClaim unmarshals a present claim into dst and reports whether it did
func decodeClaim[T any](raw json.RawMessage, dst *T) bool {
	if len(raw) == 0 {
		return false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	*dst = v
	return true
}
