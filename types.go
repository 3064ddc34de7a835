package bridge

import (
	"net/url"

	"github.com/User184/apple-signin-bridge/internal/util"
	"github.com/User184/apple-signin-bridge/providers"
)

// maxAttemptBodyLength bounds each provider body echoed back to callers
const maxAttemptBodyLength = 256

// ExchangeTokenRequest is the body of POST /exchange-token
type ExchangeTokenRequest struct {
	// AuthorizationCode is the code the native client received from Apple
	AuthorizationCode string `json:"authorizationCode"`

	// IdentityToken optionally selects the client identity to try first
	IdentityToken string `json:"identityToken,omitempty"`
}

func (r *ExchangeTokenRequest) decodeForm(values url.Values) {
	r.AuthorizationCode = values.Get("authorizationCode")
	r.IdentityToken = values.Get("identityToken")
}

// ExchangeTokenResponse is returned by a successful exchange
type ExchangeTokenResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RevokeTokenRequest is the body of POST /revoke-apple-token. Every field is optional.
type RevokeTokenRequest struct {
	AuthorizationCode string `json:"authorizationCode,omitempty"`
	IdentityToken     string `json:"identityToken,omitempty"`
	RefreshToken      string `json:"refreshToken,omitempty"`
	AccessToken       string `json:"accessToken,omitempty"`
}

func (r *RevokeTokenRequest) decodeForm(values url.Values) {
	r.AuthorizationCode = values.Get("authorizationCode")
	r.IdentityToken = values.Get("identityToken")
	r.RefreshToken = values.Get("refreshToken")
	r.AccessToken = values.Get("accessToken")
}

// RevokeTokenResponse is returned by a successful revocation
type RevokeTokenResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	RevokedTokenType string `json:"revokedTokenType"`
	UsedClientID     string `json:"usedClientId"`
}

// HealthResponse is returned by GET /healthz
type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
}

// ErrorResponse is the JSON error body
type ErrorResponse struct {
	// Success is omitted for request validation errors
	Success *bool `json:"success,omitempty"`

	Error    string            `json:"error"`
	Details  string            `json:"details,omitempty"`
	Attempts []AttemptResponse `json:"attempts,omitempty"`
}

// AttemptResponse describes one rejected client identity
type AttemptResponse struct {
	ClientID string `json:"clientId"`
	Status   int    `json:"status,omitempty"`
	Body     string `json:"body,omitempty"`
	Error    string `json:"error,omitempty"`
}

func attemptResponses(attempts []providers.Attempt) []AttemptResponse {
	if len(attempts) == 0 {
		return nil
	}
	out := make([]AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		resp := AttemptResponse{
			ClientID: a.ClientID,
			Status:   a.StatusCode,
			Body:     util.SafeTruncate(a.Body, maxAttemptBodyLength),
		}
		if a.Err != nil {
			resp.Error = a.Err.Error()
		}
		out = append(out, resp)
	}
	return out
}
