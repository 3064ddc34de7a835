package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/User184/apple-signin-bridge/internal/testutil"
	"github.com/User184/apple-signin-bridge/providers"
	"github.com/User184/apple-signin-bridge/providers/mock"
	"github.com/User184/apple-signin-bridge/security"
	"github.com/User184/apple-signin-bridge/server"
)

const (
	testPackageID = "com.example.android"
	identityA     = "com.example.app"
	identityB     = "com.example.app.service"
)

func setupTestHandler(t *testing.T, provider *mock.MockProvider, config *server.Config) *Handler {
	t.Helper()

	if config == nil {
		config = &server.Config{
			AppPackageID: testPackageID,
			PublicURL:    "https://auth.example.com",
		}
	}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	srv, err := server.New(provider, config, logger)
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}

	return NewHandler(srv, logger)
}

func exhaustedExchange(ctx context.Context, code, hint string) (*providers.TokenSet, error) {
	return nil, &providers.ExchangeExhaustedError{Attempts: []providers.Attempt{
		{ClientID: identityA, StatusCode: 400, Body: `{"error":"invalid_grant"}`},
		{ClientID: identityB, StatusCode: 400, Body: `{"error":"invalid_grant"}`},
	}}
}

func decodeJSON(t *testing.T, body *bytes.Buffer) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(body.Bytes(), &got); err != nil {
		t.Fatalf("response is not JSON: %v: %s", err, body.String())
	}
	return got
}

func intentURI(query string) string {
	return "intent://callback?" + query + "#Intent;package=" + testPackageID + ";scheme=signinwithapple;end"
}

func TestNewHandler(t *testing.T) {
	h := setupTestHandler(t, mock.NewMockProvider(), nil)
	if h == nil {
		t.Fatal("NewHandler() returned nil")
	}
	if h.tracer != nil {
		t.Error("tracer should be nil without instrumentation")
	}
	if h.logger == nil {
		t.Error("logger should default when nil")
	}
}

func TestServeCallback_RedirectsWithTokensAndUser(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.ExchangeCodeFunc = func(ctx context.Context, code, hint string) (*providers.TokenSet, error) {
		return &providers.TokenSet{AccessToken: "AT1", RefreshToken: "RT1", ClientID: identityA}, nil
	}
	router := setupTestHandler(t, provider, nil).Router()

	user := `{"sub":"u1","email":"a@b.com"}`
	wantLocation := intentURI("code=abc123&access_token=AT1&refresh_token=RT1&user=" +
		url.QueryEscape(user) + "&userIdentifier=u1&email=a%40b.com")

	tests := []struct {
		name string
		req  *testutil.HTTPRequest
	}{
		{
			name: "GET query",
			req: testutil.NewHTTPRequest(http.MethodGet,
				"/callback?code=abc123&user="+url.QueryEscape(user)),
		},
		{
			name: "POST form_post",
			req: testutil.NewHTTPRequest(http.MethodPost, "/callback").
				WithForm("code=abc123&user=" + url.QueryEscape(user)),
		},
		{
			name: "POST JSON",
			req: testutil.NewHTTPRequest(http.MethodPost, "/callback").
				WithJSON(`{"code":"abc123","user":` + strconvQuote(user) + `}`),
		},
		{
			name: "API alias",
			req: testutil.NewHTTPRequest(http.MethodGet,
				"/api/apple-callback?code=abc123&user="+url.QueryEscape(user)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := tt.req.Do(router)

			if rr.Code != http.StatusTemporaryRedirect {
				t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusTemporaryRedirect, rr.Body.String())
			}
			if got := rr.Header().Get("Location"); got != wantLocation {
				t.Errorf("Location =\n%s\nwant\n%s", got, wantLocation)
			}
			if rr.Header().Get("Referrer-Policy") != "no-referrer" {
				t.Error("security headers missing on redirect")
			}
		})
	}
}

func strconvQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestServeCallback_ExchangeFailureStillRedirects(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.ExchangeCodeFunc = exhaustedExchange
	router := setupTestHandler(t, provider, nil).Router()

	rr := testutil.NewHTTPRequest(http.MethodGet, "/callback?code=abc123").Do(router)

	if rr.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusTemporaryRedirect)
	}
	if got, want := rr.Header().Get("Location"), intentURI("code=abc123"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func TestServeCallback_FailClosed(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.ExchangeCodeFunc = exhaustedExchange
	router := setupTestHandler(t, provider, &server.Config{
		AppPackageID:          testPackageID,
		CallbackFailurePolicy: server.FailClosed,
	}).Router()

	rr := testutil.NewHTTPRequest(http.MethodGet, "/callback?code=abc123").Do(router)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadGateway)
	}
	if rr.Header().Get("Location") != "" {
		t.Error("closed policy must not redirect")
	}

	body := decodeJSON(t, rr.Body)
	testutil.AssertEqual(t, body["success"], false)
	testutil.AssertEqual(t, body["error"], MessageCallbackFailed)
	if attempts, _ := body["attempts"].([]any); len(attempts) != 2 {
		t.Errorf("attempts = %v, want 2 entries", body["attempts"])
	}
}

func TestServeCallback_WithoutCodeSkipsExchange(t *testing.T) {
	provider := mock.NewMockProvider()
	router := setupTestHandler(t, provider, nil).Router()

	rr := testutil.NewHTTPRequest(http.MethodGet, "/callback?state=xyz&error=user_cancelled_authorize").Do(router)

	if rr.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusTemporaryRedirect)
	}
	if got, want := rr.Header().Get("Location"), intentURI("state=xyz&error=user_cancelled_authorize"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
	testutil.AssertEqual(t, provider.GetCallCount("ExchangeCode"), 0)
}

func TestServeCallback_MalformedFieldKeepsTheRest(t *testing.T) {
	tokens := "access_token=mock-access-token&refresh_token=mock-refresh-token&id_token=mock-id-token"

	tests := []struct {
		name         string
		req          *testutil.HTTPRequest
		wantLocation string
	}{
		{
			name:         "bad escape",
			req:          testutil.NewHTTPRequest(http.MethodGet, "/callback?code=abc123&state=50%25off%zz"),
			wantLocation: intentURI("code=abc123&" + tokens + "&state=50%2525off%25zz"),
		},
		{
			name:         "semicolon",
			req:          testutil.NewHTTPRequest(http.MethodGet, "/callback?code=abc123&state=a;b"),
			wantLocation: intentURI("code=abc123&" + tokens + "&state=a%3Bb"),
		},
		{
			name:         "bad escape in form body",
			req:          testutil.NewHTTPRequest(http.MethodPost, "/callback").WithForm("state=%G1&code=abc123"),
			wantLocation: intentURI("state=%25G1&code=abc123&" + tokens),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mock.NewMockProvider()
			router := setupTestHandler(t, provider, nil).Router()

			rr := tt.req.Do(router)
			if rr.Code != http.StatusTemporaryRedirect {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusTemporaryRedirect)
			}
			if got := rr.Header().Get("Location"); got != tt.wantLocation {
				t.Errorf("Location =\n%s\nwant\n%s", got, tt.wantLocation)
			}

			call, ok := provider.LastExchangeCall()
			if !ok || call.Code != "abc123" {
				t.Errorf("ExchangeCode called with %+v, ok=%v", call, ok)
			}
		})
	}
}

func TestServeCallback_UnparseableBodyStillRedirects(t *testing.T) {
	provider := mock.NewMockProvider()
	router := setupTestHandler(t, provider, nil).Router()

	rr := testutil.NewHTTPRequest(http.MethodPost, "/callback").WithJSON(`{"code":`).Do(router)

	if rr.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusTemporaryRedirect)
	}
	if got, want := rr.Header().Get("Location"), intentURI(""); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
	testutil.AssertEqual(t, provider.GetCallCount("ExchangeCode"), 0)
}

func TestServeExchangeToken(t *testing.T) {
	provider := mock.NewMockProvider()
	router := setupTestHandler(t, provider, nil).Router()

	rr := testutil.NewHTTPRequest(http.MethodPost, "/exchange-token").
		WithJSON(`{"authorizationCode":"abc123"}`).
		Do(router)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	testutil.AssertEqual(t, rr.Header().Get("Content-Type"), "application/json")

	var resp ExchangeTokenResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := ExchangeTokenResponse{
		Success:      true,
		AccessToken:  "mock-access-token",
		RefreshToken: "mock-refresh-token",
		IDToken:      "mock-id-token",
		ExpiresIn:    3600,
	}
	if resp != want {
		t.Errorf("response = %+v, want %+v", resp, want)
	}

	call, _ := provider.LastExchangeCall()
	testutil.AssertEqual(t, call.Code, "abc123")
	testutil.AssertEqual(t, call.Hint, "")
}

func TestServeExchangeToken_IdentityTokenHint(t *testing.T) {
	provider := mock.NewMockProvider()
	router := setupTestHandler(t, provider, nil).Router()

	idToken := testutil.NewIdentityToken(t, identityB, "u1", "")
	rr := testutil.NewHTTPRequest(http.MethodPost, "/exchange-token").
		WithJSON(`{"authorizationCode":"abc123","identityToken":"` + idToken + `"}`).
		Do(router)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	call, _ := provider.LastExchangeCall()
	testutil.AssertEqual(t, call.Hint, identityB)
}

func TestServeExchangeToken_FormEncoded(t *testing.T) {
	provider := mock.NewMockProvider()
	router := setupTestHandler(t, provider, nil).Router()

	rr := testutil.NewHTTPRequest(http.MethodPost, "/api/exchange-token").
		WithForm("authorizationCode=abc123").
		Do(router)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	call, _ := provider.LastExchangeCall()
	testutil.AssertEqual(t, call.Code, "abc123")
}

func TestServeExchangeToken_Errors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		exchange    func(ctx context.Context, code, hint string) (*providers.TokenSet, error)
		wantStatus  int
		wantError   string
		wantSuccess any // nil when the field must be absent
		wantAttempt int
	}{
		{
			name:       "missing code",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantError:  MessageCodeRequired,
		},
		{
			name:       "empty body",
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantError:  MessageCodeRequired,
		},
		{
			name:       "malformed JSON",
			body:       `{"authorizationCode":`,
			wantStatus: http.StatusBadRequest,
			wantError:  MessageInvalidRequestBody,
		},
		{
			name:        "exhausted",
			body:        `{"authorizationCode":"abc123"}`,
			exchange:    exhaustedExchange,
			wantStatus:  http.StatusInternalServerError,
			wantError:   MessageTokenExchangeFailed,
			wantSuccess: false,
			wantAttempt: 2,
		},
		{
			name: "configuration error",
			body: `{"authorizationCode":"abc123"}`,
			exchange: func(ctx context.Context, code, hint string) (*providers.TokenSet, error) {
				return nil, &providers.ConfigurationError{Reason: "private key is not ECDSA"}
			},
			wantStatus:  http.StatusInternalServerError,
			wantError:   MessageTokenExchangeFailed,
			wantSuccess: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mock.NewMockProvider()
			if tt.exchange != nil {
				provider.ExchangeCodeFunc = tt.exchange
			}
			router := setupTestHandler(t, provider, nil).Router()

			rr := testutil.NewHTTPRequest(http.MethodPost, "/exchange-token").WithJSON(tt.body).Do(router)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			body := decodeJSON(t, rr.Body)
			testutil.AssertEqual(t, body["error"], tt.wantError)
			testutil.AssertEqual(t, body["success"], tt.wantSuccess)

			attempts, _ := body["attempts"].([]any)
			if len(attempts) != tt.wantAttempt {
				t.Errorf("attempts = %d, want %d", len(attempts), tt.wantAttempt)
			}
			if strings.Contains(rr.Body.String(), "private key") {
				t.Error("configuration details leaked into the response")
			}
		})
	}
}

func TestServeRevokeToken(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantToken    string
		wantTypeHint string
		wantHint     string
	}{
		{
			name:         "refresh token",
			body:         `{"refreshToken":"RT1"}`,
			wantToken:    "RT1",
			wantTypeHint: providers.TokenTypeRefreshToken,
		},
		{
			name:         "refresh token preferred over access token",
			body:         `{"refreshToken":"RT1","accessToken":"AT1"}`,
			wantToken:    "RT1",
			wantTypeHint: providers.TokenTypeRefreshToken,
		},
		{
			name:         "access token",
			body:         `{"accessToken":"AT1"}`,
			wantToken:    "AT1",
			wantTypeHint: providers.TokenTypeAccessToken,
		},
		{
			name:         "authorization code is exchanged first",
			body:         `{"authorizationCode":"abc123"}`,
			wantToken:    "mock-refresh-token",
			wantTypeHint: providers.TokenTypeRefreshToken,
			wantHint:     "mock-client",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mock.NewMockProvider()
			router := setupTestHandler(t, provider, nil).Router()

			rr := testutil.NewHTTPRequest(http.MethodPost, "/revoke-apple-token").WithJSON(tt.body).Do(router)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
			}

			var resp RevokeTokenResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			want := RevokeTokenResponse{
				Success:          true,
				Message:          "Token revoked successfully",
				RevokedTokenType: tt.wantTypeHint,
				UsedClientID:     "mock-client",
			}
			if resp != want {
				t.Errorf("response = %+v, want %+v", resp, want)
			}

			call, _ := provider.LastRevokeCall()
			testutil.AssertEqual(t, call.Token, tt.wantToken)
			testutil.AssertEqual(t, call.TokenTypeHint, tt.wantTypeHint)
			testutil.AssertEqual(t, call.Hint, tt.wantHint)
		})
	}
}

func TestServeRevokeToken_Idempotent(t *testing.T) {
	provider := mock.NewMockProvider()
	router := setupTestHandler(t, provider, nil).Router()

	for i := 0; i < 2; i++ {
		rr := testutil.NewHTTPRequest(http.MethodPost, "/revoke-apple-token").
			WithJSON(`{"refreshToken":"RT1"}`).
			Do(router)
		if rr.Code != http.StatusOK {
			t.Fatalf("call %d: status = %d, want %d", i+1, rr.Code, http.StatusOK)
		}
		testutil.AssertEqual(t, decodeJSON(t, rr.Body)["success"], true)
	}
	testutil.AssertEqual(t, provider.GetCallCount("RevokeToken"), 2)
}

func TestServeRevokeToken_Errors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		revoke      func(ctx context.Context, token, tokenTypeHint, hint string) (*providers.RevocationResult, error)
		wantStatus  int
		wantError   string
		wantSuccess any
	}{
		{
			name:       "no token",
			body:       `{"identityToken":"not-a-jwt"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  MessageNoRevocableToken,
		},
		{
			name: "exhausted",
			body: `{"refreshToken":"RT1"}`,
			revoke: func(ctx context.Context, token, tokenTypeHint, hint string) (*providers.RevocationResult, error) {
				return nil, &providers.RevocationExhaustedError{Attempts: []providers.Attempt{
					{ClientID: identityA, StatusCode: 400, Body: `{"error":"invalid_client"}`},
					{ClientID: identityB, Err: errors.New("connection reset")},
				}}
			},
			wantStatus:  http.StatusBadRequest,
			wantError:   MessageRevocationFailed,
			wantSuccess: false,
		},
		{
			name: "unexpected error",
			body: `{"refreshToken":"RT1"}`,
			revoke: func(ctx context.Context, token, tokenTypeHint, hint string) (*providers.RevocationResult, error) {
				return nil, errors.New("boom")
			},
			wantStatus:  http.StatusInternalServerError,
			wantError:   MessageInternalServerError,
			wantSuccess: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := mock.NewMockProvider()
			if tt.revoke != nil {
				provider.RevokeTokenFunc = tt.revoke
			}
			router := setupTestHandler(t, provider, nil).Router()

			rr := testutil.NewHTTPRequest(http.MethodPost, "/revoke-apple-token").WithJSON(tt.body).Do(router)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			body := decodeJSON(t, rr.Body)
			testutil.AssertEqual(t, body["error"], tt.wantError)
			testutil.AssertEqual(t, body["success"], tt.wantSuccess)
		})
	}
}

func TestServeRevokeToken_AttemptDiagnostics(t *testing.T) {
	provider := mock.NewMockProvider()
	provider.RevokeTokenFunc = func(ctx context.Context, token, tokenTypeHint, hint string) (*providers.RevocationResult, error) {
		return nil, &providers.RevocationExhaustedError{Attempts: []providers.Attempt{
			{ClientID: identityA, StatusCode: 400, Body: `{"error":"invalid_client"}`},
			{ClientID: identityB, Err: errors.New("connection reset")},
		}}
	}
	router := setupTestHandler(t, provider, nil).Router()

	rr := testutil.NewHTTPRequest(http.MethodPost, "/revoke-apple-token").WithJSON(`{"accessToken":"AT1"}`).Do(router)

	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := []AttemptResponse{
		{ClientID: identityA, Status: 400, Body: `{"error":"invalid_client"}`},
		{ClientID: identityB, Error: "connection reset"},
	}
	if len(resp.Attempts) != len(want) {
		t.Fatalf("attempts = %+v, want %+v", resp.Attempts, want)
	}
	for i := range want {
		if resp.Attempts[i] != want[i] {
			t.Errorf("attempt %d = %+v, want %+v", i, resp.Attempts[i], want[i])
		}
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router := setupTestHandler(t, mock.NewMockProvider(), nil).Router()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/exchange-token"},
		{http.MethodPut, "/callback"},
		{http.MethodDelete, "/revoke-apple-token"},
		{http.MethodGet, "/api/revoke-apple-token"},
		{http.MethodPost, "/healthz"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := testutil.NewHTTPRequest(tt.method, tt.path).Do(router)

			if rr.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
			}
			if got := strings.TrimSpace(rr.Body.String()); got != `{"error":"Method not allowed"}` {
				t.Errorf("body = %s", got)
			}
		})
	}
}

func TestHandlers_MethodNotAllowedWithoutRouter(t *testing.T) {
	h := setupTestHandler(t, mock.NewMockProvider(), nil)

	tests := []struct {
		name    string
		method  string
		handler http.HandlerFunc
	}{
		{"callback", http.MethodDelete, h.ServeCallback},
		{"exchange", http.MethodGet, h.ServeExchangeToken},
		{"revoke", http.MethodGet, h.ServeRevokeToken},
		{"health", http.MethodPost, h.ServeHealth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := testutil.NewHTTPRequest(tt.method, "/").Do(tt.handler)
			if rr.Code != http.StatusMethodNotAllowed {
				t.Errorf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
			}
		})
	}
}

func TestRouter_NotFound(t *testing.T) {
	router := setupTestHandler(t, mock.NewMockProvider(), nil).Router()

	rr := testutil.NewHTTPRequest(http.MethodGet, "/oauth/authorize").Do(router)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
	testutil.AssertEqual(t, decodeJSON(t, rr.Body)["error"], MessageNotFound)
}

func TestRouter_Headers(t *testing.T) {
	router := setupTestHandler(t, mock.NewMockProvider(), nil).Router()

	rr := testutil.NewHTTPRequest(http.MethodPost, "/exchange-token").
		WithJSON(`{"authorizationCode":"abc123"}`).
		WithHeader(security.RequestIDHeader, "upstream-id-1").
		Do(router)

	testutil.AssertEqual(t, rr.Header().Get(security.RequestIDHeader), "upstream-id-1")
	testutil.AssertEqual(t, rr.Header().Get("X-Frame-Options"), "DENY")
	testutil.AssertEqual(t, rr.Header().Get("Cache-Control"), "no-store, no-cache, must-revalidate, private")
	if rr.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing for an https public URL")
	}
}

func TestServeHealth(t *testing.T) {
	provider := mock.NewMockProvider()
	router := setupTestHandler(t, provider, nil).Router()

	rr := testutil.NewHTTPRequest(http.MethodGet, "/healthz").Do(router)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := decodeJSON(t, rr.Body)
	testutil.AssertEqual(t, body["status"], "ok")
	testutil.AssertEqual(t, body["provider"], "mock")

	provider.HealthCheckFunc = func(ctx context.Context) error {
		return &providers.ConfigurationError{Reason: "private key missing"}
	}
	rr = testutil.NewHTTPRequest(http.MethodGet, "/healthz").Do(router)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	testutil.AssertEqual(t, decodeJSON(t, rr.Body)["success"], false)
}
