package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
)

// AppleCall records one request received by MockAppleServer.
type AppleCall struct {
	Path string
	Form url.Values
}

// AppleResponse is a canned response for MockAppleServer.
type AppleResponse struct {
	Status int
	Body   string
}

// MockAppleServer stands in for Apple's /auth/token and /auth/revoke endpoints.
// Responses are chosen per client_id; unknown client IDs get a 400 invalid_client.
type MockAppleServer struct {
	*httptest.Server

	mu     sync.Mutex
	calls  []AppleCall
	token  map[string]AppleResponse
	revoke map[string]AppleResponse
}

// NewMockAppleServer starts a mock Apple server. Close it with Close().
func NewMockAppleServer() *MockAppleServer {
	m := &MockAppleServer{
		token:  make(map[string]AppleResponse),
		revoke: make(map[string]AppleResponse),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token", m.handle(m.token))
	mux.HandleFunc("/auth/revoke", m.handle(m.revoke))
	m.Server = httptest.NewServer(mux)
	return m
}

// TokenURL returns the mock token endpoint URL
func (m *MockAppleServer) TokenURL() string {
	return m.URL + "/auth/token"
}

// RevokeURL returns the mock revocation endpoint URL
func (m *MockAppleServer) RevokeURL() string {
	return m.URL + "/auth/revoke"
}

// OnToken sets the token endpoint response for clientID
func (m *MockAppleServer) OnToken(clientID string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token[clientID] = AppleResponse{Status: status, Body: body}
}

// OnTokenJSON sets a JSON token endpoint response for clientID
func (m *MockAppleServer) OnTokenJSON(clientID string, status int, body map[string]any) {
	encoded, _ := json.Marshal(body)
	m.OnToken(clientID, status, string(encoded))
}

// OnRevoke sets the revocation endpoint response for clientID
func (m *MockAppleServer) OnRevoke(clientID string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoke[clientID] = AppleResponse{Status: status, Body: body}
}

// Calls returns a copy of the recorded calls in arrival order
func (m *MockAppleServer) Calls() []AppleCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AppleCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsTo returns the recorded calls for the given path
func (m *MockAppleServer) CallsTo(path string) []AppleCall {
	var out []AppleCall
	for _, c := range m.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockAppleServer) handle(responses map[string]AppleResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		clientID := r.PostForm.Get("client_id")

		m.mu.Lock()
		m.calls = append(m.calls, AppleCall{Path: r.URL.Path, Form: r.PostForm})
		resp, ok := responses[clientID]
		m.mu.Unlock()

		if !ok {
			resp = AppleResponse{Status: http.StatusBadRequest, Body: `{"error":"invalid_client"}`}
		}
		if resp.Body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(resp.Status)
		_, _ = w.Write([]byte(resp.Body))
	}
}
