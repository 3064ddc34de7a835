// Package mock provides mock implementations of the Provider interface for testing.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/User184/apple-signin-bridge/providers"
)

// ExchangeCall records the arguments of one ExchangeCode call
type ExchangeCall struct {
	Code string
	Hint string
}

// RevokeCall records the arguments of one RevokeToken call
type RevokeCall struct {
	Token         string
	TokenTypeHint string
	Hint          string
}

// MockProvider is a mock implementation of the Provider interface for testing
type MockProvider struct {
	// NameFunc is called when Name() is invoked
	NameFunc func() string

	// ExchangeCodeFunc is called when ExchangeCode() is invoked
	ExchangeCodeFunc func(ctx context.Context, code string, hint string) (*providers.TokenSet, error)

	// RevokeTokenFunc is called when RevokeToken() is invoked
	RevokeTokenFunc func(ctx context.Context, token, tokenTypeHint, hint string) (*providers.RevocationResult, error)

	// HealthCheckFunc is called when HealthCheck() is invoked
	HealthCheckFunc func(ctx context.Context) error

	// CallCounts tracks how many times each method was called
	CallCounts map[string]int

	// ExchangeCalls and RevokeCalls record call arguments in order
	ExchangeCalls []ExchangeCall
	RevokeCalls   []RevokeCall

	// mu protects CallCounts and the call records from concurrent access
	mu sync.RWMutex
}

// NewMockProvider creates a new mock provider with default implementations.
// By default every exchange and revocation succeeds with the client identity "mock-client".
func NewMockProvider() *MockProvider {
	return &MockProvider{
		CallCounts: make(map[string]int),
		NameFunc: func() string {
			return "mock"
		},
		ExchangeCodeFunc: func(ctx context.Context, code string, hint string) (*providers.TokenSet, error) {
			return &providers.TokenSet{
				AccessToken:  "mock-access-token",
				RefreshToken: "mock-refresh-token",
				IDToken:      "mock-id-token",
				TokenType:    "Bearer",
				ExpiresIn:    3600,
				ClientID:     "mock-client",
			}, nil
		},
		RevokeTokenFunc: func(ctx context.Context, token, tokenTypeHint, hint string) (*providers.RevocationResult, error) {
			return &providers.RevocationResult{ClientID: "mock-client"}, nil
		},
		HealthCheckFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	// LOCK PATTERN: Lock only to update counter and read function reference.
	// Release lock BEFORE calling the user function, which might call other mock methods.
	m.mu.Lock()
	m.CallCounts["Name"]++
	fn := m.NameFunc
	m.mu.Unlock()

	if fn == nil {
		return "mock" // Safe default
	}
	return fn()
}

// ExchangeCode exchanges an authorization code for tokens
func (m *MockProvider) ExchangeCode(ctx context.Context, code string, hint string) (*providers.TokenSet, error) {
	m.mu.Lock()
	m.CallCounts["ExchangeCode"]++
	m.ExchangeCalls = append(m.ExchangeCalls, ExchangeCall{Code: code, Hint: hint})
	fn := m.ExchangeCodeFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("ExchangeCodeFunc not configured")
	}
	return fn(ctx, code, hint)
}

// RevokeToken revokes a token at the provider
func (m *MockProvider) RevokeToken(ctx context.Context, token, tokenTypeHint, hint string) (*providers.RevocationResult, error) {
	m.mu.Lock()
	m.CallCounts["RevokeToken"]++
	m.RevokeCalls = append(m.RevokeCalls, RevokeCall{Token: token, TokenTypeHint: tokenTypeHint, Hint: hint})
	fn := m.RevokeTokenFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("RevokeTokenFunc not configured")
	}
	return fn(ctx, token, tokenTypeHint, hint)
}

// HealthCheck checks whether the provider is usable
func (m *MockProvider) HealthCheck(ctx context.Context) error {
	m.mu.Lock()
	m.CallCounts["HealthCheck"]++
	fn := m.HealthCheckFunc
	m.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// GetCallCount returns the number of times a method was called
func (m *MockProvider) GetCallCount(method string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.CallCounts[method]
}

// LastExchangeCall returns the most recent ExchangeCode arguments
func (m *MockProvider) LastExchangeCall() (ExchangeCall, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.ExchangeCalls) == 0 {
		return ExchangeCall{}, false
	}
	return m.ExchangeCalls[len(m.ExchangeCalls)-1], true
}

// LastRevokeCall returns the most recent RevokeToken arguments
func (m *MockProvider) LastRevokeCall() (RevokeCall, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.RevokeCalls) == 0 {
		return RevokeCall{}, false
	}
	return m.RevokeCalls[len(m.RevokeCalls)-1], true
}

var _ providers.Provider = (*MockProvider)(nil)
