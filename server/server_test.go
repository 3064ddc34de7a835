package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/User184/apple-signin-bridge/providers/mock"
)

const testPackageID = "com.example.android"

func newTestServer(t *testing.T, provider *mock.MockProvider, config *Config) *Server {
	t.Helper()
	if config == nil {
		config = &Config{AppPackageID: testPackageID}
	}
	srv, err := New(provider, config, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return srv
}

func TestNew(t *testing.T) {
	provider := mock.NewMockProvider()

	tests := []struct {
		name     string
		provider *mock.MockProvider
		config   *Config
		wantErr  bool
	}{
		{name: "valid", provider: provider, config: &Config{AppPackageID: testPackageID}},
		{name: "nil provider", provider: nil, config: &Config{AppPackageID: testPackageID}, wantErr: true},
		{name: "nil config", provider: provider, config: nil, wantErr: true},
		{name: "bad package", provider: provider, config: &Config{AppPackageID: "not a package"}, wantErr: true},
		{name: "bad scheme", provider: provider, config: &Config{AppPackageID: testPackageID, DeepLinkScheme: "Bad_Scheme"}, wantErr: true},
		{name: "bad policy", provider: provider, config: &Config{AppPackageID: testPackageID, CallbackFailurePolicy: "sometimes"}, wantErr: true},
		{name: "negative proxy count", provider: provider, config: &Config{AppPackageID: testPackageID, TrustProxy: true, TrustedProxyCount: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.provider == nil {
				_, err = New(nil, tt.config, nil)
			} else {
				_, err = New(tt.provider, tt.config, nil)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_AppliesDefaults(t *testing.T) {
	srv := newTestServer(t, mock.NewMockProvider(), nil)

	if srv.Config.DeepLinkScheme != DefaultDeepLinkScheme {
		t.Errorf("DeepLinkScheme = %q", srv.Config.DeepLinkScheme)
	}
	if srv.Config.DeepLinkHost != DefaultDeepLinkHost {
		t.Errorf("DeepLinkHost = %q", srv.Config.DeepLinkHost)
	}
	if srv.Config.CallbackFailurePolicy != FailOpen {
		t.Errorf("CallbackFailurePolicy = %q", srv.Config.CallbackFailurePolicy)
	}
	if srv.Config.TrustedProxyCount != 0 {
		t.Errorf("TrustedProxyCount = %d without TrustProxy", srv.Config.TrustedProxyCount)
	}

	proxied := newTestServer(t, mock.NewMockProvider(), &Config{AppPackageID: testPackageID, TrustProxy: true})
	if proxied.Config.TrustedProxyCount != 1 {
		t.Errorf("TrustedProxyCount = %d, want 1 behind a proxy", proxied.Config.TrustedProxyCount)
	}
}

func TestParseFailurePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    FailurePolicy
		wantErr bool
	}{
		{in: "", want: FailOpen},
		{in: "open", want: FailOpen},
		{in: "CLOSED", want: FailClosed},
		{in: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFailurePolicy(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFailurePolicy(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseFailurePolicy(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestServer_HealthCheck(t *testing.T) {
	provider := mock.NewMockProvider()
	srv := newTestServer(t, provider, nil)

	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() unexpected error: %v", err)
	}

	provider.HealthCheckFunc = func(ctx context.Context) error { return errors.New("key unusable") }
	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() should surface provider errors")
	}
	if provider.GetCallCount("HealthCheck") != 2 {
		t.Errorf("HealthCheck call count = %d, want 2", provider.GetCallCount("HealthCheck"))
	}
}

func TestIntentURI(t *testing.T) {
	got := IntentURI("callback", "code=abc", "com.example.android", "signinwithapple")
	want := "intent://callback?code=abc#Intent;package=com.example.android;scheme=signinwithapple;end"
	if got != want {
		t.Errorf("IntentURI() = %q, want %q", got, want)
	}

	cfg := &Config{AppPackageID: "com.example.android", DeepLinkScheme: "myapp", DeepLinkHost: "signin"}
	if got := cfg.DeepLink(&ParameterSet{}); got != "intent://signin?#Intent;package=com.example.android;scheme=myapp;end" {
		t.Errorf("DeepLink() = %q", got)
	}
}
