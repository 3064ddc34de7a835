package bridge

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/User184/apple-signin-bridge/instrumentation"
	"github.com/User184/apple-signin-bridge/providers/apple"
	"github.com/User184/apple-signin-bridge/server"
)

// Config holds the process configuration, read from environment variables.
type Config struct {
	// Apple credentials
	TeamID         string `env:"APPLE_TEAM_ID"`
	KeyID          string `env:"APPLE_KEY_ID"`
	PrivateKey     string `env:"APPLE_PRIVATE_KEY"`
	PrivateKeyFile string `env:"APPLE_PRIVATE_KEY_FILE,file"` // holds the file contents once parsed

	// Client identities
	BundleID    string `env:"APPLE_BUNDLE_ID"`
	ServiceID   string `env:"APPLE_SERVICE_ID"`
	ClientOrder string `env:"APPLE_CLIENT_ORDER" envDefault:"bundle-first"`

	// Apple endpoints (overridable for testing)
	TokenURL    string        `env:"APPLE_TOKEN_URL"`
	RevokeURL   string        `env:"APPLE_REVOKE_URL"`
	HTTPTimeout time.Duration `env:"APPLE_HTTP_TIMEOUT" envDefault:"30s"`

	// Deep link
	AppPackageID          string `env:"APP_PACKAGE_ID"`
	DeepLinkScheme        string `env:"DEEP_LINK_SCHEME" envDefault:"signinwithapple"`
	CallbackFailurePolicy string `env:"CALLBACK_FAILURE_POLICY" envDefault:"open"`

	// HTTP server
	ListenAddr        string `env:"LISTEN_ADDR" envDefault:":8080"`
	PublicURL         string `env:"PUBLIC_URL"`
	TrustProxy        bool   `env:"TRUST_PROXY"`
	TrustedProxyCount int    `env:"TRUSTED_PROXY_COUNT" envDefault:"1"`

	// Logging
	AuditLogging bool   `env:"AUDIT_LOGGING" envDefault:"true"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"json"`
	LogClientIPs bool   `env:"LOG_CLIENT_IPS"`

	// OpenTelemetry
	OTelEnabled     bool   `env:"OTEL_ENABLED"`
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	MetricsExporter string `env:"METRICS_EXPORTER"`
	ServiceVersion  string `env:"SERVICE_VERSION"`
}

// LoadConfigFromEnv reads the configuration from the process environment and validates it.
func LoadConfigFromEnv() (*Config, error) {
	return loadConfig(env.Options{})
}

// LoadConfig reads the configuration from the given variables instead of the
// process environment.
func LoadConfig(environment map[string]string) (*Config, error) {
	return loadConfig(env.Options{Environment: environment})
}

func loadConfig(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every required setting is present and well formed.
// Deeper checks (key parsing, package ID syntax) happen when the components are built.
func (c *Config) Validate() error {
	var missing []string
	for _, required := range []struct {
		name  string
		value string
	}{
		{"APPLE_TEAM_ID", c.TeamID},
		{"APPLE_KEY_ID", c.KeyID},
		{"APPLE_BUNDLE_ID", c.BundleID},
		{"APPLE_SERVICE_ID", c.ServiceID},
		{"APP_PACKAGE_ID", c.AppPackageID},
	} {
		if strings.TrimSpace(required.value) == "" {
			missing = append(missing, required.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch {
	case c.PrivateKey == "" && c.PrivateKeyFile == "":
		return fmt.Errorf("one of APPLE_PRIVATE_KEY or APPLE_PRIVATE_KEY_FILE is required")
	case c.PrivateKey != "" && c.PrivateKeyFile != "":
		return fmt.Errorf("APPLE_PRIVATE_KEY and APPLE_PRIVATE_KEY_FILE are mutually exclusive")
	}

	if _, err := apple.ParseClientOrder(c.ClientOrder); err != nil {
		return fmt.Errorf("APPLE_CLIENT_ORDER: %w", err)
	}
	if _, err := server.ParseFailurePolicy(c.CallbackFailurePolicy); err != nil {
		return fmt.Errorf("CALLBACK_FAILURE_POLICY: %w", err)
	}
	if _, err := c.SlogLevel(); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("APPLE_HTTP_TIMEOUT must be positive")
	}
	if c.TrustedProxyCount < 0 {
		return fmt.Errorf("TRUSTED_PROXY_COUNT must not be negative")
	}
	if c.MetricsExporter != "" && c.MetricsExporter != instrumentation.MetricsExporterPrometheus {
		return fmt.Errorf("METRICS_EXPORTER must be empty or %q, got %q", instrumentation.MetricsExporterPrometheus, c.MetricsExporter)
	}
	if c.MetricsExporter != "" && !c.OTelEnabled {
		return fmt.Errorf("METRICS_EXPORTER=%s requires OTEL_ENABLED=true", c.MetricsExporter)
	}
	return nil
}

// PrivateKeyPEM returns the configured .p8 key contents
func (c *Config) PrivateKeyPEM() []byte {
	if c.PrivateKey != "" {
		return []byte(c.PrivateKey)
	}
	return []byte(c.PrivateKeyFile)
}

// SlogLevel parses LOG_LEVEL (debug, info, warn, error)
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// AppleConfig builds the Sign in with Apple provider configuration
func (c *Config) AppleConfig(logger *slog.Logger, inst *instrumentation.Instrumentation) (*apple.Config, error) {
	order, err := apple.ParseClientOrder(c.ClientOrder)
	if err != nil {
		return nil, err
	}

	return &apple.Config{
		TeamID:          c.TeamID,
		KeyID:           c.KeyID,
		PrivateKeyPEM:   c.PrivateKeyPEM(),
		BundleID:        c.BundleID,
		ServiceID:       c.ServiceID,
		ClientOrder:     order,
		TokenURL:        c.TokenURL,
		RevokeURL:       c.RevokeURL,
		HTTPClient:      &http.Client{Timeout: c.HTTPTimeout},
		Logger:          logger,
		Instrumentation: inst,
	}, nil
}

// ServerConfig builds the bridge server configuration
func (c *Config) ServerConfig() (*server.Config, error) {
	policy, err := server.ParseFailurePolicy(c.CallbackFailurePolicy)
	if err != nil {
		return nil, err
	}

	return &server.Config{
		AppPackageID:          c.AppPackageID,
		DeepLinkScheme:        c.DeepLinkScheme,
		CallbackFailurePolicy: policy,
		PublicURL:             c.PublicURL,
		TrustProxy:            c.TrustProxy,
		TrustedProxyCount:     c.TrustedProxyCount,
	}, nil
}

// InstrumentationConfig builds the OpenTelemetry configuration
func (c *Config) InstrumentationConfig() instrumentation.Config {
	return instrumentation.Config{
		ServiceName:     instrumentation.DefaultServiceName,
		ServiceVersion:  c.ServiceVersion,
		Enabled:         c.OTelEnabled,
		LogClientIPs:    c.LogClientIPs,
		OTLPEndpoint:    c.OTLPEndpoint,
		MetricsExporter: c.MetricsExporter,
	}
}
