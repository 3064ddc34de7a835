package server

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// FailurePolicy decides what the callback does when the code exchange fails.
type FailurePolicy string

const (
	// FailOpen redirects to the app without tokens. The user always reaches the app.
	FailOpen FailurePolicy = "open"

	// FailClosed answers with an error instead of redirecting.
	FailClosed FailurePolicy = "closed"
)

// ParseFailurePolicy parses a configured failure policy. Empty means FailOpen.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailOpen:
		return FailOpen, nil
	case FailClosed:
		return FailClosed, nil
	default:
		return "", fmt.Errorf("unknown callback failure policy %q (want %q or %q)", s, FailOpen, FailClosed)
	}
}

const (
	// DefaultDeepLinkScheme is the URI scheme the app registers for the callback
	DefaultDeepLinkScheme = "signinwithapple"

	// DefaultDeepLinkHost is the host part of the intent URI
	DefaultDeepLinkHost = "callback"
)

// schemePattern is the RFC 3986 scheme grammar
var schemePattern = regexp.MustCompile(`^[a-z][a-z0-9+.-]*$`)

// packagePattern matches Android application IDs (e.g. com.example.app)
var packagePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)+$`)

// Config holds bridge server configuration
type Config struct {
	// AppPackageID is the Android application ID that receives the deep link (required)
	AppPackageID string

	// DeepLinkScheme is the scheme registered by the app's intent filter
	// Default: "signinwithapple"
	DeepLinkScheme string

	// DeepLinkHost is the host of the intent URI
	// Default: "callback"
	DeepLinkHost string

	// CallbackFailurePolicy decides whether a failed code exchange still redirects.
	// Default: FailOpen
	CallbackFailurePolicy FailurePolicy

	// PublicURL is the externally visible base URL of the bridge (e.g. https://auth.example.com).
	// HSTS is only sent when it is https.
	PublicURL string

	// TrustProxy enables X-Forwarded-For and X-Real-IP when resolving client IPs.
	// Only enable behind a reverse proxy that overwrites these headers.
	TrustProxy bool

	// TrustedProxyCount is the number of trusted proxies in front of the bridge
	// Default: 1 when TrustProxy is set
	TrustedProxyCount int
}

// Validate checks the configuration after defaults have been applied
func (c *Config) Validate() error {
	if c.AppPackageID == "" {
		return fmt.Errorf("app package ID is required")
	}
	if !packagePattern.MatchString(c.AppPackageID) {
		return fmt.Errorf("app package ID %q is not a valid application ID", c.AppPackageID)
	}
	if !schemePattern.MatchString(c.DeepLinkScheme) {
		return fmt.Errorf("deep link scheme %q is not a valid URI scheme", c.DeepLinkScheme)
	}
	if strings.ContainsAny(c.DeepLinkHost, "/?#;") || c.DeepLinkHost == "" {
		return fmt.Errorf("deep link host %q is not valid", c.DeepLinkHost)
	}
	if c.CallbackFailurePolicy != FailOpen && c.CallbackFailurePolicy != FailClosed {
		return fmt.Errorf("unknown callback failure policy %q", c.CallbackFailurePolicy)
	}
	if c.TrustedProxyCount < 0 {
		return fmt.Errorf("trusted proxy count must not be negative")
	}
	return nil
}

// applyDefaults fills unset fields and warns about settings that change user-visible behaviour
func applyDefaults(config *Config, logger *slog.Logger) *Config {
	if config.DeepLinkScheme == "" {
		config.DeepLinkScheme = DefaultDeepLinkScheme
	}
	if config.DeepLinkHost == "" {
		config.DeepLinkHost = DefaultDeepLinkHost
	}
	if config.CallbackFailurePolicy == "" {
		config.CallbackFailurePolicy = FailOpen
	}
	if config.TrustProxy && config.TrustedProxyCount == 0 {
		config.TrustedProxyCount = 1
	}

	if config.CallbackFailurePolicy == FailClosed {
		logger.Warn("Callback failure policy is closed: users see an error instead of returning to the app when the code exchange fails")
	}

	return config
}
