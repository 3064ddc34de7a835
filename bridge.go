package bridge

import (
	"fmt"
	"log/slog"

	"github.com/User184/apple-signin-bridge/instrumentation"
	"github.com/User184/apple-signin-bridge/providers/apple"
	"github.com/User184/apple-signin-bridge/security"
	"github.com/User184/apple-signin-bridge/server"
)

// NewServer assembles the bridge from configuration: the Sign in with Apple
// provider, the bridge server and its audit logger. inst may be nil.
func NewServer(cfg *Config, logger *slog.Logger, inst *instrumentation.Instrumentation) (*server.Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	appleConfig, err := cfg.AppleConfig(logger, inst)
	if err != nil {
		return nil, err
	}
	provider, err := apple.NewProvider(appleConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create apple provider: %w", err)
	}

	serverConfig, err := cfg.ServerConfig()
	if err != nil {
		return nil, err
	}
	srv, err := server.New(provider, serverConfig, logger)
	if err != nil {
		return nil, err
	}

	auditor := security.NewAuditor(logger, cfg.AuditLogging)
	if inst != nil {
		auditor.SetInstrumentation(inst)
		srv.SetInstrumentation(inst)
	}
	srv.SetAuditor(auditor)

	return srv, nil
}
