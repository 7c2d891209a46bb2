// iotagent is the standalone NGSI IoT agent binary.
//
// It loads the YAML configuration, assembles the agent and activates it
// with default logging handlers installed. Real deployments embedding the
// agent as a library install their own device handlers instead; the
// defaults here accept every update and answer queries from the registry's
// last observed values, which is enough to exercise the full protocol
// surface against a broker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ngsilink/iotagent-core/internal/agent"
	"github.com/ngsilink/iotagent-core/internal/device"
	"github.com/ngsilink/iotagent-core/internal/dispatch"
	"github.com/ngsilink/iotagent-core/internal/infrastructure/config"
	"github.com/ngsilink/iotagent-core/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting iot agent",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	a, err := agent.New(cfg, log, version)
	if err != nil {
		return fmt.Errorf("building agent: %w", err)
	}

	installDefaultHandlers(a, log)

	if err := a.Activate(ctx); err != nil {
		return fmt.Errorf("activating agent: %w", err)
	}
	defer func() {
		if deactivateErr := a.Deactivate(); deactivateErr != nil {
			log.Error("error deactivating agent", "error", deactivateErr)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// installDefaultHandlers wires the standalone binary's handlers: updates
// are accepted and logged, queries answered from the last observed values.
func installDefaultHandlers(a *agent.Agent, log *logging.Logger) {
	registry := a.Registry()
	tenant := a.DefaultTenant()

	a.Handlers().SetUpdateHandler(func(_ context.Context, id, deviceType string, attrs []device.Attribute) error {
		log.Info("device update",
			"device_id", id,
			"device_type", deviceType,
			"attributes", len(attrs),
		)
		return nil
	})

	a.Handlers().SetQueryHandler(func(_ context.Context, id, deviceType string, attrNames []string) ([]dispatch.QueryResult, error) {
		return []dispatch.QueryResult{{
			ID:         id,
			Type:       deviceType,
			Attributes: registry.LastValues(tenant, id),
		}}, nil
	})
}

// getConfigPath returns the config file path from argv or the default.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if v := os.Getenv("IOTAGENT_CONFIG"); v != "" {
		return v
	}
	return defaultConfigPath
}
