package agent

import (
	"context"
	"fmt"

	"github.com/ngsilink/iotagent-core/internal/api"
	mqttbridge "github.com/ngsilink/iotagent-core/internal/bridges/mqtt"
	"github.com/ngsilink/iotagent-core/internal/device"
	"github.com/ngsilink/iotagent-core/internal/dispatch"
	"github.com/ngsilink/iotagent-core/internal/infrastructure/config"
	"github.com/ngsilink/iotagent-core/internal/infrastructure/database"
	"github.com/ngsilink/iotagent-core/internal/infrastructure/logging"
	"github.com/ngsilink/iotagent-core/internal/infrastructure/mqtt"
	"github.com/ngsilink/iotagent-core/internal/registration"
)

// Agent is the assembled protocol adapter. Construction wires the
// components; Activate/Deactivate run the lifecycle.
type Agent struct {
	cfg    *config.Config
	logger *logging.Logger

	catalog    *device.Catalog
	registry   *device.Registry
	handlers   *dispatch.Handlers
	dispatcher *dispatch.Dispatcher
	manager    *registration.Manager
	server     *api.Server

	db         *database.DB
	mqttClient *mqtt.Client
	bridge     *mqttbridge.Bridge

	cancel context.CancelFunc
}

// New builds an agent from configuration. Nothing is started; handlers can
// still be installed on the returned agent before Activate.
func New(cfg *config.Config, logger *logging.Logger, version string) (*Agent, error) {
	tenant := device.Tenant{
		Service:    cfg.Agent.Service,
		Subservice: cfg.Agent.Subservice,
	}

	catalog := device.NewCatalog()
	catalog.Load(tenant, typeDefinitions(cfg.Types))

	a := &Agent{
		cfg:     cfg,
		logger:  logger,
		catalog: catalog,
	}

	repo, err := a.buildRepository()
	if err != nil {
		return nil, err
	}

	a.registry = device.NewRegistry(catalog, repo)
	a.registry.SetLogger(logger.With("component", "registry"))

	client := registration.NewClient(cfg.Broker.URL(), cfg.BrokerTimeout())
	throttle := registration.NewThrottle(cfg.ThrottlingInterval())
	a.manager, err = registration.NewManager(client, registration.Config{
		ProviderURL: cfg.Agent.ProviderURL,
		Duration:    cfg.Agent.RegistrationDuration,
	}, throttle)
	if err != nil {
		return nil, fmt.Errorf("building registration manager: %w", err)
	}
	a.manager.SetLogger(logger.With("component", "registration"))
	a.registry.SetNotifier(a.manager)

	a.handlers = dispatch.NewHandlers()
	a.dispatcher = dispatch.NewDispatcher(a.registry, a.handlers)
	a.dispatcher.SetLogger(logger.With("component", "dispatch"))
	a.dispatcher.SetRegistrar(a.manager)

	a.server, err = api.New(api.Deps{
		Config:        cfg.Server,
		Logger:        logger.With("component", "api"),
		Dispatcher:    a.dispatcher,
		DefaultTenant: tenant,
		Version:       version,
	})
	if err != nil {
		return nil, fmt.Errorf("building http server: %w", err)
	}

	return a, nil
}

// Handlers exposes the handler slots for the consumer to fill before
// Activate.
func (a *Agent) Handlers() *dispatch.Handlers {
	return a.handlers
}

// Registry exposes the device registry for explicit provisioning and
// deregistration.
func (a *Agent) Registry() *device.Registry {
	return a.registry
}

// Bridge returns the MQTT measure bridge, or nil when the bridge is
// disabled or the agent is not yet activated.
func (a *Agent) Bridge() *mqttbridge.Bridge {
	return a.bridge
}

// DefaultTenant returns the tenant configured for the agent, used when
// inbound requests carry no service headers.
func (a *Agent) DefaultTenant() device.Tenant {
	return device.Tenant{
		Service:    a.cfg.Agent.Service,
		Subservice: a.cfg.Agent.Subservice,
	}
}

// Activate starts the HTTP server, the registration renewal loop and, when
// enabled, the MQTT ingestion bridge. It returns once everything is
// running; background work stops when Deactivate is called.
func (a *Agent) Activate(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.manager.Start(runCtx)
	a.server.Start(runCtx)

	if a.cfg.MQTT.Enabled {
		if err := a.startBridge(runCtx); err != nil {
			cancel()
			return err
		}
	}

	a.logger.Info("agent activated",
		"server_port", a.cfg.Server.Port,
		"broker", a.cfg.Broker.URL(),
		"registry_backend", a.cfg.Registry.Backend,
		"mqtt_bridge", a.cfg.MQTT.Enabled,
	)
	return nil
}

// Deactivate stops the listener and background loops and closes the
// registry backend. Safe to call once after a successful Activate.
func (a *Agent) Deactivate() error {
	if a.cancel != nil {
		a.cancel()
	}
	if err := a.server.Close(); err != nil {
		a.logger.Warn("closing http server", "error", err)
	}
	if a.mqttClient != nil {
		if err := a.mqttClient.Close(); err != nil {
			a.logger.Warn("closing mqtt client", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return err
		}
	}
	a.logger.Info("agent deactivated")
	return nil
}

// buildRepository selects the registry backend from configuration.
func (a *Agent) buildRepository() (device.Repository, error) {
	if a.cfg.Registry.Backend != config.RegistrySQLite {
		return device.NewMemoryRepository(), nil
	}

	db, err := database.Open(database.Config{
		Path:        a.cfg.Registry.Database.Path,
		WALMode:     a.cfg.Registry.Database.WALMode,
		BusyTimeout: a.cfg.Registry.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}
	if err := db.InitSchema(context.Background()); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, err
	}
	a.db = db
	return device.NewSQLiteRepository(db.DB), nil
}

// startBridge connects the MQTT client and starts the measure bridge.
// A command handler is only installed when the consumer has not set one.
func (a *Agent) startBridge(ctx context.Context) error {
	client, err := mqtt.Connect(a.cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting mqtt bridge: %w", err)
	}
	client.SetLogger(a.logger.With("component", "mqtt"))
	a.mqttClient = client

	bridge, err := mqttbridge.New(mqttbridge.Deps{
		Transport:   client,
		TopicPrefix: a.cfg.MQTT.TopicPrefix,
		QoS:         byte(a.cfg.MQTT.QoS),
		Dispatcher:  a.dispatcher,
		Catalog:     a.catalog,
		Tenant: device.Tenant{
			Service:    a.cfg.Agent.Service,
			Subservice: a.cfg.Agent.Subservice,
		},
		Logger: a.logger.With("component", "mqtt-bridge"),
	})
	if err != nil {
		return err
	}
	a.bridge = bridge

	// Install the command route before the first measure can arrive.
	if !a.handlers.HasCommandHandler() {
		a.handlers.SetCommandHandler(bridge.CommandHandler())
	}

	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting mqtt bridge: %w", err)
	}
	return nil
}

// typeDefinitions converts the configured type map into catalog form.
func typeDefinitions(types map[string]config.TypeConfig) []device.TypeDefinition {
	defs := make([]device.TypeDefinition, 0, len(types))
	for name, t := range types {
		defs = append(defs, device.TypeDefinition{
			Name:     name,
			Commands: attributeDefinitions(t.Commands),
			Lazy:     attributeDefinitions(t.Lazy),
			Active:   attributeDefinitions(t.Active),
		})
	}
	return defs
}

// attributeDefinitions converts configured attributes into catalog form.
func attributeDefinitions(attrs []config.AttributeConfig) []device.AttributeDefinition {
	if len(attrs) == 0 {
		return nil
	}
	defs := make([]device.AttributeDefinition, 0, len(attrs))
	for _, a := range attrs {
		defs = append(defs, device.AttributeDefinition{
			Name: a.Name,
			Type: a.Type,
		})
	}
	return defs
}
