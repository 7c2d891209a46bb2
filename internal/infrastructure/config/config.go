package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ngsilink/iotagent-core/internal/ngsi"
)

// Config is the root configuration structure for the IoT agent.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Broker   BrokerConfig          `yaml:"broker"`
	Server   ServerConfig          `yaml:"server"`
	Agent    AgentConfig           `yaml:"agent"`
	Types    map[string]TypeConfig `yaml:"types"`
	Registry RegistryConfig        `yaml:"registry"`
	MQTT     MQTTConfig            `yaml:"mqtt"`
	Logging  LoggingConfig         `yaml:"logging"`
}

// BrokerConfig locates the context broker the agent registers against.
type BrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Timeout is the outbound request timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// URL returns the broker base URL.
func (b BrokerConfig) URL() string {
	return fmt.Sprintf("http://%s:%d", b.Host, b.Port)
}

// ServerConfig contains the inbound HTTP server settings.
type ServerConfig struct {
	Host     string              `yaml:"host"`
	Port     int                 `yaml:"port"`
	Timeouts ServerTimeoutConfig `yaml:"timeouts"`
}

// ServerTimeoutConfig contains HTTP timeout settings in seconds.
type ServerTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// AgentConfig contains the default tenant and registration settings.
type AgentConfig struct {
	// Service and Subservice form the default tenant, used when a request
	// carries no fiware-service / fiware-servicepath headers.
	Service    string `yaml:"service"`
	Subservice string `yaml:"subservice"`

	// ProviderURL is the callback URL the broker uses to reach this agent.
	ProviderURL string `yaml:"provider_url"`

	// RegistrationDuration is the ISO 8601 validity window for context
	// availability declarations, e.g. "P1M".
	RegistrationDuration string `yaml:"registration_duration"`

	// Throttling is the ISO 8601 minimum interval between outbound broker
	// calls per tenant, e.g. "PT5S". Empty disables throttling.
	Throttling string `yaml:"throttling"`
}

// TypeConfig declares one device type's attribute schema.
type TypeConfig struct {
	Commands []AttributeConfig `yaml:"commands"`
	Lazy     []AttributeConfig `yaml:"lazy"`
	Active   []AttributeConfig `yaml:"active"`
}

// AttributeConfig declares one named, typed attribute.
type AttributeConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// RegistryConfig selects and configures the device registry backend.
type RegistryConfig struct {
	// Backend is "memory" (default) or "sqlite".
	Backend  string         `yaml:"backend"`
	Database DatabaseConfig `yaml:"database"`
}

// Registry backend names.
const (
	RegistryMemory = "memory"
	RegistrySQLite = "sqlite"
)

// DatabaseConfig contains SQLite settings for the persistent registry.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains the optional MQTT ingestion bridge settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	// TopicPrefix is the leading segment of the measure topics the bridge
	// subscribes to: <prefix>/<type>/<device>/attrs.
	TopicPrefix string `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads, parses and validates the configuration file at path.
// Defaults are applied first, then the file, then environment overrides
// (IOTAGENT_SECTION_KEY, e.g. IOTAGENT_BROKER_HOST).
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			Host:    "localhost",
			Port:    1026,
			Timeout: 10,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 4041,
			Timeouts: ServerTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Agent: AgentConfig{
			Subservice:           "/",
			RegistrationDuration: "P1M",
		},
		Registry: RegistryConfig{
			Backend: RegistryMemory,
			Database: DatabaseConfig{
				Path:        "./data/iotagent.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "iotagent",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "iot",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides.
// Environment variables follow the pattern: IOTAGENT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IOTAGENT_BROKER_HOST"); v != "" {
		cfg.Broker.Host = v
	}
	if v := os.Getenv("IOTAGENT_BROKER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Broker.Port = port
		}
	}
	if v := os.Getenv("IOTAGENT_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("IOTAGENT_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("IOTAGENT_AGENT_SERVICE"); v != "" {
		cfg.Agent.Service = v
	}
	if v := os.Getenv("IOTAGENT_AGENT_SUBSERVICE"); v != "" {
		cfg.Agent.Subservice = v
	}
	if v := os.Getenv("IOTAGENT_AGENT_PROVIDER_URL"); v != "" {
		cfg.Agent.ProviderURL = v
	}
	if v := os.Getenv("IOTAGENT_REGISTRY_DATABASE_PATH"); v != "" {
		cfg.Registry.Database.Path = v
	}
	if v := os.Getenv("IOTAGENT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IOTAGENT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IOTAGENT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Broker.Host == "" {
		errs = append(errs, "broker.host is required")
	}
	if c.Broker.Port < 1 || c.Broker.Port > 65535 {
		errs = append(errs, "broker.port must be between 1 and 65535")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Agent.Service == "" {
		errs = append(errs, "agent.service is required")
	}
	if c.Agent.ProviderURL == "" {
		errs = append(errs, "agent.provider_url is required")
	}
	if _, err := ngsi.ParseDuration(c.Agent.RegistrationDuration); err != nil {
		errs = append(errs, "agent.registration_duration must be an ISO 8601 duration")
	}
	if c.Agent.Throttling != "" {
		if _, err := ngsi.ParseDuration(c.Agent.Throttling); err != nil {
			errs = append(errs, "agent.throttling must be an ISO 8601 duration")
		}
	}
	if c.Registry.Backend != RegistryMemory && c.Registry.Backend != RegistrySQLite {
		errs = append(errs, "registry.backend must be \"memory\" or \"sqlite\"")
	}
	if c.Registry.Backend == RegistrySQLite && c.Registry.Database.Path == "" {
		errs = append(errs, "registry.database.path is required for the sqlite backend")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when the bridge is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}
	for name, t := range c.Types {
		if name == "" {
			errs = append(errs, "types must not contain an empty type name")
		}
		for _, attr := range append(append(append([]AttributeConfig{}, t.Commands...), t.Lazy...), t.Active...) {
			if attr.Name == "" {
				errs = append(errs, fmt.Sprintf("types.%s declares an attribute without a name", name))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RegistrationDuration returns the parsed registration validity window.
func (c *Config) RegistrationDuration() time.Duration {
	d, _ := ngsi.ParseDuration(c.Agent.RegistrationDuration)
	return d
}

// ThrottlingInterval returns the parsed per-tenant throttling interval, or
// zero when throttling is disabled.
func (c *Config) ThrottlingInterval() time.Duration {
	if c.Agent.Throttling == "" {
		return 0
	}
	d, _ := ngsi.ParseDuration(c.Agent.Throttling)
	return d
}

// BrokerTimeout returns the outbound request timeout as a Duration.
func (c *Config) BrokerTimeout() time.Duration {
	return time.Duration(c.Broker.Timeout) * time.Second
}

// GetReadTimeout returns the server read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the server write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the server idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}
