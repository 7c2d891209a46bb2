package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

const validConfig = `
broker:
  host: orion
  port: 1026

agent:
  service: smartgondor
  subservice: /gardens
  provider_url: http://localhost:4041
  registration_duration: P1M
  throttling: PT5S

types:
  Light:
    lazy:
      - name: temperature
        type: centigrades
    active:
      - name: pressure
        type: Hgmm
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Broker.Host != "orion" || cfg.Broker.Port != 1026 {
		t.Errorf("broker = %+v", cfg.Broker)
	}
	if cfg.Agent.Service != "smartgondor" || cfg.Agent.Subservice != "/gardens" {
		t.Errorf("agent tenant = %q/%q", cfg.Agent.Service, cfg.Agent.Subservice)
	}
	if got := cfg.Broker.URL(); got != "http://orion:1026" {
		t.Errorf("URL() = %q", got)
	}

	light, ok := cfg.Types["Light"]
	if !ok {
		t.Fatal("Light type not loaded")
	}
	if len(light.Lazy) != 1 || light.Lazy[0].Name != "temperature" || light.Lazy[0].Type != "centigrades" {
		t.Errorf("lazy attributes = %+v", light.Lazy)
	}

	// Defaults fill in everything the file omitted.
	if cfg.Server.Port != 4041 {
		t.Errorf("server.port default = %d, want 4041", cfg.Server.Port)
	}
	if cfg.Registry.Backend != RegistryMemory {
		t.Errorf("registry.backend default = %q, want memory", cfg.Registry.Backend)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("logging.level default = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadParsedDurations(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if got := cfg.RegistrationDuration(); got != 30*24*time.Hour {
		t.Errorf("RegistrationDuration() = %v", got)
	}
	if got := cfg.ThrottlingInterval(); got != 5*time.Second {
		t.Errorf("ThrottlingInterval() = %v", got)
	}
	if got := cfg.BrokerTimeout(); got != 10*time.Second {
		t.Errorf("BrokerTimeout() = %v", got)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("IOTAGENT_BROKER_HOST", "orion-prod")
	t.Setenv("IOTAGENT_BROKER_PORT", "11026")
	t.Setenv("IOTAGENT_AGENT_SERVICE", "smartcity")

	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Broker.Host != "orion-prod" || cfg.Broker.Port != 11026 {
		t.Errorf("broker = %+v", cfg.Broker)
	}
	if cfg.Agent.Service != "smartcity" {
		t.Errorf("agent.service = %q, want smartcity", cfg.Agent.Service)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() succeeded for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing service",
			mutate:  func(c *Config) { c.Agent.Service = "" },
			wantErr: "agent.service is required",
		},
		{
			name:    "missing provider url",
			mutate:  func(c *Config) { c.Agent.ProviderURL = "" },
			wantErr: "agent.provider_url is required",
		},
		{
			name:    "bad registration duration",
			mutate:  func(c *Config) { c.Agent.RegistrationDuration = "1 month" },
			wantErr: "registration_duration",
		},
		{
			name:    "bad throttling",
			mutate:  func(c *Config) { c.Agent.Throttling = "fast" },
			wantErr: "throttling",
		},
		{
			name:    "bad registry backend",
			mutate:  func(c *Config) { c.Registry.Backend = "postgres" },
			wantErr: "registry.backend",
		},
		{
			name: "sqlite without path",
			mutate: func(c *Config) {
				c.Registry.Backend = RegistrySQLite
				c.Registry.Database.Path = ""
			},
			wantErr: "registry.database.path",
		},
		{
			name: "bad qos",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: "mqtt.qos",
		},
		{
			name: "unnamed attribute",
			mutate: func(c *Config) {
				c.Types = map[string]TypeConfig{
					"Light": {Lazy: []AttributeConfig{{Type: "centigrades"}}},
				}
			},
			wantErr: "attribute without a name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Agent.Service = "smartgondor"
			cfg.Agent.ProviderURL = "http://localhost:4041"
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateOK(t *testing.T) {
	cfg := defaultConfig()
	cfg.Agent.Service = "smartgondor"
	cfg.Agent.ProviderURL = "http://localhost:4041"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}
