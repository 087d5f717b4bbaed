package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/capsim/capsim/internal/core"
)

// Config is the optional application configuration for capsim.
// Simulation inputs (policies, users, contexts) live in their own documents.
type Config struct {
	// Schema extends the built-in attribute schema with deployment-specific
	// attributes (name -> type).
	Schema map[string]core.AttributeType `yaml:"schema,omitempty"`

	// Simulation holds runner defaults.
	Simulation SimulationConfig `yaml:"simulation"`

	// Audit holds configuration for the run log.
	Audit AuditConfig `yaml:"audit"`
}

type SimulationConfig struct {
	// Workers caps evaluation parallelism; 0 means number of CPUs.
	Workers int `yaml:"workers"`
}

// AuditConfig holds configuration for the simulation run log.
type AuditConfig struct {
	Enabled bool           `yaml:"enabled"`
	Type    string         `yaml:"type"`    // e.g., "file", "memory"
	Config  map[string]any `yaml:",inline"` // capture remaining fields
}

// Load reads and parses the application config file at the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{}
}

func (c *Config) Validate() error {
	for name, typ := range c.Schema {
		if !typ.IsValid() {
			return fmt.Errorf("schema attribute '%s' has unknown type '%s'", name, typ)
		}
	}
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("simulation.workers must not be negative")
	}
	if c.Audit.Enabled {
		switch c.Audit.Type {
		case "file", "memory":
		case "":
			return fmt.Errorf("audit.type is required when audit is enabled")
		default:
			return fmt.Errorf("unknown audit type '%s'", c.Audit.Type)
		}
	}
	return nil
}

// BuildSchema merges the config's schema extensions over the defaults.
func (c *Config) BuildSchema() core.Schema {
	return core.DefaultSchema().Extend(core.Schema(c.Schema))
}
