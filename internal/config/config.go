// Package config loads and validates the YAML configuration shared by all
// commands.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ohlc-feature-lab/internal/domain"
	"ohlc-feature-lab/internal/features"
)

type Config struct {
	Environment string `yaml:"environment"`
	Storage     struct {
		Backend       string `yaml:"backend"` // memory or db
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickHouseDSN string `yaml:"clickhouse_dsn"`
	} `yaml:"storage"`
	Feed struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		Instruments    []string      `yaml:"instruments"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	Compute struct {
		Workers  int                    `yaml:"workers"`
		Features []domain.FeatureRequest `yaml:"features"`
	} `yaml:"compute"`
	Report struct {
		OutputDir string `yaml:"output_dir"`
	} `yaml:"report"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Storage.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.Storage.ClickHouseDSN = v
	}
	if v := os.Getenv("FEED_WS_URL"); v != "" {
		c.Feed.WebSocketURL = v
	}
	if v := os.Getenv("INSTRUMENTS"); v != "" {
		c.Feed.Instruments = strings.Split(v, ",")
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "db":
	case "":
		return fmt.Errorf("storage.backend is required")
	default:
		return fmt.Errorf("storage.backend must be 'memory' or 'db', got '%s'", c.Storage.Backend)
	}

	if c.Storage.Backend == "db" {
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for db backend")
		}
		if c.Storage.ClickHouseDSN == "" {
			return fmt.Errorf("storage.clickhouse_dsn is required for db backend")
		}
	}

	if c.Compute.Workers < 0 {
		return fmt.Errorf("compute.workers must be >= 0, got %d", c.Compute.Workers)
	}

	for i, req := range c.Compute.Features {
		if err := validateFeature(req); err != nil {
			return fmt.Errorf("compute.features[%d]: %w", i, err)
		}
	}

	return nil
}

// validateFeature checks one feature request for structural validity.
func validateFeature(req domain.FeatureRequest) error {
	switch req.Kind {
	case domain.FeatureKindTPSLLogReturn:
		cfg := features.BarrierConfig{TPFrac: req.TPFrac, SLFrac: req.SLFrac}
		return cfg.Validate()
	case domain.FeatureKindSlope, domain.FeatureKindZScore:
		if req.Window < 2 {
			return fmt.Errorf("window must be >= 2, got %d", req.Window)
		}
		switch req.Source {
		case "", domain.SourceClose, domain.SourceLogClose:
		default:
			return fmt.Errorf("unknown source '%s'", req.Source)
		}
		return nil
	case domain.FeatureKindLogReturn:
		return nil
	case "":
		return fmt.Errorf("kind is required")
	}
	return fmt.Errorf("unknown kind '%s'", req.Kind)
}
