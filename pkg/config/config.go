// Package config holds the application configuration and the logger factory.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/srg/blegatt/internal/host"
)

// Config holds application configuration
type Config struct {
	LogLevel       string        `yaml:"log_level" default:"info"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"30s"`
	OwnAddrType    string        `yaml:"own_addr_type" default:"public"`
	Passkey        uint32        `yaml:"passkey" default:"123456"`
	MaxConnections int           `yaml:"max_connections" default:"3"`
	EventQueueSize uint32        `yaml:"event_queue_size" default:"256"`
	OutputFormat   string        `yaml:"output_format" default:"text"` // text, json, yaml
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	if _, err := host.ParseAddrType(c.OwnAddrType); err != nil {
		return err
	}
	if c.Passkey > 999999 {
		return fmt.Errorf("passkey must have at most 6 digits, got %d", c.Passkey)
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("max_connections must be at least 1, got %d", c.MaxConnections)
	}
	if c.EventQueueSize == 0 {
		return fmt.Errorf("event_queue_size must be positive")
	}
	switch strings.ToLower(c.OutputFormat) {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q (supported: text, json, yaml)", c.OutputFormat)
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// AddrType returns the parsed own address type, falling back to public.
func (c *Config) AddrType() host.AddrType {
	t, err := host.ParseAddrType(c.OwnAddrType)
	if err != nil {
		return host.AddrTypePublic
	}
	return t
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
