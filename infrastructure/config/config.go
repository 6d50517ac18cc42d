package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RelayConfig holds the TCP relay listener configuration
type RelayConfig struct {
	Addr            string `yaml:"addr"`
	SendQueueSize   int    `yaml:"sendQueueSize" validate:"min=1"`
	WriteTimeout    int    `yaml:"writeTimeoutSeconds" validate:"min=1"`
	MaxConnections  int    `yaml:"maxConnections" validate:"min=1"`
	ShutdownTimeout int    `yaml:"shutdownTimeoutSeconds" validate:"min=1"`
}

// HTTPConfig holds the admin HTTP listener configuration
type HTTPConfig struct {
	Addr            string `yaml:"addr"`
	EnableWebSocket bool   `yaml:"enableWebSocket"`
}

// Config holds all application configuration
type Config struct {
	Environment string      `yaml:"environment" validate:"oneof=development staging production"`
	LogLevel    string      `yaml:"logLevel" validate:"oneof=debug info warn error"`
	Relay       RelayConfig `yaml:"relay"`
	HTTP        HTTPConfig  `yaml:"http"`
}

// Default returns the baseline configuration
func Default() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		Relay: RelayConfig{
			Addr:            ":9090",
			SendQueueSize:   256,
			WriteTimeout:    10,
			MaxConnections:  1000,
			ShutdownTimeout: 10,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			EnableWebSocket: true,
		},
	}
}

// Load builds the configuration: defaults, then the optional YAML
// file, then environment variable overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the configuration
func (c *Config) applyEnv() {
	c.Environment = getEnv("IDEABOARD_ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("IDEABOARD_LOG_LEVEL", c.LogLevel)
	c.Relay.Addr = getEnv("IDEABOARD_RELAY_ADDR", c.Relay.Addr)
	c.Relay.SendQueueSize = getEnvInt("IDEABOARD_SEND_QUEUE_SIZE", c.Relay.SendQueueSize)
	c.Relay.WriteTimeout = getEnvInt("IDEABOARD_WRITE_TIMEOUT", c.Relay.WriteTimeout)
	c.Relay.MaxConnections = getEnvInt("IDEABOARD_MAX_CONNECTIONS", c.Relay.MaxConnections)
	c.Relay.ShutdownTimeout = getEnvInt("IDEABOARD_SHUTDOWN_TIMEOUT", c.Relay.ShutdownTimeout)
	c.HTTP.Addr = getEnv("IDEABOARD_HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.EnableWebSocket = getEnvBool("IDEABOARD_ENABLE_WEBSOCKET", c.HTTP.EnableWebSocket)
}

// Validate checks the configuration's structural constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ShutdownTimeout returns the bounded shutdown wait as a duration
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Relay.ShutdownTimeout) * time.Second
}

// WriteTimeout returns the per-write bound as a duration
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Relay.WriteTimeout) * time.Second
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
