package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// requiredStore is the one store the monitor cannot run without; job
// history and pipeline status both live there
const requiredStore = "status"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig           `yaml:"server"`
	Stores    map[string]StoreConfig `yaml:"stores"`
	Pool      PoolConfig             `yaml:"pool"`
	Services  ServicesConfig         `yaml:"services"`
	Events    EventsConfig           `yaml:"events"`
	Dashboard DashboardConfig        `yaml:"dashboard"`
	Logging   LoggingConfig          `yaml:"logging"`
	App       AppConfig              `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig holds the connection settings for one pipeline store
type StoreConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	Path     string `yaml:"path"`
}

// PoolConfig bounds the per-store connection pools
type PoolConfig struct {
	MinConns        int           `yaml:"min_conns"`
	MaxConns        int           `yaml:"max_conns"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	AcquireTimeout  time.Duration `yaml:"acquire_timeout"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// ServicesConfig holds the endpoints of upstream pipeline services
type ServicesConfig struct {
	Ingestion IngestionServiceConfig `yaml:"ingestion"`
}

// IngestionServiceConfig holds the ingestion service endpoint and the
// fetch parameters passed on every pipeline trigger
type IngestionServiceConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	Interval       string        `yaml:"interval"`
	Period         string        `yaml:"period"`
}

// EventsConfig holds the event bus connection and the completion queues
// the monitor inspects
type EventsConfig struct {
	Enabled    bool             `yaml:"enabled"`
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Queues     []string         `yaml:"queues"`
	Connection ConnectionConfig `yaml:"connection"`
}

// ConnectionConfig holds event bus connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// DashboardConfig holds read-side limits and timeouts
type DashboardConfig struct {
	HistoryLimit    int           `yaml:"history_limit"`
	MaxHistoryLimit int           `yaml:"max_history_limit"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level"`
	Format           string `yaml:"format"`
	Output           string `yaml:"output"`
	EnableCaller     bool   `yaml:"enable_caller"`
	EnableStackTrace bool   `yaml:"enable_stack_trace"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if len(c.Stores) == 0 {
		return fmt.Errorf("at least one store is required")
	}

	if _, ok := c.Stores[requiredStore]; !ok {
		return fmt.Errorf("store %q is required", requiredStore)
	}

	for name, store := range c.Stores {
		if err := validateStore(name, store); err != nil {
			return err
		}
	}

	if c.Pool.MinConns < 0 {
		return fmt.Errorf("pool min_conns must not be negative")
	}

	if c.Pool.MaxConns < 0 {
		return fmt.Errorf("pool max_conns must not be negative")
	}

	if c.Pool.MaxConns > 0 && c.Pool.MinConns > c.Pool.MaxConns {
		return fmt.Errorf("pool min_conns %d exceeds max_conns %d", c.Pool.MinConns, c.Pool.MaxConns)
	}

	if c.Services.Ingestion.BaseURL == "" {
		return fmt.Errorf("ingestion service base_url is required")
	}

	if c.Dashboard.HistoryLimit <= 0 {
		return fmt.Errorf("dashboard history_limit must be greater than 0")
	}

	if c.Dashboard.MaxHistoryLimit < c.Dashboard.HistoryLimit {
		return fmt.Errorf("dashboard max_history_limit %d is below history_limit %d", c.Dashboard.MaxHistoryLimit, c.Dashboard.HistoryLimit)
	}

	if c.Events.Enabled {
		if c.Events.Host == "" {
			return fmt.Errorf("events host is required")
		}

		if c.Events.Port < MinPort || c.Events.Port > MaxPort {
			return fmt.Errorf("invalid events port: %d (must be between %d and %d)", c.Events.Port, MinPort, MaxPort)
		}

		if len(c.Events.Queues) == 0 {
			return fmt.Errorf("events queues are required")
		}
	}

	return nil
}

func validateStore(name string, store StoreConfig) error {
	switch store.Driver {
	case "", "postgres":
		if store.Host == "" {
			return fmt.Errorf("store %s: host is required", name)
		}

		if store.Port < MinPort || store.Port > MaxPort {
			return fmt.Errorf("store %s: invalid port %d (must be between %d and %d)", name, store.Port, MinPort, MaxPort)
		}

		if store.Database == "" {
			return fmt.Errorf("store %s: database name is required", name)
		}
	case "sqlite":
		if store.Path == "" {
			return fmt.Errorf("store %s: path is required", name)
		}
	default:
		return fmt.Errorf("store %s: unsupported driver %q", name, store.Driver)
	}

	return nil
}
