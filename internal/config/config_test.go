package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Stores: map[string]StoreConfig{
			"status": {
				Host:     "localhost",
				Port:     5432,
				Database: "status_db",
			},
			"ingestion": {
				Host:     "localhost",
				Port:     5433,
				Database: "ingestion_db",
			},
		},
		Pool: PoolConfig{
			MinConns: 1,
			MaxConns: 10,
		},
		Services: ServicesConfig{
			Ingestion: IngestionServiceConfig{
				BaseURL: "http://localhost:8001",
			},
		},
		Events: EventsConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    5672,
			Queues:  []string{"data.ingestion.completed"},
		},
		Dashboard: DashboardConfig{
			HistoryLimit:    20,
			MaxHistoryLimit: 100,
		},
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Len(t, cfg.Stores, 5)
				assert.Equal(t, "localhost", cfg.Stores["status"].Host)
				assert.Equal(t, 5432, cfg.Stores["status"].Port)
				assert.Equal(t, "status_db", cfg.Stores["status"].Database)
				assert.Equal(t, "anomaly_db", cfg.Stores["anomaly"].Database)
				assert.Equal(t, 10, cfg.Pool.MaxConns)
				assert.Equal(t, 10*time.Second, cfg.Pool.ConnectTimeout)
				assert.Equal(t, "http://localhost:8001", cfg.Services.Ingestion.BaseURL)
				assert.Equal(t, "5m", cfg.Services.Ingestion.Interval)
				assert.Equal(t, "3mo", cfg.Services.Ingestion.Period)
				assert.Len(t, cfg.Events.Queues, 4)
				assert.Equal(t, 20, cfg.Dashboard.HistoryLimit)
				assert.Equal(t, "pipeline-monitor", cfg.App.Name)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid server port - too low",
			modify: func(c *Config) {
				c.Server.Port = 0
			},
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name: "invalid server port - too high",
			modify: func(c *Config) {
				c.Server.Port = 70000
			},
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name: "no stores",
			modify: func(c *Config) {
				c.Stores = nil
			},
			wantErr:   true,
			errString: "at least one store is required",
		},
		{
			name: "status store missing",
			modify: func(c *Config) {
				delete(c.Stores, "status")
			},
			wantErr:   true,
			errString: `store "status" is required`,
		},
		{
			name: "store without host",
			modify: func(c *Config) {
				c.Stores["status"] = StoreConfig{Port: 5432, Database: "status_db"}
			},
			wantErr:   true,
			errString: "host is required",
		},
		{
			name: "store without database",
			modify: func(c *Config) {
				c.Stores["status"] = StoreConfig{Host: "localhost", Port: 5432}
			},
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name: "store with invalid port",
			modify: func(c *Config) {
				c.Stores["status"] = StoreConfig{Host: "localhost", Port: 0, Database: "status_db"}
			},
			wantErr:   true,
			errString: "invalid port",
		},
		{
			name: "sqlite store without path",
			modify: func(c *Config) {
				c.Stores["status"] = StoreConfig{Driver: "sqlite"}
			},
			wantErr:   true,
			errString: "path is required",
		},
		{
			name: "sqlite store with path",
			modify: func(c *Config) {
				c.Stores["status"] = StoreConfig{Driver: "sqlite", Path: "file:status.db"}
			},
			wantErr: false,
		},
		{
			name: "unsupported store driver",
			modify: func(c *Config) {
				c.Stores["status"] = StoreConfig{Driver: "oracle"}
			},
			wantErr:   true,
			errString: "unsupported driver",
		},
		{
			name: "negative pool max_conns",
			modify: func(c *Config) {
				c.Pool.MaxConns = -1
			},
			wantErr:   true,
			errString: "max_conns must not be negative",
		},
		{
			name: "pool min above max",
			modify: func(c *Config) {
				c.Pool.MinConns = 20
				c.Pool.MaxConns = 5
			},
			wantErr:   true,
			errString: "exceeds max_conns",
		},
		{
			name: "missing ingestion base url",
			modify: func(c *Config) {
				c.Services.Ingestion.BaseURL = ""
			},
			wantErr:   true,
			errString: "ingestion service base_url is required",
		},
		{
			name: "zero history limit",
			modify: func(c *Config) {
				c.Dashboard.HistoryLimit = 0
			},
			wantErr:   true,
			errString: "history_limit must be greater than 0",
		},
		{
			name: "max history limit below default",
			modify: func(c *Config) {
				c.Dashboard.MaxHistoryLimit = 10
			},
			wantErr:   true,
			errString: "below history_limit",
		},
		{
			name: "events enabled without host",
			modify: func(c *Config) {
				c.Events.Host = ""
			},
			wantErr:   true,
			errString: "events host is required",
		},
		{
			name: "events enabled without queues",
			modify: func(c *Config) {
				c.Events.Queues = nil
			},
			wantErr:   true,
			errString: "events queues are required",
		},
		{
			name: "events disabled skips events checks",
			modify: func(c *Config) {
				c.Events = EventsConfig{Enabled: false}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.Validate()
		require.NoError(t, err)
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config without status store", func(t *testing.T) {
		cfg, err := Load("testdata/missing_store.yaml")
		require.NoError(t, err)
		require.NotNil(t, cfg)

		err = cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `store "status" is required`)
	})
}

func TestPortConstants(t *testing.T) {
	t.Run("port constants are correct", func(t *testing.T) {
		assert.Equal(t, 1, MinPort)
		assert.Equal(t, 65535, MaxPort)
	})

	t.Run("valid port range", func(t *testing.T) {
		validPorts := []int{1, 80, 443, 8080, 65535}
		for _, port := range validPorts {
			assert.GreaterOrEqual(t, port, MinPort)
			assert.LessOrEqual(t, port, MaxPort)
		}
	})

	t.Run("invalid port range", func(t *testing.T) {
		invalidPorts := []int{0, -1, 65536, 70000}
		for _, port := range invalidPorts {
			valid := port >= MinPort && port <= MaxPort
			assert.False(t, valid, "port %d should be invalid", port)
		}
	})
}
