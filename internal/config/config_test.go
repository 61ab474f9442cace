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
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "jobrouting_db",
		},
		RabbitMQ: RabbitMQConfig{
			Enabled:  true,
			Host:     "localhost",
			Port:     5672,
			Exchange: ExchangeConfig{Name: "routing_exchange"},
			Queue:    QueueConfig{Name: "sync_nudges"},
		},
		Matching: MatchingConfig{MaxRoutings: 3},
		Outbox: OutboxConfig{
			DispatchInterval: 30 * time.Second,
			BatchSize:        50,
		},
		Sweeper:   SweeperConfig{Staleness: 5 * time.Minute},
		RateLimit: RateLimitConfig{MaxCalls: 50, Window: time.Minute},
		Breaker:   BreakerConfig{FailureThreshold: 5},
		Sync: SyncConfig{
			MaxRetries:       3,
			RetryBackoffBase: 5 * time.Minute,
		},
		Worker: WorkerConfig{Concurrency: 5},
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
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "jobrouting_db", cfg.Database.Database)
				assert.Equal(t, 3, cfg.Matching.MaxRoutings)
				assert.Equal(t, 30*time.Second, cfg.Outbox.DispatchInterval)
				assert.Equal(t, 50, cfg.Outbox.BatchSize)
				assert.Equal(t, 5*time.Minute, cfg.Outbox.InFlightTTL)
				assert.Equal(t, "@every 2m", cfg.Sweeper.Schedule)
				assert.Equal(t, 50, cfg.RateLimit.MaxCalls)
				assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
				assert.Equal(t, 5*time.Minute, cfg.Sync.RetryBackoffBase)
				assert.Equal(t, 168*time.Hour, cfg.Cleanup.Retention)
				assert.Equal(t, "job-routing-api", cfg.App.Name)
			}
		})
	}
}

func TestValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			errString: "invalid server port",
		},
		{
			name:      "empty database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			errString: "database host is required",
		},
		{
			name:      "empty database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			errString: "database name is required",
		},
		{
			name:      "zero max routings",
			mutate:    func(c *Config) { c.Matching.MaxRoutings = 0 },
			errString: "max_routings",
		},
		{
			name:      "enabled rabbitmq without host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			errString: "rabbitmq host is required",
		},
		{
			name:      "enabled rabbitmq without exchange",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			errString: "rabbitmq exchange name is required",
		},
		{
			name: "disabled rabbitmq skips broker validation",
			mutate: func(c *Config) {
				c.RabbitMQ = RabbitMQConfig{Enabled: false}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()
			if tt.errString != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		errString string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:      "zero concurrency",
			mutate:    func(c *Config) { c.Worker.Concurrency = 0 },
			errString: "worker concurrency",
		},
		{
			name:      "zero dispatch interval",
			mutate:    func(c *Config) { c.Outbox.DispatchInterval = 0 },
			errString: "dispatch_interval",
		},
		{
			name:      "zero batch size",
			mutate:    func(c *Config) { c.Outbox.BatchSize = 0 },
			errString: "batch_size",
		},
		{
			name:      "zero sweeper staleness",
			mutate:    func(c *Config) { c.Sweeper.Staleness = 0 },
			errString: "staleness",
		},
		{
			name:      "zero rate limit window",
			mutate:    func(c *Config) { c.RateLimit.Window = 0 },
			errString: "rate_limit",
		},
		{
			name:      "zero breaker threshold",
			mutate:    func(c *Config) { c.Breaker.FailureThreshold = 0 },
			errString: "failure_threshold",
		},
		{
			name:      "zero sync retries",
			mutate:    func(c *Config) { c.Sync.MaxRetries = 0 },
			errString: "max_retries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateWorkerConfig()
			if tt.errString != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoadValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)

		require.NoError(t, cfg.ValidateAPIConfig())
		require.NoError(t, cfg.ValidateWorkerConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}
