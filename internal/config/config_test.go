package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("AUTH_ISSUER", "https://securetoken.google.com/alaga-care")
	t.Setenv("AUTH_AUD", "alaga-care")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_USER", "alaga")
	t.Setenv("DB_NAME", "alaga")
	t.Setenv("OTEL_METRICS_EXPORT_INTERVAL", "10s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ":9090", cfg.Server.Addr())
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "alaga-care", cfg.Auth.Audience)
	assert.Equal(t, "CAREGIVER", cfg.Auth.DefaultRole)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "alaga", cfg.Store.Postgres.User)
	assert.Equal(t, 5432, cfg.Store.Postgres.Port)
	assert.Equal(t, 10*time.Second, cfg.Telemetry.MetricsInterval)
	assert.Equal(t, "care-service", cfg.Telemetry.ServiceName)
	assert.Equal(t, "alaga.events", cfg.RabbitMQ.Exchange)
}

func TestLoad_RequiresIssuer(t *testing.T) {
	t.Setenv("AUTH_ISSUER", "")

	_, err := Load()
	assert.ErrorContains(t, err, "auth.issuer")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{}
		cfg.Server.Port = 8080
		cfg.Auth.Issuer = "iss"
		cfg.Auth.JWKSURL = "https://example.com/jwks"
		cfg.Store.Driver = "memory"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "firestore without project",
			mutate:  func(c *Config) { c.Store.Driver = "firestore" },
			wantErr: "firestore.project_id",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Store.Driver = "mongo" },
			wantErr: "unknown store.driver",
		},
		{
			name: "minio without credentials",
			mutate: func(c *Config) {
				c.MinIO.Endpoint = "localhost:9000"
			},
			wantErr: "minio.access_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
