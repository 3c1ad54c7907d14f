package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/alaga-care/care-service/internal/auth"
	"github.com/alaga-care/care-service/internal/db"
	"github.com/alaga-care/care-service/internal/docstore"
	"github.com/alaga-care/care-service/internal/logger"
	"github.com/alaga-care/care-service/internal/messaging"
	"github.com/alaga-care/care-service/internal/storage"
	"github.com/alaga-care/care-service/internal/telemetry"
)

// Config is the complete service configuration.
type Config struct {
	Server      ServerConfig
	Log         logger.Config
	Auth        auth.Config
	Permissions string
	Store       docstore.Config
	RabbitMQ    messaging.Config
	MinIO       storage.Config
	Telemetry   telemetry.Config
}

type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.jwks_url", "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com")
	v.SetDefault("auth.aud", "")
	v.SetDefault("auth.default_role", "CAREGIVER")
	v.SetDefault("auth.permissions_file", "permissions.yml")

	v.SetDefault("store.driver", docstore.DriverMemory)
	v.SetDefault("firestore.project_id", "")
	v.SetDefault("firestore.credentials_file", "")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.exchange", messaging.ExchangeName)

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "care-profile-photos")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.public_url", "")

	v.SetDefault("otel.exporter.otlp.endpoint", "localhost:4317")
	v.SetDefault("otel.service.name", "care-service")
	v.SetDefault("otel.service.namespace", "alaga")
	v.SetDefault("otel.service.version", "1.0.0")
	v.SetDefault("otel.exporter.otlp.insecure", true)
	v.SetDefault("otel.traces.sampler", "always_on")
	v.SetDefault("otel.traces.sampler_ratio", 0.1)
	v.SetDefault("otel.metrics.export.interval", "30s")
	v.SetDefault("environment", "production")
}

// Load reads .env, an optional config file and the environment, in increasing
// order of precedence. Environment variables use the upper-cased key with dots
// replaced by underscores, e.g. DB_HOST or OTEL_EXPORTER_OTLP_ENDPOINT.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	configName := "config"
	if name := os.Getenv("CONFIG_NAME"); name != "" {
		configName = name
	}
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath("config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.WithField("store", cfg.Store.Driver).Info("config parsed")
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:            v.GetInt("server.port"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			AllowedOrigins:  v.GetStringSlice("server.allowed_origins"),
		},
		Log: logger.Config{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Console:    v.GetBool("log.console"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		Auth: auth.Config{
			Issuer:      v.GetString("auth.issuer"),
			JWKSURL:     v.GetString("auth.jwks_url"),
			Audience:    v.GetString("auth.aud"),
			DefaultRole: v.GetString("auth.default_role"),
		},
		Permissions: v.GetString("auth.permissions_file"),
		Store: docstore.Config{
			Driver:               v.GetString("store.driver"),
			FirestoreProject:     v.GetString("firestore.project_id"),
			FirestoreCredentials: v.GetString("firestore.credentials_file"),
			Postgres: db.Config{
				Host:     v.GetString("db.host"),
				Port:     v.GetInt("db.port"),
				User:     v.GetString("db.user"),
				Password: v.GetString("db.password"),
				Name:     v.GetString("db.name"),
				SSLMode:  v.GetString("db.sslmode"),
			},
		},
		RabbitMQ: messaging.Config{
			URL:      v.GetString("rabbitmq.url"),
			Exchange: v.GetString("rabbitmq.exchange"),
		},
		MinIO: storage.Config{
			Endpoint:  v.GetString("minio.endpoint"),
			AccessKey: v.GetString("minio.access_key"),
			SecretKey: v.GetString("minio.secret_key"),
			Bucket:    v.GetString("minio.bucket"),
			UseSSL:    v.GetBool("minio.use_ssl"),
			PublicURL: v.GetString("minio.public_url"),
		},
		Telemetry: telemetry.Config{
			ServiceName:      v.GetString("otel.service.name"),
			ServiceNamespace: v.GetString("otel.service.namespace"),
			ServiceVersion:   v.GetString("otel.service.version"),
			Environment:      v.GetString("environment"),
			OTLPEndpoint:     v.GetString("otel.exporter.otlp.endpoint"),
			OTLPInsecure:     v.GetBool("otel.exporter.otlp.insecure"),
			TracesSampler:    v.GetString("otel.traces.sampler"),
			SamplerRatio:     v.GetFloat64("otel.traces.sampler_ratio"),
			MetricsInterval:  v.GetDuration("otel.metrics.export.interval"),
		},
	}
}

// Validate checks that the selected drivers have what they need.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be positive"))
	}
	if c.Auth.Issuer == "" {
		errs = append(errs, fmt.Errorf("auth.issuer is required"))
	}
	if c.Auth.JWKSURL == "" {
		errs = append(errs, fmt.Errorf("auth.jwks_url is required"))
	}

	switch c.Store.Driver {
	case docstore.DriverMemory:
	case docstore.DriverFirestore:
		if c.Store.FirestoreProject == "" {
			errs = append(errs, fmt.Errorf("firestore.project_id is required for the firestore driver"))
		}
	case docstore.DriverPostgres:
		if c.Store.Postgres.User == "" || c.Store.Postgres.Name == "" {
			errs = append(errs, fmt.Errorf("db.user and db.name are required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}

	if c.MinIO.Endpoint != "" && (c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "") {
		errs = append(errs, fmt.Errorf("minio.access_key and minio.secret_key are required when minio.endpoint is set"))
	}

	return errors.Join(errs...)
}
