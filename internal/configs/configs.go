/*
Package configs loads the server settings.

Values come from the process environment, optionally seeded from a .env file in the
working directory. Defaults live in the struct tags; LoadConfig validates the result and
checks that every selected persistence backend has what it needs.
*/
package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/samber/lo"
)

// Persistence backends accepted in PERSIST_BACKENDS.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendS3       = "s3"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string `envconfig:"ENVIRONMENT" default:"development" validate:"oneof=development production test"`
	Host        string `envconfig:"HOST"`
	Port        int    `envconfig:"PORT" default:"3000" validate:"min=1,max=65535"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
	StaticDir   string `envconfig:"STATIC_DIR" default:"public"`

	// AllowedOrigins restricts CORS and WebSocket origins. Empty allows any origin.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`

	// WebSocket Settings
	WSConnectRate  float64 `envconfig:"WS_CONNECT_RATE" default:"1" validate:"gt=0"`
	WSConnectBurst int     `envconfig:"WS_CONNECT_BURST" default:"10" validate:"min=1"`
	SendQueueSize  int     `envconfig:"SEND_QUEUE_SIZE" default:"256" validate:"min=1"`

	// Persistence Settings
	PersistBackends []string `envconfig:"PERSIST_BACKENDS" default:"file" validate:"dive,oneof=file postgres redis s3"`
	PersistAsync    bool     `envconfig:"PERSIST_ASYNC" default:"false"`
	UsersFile       string   `envconfig:"USERS_FILE" default:"session.json"`
	RoomsFile       string   `envconfig:"ROOMS_FILE" default:"rooms.json"`

	// Database Settings
	DatabaseDSN string `envconfig:"DATABASE_URL"`

	// Redis Settings
	RedisAddr      string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword  string `envconfig:"REDIS_PASSWORD"`
	RedisDB        int    `envconfig:"REDIS_DB" default:"0" validate:"min=0"`
	RedisKeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"roomrelay:"`

	// S3 Storage Settings
	S3BucketName      string `envconfig:"S3_BUCKET_NAME"`
	S3Endpoint        string `envconfig:"S3_ENDPOINT"`
	S3AccessKeyID     string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3KeyPrefix       string `envconfig:"S3_KEY_PREFIX" default:"roomrelay/"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// Addr returns the listen address.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// UsesBackend reports whether name is one of the configured persistence backends.
func (c *AppConfig) UsesBackend(name string) bool {
	return lo.Contains(c.PersistBackends, name)
}

// LoadConfig reads .env (if present) and the environment into an AppConfig.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	return loadFromEnv()
}

func loadFromEnv() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.AllowedOrigins = normalizeList(cfg.AllowedOrigins)
	cfg.PersistBackends = lo.Uniq(lo.Map(normalizeList(cfg.PersistBackends), func(s string, _ int) string {
		return strings.ToLower(s)
	}))

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.checkBackends(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// checkBackends verifies the settings each selected backend depends on.
func (c *AppConfig) checkBackends() error {
	if c.UsesBackend(BackendFile) && (c.UsersFile == "" || c.RoomsFile == "") {
		return fmt.Errorf("USERS_FILE and ROOMS_FILE are required by the %q backend", BackendFile)
	}

	if c.UsesBackend(BackendPostgres) && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_URL is required by the %q backend", BackendPostgres)
	}

	if c.UsesBackend(BackendRedis) && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required by the %q backend", BackendRedis)
	}

	if c.UsesBackend(BackendS3) {
		missing := lo.Filter([]lo.Tuple2[string, string]{
			lo.T2("S3_BUCKET_NAME", c.S3BucketName),
			lo.T2("S3_ENDPOINT", c.S3Endpoint),
			lo.T2("S3_ACCESS_KEY_ID", c.S3AccessKeyID),
			lo.T2("S3_SECRET_ACCESS_KEY", c.S3SecretAccessKey),
		}, func(kv lo.Tuple2[string, string], _ int) bool {
			return kv.B == ""
		})

		if len(missing) > 0 {
			keys := lo.Map(missing, func(kv lo.Tuple2[string, string], _ int) string { return kv.A })
			return fmt.Errorf("%s required by the %q backend", strings.Join(keys, ", "), BackendS3)
		}
	}

	return nil
}

// normalizeList trims entries and drops empty ones.
func normalizeList(items []string) []string {
	return lo.Compact(lo.Map(items, func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}
