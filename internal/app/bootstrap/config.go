package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// devJWTSecret keeps local bootstrap working without any configuration.
// Production refuses to start on it.
const devJWTSecret = "dev-only-insecure-secret"

// Config is the resolved runtime configuration.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID  string
	Production bool

	HTTPPort int

	DatabaseURL string
	RedisURL    string

	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	BcryptCost int

	DefaultRole     string
	LockoutDuration time.Duration
	FailedThreshold int

	MaxDBConns         int
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
	SweepInterval      time.Duration
	SweepRetention     time.Duration
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID          string `yaml:"id"`
		HTTPPort    int    `yaml:"http_port"`
		Environment string `yaml:"environment"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL string `yaml:"postgres_url"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Auth struct {
		DefaultRole    string `yaml:"default_role"`
		AccessTTLDays  int    `yaml:"access_ttl_days"`
		RefreshTTLDays int    `yaml:"refresh_ttl_days"`
	} `yaml:"auth"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:          "auth-service",
		HTTPPort:           8080,
		AccessTTL:          7 * 24 * time.Hour,
		RefreshTTL:         30 * 24 * time.Hour,
		BcryptCost:         12,
		DefaultRole:        "CODER",
		LockoutDuration:    30 * time.Minute,
		FailedThreshold:    5,
		MaxDBConns:         20,
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    100,
		OutboxClaimTTL:     30 * time.Second,
		OutboxMaxRetries:   5,
		SweepInterval:      time.Hour,
		SweepRetention:     24 * time.Hour,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if strings.EqualFold(f.Service.Environment, "production") {
			cfg.Production = true
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Auth.DefaultRole != "" {
			cfg.DefaultRole = f.Auth.DefaultRole
		}
		if f.Auth.AccessTTLDays > 0 {
			cfg.AccessTTL = time.Duration(f.Auth.AccessTTLDays) * 24 * time.Hour
		}
		if f.Auth.RefreshTTLDays > 0 {
			cfg.RefreshTTL = time.Duration(f.Auth.RefreshTTLDays) * 24 * time.Hour
		}
	}

	if env := strings.TrimSpace(os.Getenv("ENVIRONMENT")); env != "" {
		cfg.Production = strings.EqualFold(env, "production")
	}
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.DefaultRole = envOrDefault("DEFAULT_ROLE", cfg.DefaultRole)

	cfg.HTTPPort = envInt("PORT", envInt("HTTP_PORT", cfg.HTTPPort))
	cfg.BcryptCost = envInt("BCRYPT_ROUNDS", cfg.BcryptCost)
	cfg.FailedThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.FailedThreshold)
	cfg.MaxDBConns = envInt("DB_MAX_CONNS", cfg.MaxDBConns)

	cfg.AccessTTL = time.Duration(envInt("JWT_EXPIRES_DAYS", int(cfg.AccessTTL.Hours()/24))) * 24 * time.Hour
	cfg.RefreshTTL = time.Duration(envInt("REFRESH_EXPIRES_DAYS", int(cfg.RefreshTTL.Hours()/24))) * 24 * time.Hour
	cfg.LockoutDuration = time.Duration(envInt("ACCOUNT_LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)
	cfg.SweepInterval = time.Duration(envInt("TOKEN_SWEEP_MINUTES", int(cfg.SweepInterval.Minutes()))) * time.Minute
	cfg.SweepRetention = time.Duration(envInt("TOKEN_SWEEP_RETENTION_HOURS", int(cfg.SweepRetention.Hours()))) * time.Hour

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DATABASE_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.JWTSecret == "" {
		if cfg.Production {
			return Config{}, fmt.Errorf("missing JWT_SECRET")
		}
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
