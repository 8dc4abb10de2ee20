package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the whole application configuration, populated from
// environment variables (a .env file in development).
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Jobs     JobConfig
	SMTP     SMTPConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
	// CodeKey is the symmetric key for code payload encryption at rest
	// (pgcrypto pgp_sym_encrypt). Payloads never touch disk in clear text.
	CodeKey string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret      string
	TokenExpiry time.Duration
}

// JobConfig carries the cron specs for the scheduled reconciliation jobs.
// These run on a fixed interval and never sit on the request path.
type JobConfig struct {
	StockReconcileSpec  string
	LedgerVerifySpec    string
	AffiliateStatsSpec  string
	LowStockThreshold   int
	WorkerConcurrency   int
}

// SMTPConfig points at the relay used for operational emails. An empty host
// switches the worker to log-only notifications.
type SMTPConfig struct {
	Host       string
	Port       string
	From       string
	AdminEmail string
}

func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "digistore"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			CodeKey:     getEnv("CODE_ENCRYPTION_KEY", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnvInt("PG_PORT", 5432),
			User:     getEnv("PG_USERNAME", "postgres"),
			Password: getEnv("PG_PASSWORD", "postgres"),
			Database: getEnv("PG_DBNAME", "digistore"),
			MaxConns: getEnvInt("PG_MAX_CONNS", 20),
			MinConns: getEnvInt("PG_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			TokenExpiry: time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		},
		Jobs: JobConfig{
			StockReconcileSpec: getEnv("JOB_STOCK_RECONCILE_SPEC", "*/30 * * * *"),
			LedgerVerifySpec:   getEnv("JOB_LEDGER_VERIFY_SPEC", "0 3 * * *"),
			AffiliateStatsSpec: getEnv("JOB_AFFILIATE_STATS_SPEC", "0 4 * * *"),
			LowStockThreshold:  getEnvInt("LOW_STOCK_THRESHOLD", 5),
			WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 10),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnv("SMTP_PORT", "1025"),
			From:       getEnv("SMTP_FROM", "noreply@digistore.dev"),
			AdminEmail: getEnv("ADMIN_EMAIL", "ops@digistore.dev"),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.App.CodeKey == "" {
		return nil, fmt.Errorf("CODE_ENCRYPTION_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
