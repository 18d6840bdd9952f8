package audit

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// LoadConfigFromEnv loads audit-database configuration from environment
// variables with production-ready defaults.
func LoadConfigFromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("SOCRATES_DB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SOCRATES_DB_PORT: %w", err)
	}

	maxOpen, _ := strconv.Atoi(getEnvOrDefault("SOCRATES_DB_MAX_OPEN_CONNS", "10"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("SOCRATES_DB_MAX_IDLE_CONNS", "5"))

	maxLifetime, err := time.ParseDuration(getEnvOrDefault("SOCRATES_DB_CONN_MAX_LIFETIME", "30m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SOCRATES_DB_CONN_MAX_LIFETIME: %w", err)
	}

	cfg := Config{
		Host:            getEnvOrDefault("SOCRATES_DB_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault("SOCRATES_DB_USER", "socrates"),
		Password:        os.Getenv("SOCRATES_DB_PASSWORD"),
		Database:        getEnvOrDefault("SOCRATES_DB_NAME", "socrates"),
		SSLMode:         getEnvOrDefault("SOCRATES_DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: maxLifetime,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for obvious problems before dialing.
func (c Config) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("SOCRATES_DB_MAX_IDLE_CONNS (%d) cannot exceed SOCRATES_DB_MAX_OPEN_CONNS (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("SOCRATES_DB_MAX_OPEN_CONNS must be at least 1")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
