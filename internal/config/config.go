package config

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER
const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

// Config holds all configuration for the Maternity Service
type Config struct {
	// JWT configuration - public key from Identity Service
	JWTPublicKey  *rsa.PublicKey
	PublicKeyPath string `env:"PUBLIC_KEY_PATH" envDefault:"/etc/identity/public.pem"`

	// State store configuration
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DB_CONNECTION_STRING"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"maternity.db"`

	// RabbitMQ configuration; an empty URL disables messaging
	RabbitMQURL       string `env:"RABBITMQ_URL"`
	LaborAlertQueue   string `env:"LABOR_ALERT_QUEUE" envDefault:"labor_alerts"`
	RegistrationQueue string `env:"REGISTRATION_QUEUE" envDefault:"pregnancy.registrations"`

	// Server configuration
	Port        string   `env:"PORT" envDefault:"8080"`
	Timezone    string   `env:"TIMEZONE" envDefault:"Local"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// Circuit breaker configuration
	CircuitBreakerMaxRequests uint32        `env:"CIRCUIT_BREAKER_MAX_REQUESTS" envDefault:"5"`
	CircuitBreakerInterval    time.Duration `env:"CIRCUIT_BREAKER_INTERVAL" envDefault:"60s"`
	CircuitBreakerTimeout     time.Duration `env:"CIRCUIT_BREAKER_TIMEOUT" envDefault:"30s"`
}

// Load reads configuration from the environment, after merging a local .env file if present.
// The public key is loaded from PUBLIC_KEY_PATH (mounted via ConfigMap).
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DB_CONNECTION_STRING environment variable is required for the postgres store")
		}
	case StoreDriverSQLite, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}

	publicKey, err := loadPublicKey(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key: %w", err)
	}
	cfg.JWTPublicKey = publicKey

	return cfg, nil
}

// loadDotEnv merges .env into the environment; existing variables win
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// loadPublicKey loads an RSA public key from a PEM file
func loadPublicKey(path string) (*rsa.PublicKey, error) {
	keyData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(keyData)
	if err != nil {
		return nil, err
	}
	return publicKey, nil
}
