// internal/infrastructure/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MongoDB
	MongoURI string
	MongoDB  string

	// PostgreSQL (reference data)
	PostgresURI string

	// Flight data provider
	FlightDataBaseURL      string
	FlightDataTokenURL     string
	FlightDataClientID     string
	FlightDataClientSecret string

	// Ledger gateway
	LedgerEndpoint       string
	LedgerSignerID       string
	LedgerSignerSecret   string
	LedgerConfirmPoll    time.Duration
	LedgerConfirmTimeout time.Duration

	// Pipeline
	EncryptionKey       string // must be exactly 32 bytes
	PollInterval        time.Duration
	SweepInterval       time.Duration
	ExternalCallTimeout time.Duration

	// Reconciliation policy
	ReconcileMaxAttempts int
	ReconcileBaseBackoff time.Duration
	ReconcileMaxBackoff  time.Duration
	ReconcileBatchSize   int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	// Set defaults and override with env vars
	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		MongoURI: getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "flightledger"),

		PostgresURI: getEnv("POSTGRES_DSN", ""),

		FlightDataBaseURL:      getEnv("FLIGHTDATA_BASE_URL", ""),
		FlightDataTokenURL:     getEnv("FLIGHTDATA_TOKEN_URL", ""),
		FlightDataClientID:     getEnv("FLIGHTDATA_CLIENT_ID", ""),
		FlightDataClientSecret: getEnv("FLIGHTDATA_CLIENT_SECRET", ""),

		LedgerEndpoint:       getEnv("LEDGER_ENDPOINT", ""),
		LedgerSignerID:       getEnv("LEDGER_SIGNER_ID", ""),
		LedgerSignerSecret:   getEnv("LEDGER_SIGNER_SECRET", ""),
		LedgerConfirmPoll:    time.Duration(getEnvAsInt("LEDGER_CONFIRM_POLL", 3)) * time.Second,
		LedgerConfirmTimeout: time.Duration(getEnvAsInt("LEDGER_CONFIRM_TIMEOUT", 120)) * time.Second,

		EncryptionKey:       getEnv("ENCRYPTION_KEY", ""),
		PollInterval:        time.Duration(getEnvAsInt("POLL_INTERVAL", 60)) * time.Second,
		SweepInterval:       time.Duration(getEnvAsInt("SWEEP_INTERVAL", 300)) * time.Second,
		ExternalCallTimeout: time.Duration(getEnvAsInt("EXTERNAL_CALL_TIMEOUT", 30)) * time.Second,

		ReconcileMaxAttempts: getEnvAsInt("RECONCILE_MAX_ATTEMPTS", 10),
		ReconcileBaseBackoff: time.Duration(getEnvAsInt("RECONCILE_BASE_BACKOFF", 60)) * time.Second,
		ReconcileMaxBackoff:  time.Duration(getEnvAsInt("RECONCILE_MAX_BACKOFF", 3600)) * time.Second,
		ReconcileBatchSize:   getEnvAsInt("RECONCILE_BATCH_SIZE", 100),
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
