package config

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// InitDatabase creates the patient_state table if it does not exist.
// Set DROP_TABLES_ON_STARTUP=true to drop existing state first.
func InitDatabase(db *sql.DB) error {
	if os.Getenv("DROP_TABLES_ON_STARTUP") == "true" {
		log.Warn().Msg("dropping existing tables (DROP_TABLES_ON_STARTUP=true)")
		if _, err := db.Exec("DROP TABLE IF EXISTS patient_state CASCADE"); err != nil {
			log.Warn().Err(err).Msg("failed to drop patient_state table")
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS patient_state (
		patient_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (patient_id, key)
	);`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create patient_state table: %w", err)
	}

	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_patient_state_updated_at ON patient_state(updated_at)"); err != nil {
		log.Warn().Err(err).Msg("failed to create index")
	}

	log.Info().Msg("database schema initialized successfully")
	return nil
}

// ConnectDatabase establishes a connection to PostgreSQL with retry logic
func ConnectDatabase(databaseURL string, maxRetries int, retryDelay time.Duration) (*sql.DB, error) {
	var db *sql.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			log.Warn().Err(err).Int("attempt", i+1).Int("max_retries", maxRetries).Msg("failed to open database connection")
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
		}

		if err = db.Ping(); err != nil {
			log.Warn().Err(err).Int("attempt", i+1).Int("max_retries", maxRetries).Msg("failed to ping database")
			db.Close()
			if i < maxRetries-1 {
				time.Sleep(retryDelay)
				continue
			}
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", maxRetries, err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		log.Info().Msg("database connection established successfully")
		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database: %w", err)
}
