package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// PostgresStore implements the patient key/value state on PostgreSQL.
// Includes retry logic and a circuit breaker for resilience.
type PostgresStore struct {
	db         *sql.DB
	cb         *gobreaker.CircuitBreaker
	maxRetries int
	retryDelay time.Duration
	logger     zerolog.Logger
}

// BreakerSettings configures the store's circuit breaker
type BreakerSettings struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// DefaultBreakerSettings mirrors the service defaults
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{MaxRequests: 5, Interval: 60 * time.Second, Timeout: 30 * time.Second}
}

// NewPostgresStore creates a new PostgreSQL store with a circuit breaker
func NewPostgresStore(db *sql.DB, breaker BreakerSettings, logger zerolog.Logger) *PostgresStore {
	settings := gobreaker.Settings{
		Name:        "patient_state",
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval,
		Timeout:     breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}

	return &PostgresStore{
		db:         db,
		cb:         gobreaker.NewCircuitBreaker(settings),
		maxRetries: 3,
		retryDelay: 1 * time.Second,
		logger:     logger,
	}
}

// ForPatient returns an adapter scoped to patientID
func (s *PostgresStore) ForPatient(patientID string) ports.PersistenceAdapter {
	return &patientScope{patientID: patientID, kv: s}
}

// executeWithRetry executes a database operation with retry logic
func (s *PostgresStore) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	for i := 0; i < s.maxRetries; i++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		// sql.ErrNoRows and cancellation are not transient
		if errors.Is(err, sql.ErrNoRows) || ctx.Err() != nil {
			return err
		}
		s.logger.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", s.maxRetries).Msg("patient state query failed")
		if i < s.maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}
	}
	return fmt.Errorf("operation failed after %d retries: %w", s.maxRetries, lastErr)
}

// stateLookup is the breaker-visible result of a read
type stateLookup struct {
	value string
	found bool
}

// GetValue reads one value; a missing row is reported as found=false.
// A missing row is a successful read and never counts against the breaker.
func (s *PostgresStore) GetValue(ctx context.Context, patientID, key string) (string, bool, error) {
	result, err := s.cb.Execute(func() (interface{}, error) {
		var value string
		err := s.executeWithRetry(ctx, func() error {
			query := `SELECT value FROM patient_state WHERE patient_id = $1 AND key = $2`
			return s.db.QueryRowContext(ctx, query, patientID, key).Scan(&value)
		})
		if errors.Is(err, sql.ErrNoRows) {
			return stateLookup{}, nil
		}
		if err != nil {
			return nil, err
		}
		return stateLookup{value: value, found: true}, nil
	})
	if err != nil {
		return "", false, err
	}

	lookup := result.(stateLookup)
	return lookup.value, lookup.found, nil
}

// SetValue upserts one value
func (s *PostgresStore) SetValue(ctx context.Context, patientID, key, value string) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.executeWithRetry(ctx, func() error {
			query := `INSERT INTO patient_state (patient_id, key, value, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (patient_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
			_, err := s.db.ExecContext(ctx, query, patientID, key, value)
			return err
		})
	})
	return err
}

// Ping checks database connectivity for readiness probes
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ ports.StateStore = (*PostgresStore)(nil)
