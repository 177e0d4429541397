package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/rs/zerolog"
)

// stateStore reads and writes JSON values through the patient's PersistenceAdapter
type stateStore struct {
	adapter ports.PersistenceAdapter
	logger  zerolog.Logger
}

// loadJSON decodes the value stored under key into target.
// A missing key leaves target untouched. Corrupt JSON is logged, target is reset to its
// zero value and loading continues: losing a collection is preferable to a stuck engine.
func (s *stateStore) loadJSON(ctx context.Context, key string, target any) error {
	raw, found, err := s.adapter.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !found || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		s.corrupt(key, err)
		resetJSONTarget(target)
	}
	return nil
}

// loadRaw returns the raw string stored under key
func (s *stateStore) loadRaw(ctx context.Context, key string) (string, bool, error) {
	raw, found, err := s.adapter.Get(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return raw, found, nil
}

// saveJSON encodes value and writes it under key
func (s *stateStore) saveJSON(ctx context.Context, key string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.saveRaw(ctx, key, string(body))
}

func (s *stateStore) saveRaw(ctx context.Context, key string, value string) error {
	if err := s.adapter.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}

// restoreJSON rewrites key with its previous value after a later write of the same
// mutation failed. A failed restore is logged; the caller still returns the original error.
func (s *stateStore) restoreJSON(ctx context.Context, key string, previous any) {
	if err := s.saveJSON(ctx, key, previous); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to restore persisted state")
	}
}

func (s *stateStore) corrupt(key string, cause error) {
	s.logger.Warn().
		Err(fmt.Errorf("%w: %v", domain.ErrCorruptPersistedState, cause)).
		Str("key", key).
		Msg("resetting corrupt persisted state")
}

// resetJSONTarget zeroes the common target shapes used by the engine
func resetJSONTarget(target any) {
	switch t := target.(type) {
	case *[]domain.KickRecord:
		*t = []domain.KickRecord{}
	case *[]domain.ContractionRecord:
		*t = []domain.ContractionRecord{}
	case *[]domain.VitalsRecord:
		*t = []domain.VitalsRecord{}
	case *[]string:
		*t = []string{}
	case *domain.KickSessionStatus:
		*t = domain.KickSessionStatus{State: domain.KickSessionIdle}
	case **domain.ActiveContraction:
		*t = nil
	case *float64:
		*t = 0
	}
}
