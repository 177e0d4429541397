package repository

import (
	"context"
	"sync"

	"github.com/IANDYI/maternity-service/internal/core/ports"
)

// MemoryStore keeps patient state in process memory.
// Used by tests and STORE_DRIVER=memory; nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string]string)}
}

// ForPatient returns an adapter scoped to patientID
func (s *MemoryStore) ForPatient(patientID string) ports.PersistenceAdapter {
	return &patientScope{patientID: patientID, kv: s}
}

// GetValue returns the value stored for patientID under key
func (s *MemoryStore) GetValue(ctx context.Context, patientID, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[patientID][key]
	return value, ok, nil
}

// SetValue stores value for patientID under key
func (s *MemoryStore) SetValue(ctx context.Context, patientID, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[patientID] == nil {
		s.values[patientID] = make(map[string]string)
	}
	s.values[patientID][key] = value
	return nil
}

// Ping always succeeds unless ctx is done
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op
func (s *MemoryStore) Close() error { return nil }

var _ ports.StateStore = (*MemoryStore)(nil)
