package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// EngineRegistry owns one Engine per patient for the lifetime of the process.
// Engines are created lazily on first use and loaded from the StateStore.
// Loads run outside the registry lock; concurrent first requests for one patient share a load.
type EngineRegistry struct {
	mu      sync.RWMutex
	engines map[string]*Engine
	loads   singleflight.Group
	store   ports.StateStore
	clock   ports.Clock
	alerts  ports.LaborAlertPublisher
	logger  zerolog.Logger
}

// NewEngineRegistry creates a new engine registry
func NewEngineRegistry(store ports.StateStore, clock ports.Clock, alerts ports.LaborAlertPublisher, logger zerolog.Logger) *EngineRegistry {
	return &EngineRegistry{
		engines: make(map[string]*Engine),
		store:   store,
		clock:   clock,
		alerts:  alerts,
		logger:  logger,
	}
}

// Engine returns the patient's engine, loading it on first use.
// A failed load is not cached, so the next call retries.
func (r *EngineRegistry) Engine(ctx context.Context, patientID string) (ports.ClinicalEngine, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" {
		return nil, fmt.Errorf("patient id cannot be empty")
	}

	if engine, ok := r.loaded(patientID); ok {
		return engine, nil
	}

	result, err, _ := r.loads.Do(patientID, func() (interface{}, error) {
		if engine, ok := r.loaded(patientID); ok {
			return engine, nil
		}
		engine, err := NewEngine(ctx, EngineConfig{
			PatientID: patientID,
			Store:     r.store.ForPatient(patientID),
			Clock:     r.clock,
			Alerts:    r.alerts,
			Logger:    r.logger,
		})
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.engines[patientID] = engine
		r.mu.Unlock()
		return engine, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load engine: %w", err)
	}
	return result.(*Engine), nil
}

func (r *EngineRegistry) loaded(patientID string) (*Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	engine, ok := r.engines[patientID]
	return engine, ok
}

// Len returns the number of loaded engines
func (r *EngineRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}

var _ ports.EngineProvider = (*EngineRegistry)(nil)
