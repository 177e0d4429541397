package repository

import (
	"context"

	"github.com/IANDYI/maternity-service/internal/core/ports"
)

// keyValueStore is implemented by every backing store: values are addressed by (patient, key)
type keyValueStore interface {
	GetValue(ctx context.Context, patientID, key string) (string, bool, error)
	SetValue(ctx context.Context, patientID, key, value string) error
}

// patientScope adapts a keyValueStore to the single-patient PersistenceAdapter contract
type patientScope struct {
	patientID string
	kv        keyValueStore
}

func (p *patientScope) Get(ctx context.Context, key string) (string, bool, error) {
	return p.kv.GetValue(ctx, p.patientID, key)
}

func (p *patientScope) Set(ctx context.Context, key string, value string) error {
	return p.kv.SetValue(ctx, p.patientID, key, value)
}

var _ ports.PersistenceAdapter = (*patientScope)(nil)
