package ports

import (
	"context"
	"time"

	"github.com/IANDYI/maternity-service/internal/core/domain"
)

// Persisted state keys. Field names inside the JSON values are kept stable for compatibility.
const (
	KeyPatientLMP         = "patient_lmp"
	KeyKickHistory        = "kick_history"
	KeyContractionHistory = "contraction_history"
	KeyHospitalBag        = "hospital_bag"
	KeyMilestones         = "milestones"
	KeyVitalsTimeline     = "vitals_timeline"
	KeyKickSession        = "kick_session"
	KeyActiveContraction  = "contraction_active"
	KeyBMI                = "patient_bmi"
)

// PersistenceAdapter is an opaque string key/value store for one patient
type PersistenceAdapter interface {
	// Get returns the stored value; found is false when the key was never written
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value string) error
}

// StateStore hands out a PersistenceAdapter scoped to a patient
type StateStore interface {
	ForPatient(patientID string) PersistenceAdapter
}

// LaborAlertPublisher publishes imminent-labor alerts to health workers
type LaborAlertPublisher interface {
	PublishLaborAlert(ctx context.Context, alert domain.LaborAlert) error
}

// Clock is the engine's only source of wall-clock time
type Clock interface {
	Now() time.Time
}
