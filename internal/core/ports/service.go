package ports

import (
	"context"
	"time"

	"github.com/IANDYI/maternity-service/internal/core/domain"
)

// GestationalClock turns the LMP into a current week and future due dates
type GestationalClock interface {
	// SetLMP validates and stores the LMP date (YYYY-MM-DD), regenerates the vitals
	// timeline and returns the current week
	SetLMP(ctx context.Context, date string) (int, error)

	// LMP returns the stored LMP, or nil when none is set
	LMP() *time.Time

	// CurrentWeek returns the gestational week today, clamped to [0,40]
	CurrentWeek() int

	// WeekOn returns the gestational week on the given date
	WeekOn(date time.Time) int

	// DueDateForWeek returns LMP + weekOffset weeks, or nil when no LMP is set
	DueDateForWeek(weekOffset int) *time.Time

	// Summary returns week, trimester, days to go and progress
	Summary() domain.PregnancySummary

	// SetBMI computes and stores the BMI from height and weight
	SetBMI(ctx context.Context, heightCm, weightKg float64) (float64, error)
	BMI() float64
}

// VitalsTimeline is the week-deduplicated series of vital-sign observations
type VitalsTimeline interface {
	// Add upserts a record tagged with the current week label
	Add(ctx context.Context, in domain.VitalsInput) (domain.VitalsRecord, error)
	Latest() domain.VitalsRecord
	All() []domain.VitalsRecord
}

// KickSession counts fetal movements within a timed window
type KickSession interface {
	Start(ctx context.Context) (domain.KickSessionStatus, error)
	Tap(ctx context.Context) (domain.KickSessionStatus, error)
	Finish(ctx context.Context) (domain.KickRecord, error)
	Status() domain.KickSessionStatus
	History() []domain.KickRecord
}

// ContractionTimer times labor contractions and derives their frequency
type ContractionTimer interface {
	Start(ctx context.Context) (domain.ActiveContraction, error)
	Stop(ctx context.Context) (domain.ContractionRecord, error)

	// Toggle starts when idle and stops when active; the record is nil after a start
	Toggle(ctx context.Context) (*domain.ContractionRecord, error)

	// Clear empties the history; it is refused unless confirmed
	Clear(ctx context.Context, confirmed bool) error

	Active() *domain.ActiveContraction
	History() []domain.ContractionRecord
	IsAlertActive() bool
}

// MilestoneTracker tracks the fixed antenatal care checklist
type MilestoneTracker interface {
	List() []domain.Milestone
	Status(id string, currentWeek int) (domain.MilestoneStatus, error)
	DueDate(id string) (*time.Time, error)
	Toggle(ctx context.Context, id string) (domain.Milestone, error)
}

// HospitalBag tracks the hospital bag checklist
type HospitalBag interface {
	Items() []domain.BagItem
	Toggle(ctx context.Context, itemID string) (domain.BagItem, error)
}

// ClinicalEngine is the owned per-patient service object
type ClinicalEngine interface {
	PatientID() string
	Gestation() GestationalClock
	Vitals() VitalsTimeline
	Kicks() KickSession
	Contractions() ContractionTimer
	Milestones() MilestoneTracker
	HospitalBag() HospitalBag
}

// EngineProvider returns the engine for a patient, loading persisted state on first use
type EngineProvider interface {
	Engine(ctx context.Context, patientID string) (ClinicalEngine, error)
}
