package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/rs/zerolog"
)

// Engine is the owned clinical state of one patient: LMP, vitals, kick and contraction
// sessions, milestones and the hospital bag. It is constructed once per user session and
// passed by handle; every operation runs to completion under the engine lock and writes
// through the PersistenceAdapter before returning.
type Engine struct {
	mu         sync.Mutex
	patientID  string
	state      *stateStore
	timeSource ports.Clock
	alerts     ports.LaborAlertPublisher
	logger     zerolog.Logger

	gestation    *GestationalClock
	vitals       *VitalsTimeline
	kicks        *KickSession
	contractions *ContractionTimer
	milestones   *MilestoneTracker
	bag          *HospitalBag
}

// EngineConfig holds the collaborators of an Engine
type EngineConfig struct {
	PatientID string
	Store     ports.PersistenceAdapter
	Clock     ports.Clock
	Alerts    ports.LaborAlertPublisher // optional
	Logger    zerolog.Logger
}

// NewEngine creates an engine and loads its persisted state.
// Corrupt collections are reset to empty; only adapter read failures are returned.
func NewEngine(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	if strings.TrimSpace(cfg.PatientID) == "" {
		return nil, fmt.Errorf("patient id cannot be empty")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("persistence adapter is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = NewSystemClock("UTC")
	}

	logger := cfg.Logger.With().Str("patient_id", cfg.PatientID).Logger()
	e := &Engine{
		patientID:  cfg.PatientID,
		state:      &stateStore{adapter: cfg.Store, logger: logger},
		timeSource: cfg.Clock,
		alerts:     cfg.Alerts,
		logger:     logger,
	}
	e.gestation = &GestationalClock{e: e}
	e.vitals = &VitalsTimeline{e: e, timeline: domain.NewVitalsTimeline(nil)}
	e.kicks = &KickSession{e: e, status: domain.KickSessionStatus{State: domain.KickSessionIdle}}
	e.contractions = &ContractionTimer{e: e}
	e.milestones = &MilestoneTracker{e: e}
	e.bag = &HospitalBag{e: e}

	if err := e.load(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// load reads every persisted collection. The LMP is loaded first since the vitals
// timeline is derived from it.
func (e *Engine) load(ctx context.Context) error {
	loaders := []func(context.Context) error{
		e.gestation.load,
		e.vitals.load,
		e.kicks.load,
		e.contractions.load,
		e.milestones.load,
		e.bag.load,
	}
	for _, load := range loaders {
		if err := load(ctx); err != nil {
			return err
		}
	}
	return nil
}

// PatientID returns the patient this engine belongs to
func (e *Engine) PatientID() string { return e.patientID }

func (e *Engine) Gestation() ports.GestationalClock    { return e.gestation }
func (e *Engine) Vitals() ports.VitalsTimeline         { return e.vitals }
func (e *Engine) Kicks() ports.KickSession             { return e.kicks }
func (e *Engine) Contractions() ports.ContractionTimer { return e.contractions }
func (e *Engine) Milestones() ports.MilestoneTracker   { return e.milestones }
func (e *Engine) HospitalBag() ports.HospitalBag       { return e.bag }

// Ensure Engine implements the interface
var _ ports.ClinicalEngine = (*Engine)(nil)
