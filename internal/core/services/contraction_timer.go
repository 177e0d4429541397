package services

import (
	"context"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/google/uuid"
)

// ContractionTimer times contractions: Idle -> Active -> Idle.
// Start while Active keeps the original start; Stop while Idle returns domain.ErrNoActiveSession.
type ContractionTimer struct {
	e       *Engine
	active  *domain.ActiveContraction
	history []domain.ContractionRecord // most recent first
}

func (c *ContractionTimer) load(ctx context.Context) error {
	if err := c.e.state.loadJSON(ctx, ports.KeyContractionHistory, &c.history); err != nil {
		return err
	}
	if c.history == nil {
		c.history = []domain.ContractionRecord{}
	}
	return c.e.state.loadJSON(ctx, ports.KeyActiveContraction, &c.active)
}

// Start records the start instant of a contraction
func (c *ContractionTimer) Start(ctx context.Context) (domain.ActiveContraction, error) {
	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	return c.startLocked(ctx)
}

func (c *ContractionTimer) startLocked(ctx context.Context) (domain.ActiveContraction, error) {
	if c.active != nil {
		return *c.active, nil
	}
	active := &domain.ActiveContraction{StartedAt: domain.MillisOf(c.e.timeSource.Now())}
	if err := c.e.state.saveJSON(ctx, ports.KeyActiveContraction, active); err != nil {
		return domain.ActiveContraction{}, err
	}
	c.active = active
	return *active, nil
}

// Stop closes the open contraction and prepends its record to history.
// durationSec and frequencyMin are round-half-up and clamp negative values to 0.
// The open contraction is cleared in storage first and restored if the record cannot be
// stored, so a failed Stop never leaves a recorded contraction open.
func (c *ContractionTimer) Stop(ctx context.Context) (domain.ContractionRecord, error) {
	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	return c.stopLocked(ctx)
}

func (c *ContractionTimer) stopLocked(ctx context.Context) (domain.ContractionRecord, error) {
	if c.active == nil {
		return domain.ContractionRecord{}, domain.ErrNoActiveSession
	}

	now := c.e.timeSource.Now()
	start := c.active.StartedAt.Time()
	record := domain.ContractionRecord{
		ID:           uuid.New().String(),
		StartTime:    c.active.StartedAt,
		EndTime:      domain.MillisOf(now),
		DurationSec:  domain.ContractionDurationSec(start, now),
		FrequencyMin: domain.ContractionFrequencyMin(start, c.history),
	}

	history := make([]domain.ContractionRecord, 0, len(c.history)+1)
	history = append(history, record)
	history = append(history, c.history...)

	if err := c.e.state.saveRaw(ctx, ports.KeyActiveContraction, "null"); err != nil {
		return domain.ContractionRecord{}, err
	}
	if err := c.e.state.saveJSON(ctx, ports.KeyContractionHistory, history); err != nil {
		c.e.state.restoreJSON(ctx, ports.KeyActiveContraction, c.active)
		return domain.ContractionRecord{}, err
	}
	c.history = history
	c.active = nil

	alertActive := domain.IsImminentLabor(history)
	c.e.logger.Info().
		Str("event", "contraction_recorded").
		Str("record_id", record.ID).
		Int("duration_sec", record.DurationSec).
		Int("frequency_min", record.FrequencyMin).
		Bool("labor_alert", alertActive).
		Msg("contraction recorded")

	if alertActive {
		c.publishAlert(domain.NewLaborAlert(c.e.patientID, history, c.e.gestation.weekLocked(now), now))
	}
	return record, nil
}

// publishAlert notifies health workers without blocking the caller.
// A failed publish is logged; the derived alert flag is unaffected.
func (c *ContractionTimer) publishAlert(alert domain.LaborAlert) {
	if c.e.alerts == nil {
		return
	}
	publisher := c.e.alerts
	logger := c.e.logger
	go func() {
		// background context: the request may already be finished
		if err := publisher.PublishLaborAlert(context.Background(), alert); err != nil {
			logger.Error().Err(err).Str("event", "labor_alert_failed").Msg("failed to publish labor alert")
			return
		}
		logger.Info().
			Str("event", "labor_alert_published").
			Int("frequency_min", alert.Contraction.FrequencyMin).
			Msg("labor alert published")
	}()
}

// Toggle starts a contraction when idle, or stops the open one.
// The returned record is nil after a start.
func (c *ContractionTimer) Toggle(ctx context.Context) (*domain.ContractionRecord, error) {
	c.e.mu.Lock()
	defer c.e.mu.Unlock()

	if c.active == nil {
		_, err := c.startLocked(ctx)
		return nil, err
	}
	record, err := c.stopLocked(ctx)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Clear empties the contraction history. It is irreversible, so the caller must confirm.
// An open contraction is left running.
func (c *ContractionTimer) Clear(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return domain.ErrClearNotConfirmed
	}

	c.e.mu.Lock()
	defer c.e.mu.Unlock()

	if err := c.e.state.saveJSON(ctx, ports.KeyContractionHistory, []domain.ContractionRecord{}); err != nil {
		return err
	}
	cleared := len(c.history)
	c.history = []domain.ContractionRecord{}

	c.e.logger.Warn().
		Str("event", "contractions_cleared").
		Int("cleared", cleared).
		Msg("contraction history cleared")
	return nil
}

// Active returns the open contraction, or nil
func (c *ContractionTimer) Active() *domain.ActiveContraction {
	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	if c.active == nil {
		return nil
	}
	active := *c.active
	return &active
}

// History returns recorded contractions, most recent first
func (c *ContractionTimer) History() []domain.ContractionRecord {
	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	out := make([]domain.ContractionRecord, len(c.history))
	copy(out, c.history)
	return out
}

// IsAlertActive is recomputed from history on every read; it is never persisted
func (c *ContractionTimer) IsAlertActive() bool {
	c.e.mu.Lock()
	defer c.e.mu.Unlock()
	return domain.IsImminentLabor(c.history)
}

var _ ports.ContractionTimer = (*ContractionTimer)(nil)
