package services

import (
	"context"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/google/uuid"
)

// KickSession is the fetal-movement counter: Idle -> Counting -> Idle.
// At most one session is open; Finish emits an immutable KickRecord.
// Tap and Finish while Idle are rejected with domain.ErrNoActiveSession.
type KickSession struct {
	e       *Engine
	status  domain.KickSessionStatus
	history []domain.KickRecord // most recent first
}

func (k *KickSession) load(ctx context.Context) error {
	if err := k.e.state.loadJSON(ctx, ports.KeyKickHistory, &k.history); err != nil {
		return err
	}
	if k.history == nil {
		k.history = []domain.KickRecord{}
	}
	if err := k.e.state.loadJSON(ctx, ports.KeyKickSession, &k.status); err != nil {
		return err
	}
	if k.status.State != domain.KickSessionCounting {
		k.status = domain.KickSessionStatus{State: domain.KickSessionIdle}
	}
	return nil
}

// Start opens a session with a zero count. Starting while counting restarts the count.
func (k *KickSession) Start(ctx context.Context) (domain.KickSessionStatus, error) {
	k.e.mu.Lock()
	defer k.e.mu.Unlock()

	status := domain.KickSessionStatus{
		State:     domain.KickSessionCounting,
		Count:     0,
		StartedAt: k.e.timeSource.Now().UTC(),
	}
	if err := k.e.state.saveJSON(ctx, ports.KeyKickSession, status); err != nil {
		return k.status, err
	}
	restarted := k.status.Active()
	k.status = status

	k.e.logger.Info().
		Str("event", "kick_session_started").
		Bool("restarted", restarted).
		Msg("kick counting started")
	return status, nil
}

// Tap counts one movement
func (k *KickSession) Tap(ctx context.Context) (domain.KickSessionStatus, error) {
	k.e.mu.Lock()
	defer k.e.mu.Unlock()

	if !k.status.Active() {
		return k.status, domain.ErrNoActiveSession
	}
	status := k.status
	status.Count++
	if err := k.e.state.saveJSON(ctx, ports.KeyKickSession, status); err != nil {
		return k.status, err
	}
	k.status = status
	return status, nil
}

// Finish closes the session and prepends its KickRecord to history.
// Duration is whole minutes, round-half-up, never below 1.
// The session is closed in storage before the record is written, and reopened if the record
// cannot be stored, so a failed Finish never leaves a recorded session open.
func (k *KickSession) Finish(ctx context.Context) (domain.KickRecord, error) {
	k.e.mu.Lock()
	defer k.e.mu.Unlock()

	if !k.status.Active() {
		return domain.KickRecord{}, domain.ErrNoActiveSession
	}

	now := k.e.timeSource.Now()
	started := k.status.StartedAt
	record := domain.KickRecord{
		ID:        uuid.New().String(),
		Date:      now.UTC(),
		Count:     k.status.Count,
		Duration:  domain.KickDurationMinutes(started, now),
		StartTime: started.In(now.Location()).Format("15:04"),
	}

	history := make([]domain.KickRecord, 0, len(k.history)+1)
	history = append(history, record)
	history = append(history, k.history...)

	idle := domain.KickSessionStatus{State: domain.KickSessionIdle}
	if err := k.e.state.saveJSON(ctx, ports.KeyKickSession, idle); err != nil {
		return domain.KickRecord{}, err
	}
	if err := k.e.state.saveJSON(ctx, ports.KeyKickHistory, history); err != nil {
		k.e.state.restoreJSON(ctx, ports.KeyKickSession, k.status)
		return domain.KickRecord{}, err
	}
	k.history = history
	k.status = idle

	k.e.logger.Info().
		Str("event", "kick_session_finished").
		Str("record_id", record.ID).
		Int("count", record.Count).
		Int("duration_min", record.Duration).
		Msg("kick session recorded")
	return record, nil
}

// Status returns the open session, or an idle status
func (k *KickSession) Status() domain.KickSessionStatus {
	k.e.mu.Lock()
	defer k.e.mu.Unlock()
	return k.status
}

// History returns completed sessions, most recent first
func (k *KickSession) History() []domain.KickRecord {
	k.e.mu.Lock()
	defer k.e.mu.Unlock()
	out := make([]domain.KickRecord, len(k.history))
	copy(out, k.history)
	return out
}

var _ ports.KickSession = (*KickSession)(nil)
