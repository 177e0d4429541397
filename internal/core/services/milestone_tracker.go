package services

import (
	"context"
	"fmt"
	"time"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
)

// MilestoneTracker is the antenatal care checklist. Completion is a user-toggled flag
// independent of week arithmetic; due dates come from the gestational clock.
type MilestoneTracker struct {
	e         *Engine
	completed []string
}

func (m *MilestoneTracker) load(ctx context.Context) error {
	if err := m.e.state.loadJSON(ctx, ports.KeyMilestones, &m.completed); err != nil {
		return err
	}
	if m.completed == nil {
		m.completed = []string{}
	}
	return nil
}

// List returns every milestone with its status for the current week
func (m *MilestoneTracker) List() []domain.Milestone {
	m.e.mu.Lock()
	defer m.e.mu.Unlock()

	lmp := m.e.gestation.lmpLocked()
	week := m.e.gestation.weekLocked(m.e.timeSource.Now())
	defs := domain.AntenatalMilestones()
	out := make([]domain.Milestone, 0, len(defs))
	for _, def := range defs {
		out = append(out, domain.BuildMilestone(def, domain.ContainsID(m.completed, def.ID), lmp, week))
	}
	return out
}

// Status is Done if completed, else Overdue when weekOffset <= currentWeek, else Upcoming
func (m *MilestoneTracker) Status(id string, currentWeek int) (domain.MilestoneStatus, error) {
	def, ok := domain.FindMilestone(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownMilestone, id)
	}

	m.e.mu.Lock()
	defer m.e.mu.Unlock()
	return domain.MilestoneStatusOf(domain.ContainsID(m.completed, id), def.WeekOffset, currentWeek), nil
}

// DueDate returns the milestone's due date, or nil while no LMP is set
func (m *MilestoneTracker) DueDate(id string) (*time.Time, error) {
	def, ok := domain.FindMilestone(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownMilestone, id)
	}

	m.e.mu.Lock()
	defer m.e.mu.Unlock()
	return m.e.gestation.dueDateLocked(def.WeekOffset), nil
}

// Toggle flips the completion flag; toggling twice restores the original state
func (m *MilestoneTracker) Toggle(ctx context.Context, id string) (domain.Milestone, error) {
	def, ok := domain.FindMilestone(id)
	if !ok {
		return domain.Milestone{}, fmt.Errorf("%w: %s", domain.ErrUnknownMilestone, id)
	}

	m.e.mu.Lock()
	defer m.e.mu.Unlock()

	completed := domain.ToggleID(m.completed, id)
	if err := m.e.state.saveJSON(ctx, ports.KeyMilestones, completed); err != nil {
		return domain.Milestone{}, err
	}
	m.completed = completed

	done := domain.ContainsID(completed, id)
	m.e.logger.Info().
		Str("event", "milestone_toggled").
		Str("milestone_id", id).
		Bool("completed", done).
		Msg("milestone updated")

	now := m.e.timeSource.Now()
	return domain.BuildMilestone(def, done, m.e.gestation.lmpLocked(), m.e.gestation.weekLocked(now)), nil
}

var _ ports.MilestoneTracker = (*MilestoneTracker)(nil)
