package services

import (
	"context"
	"time"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
)

// VitalsTimeline serves the week-deduplicated vitals series.
// The series is the seeded placeholder history overlaid with real observations;
// only the observations are persisted, so seeds follow the calendar and
// a real observation replaces a seed for the same week like any other upsert.
// Seeds are rebuilt on the first access of each calendar day.
type VitalsTimeline struct {
	e            *Engine
	observations *domain.VitalsTimeline
	timeline     *domain.VitalsTimeline
	seededOn     string // calendar day the seeds were derived on
}

func (v *VitalsTimeline) load(ctx context.Context) error {
	var observations []domain.VitalsRecord
	if err := v.e.state.loadJSON(ctx, ports.KeyVitalsTimeline, &observations); err != nil {
		return err
	}
	v.observations = domain.NewVitalsTimeline(observations)
	v.rebuild(v.e.timeSource.Now())
	return nil
}

// rebuild derives the timeline from the LMP seed and the observations
func (v *VitalsTimeline) rebuild(now time.Time) {
	var seeded []domain.VitalsRecord
	if lmp := v.e.gestation.lmp; lmp != nil {
		seeded = domain.SeedVitals(*lmp, now)
	}
	timeline := domain.NewVitalsTimeline(seeded)
	for _, r := range v.observations.All() {
		timeline.Upsert(r)
	}
	v.timeline = timeline
	v.seededOn = domain.FormatDate(now)
}

// refreshLocked rebuilds the seeds once the calendar day has moved on
func (v *VitalsTimeline) refreshLocked(now time.Time) {
	if domain.FormatDate(now) != v.seededOn {
		v.rebuild(now)
	}
}

// reseedLocked discards every observation in memory and reseeds from lmp.
// The caller has already persisted the empty observation list.
func (v *VitalsTimeline) reseedLocked(lmp time.Time, now time.Time) {
	v.observations = domain.NewVitalsTimeline(nil)
	v.timeline = domain.NewVitalsTimeline(domain.SeedVitals(lmp, now))
	v.seededOn = domain.FormatDate(now)
}

// Add builds a record tagged with the current week label, replaces any record sharing that
// label and re-sorts the timeline ascending by week number
func (v *VitalsTimeline) Add(ctx context.Context, in domain.VitalsInput) (domain.VitalsRecord, error) {
	if err := in.Validate(); err != nil {
		return domain.VitalsRecord{}, err
	}

	v.e.mu.Lock()
	defer v.e.mu.Unlock()

	now := v.e.timeSource.Now()
	v.refreshLocked(now)
	record := domain.VitalsRecord{
		Date:   domain.FormatDate(now),
		Week:   domain.WeekLabel(v.e.gestation.weekLocked(now)),
		Weight: in.Weight,
		Hb:     in.Hb,
		BP:     in.BP,
	}

	observations := domain.NewVitalsTimeline(v.observations.All())
	observations.Upsert(record)
	if err := v.e.state.saveJSON(ctx, ports.KeyVitalsTimeline, observations.All()); err != nil {
		return domain.VitalsRecord{}, err
	}
	v.observations = observations
	v.timeline.Upsert(record)

	v.e.logger.Info().
		Str("event", "vitals_recorded").
		Str("week", record.Week).
		Float64("weight", record.Weight).
		Float64("hb", record.Hb).
		Str("bp", record.BP).
		Msg("vitals observation stored")
	return record, nil
}

// Latest returns the most recent week's record, or a zero-valued sentinel
func (v *VitalsTimeline) Latest() domain.VitalsRecord {
	v.e.mu.Lock()
	defer v.e.mu.Unlock()
	v.refreshLocked(v.e.timeSource.Now())
	return v.timeline.Latest()
}

// All returns the ordered timeline
func (v *VitalsTimeline) All() []domain.VitalsRecord {
	v.e.mu.Lock()
	defer v.e.mu.Unlock()
	v.refreshLocked(v.e.timeSource.Now())
	return v.timeline.All()
}

var _ ports.VitalsTimeline = (*VitalsTimeline)(nil)
