package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
)

// GestationalClock holds the LMP anchor and derives the gestational week from it
type GestationalClock struct {
	e   *Engine
	lmp *time.Time
	bmi float64
}

func (g *GestationalClock) load(ctx context.Context) error {
	raw, found, err := g.e.state.loadRaw(ctx, ports.KeyPatientLMP)
	if err != nil {
		return err
	}
	if found && strings.TrimSpace(raw) != "" {
		// tolerate a JSON-quoted date written by older clients
		value := strings.Trim(strings.TrimSpace(raw), `"`)
		lmp, err := domain.ParseDate(value)
		if err != nil {
			g.e.state.corrupt(ports.KeyPatientLMP, err)
		} else {
			g.lmp = &lmp
		}
	}
	return g.e.state.loadJSON(ctx, ports.KeyBMI, &g.bmi)
}

// SetLMP validates and stores the LMP, then synchronously regenerates the vitals timeline.
// The LMP is overwritten wholesale; any previously derived timeline is discarded.
func (g *GestationalClock) SetLMP(ctx context.Context, date string) (int, error) {
	g.e.mu.Lock()
	defer g.e.mu.Unlock()

	now := g.e.timeSource.Now()
	lmp, err := domain.ParseLMP(date, now)
	if err != nil {
		return 0, err
	}

	// observations belong to the old anchor; drop them before storing the new one
	previous := g.e.vitals.observations.All()
	if err := g.e.state.saveJSON(ctx, ports.KeyVitalsTimeline, []domain.VitalsRecord{}); err != nil {
		return 0, err
	}
	if err := g.e.state.saveRaw(ctx, ports.KeyPatientLMP, lmp.Format(domain.DateLayout)); err != nil {
		g.e.state.restoreJSON(ctx, ports.KeyVitalsTimeline, previous)
		return 0, err
	}
	g.lmp = &lmp
	g.e.vitals.reseedLocked(lmp, now)

	week := domain.GestationalWeek(lmp, now)
	g.e.logger.Info().
		Str("event", "lmp_set").
		Str("lmp", lmp.Format(domain.DateLayout)).
		Int("current_week", week).
		Int("seeded_vitals", g.e.vitals.timeline.Len()).
		Msg("gestational clock anchored")
	return week, nil
}

// LMP returns a copy of the stored LMP, or nil
func (g *GestationalClock) LMP() *time.Time {
	g.e.mu.Lock()
	defer g.e.mu.Unlock()
	return g.lmpLocked()
}

func (g *GestationalClock) lmpLocked() *time.Time {
	if g.lmp == nil {
		return nil
	}
	lmp := *g.lmp
	return &lmp
}

// CurrentWeek returns the gestational week today; 0 while no LMP is set
func (g *GestationalClock) CurrentWeek() int {
	g.e.mu.Lock()
	defer g.e.mu.Unlock()
	return g.weekLocked(g.e.timeSource.Now())
}

// WeekOn returns the gestational week on date
func (g *GestationalClock) WeekOn(date time.Time) int {
	g.e.mu.Lock()
	defer g.e.mu.Unlock()
	return g.weekLocked(date)
}

func (g *GestationalClock) weekLocked(on time.Time) int {
	if g.lmp == nil {
		return 0
	}
	return domain.GestationalWeek(*g.lmp, on)
}

// DueDateForWeek returns LMP + weekOffset*7 days; nil means "no date yet", not an error
func (g *GestationalClock) DueDateForWeek(weekOffset int) *time.Time {
	g.e.mu.Lock()
	defer g.e.mu.Unlock()
	return g.dueDateLocked(weekOffset)
}

func (g *GestationalClock) dueDateLocked(weekOffset int) *time.Time {
	if g.lmp == nil {
		return nil
	}
	due := domain.DueDateForWeek(*g.lmp, weekOffset)
	return &due
}

// Summary returns the derived pregnancy summary for today
func (g *GestationalClock) Summary() domain.PregnancySummary {
	g.e.mu.Lock()
	defer g.e.mu.Unlock()
	return domain.Summarize(g.lmp, g.e.timeSource.Now())
}

// SetBMI computes the BMI from height (cm) and weight (kg) and stores it.
// Non-positive inputs leave the stored value unchanged.
func (g *GestationalClock) SetBMI(ctx context.Context, heightCm, weightKg float64) (float64, error) {
	g.e.mu.Lock()
	defer g.e.mu.Unlock()

	bmi := domain.CalculateBMI(heightCm, weightKg)
	if bmi == 0 {
		return g.bmi, nil
	}
	body, _ := json.Marshal(bmi)
	if err := g.e.state.saveRaw(ctx, ports.KeyBMI, string(body)); err != nil {
		return g.bmi, err
	}
	g.bmi = bmi
	return bmi, nil
}

// BMI returns the stored BMI, 0 when never set
func (g *GestationalClock) BMI() float64 {
	g.e.mu.Lock()
	defer g.e.mu.Unlock()
	return g.bmi
}

var _ ports.GestationalClock = (*GestationalClock)(nil)
