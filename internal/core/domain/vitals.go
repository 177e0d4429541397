package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Seed model baselines used when no real observations exist
const (
	BaselineWeightKg  = 52.0
	BaselineHbGdL     = 12.5
	BaselineBP        = "110/70"
	SeedFirstWeek     = 8
	SeedWeekStep      = 4
	SeedLookaheadDays = 14
)

// VitalsRecord is one observation in the vitals timeline.
// Week is the dedup and ordering key ("W8", "W12", ...).
type VitalsRecord struct {
	Date   string  `json:"date"`
	Week   string  `json:"week"`
	Weight float64 `json:"weight"` // kg
	Hb     float64 `json:"hb"`     // g/dL
	BP     string  `json:"bp"`     // "sys/dia"
}

// VitalsInput is the user-entered part of a VitalsRecord
type VitalsInput struct {
	Weight float64 `json:"weight"`
	Hb     float64 `json:"hb"`
	BP     string  `json:"bp"`
}

// WeekLabel formats a gestational week as a timeline label
func WeekLabel(week int) string {
	return "W" + strconv.Itoa(week)
}

// WeekNumber extracts the numeric part of a week label; unparseable labels sort first
func WeekNumber(label string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(label, "W"))
	if err != nil {
		return -1
	}
	return n
}

// ParseBloodPressure parses "sys/dia" into its two positive components
func ParseBloodPressure(bp string) (systolic, diastolic int, err error) {
	parts := strings.Split(strings.TrimSpace(bp), "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: blood pressure %q must be sys/dia", ErrInvalidVitals, bp)
	}
	systolic, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || systolic <= 0 {
		return 0, 0, fmt.Errorf("%w: invalid systolic value in %q", ErrInvalidVitals, bp)
	}
	diastolic, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || diastolic <= 0 {
		return 0, 0, fmt.Errorf("%w: invalid diastolic value in %q", ErrInvalidVitals, bp)
	}
	return systolic, diastolic, nil
}

// Validate checks the entered vitals are physically plausible
func (in VitalsInput) Validate() error {
	if in.Weight <= 0 {
		return fmt.Errorf("%w: weight must be greater than 0 kg", ErrInvalidVitals)
	}
	if in.Weight > 300 {
		return fmt.Errorf("%w: weight exceeds reasonable maximum (300kg)", ErrInvalidVitals)
	}
	if in.Hb <= 0 || in.Hb > 25 {
		return fmt.Errorf("%w: hemoglobin must be between 0 and 25 g/dL", ErrInvalidVitals)
	}
	if _, _, err := ParseBloodPressure(in.BP); err != nil {
		return err
	}
	return nil
}

// VitalsTimeline is a week-deduplicated, week-ordered series of observations
type VitalsTimeline struct {
	records []VitalsRecord
}

// NewVitalsTimeline builds a timeline from records, enforcing the upsert-by-week invariant.
// Later duplicates win, as if the records had been added in order.
func NewVitalsTimeline(records []VitalsRecord) *VitalsTimeline {
	t := &VitalsTimeline{}
	for _, r := range records {
		t.Upsert(r)
	}
	return t
}

// Upsert replaces any record sharing r.Week, appends r and re-sorts ascending by week number
func (t *VitalsTimeline) Upsert(r VitalsRecord) {
	filtered := t.records[:0:0]
	for _, existing := range t.records {
		if existing.Week != r.Week {
			filtered = append(filtered, existing)
		}
	}
	filtered = append(filtered, r)
	sort.SliceStable(filtered, func(i, j int) bool {
		return WeekNumber(filtered[i].Week) < WeekNumber(filtered[j].Week)
	})
	t.records = filtered
}

// Latest returns the last record after sorting, or a zero-valued sentinel when empty
func (t *VitalsTimeline) Latest() VitalsRecord {
	if len(t.records) == 0 {
		return VitalsRecord{}
	}
	return t.records[len(t.records)-1]
}

// All returns a copy of the ordered records
func (t *VitalsTimeline) All() []VitalsRecord {
	out := make([]VitalsRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of records
func (t *VitalsTimeline) Len() int {
	return len(t.records)
}

// SeedVitals generates the placeholder history for weeks 8, 12, ..., 40, never seeding
// more than SeedLookaheadDays past today. If the LMP is too recent for any point, a single
// W0 baseline record dated at the LMP is returned.
func SeedVitals(lmp, today time.Time) []VitalsRecord {
	lmp = CalendarDate(lmp)
	limit := CalendarDate(today).AddDate(0, 0, SeedLookaheadDays)

	var seeded []VitalsRecord
	for week := SeedFirstWeek; week <= TermWeeks; week += SeedWeekStep {
		weekDate := lmp.AddDate(0, 0, week*7)
		if weekDate.After(limit) {
			break
		}

		weightGain := 0.0
		if week > 12 {
			weightGain = float64(week-12) * 0.45
		}

		// physiologic anemia of pregnancy
		hbDrop := 0.0
		if week > 12 && week < 28 {
			hbDrop = 1.2
		} else if week >= 28 {
			hbDrop = 0.8
		}

		seeded = append(seeded, VitalsRecord{
			Date:   weekDate.Format(DateLayout),
			Week:   WeekLabel(week),
			Weight: RoundTo(BaselineWeightKg+weightGain, 1),
			Hb:     RoundTo(BaselineHbGdL-hbDrop, 1),
			BP:     BaselineBP,
		})
	}

	if len(seeded) == 0 {
		seeded = append(seeded, VitalsRecord{
			Date:   lmp.Format(DateLayout),
			Week:   WeekLabel(0),
			Weight: BaselineWeightKg,
			Hb:     BaselineHbGdL,
			BP:     BaselineBP,
		})
	}
	return seeded
}
