package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the persisted calendar date format (patient_lmp, vitals dates)
const DateLayout = "2006-01-02"

const (
	// TermWeeks is the upper clamp for the gestational week ("already at term")
	TermWeeks = 40
	// TermDays is the length of a term pregnancy counted from the LMP
	TermDays = TermWeeks * 7
)

// Trimester is the pregnancy trimester bucket (1, 2 or 3)
type Trimester int

const (
	FirstTrimester  Trimester = 1
	SecondTrimester Trimester = 2
	ThirdTrimester  Trimester = 3
)

// CalendarDate truncates t to its calendar day (in t's location) and returns midnight UTC
// of that day, so that day arithmetic never crosses DST boundaries.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate formats a calendar date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return CalendarDate(t).Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a YYYY-MM-DD date", ErrInvalidDate, value)
	}
	return t, nil
}

// ParseLMP parses an LMP date and rejects dates after today
func ParseLMP(value string, today time.Time) (time.Time, error) {
	lmp, err := ParseDate(value)
	if err != nil {
		return time.Time{}, err
	}
	if lmp.After(CalendarDate(today)) {
		return time.Time{}, fmt.Errorf("%w: LMP %s is in the future", ErrInvalidDate, lmp.Format(DateLayout))
	}
	return lmp, nil
}

// DaysBetween returns the number of whole calendar days from a to b (negative if b is before a)
func DaysBetween(a, b time.Time) int {
	return int(CalendarDate(b).Sub(CalendarDate(a)).Hours() / 24)
}

// GestationalWeek returns floor(days since LMP / 7), clamped to [0, TermWeeks].
// An evaluation date before the LMP yields 0.
func GestationalWeek(lmp, on time.Time) int {
	days := DaysBetween(lmp, on)
	if days < 0 {
		return 0
	}
	week := days / 7
	if week > TermWeeks {
		return TermWeeks
	}
	return week
}

// TrimesterOf classifies a gestational week: <13 first, <27 second, otherwise third
func TrimesterOf(week int) Trimester {
	switch {
	case week < 13:
		return FirstTrimester
	case week < 27:
		return SecondTrimester
	default:
		return ThirdTrimester
	}
}

// DueDateForWeek returns LMP + weekOffset*7 days
func DueDateForWeek(lmp time.Time, weekOffset int) time.Time {
	return CalendarDate(lmp).AddDate(0, 0, weekOffset*7)
}

// DaysToGo returns the days left until week 40, never negative
func DaysToGo(week int) int {
	left := TermDays - week*7
	if left < 0 {
		return 0
	}
	return left
}

// ProgressPercent returns how far the pregnancy is towards term, capped at 100
func ProgressPercent(week int) float64 {
	if week <= 0 {
		return 0
	}
	return math.Min(100, float64(week*7)/float64(TermDays)*100)
}

// CalculateBMI returns weight / height(m)^2 rounded to one decimal, or 0 for non-positive input
func CalculateBMI(heightCm, weightKg float64) float64 {
	if heightCm <= 0 || weightKg <= 0 {
		return 0
	}
	heightM := heightCm / 100
	return RoundTo(weightKg/(heightM*heightM), 1)
}

// PregnancySummary is the derived view of the gestational clock
type PregnancySummary struct {
	LMP              string    `json:"lmp,omitempty"`
	CurrentWeek      int       `json:"current_week"`
	Trimester        Trimester `json:"trimester"`
	DaysToGo         int       `json:"days_to_go"`
	ProgressPercent  float64   `json:"progress_percent"`
	EstimatedDueDate string    `json:"estimated_due_date,omitempty"`
}

// Summarize builds the pregnancy summary; an empty lmp yields week 0
func Summarize(lmp *time.Time, today time.Time) PregnancySummary {
	summary := PregnancySummary{}
	if lmp != nil {
		summary.LMP = FormatDate(*lmp)
		summary.CurrentWeek = GestationalWeek(*lmp, today)
		summary.EstimatedDueDate = FormatDate(DueDateForWeek(*lmp, TermWeeks))
	}
	summary.Trimester = TrimesterOf(summary.CurrentWeek)
	summary.DaysToGo = DaysToGo(summary.CurrentWeek)
	summary.ProgressPercent = RoundTo(ProgressPercent(summary.CurrentWeek), 1)
	return summary
}
