package domain_test

import (
	"testing"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekLabels(t *testing.T) {
	assert.Equal(t, "W8", domain.WeekLabel(8))
	assert.Equal(t, 12, domain.WeekNumber("W12"))
	assert.Equal(t, 0, domain.WeekNumber("W0"))
	assert.Equal(t, -1, domain.WeekNumber("garbage"))
}

func TestVitalsTimeline_UpsertReplacesSameWeek(t *testing.T) {
	timeline := domain.NewVitalsTimeline(nil)

	timeline.Upsert(domain.VitalsRecord{Week: "W12", Weight: 55})
	timeline.Upsert(domain.VitalsRecord{Week: "W8", Weight: 53})
	timeline.Upsert(domain.VitalsRecord{Week: "W12", Weight: 56})

	records := timeline.All()
	require.Len(t, records, 2)
	assert.Equal(t, "W8", records[0].Week)
	assert.Equal(t, "W12", records[1].Week)
	assert.Equal(t, 56.0, records[1].Weight)
	assert.Equal(t, 56.0, timeline.Latest().Weight)
}

func TestVitalsTimeline_SortsNumerically(t *testing.T) {
	timeline := domain.NewVitalsTimeline([]domain.VitalsRecord{
		{Week: "W20"}, {Week: "W4"}, {Week: "W100"}, {Week: "W12"},
	})

	var weeks []string
	for _, r := range timeline.All() {
		weeks = append(weeks, r.Week)
	}
	assert.Equal(t, []string{"W4", "W12", "W20", "W100"}, weeks)
}

func TestVitalsTimeline_LatestEmpty(t *testing.T) {
	timeline := domain.NewVitalsTimeline(nil)
	assert.Equal(t, domain.VitalsRecord{}, timeline.Latest())
	assert.Equal(t, 0, timeline.Len())
}

func TestVitalsTimeline_AllReturnsCopy(t *testing.T) {
	timeline := domain.NewVitalsTimeline([]domain.VitalsRecord{{Week: "W8", Weight: 52}})
	records := timeline.All()
	records[0].Weight = 99

	assert.Equal(t, 52.0, timeline.Latest().Weight)
}

func TestSeedVitals_RecentLMP(t *testing.T) {
	seeded := domain.SeedVitals(date(t, "2024-01-01"), date(t, "2024-01-10"))

	require.Len(t, seeded, 1)
	assert.Equal(t, "W0", seeded[0].Week)
	assert.Equal(t, "2024-01-01", seeded[0].Date)
	assert.Equal(t, domain.BaselineWeightKg, seeded[0].Weight)
	assert.Equal(t, domain.BaselineHbGdL, seeded[0].Hb)
	assert.Equal(t, domain.BaselineBP, seeded[0].BP)
}

func TestSeedVitals_StopsAtLookahead(t *testing.T) {
	// limit is 2024-04-15; W16 falls on 2024-04-22
	seeded := domain.SeedVitals(date(t, "2024-01-01"), date(t, "2024-04-01"))

	require.Len(t, seeded, 2)
	assert.Equal(t, "W8", seeded[0].Week)
	assert.Equal(t, "2024-02-26", seeded[0].Date)
	assert.Equal(t, "W12", seeded[1].Week)
	assert.Equal(t, "2024-03-25", seeded[1].Date)
	assert.Equal(t, 52.0, seeded[1].Weight)
	assert.Equal(t, 12.5, seeded[1].Hb)
}

func TestSeedVitals_FullTerm(t *testing.T) {
	seeded := domain.SeedVitals(date(t, "2023-01-01"), date(t, "2024-01-01"))

	require.Len(t, seeded, 9)
	byWeek := map[string]domain.VitalsRecord{}
	for _, r := range seeded {
		byWeek[r.Week] = r
	}
	assert.Equal(t, 55.6, byWeek["W20"].Weight)
	assert.Equal(t, 11.3, byWeek["W20"].Hb)
	assert.Equal(t, 64.6, byWeek["W40"].Weight)
	assert.Equal(t, 11.7, byWeek["W40"].Hb)
}

func TestVitalsInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   domain.VitalsInput
		wantErr bool
	}{
		{"valid", domain.VitalsInput{Weight: 60, Hb: 11.2, BP: "120/80"}, false},
		{"zero weight", domain.VitalsInput{Weight: 0, Hb: 11.2, BP: "120/80"}, true},
		{"huge weight", domain.VitalsInput{Weight: 301, Hb: 11.2, BP: "120/80"}, true},
		{"zero hb", domain.VitalsInput{Weight: 60, Hb: 0, BP: "120/80"}, true},
		{"bad bp separator", domain.VitalsInput{Weight: 60, Hb: 11, BP: "120-80"}, true},
		{"non numeric bp", domain.VitalsInput{Weight: 60, Hb: 11, BP: "high/low"}, true},
		{"empty bp", domain.VitalsInput{Weight: 60, Hb: 11}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidVitals)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseBloodPressure(t *testing.T) {
	sys, dia, err := domain.ParseBloodPressure(" 118 / 76 ")
	require.NoError(t, err)
	assert.Equal(t, 118, sys)
	assert.Equal(t, 76, dia)
}
