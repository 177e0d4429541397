package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGestationalClock_NoLMP(t *testing.T) {
	clock := newTestEngine(t, newFakeAdapter(), newFakeClock(morning)).Gestation()

	assert.Nil(t, clock.LMP())
	assert.Equal(t, 0, clock.CurrentWeek())
	assert.Nil(t, clock.DueDateForWeek(40))

	summary := clock.Summary()
	assert.Empty(t, summary.LMP)
	assert.Equal(t, 0, summary.CurrentWeek)
	assert.Equal(t, domain.FirstTrimester, summary.Trimester)
	assert.Equal(t, 280, summary.DaysToGo)
}

func TestGestationalClock_SetLMP(t *testing.T) {
	ctx := context.Background()
	adapter := newFakeAdapter()
	engine := newTestEngine(t, adapter, newFakeClock(morning))
	clock := engine.Gestation()

	week, err := clock.SetLMP(ctx, "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, 12, week)
	assert.Equal(t, 12, clock.CurrentWeek())

	raw, ok := adapter.value(ports.KeyPatientLMP)
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", raw)

	due := clock.DueDateForWeek(40)
	require.NotNil(t, due)
	assert.Equal(t, "2024-10-07", due.Format(domain.DateLayout))
	assert.Equal(t, 20, clock.WeekOn(time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)))

	labels := make([]string, 0)
	for _, r := range engine.Vitals().All() {
		labels = append(labels, r.Week)
	}
	assert.Equal(t, []string{"W8", "W12"}, labels)
}

func TestGestationalClock_SetLMPRejectsInvalidDates(t *testing.T) {
	tests := []struct {
		name string
		date string
	}{
		{name: "future date", date: "2024-03-26"},
		{name: "not a date", date: "next tuesday"},
		{name: "wrong layout", date: "01/01/2024"},
		{name: "empty", date: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newFakeAdapter()
			clock := newTestEngine(t, adapter, newFakeClock(morning)).Gestation()

			_, err := clock.SetLMP(context.Background(), tt.date)
			assert.ErrorIs(t, err, domain.ErrInvalidDate)
			assert.Nil(t, clock.LMP())
			_, written := adapter.value(ports.KeyPatientLMP)
			assert.False(t, written)
		})
	}
}

func TestGestationalClock_SetLMPTodayIsWeekZero(t *testing.T) {
	clock := newTestEngine(t, newFakeAdapter(), newFakeClock(morning)).Gestation()

	week, err := clock.SetLMP(context.Background(), "2024-03-25")
	require.NoError(t, err)
	assert.Equal(t, 0, week)
}

func TestGestationalClock_WeekAdvancesWithTheClock(t *testing.T) {
	fake := newFakeClock(morning)
	clock := newTestEngine(t, newFakeAdapter(), fake).Gestation()

	_, err := clock.SetLMP(context.Background(), "2024-01-01")
	require.NoError(t, err)

	fake.Advance(7 * 24 * time.Hour)
	assert.Equal(t, 13, clock.CurrentWeek())
	assert.Equal(t, domain.SecondTrimester, clock.Summary().Trimester)

	fake.Advance(365 * 24 * time.Hour)
	assert.Equal(t, 40, clock.CurrentWeek())
	assert.Equal(t, 0, clock.Summary().DaysToGo)
}

func TestGestationalClock_LoadsQuotedLMP(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.put(ports.KeyPatientLMP, `"2024-01-01"`)

	clock := newTestEngine(t, adapter, newFakeClock(morning)).Gestation()
	require.NotNil(t, clock.LMP())
	assert.Equal(t, 12, clock.CurrentWeek())
}

func TestGestationalClock_IgnoresCorruptLMP(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.put(ports.KeyPatientLMP, "garbage")

	clock := newTestEngine(t, adapter, newFakeClock(morning)).Gestation()
	assert.Nil(t, clock.LMP())
	assert.Equal(t, 0, clock.CurrentWeek())
}

func TestGestationalClock_SetBMI(t *testing.T) {
	ctx := context.Background()
	adapter := newFakeAdapter()
	clock := newTestEngine(t, adapter, newFakeClock(morning)).Gestation()

	bmi, err := clock.SetBMI(ctx, 160, 64)
	require.NoError(t, err)
	assert.Equal(t, 25.0, bmi)

	raw, ok := adapter.value(ports.KeyBMI)
	require.True(t, ok)
	assert.Equal(t, "25", raw)

	bmi, err = clock.SetBMI(ctx, 0, 70)
	require.NoError(t, err)
	assert.Equal(t, 25.0, bmi)
	assert.Equal(t, 25.0, clock.BMI())

	reloaded := newTestEngine(t, adapter, newFakeClock(morning)).Gestation()
	assert.Equal(t, 25.0, reloaded.BMI())
}

func TestGestationalClock_FailedSetLMPKeepsPreviousState(t *testing.T) {
	tests := []struct {
		name    string
		failKey string
	}{
		{name: "clearing observations fails", failKey: ports.KeyVitalsTimeline},
		{name: "storing the lmp fails", failKey: ports.KeyPatientLMP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adapter := newFakeAdapter()
			clock := newFakeClock(morning)
			engine := newTestEngine(t, adapter, clock)

			_, err := engine.Gestation().SetLMP(ctx, "2024-01-01")
			require.NoError(t, err)
			_, err = engine.Vitals().Add(ctx, domain.VitalsInput{Weight: 58, Hb: 12, BP: "120/80"})
			require.NoError(t, err)
			before := engine.Vitals().All()

			adapter.failSets(tt.failKey, errStorage)
			_, err = engine.Gestation().SetLMP(ctx, "2024-02-01")
			assert.ErrorIs(t, err, errStorage)
			assert.Equal(t, 12, engine.Gestation().CurrentWeek())
			assert.Equal(t, before, engine.Vitals().All())

			adapter.failSets("", nil)
			reloaded := newTestEngine(t, adapter, clock)
			assert.Equal(t, "2024-01-01", domain.FormatDate(*reloaded.Gestation().LMP()))
			assert.Equal(t, before, reloaded.Vitals().All())
		})
	}
}
