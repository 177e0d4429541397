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

func TestKickSession_CountsTapsAndRecordsSession(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(morning)
	engine := newTestEngine(t, newFakeAdapter(), clock)
	kicks := engine.Kicks()

	status, err := kicks.Start(ctx)
	require.NoError(t, err)
	assert.True(t, status.Active())
	assert.Equal(t, 0, status.Count)

	for i := 0; i < 12; i++ {
		_, err := kicks.Tap(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 12, kicks.Status().Count)

	clock.Advance(40 * time.Second)
	record, err := kicks.Finish(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Equal(t, 12, record.Count)
	assert.Equal(t, 1, record.Duration)
	assert.Equal(t, "09:00", record.StartTime)
	assert.Equal(t, domain.KickSessionIdle, kicks.Status().State)

	history := kicks.History()
	require.Len(t, history, 1)
	assert.Equal(t, record.ID, history[0].ID)
}

func TestKickSession_HistoryIsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(morning)
	kicks := newTestEngine(t, newFakeAdapter(), clock).Kicks()

	for _, taps := range []int{3, 7} {
		_, err := kicks.Start(ctx)
		require.NoError(t, err)
		for i := 0; i < taps; i++ {
			_, err := kicks.Tap(ctx)
			require.NoError(t, err)
		}
		clock.Advance(10 * time.Minute)
		_, err = kicks.Finish(ctx)
		require.NoError(t, err)
	}

	history := kicks.History()
	require.Len(t, history, 2)
	assert.Equal(t, 7, history[0].Count)
	assert.Equal(t, 3, history[1].Count)
	assert.Equal(t, 10, history[0].Duration)
}

func TestKickSession_TapAndFinishWhileIdle(t *testing.T) {
	ctx := context.Background()
	adapter := newFakeAdapter()
	kicks := newTestEngine(t, adapter, newFakeClock(morning)).Kicks()

	_, err := kicks.Tap(ctx)
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)

	_, err = kicks.Finish(ctx)
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)

	assert.Empty(t, kicks.History())
	_, written := adapter.value(ports.KeyKickHistory)
	assert.False(t, written)
}

func TestKickSession_StartWhileCountingRestarts(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(morning)
	kicks := newTestEngine(t, newFakeAdapter(), clock).Kicks()

	_, err := kicks.Start(ctx)
	require.NoError(t, err)
	_, err = kicks.Tap(ctx)
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	status, err := kicks.Start(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, status.Count)
	assert.True(t, status.StartedAt.Equal(morning.Add(5*time.Minute)))
	assert.Empty(t, kicks.History())
}

func TestKickSession_FailedWriteLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	adapter := newFakeAdapter()
	kicks := newTestEngine(t, adapter, newFakeClock(morning)).Kicks()

	_, err := kicks.Start(ctx)
	require.NoError(t, err)

	adapter.failSets(ports.KeyKickSession, errStorage)
	_, err = kicks.Tap(ctx)
	assert.ErrorIs(t, err, errStorage)
	assert.Equal(t, 0, kicks.Status().Count)
}

func TestKickSession_FailedFinishKeepsSessionOpen(t *testing.T) {
	tests := []struct {
		name    string
		failKey string
	}{
		{name: "closing the session fails", failKey: ports.KeyKickSession},
		{name: "storing the record fails", failKey: ports.KeyKickHistory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adapter := newFakeAdapter()
			clock := newFakeClock(morning)
			kicks := newTestEngine(t, adapter, clock).Kicks()

			_, err := kicks.Start(ctx)
			require.NoError(t, err)
			_, err = kicks.Tap(ctx)
			require.NoError(t, err)
			clock.Advance(3 * time.Minute)

			adapter.failSets(tt.failKey, errStorage)
			_, err = kicks.Finish(ctx)
			assert.ErrorIs(t, err, errStorage)
			assert.True(t, kicks.Status().Active())
			assert.Empty(t, kicks.History())

			// storage still holds the open session
			reloaded := newTestEngine(t, adapter, clock).Kicks()
			assert.True(t, reloaded.Status().Active())
			assert.Equal(t, 1, reloaded.Status().Count)
			assert.Empty(t, reloaded.History())

			adapter.failSets("", nil)
			record, err := kicks.Finish(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, record.Count)
			assert.Len(t, kicks.History(), 1)
			assert.Len(t, newTestEngine(t, adapter, clock).Kicks().History(), 1)
		})
	}
}

func TestKickSession_OpenSessionSurvivesReload(t *testing.T) {
	ctx := context.Background()
	adapter := newFakeAdapter()
	clock := newFakeClock(morning)

	first := newTestEngine(t, adapter, clock).Kicks()
	_, err := first.Start(ctx)
	require.NoError(t, err)
	_, err = first.Tap(ctx)
	require.NoError(t, err)

	second := newTestEngine(t, adapter, clock).Kicks()
	assert.True(t, second.Status().Active())
	assert.Equal(t, 1, second.Status().Count)

	_, err = second.Tap(ctx)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	record, err := second.Finish(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, record.Count)
	assert.Equal(t, 2, record.Duration)
}
