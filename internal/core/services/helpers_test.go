package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/services"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStorage = errors.New("storage unavailable")

// fakeClock is a manually advanced ports.Clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeAdapter is an in-memory ports.PersistenceAdapter with failure injection
type fakeAdapter struct {
	mu         sync.Mutex
	values     map[string]string
	getErr     error
	setErr     error
	failSetKey string
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{values: make(map[string]string)}
}

func (a *fakeAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.getErr != nil {
		return "", false, a.getErr
	}
	v, ok := a.values[key]
	return v, ok, nil
}

func (a *fakeAdapter) Set(ctx context.Context, key string, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.setErr != nil && (a.failSetKey == "" || a.failSetKey == key) {
		return a.setErr
	}
	a.values[key] = value
	return nil
}

func (a *fakeAdapter) value(key string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.values[key]
	return v, ok
}

func (a *fakeAdapter) put(key, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[key] = value
}

func (a *fakeAdapter) failSets(key string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failSetKey = key
	a.setErr = err
}

// MockLaborAlertPublisher is a mock implementation of ports.LaborAlertPublisher
type MockLaborAlertPublisher struct {
	mock.Mock
}

func (m *MockLaborAlertPublisher) PublishLaborAlert(ctx context.Context, alert domain.LaborAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

// morning is the default "now" in tests: 12 weeks after a 2024-01-01 LMP
var morning = time.Date(2024, 3, 25, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, adapter *fakeAdapter, clock *fakeClock) *services.Engine {
	t.Helper()
	engine, err := services.NewEngine(context.Background(), services.EngineConfig{
		PatientID: "patient-1",
		Store:     adapter,
		Clock:     clock,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	return engine
}
