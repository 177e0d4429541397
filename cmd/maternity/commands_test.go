package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliClock struct {
	now time.Time
}

func (c *cliClock) Now() time.Time { return c.now }

type cliHarness struct {
	dbPath string
	clock  *cliClock
}

func newCLIHarness(t *testing.T) *cliHarness {
	return &cliHarness{
		dbPath: filepath.Join(t.TempDir(), "maternity.db"),
		clock:  &cliClock{now: time.Date(2024, 3, 25, 9, 0, 0, 0, time.UTC)},
	}
}

// run executes one CLI invocation against the harness database
func (h *cliHarness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out, h.clock)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", h.dbPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (h *cliHarness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err, "maternity %v", args)
	return out
}

func TestCLI_LMPAndStatus(t *testing.T) {
	h := newCLIHarness(t)

	var summary domain.PregnancySummary
	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "lmp", "2024-01-01")), &summary))
	assert.Equal(t, 12, summary.CurrentWeek)
	assert.Equal(t, "2024-10-07", summary.EstimatedDueDate)

	var status struct {
		Pregnancy  domain.PregnancySummary `json:"pregnancy"`
		LaborAlert bool                    `json:"labor_alert"`
	}
	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "status")), &status))
	assert.Equal(t, "2024-01-01", status.Pregnancy.LMP)
	assert.False(t, status.LaborAlert)

	_, err := h.run(t, "lmp", "2024-12-01")
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestCLI_KickSessionAcrossInvocations(t *testing.T) {
	h := newCLIHarness(t)

	_, err := h.run(t, "kick", "tap")
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)

	h.mustRun(t, "kick", "start")
	h.mustRun(t, "kick", "tap")
	h.mustRun(t, "kick", "tap")
	h.clock.now = h.clock.now.Add(3 * time.Minute)

	var record domain.KickRecord
	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "kick", "finish")), &record))
	assert.Equal(t, 2, record.Count)
	assert.Equal(t, 3, record.Duration)

	var history []domain.KickRecord
	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "kick", "history")), &history))
	require.Len(t, history, 1)
	assert.Equal(t, record.ID, history[0].ID)
}

func TestCLI_Contractions(t *testing.T) {
	h := newCLIHarness(t)

	h.mustRun(t, "contraction", "toggle")
	h.clock.now = h.clock.now.Add(40 * time.Second)
	h.mustRun(t, "contraction", "toggle")
	h.clock.now = h.clock.now.Add(2*time.Minute + 20*time.Second)
	h.mustRun(t, "contractions", "start")
	h.clock.now = h.clock.now.Add(45 * time.Second)

	var result struct {
		Record      domain.ContractionRecord   `json:"record"`
		History     []domain.ContractionRecord `json:"history"`
		AlertActive bool                       `json:"alert_active"`
	}
	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "contraction", "stop")), &result))
	assert.Equal(t, 45, result.Record.DurationSec)
	assert.Equal(t, 3, result.Record.FrequencyMin)
	assert.Len(t, result.History, 2)
	assert.True(t, result.AlertActive)

	_, err := h.run(t, "contraction", "clear")
	assert.ErrorIs(t, err, domain.ErrClearNotConfirmed)

	out := h.mustRun(t, "contraction", "clear", "--yes")
	assert.JSONEq(t, `[]`, out)
}

func TestCLI_VitalsAndChecklists(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun(t, "lmp", "2024-01-01")

	var record domain.VitalsRecord
	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "vitals", "add", "--weight", "57.5", "--hb", "11.8", "--bp", "115/75")), &record))
	assert.Equal(t, "W12", record.Week)

	_, err := h.run(t, "vitals", "add", "--weight", "57.5", "--hb", "11.8", "--bp", "bad")
	assert.ErrorIs(t, err, domain.ErrInvalidVitals)

	var milestone domain.Milestone
	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "milestones", "toggle", "anc1")), &milestone))
	assert.True(t, milestone.Completed)

	var item domain.BagItem
	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "bag", "toggle", "mcp")), &item))
	assert.True(t, item.Checked)

	_, err = h.run(t, "bag", "toggle", "surfboard")
	assert.ErrorIs(t, err, domain.ErrUnknownBagItem)

	var bmi map[string]float64
	require.NoError(t, json.Unmarshal([]byte(h.mustRun(t, "bmi", "160", "64")), &bmi))
	assert.Equal(t, 25.0, bmi["bmi"])

	_, err = h.run(t, "bmi", "tall", "64")
	assert.Error(t, err)
}

func TestCLI_PatientsAreSeparate(t *testing.T) {
	h := newCLIHarness(t)
	h.mustRun(t, "--patient", "alice", "kick", "start")

	_, err := h.run(t, "--patient", "bob", "kick", "tap")
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
}
