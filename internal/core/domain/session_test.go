package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKickDurationMinutes(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, domain.KickDurationMinutes(start, start))
	assert.Equal(t, 1, domain.KickDurationMinutes(start, start.Add(40*time.Second)))
	assert.Equal(t, 2, domain.KickDurationMinutes(start, start.Add(90*time.Second)))
	assert.Equal(t, 30, domain.KickDurationMinutes(start, start.Add(30*time.Minute)))
	assert.Equal(t, 1, domain.KickDurationMinutes(start, start.Add(-time.Minute)), "clock skew clamps")
}

func TestContractionDurationSec(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, 45, domain.ContractionDurationSec(start, start.Add(45*time.Second)))
	assert.Equal(t, 45, domain.ContractionDurationSec(start, start.Add(44500*time.Millisecond)))
	assert.Equal(t, 0, domain.ContractionDurationSec(start, start.Add(-time.Second)))
}

func TestContractionFrequencyMin(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	history := []domain.ContractionRecord{{StartTime: domain.MillisOf(t0)}}

	assert.Equal(t, 0, domain.ContractionFrequencyMin(t0, nil))
	assert.Equal(t, 4, domain.ContractionFrequencyMin(t0.Add(4*time.Minute), history))
	assert.Equal(t, 4, domain.ContractionFrequencyMin(t0.Add(4*time.Minute+29*time.Second), history))
	assert.Equal(t, 5, domain.ContractionFrequencyMin(t0.Add(4*time.Minute+30*time.Second), history))
}

func TestIsImminentLabor(t *testing.T) {
	tests := []struct {
		name    string
		history []domain.ContractionRecord
		want    bool
	}{
		{"empty", nil, false},
		{"single record", []domain.ContractionRecord{{FrequencyMin: 3}}, false},
		{"four minutes apart", []domain.ContractionRecord{{FrequencyMin: 4}, {FrequencyMin: 0}}, true},
		{"five minutes apart", []domain.ContractionRecord{{FrequencyMin: 5}, {FrequencyMin: 0}}, true},
		{"six minutes apart", []domain.ContractionRecord{{FrequencyMin: 6}, {FrequencyMin: 0}}, false},
		{"no frequency", []domain.ContractionRecord{{FrequencyMin: 0}, {FrequencyMin: 4}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.IsImminentLabor(tt.history))
		})
	}
}

func TestContractionRecord_JSONUsesEpochMillis(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	record := domain.ContractionRecord{
		ID:           "c1",
		StartTime:    domain.MillisOf(start),
		EndTime:      domain.MillisOf(start.Add(50 * time.Second)),
		DurationSec:  50,
		FrequencyMin: 4,
	}

	body, err := json.Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"c1","startTime":1714554000000,"endTime":1714554050000,"durationSec":50,"frequencyMin":4}`, string(body))
	assert.True(t, start.Equal(record.StartTime.Time()))
}

func TestKickRecord_JSONFieldNames(t *testing.T) {
	record := domain.KickRecord{
		ID:        "k1",
		Date:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Count:     12,
		Duration:  1,
		StartTime: "09:00",
	}

	body, err := json.Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"k1","date":"2024-05-01T09:00:00Z","count":12,"duration":1,"startTime":"09:00"}`, string(body))
}

func TestNewLaborAlert(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 10, 0, 0, time.UTC)
	history := []domain.ContractionRecord{{ID: "latest", FrequencyMin: 4}, {ID: "first"}}

	alert := domain.NewLaborAlert("patient-1", history, 38, at)

	assert.Equal(t, "patient-1", alert.PatientID)
	assert.Equal(t, "latest", alert.Contraction.ID)
	assert.Equal(t, 2, alert.ContractionCount)
	assert.Equal(t, 38, alert.GestationalWeek)
	assert.Equal(t, "imminent_labor", alert.AlertType)
	assert.Equal(t, domain.LaborAlertSeverity, alert.Severity)
}
