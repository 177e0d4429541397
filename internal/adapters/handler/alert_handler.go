package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IANDYI/maternity-service/internal/adapters/repository"
	"github.com/IANDYI/maternity-service/internal/adapters/websocket"
	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/rs/zerolog"
)

// AlertMessage is the websocket frame pushed to connected clients
type AlertMessage struct {
	Type  string            `json:"type"`
	Alert domain.LaborAlert `json:"alert"`
}

// NewLaborAlertHandler returns a queue handler that fans labor alerts out over the hub.
// Health workers receive every alert and the patient receives their own.
// Alerts with no connected recipient are still acknowledged.
func NewLaborAlertHandler(hub *websocket.Hub, logger zerolog.Logger) repository.MessageHandler {
	logger = logger.With().Str("component", "alert_consumer").Logger()

	return func(ctx context.Context, body []byte) repository.DeliveryOutcome {
		start := time.Now()

		var alert domain.LaborAlert
		if err := json.Unmarshal(body, &alert); err != nil {
			logger.Error().Err(err).Msg("failed to unmarshal labor alert")
			AlertsConsumedTotal.WithLabelValues("invalid").Inc()
			RabbitMQConsumeDuration.WithLabelValues("invalid").Observe(time.Since(start).Seconds())
			return repository.Reject
		}
		if alert.PatientID == "" {
			logger.Error().Msg("labor alert is missing patient_id")
			AlertsConsumedTotal.WithLabelValues("invalid").Inc()
			RabbitMQConsumeDuration.WithLabelValues("invalid").Observe(time.Since(start).Seconds())
			return repository.Reject
		}

		frame, err := json.Marshal(AlertMessage{Type: alert.AlertType, Alert: alert})
		if err != nil {
			logger.Error().Err(err).Str("patient_id", alert.PatientID).Msg("failed to encode alert frame")
			AlertsConsumedTotal.WithLabelValues("error").Inc()
			return repository.Requeue
		}

		workers := hub.BroadcastToHealthWorkers(frame)
		hub.SendToUser(alert.PatientID, frame)

		recipients := "some"
		if workers == 0 {
			recipients = "none"
		}
		AlertsBroadcastTotal.WithLabelValues(recipients).Inc()
		AlertsConsumedTotal.WithLabelValues("success").Inc()
		RabbitMQConsumeDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

		logger.Info().
			Str("patient_id", alert.PatientID).
			Int("gestational_week", alert.GestationalWeek).
			Int("health_workers", workers).
			Msg("labor alert broadcast")
		return repository.Ack
	}
}
