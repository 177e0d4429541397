package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RegistrationRequest is a pregnancy registration sent by the identity service:
// { "user_id": "uuid-string", "lmp": "YYYY-MM-DD" }
type RegistrationRequest struct {
	UserID string `json:"user_id"`
	LMP    string `json:"lmp"`
}

// NewRegistrationHandler anchors a patient's gestational clock from registration messages.
// Invalid messages are rejected without requeue; storage failures are requeued for retry.
func NewRegistrationHandler(engines ports.EngineProvider, logger zerolog.Logger) MessageHandler {
	logger = logger.With().Str("component", "registration_consumer").Logger()

	return func(ctx context.Context, body []byte) DeliveryOutcome {
		var req RegistrationRequest
		if err := json.Unmarshal(body, &req); err != nil {
			logger.Error().Err(err).Msg("failed to unmarshal registration request")
			return Reject
		}

		if req.UserID == "" || req.LMP == "" {
			logger.Error().Str("user_id", req.UserID).Str("lmp", req.LMP).Msg("invalid registration request: user_id and lmp are required")
			return Reject
		}
		if _, err := uuid.Parse(req.UserID); err != nil {
			logger.Error().Err(err).Str("user_id", req.UserID).Msg("invalid registration request: user_id is not a valid UUID")
			return Reject
		}

		engine, err := engines.Engine(ctx, req.UserID)
		if err != nil {
			logger.Error().Err(err).Str("user_id", req.UserID).Msg("failed to load patient engine")
			return Requeue
		}

		week, err := engine.Gestation().SetLMP(ctx, req.LMP)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidDate) {
				logger.Error().Err(err).Str("user_id", req.UserID).Msg("invalid registration request: bad lmp")
				return Reject
			}
			logger.Error().Err(err).Str("user_id", req.UserID).Msg("failed to store lmp")
			return Requeue
		}

		logger.Info().Str("user_id", req.UserID).Str("lmp", req.LMP).Int("current_week", week).Msg("pregnancy registered")
		return Ack
	}
}
