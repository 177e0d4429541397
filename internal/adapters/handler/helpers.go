package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/IANDYI/maternity-service/internal/adapters/middleware"
	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies; every payload here is a handful of fields
const maxBodyBytes = 1 << 16

// generateRequestID generates a unique request ID for tracing
func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format(time.RFC3339Nano)))
	}
	return hex.EncodeToString(b)
}

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

// requestScope carries per-request metadata for logging and authorization
type requestScope struct {
	id        string
	start     time.Time
	r         *http.Request
	userID    string
	role      string
	patientID string
}

// engineResolver resolves the patient a request acts on and loads its engine.
// Patients act on themselves; health workers name the patient with ?patient_id=.
type engineResolver struct {
	engines ports.EngineProvider
	logger  zerolog.Logger
}

func newEngineResolver(engines ports.EngineProvider, logger zerolog.Logger) engineResolver {
	return engineResolver{
		engines: engines,
		logger:  logger.With().Str("component", "http").Logger(),
	}
}

func (h engineResolver) begin(r *http.Request) *requestScope {
	scope := &requestScope{
		id:    generateRequestID(),
		start: time.Now(),
		r:     r,
	}
	scope.userID, _ = middleware.GetUserID(r.Context())
	scope.role, _ = middleware.GetRole(r.Context())
	return scope
}

// resolvePatient returns the patient id the caller is allowed to act on
func resolvePatient(scope *requestScope) (string, int, error) {
	if scope.userID == "" {
		return "", http.StatusUnauthorized, errors.New("unauthorized")
	}

	requested := scope.r.URL.Query().Get("patient_id")
	switch scope.role {
	case middleware.RoleHealthWorker:
		if requested == "" {
			return "", http.StatusBadRequest, errors.New("patient_id query parameter is required")
		}
		if _, err := uuid.Parse(requested); err != nil {
			return "", http.StatusBadRequest, errors.New("invalid patient_id: must be a UUID")
		}
		return requested, 0, nil
	case middleware.RolePatient:
		if requested != "" && requested != scope.userID {
			return "", http.StatusForbidden, errors.New("forbidden: patients can only access their own records")
		}
		return scope.userID, 0, nil
	default:
		return "", http.StatusForbidden, fmt.Errorf("forbidden: unsupported role %q", scope.role)
	}
}

// engine loads the engine for the resolved patient, writing the error response on failure
func (h engineResolver) engine(w http.ResponseWriter, scope *requestScope) (ports.ClinicalEngine, bool) {
	patientID, status, err := resolvePatient(scope)
	if err != nil {
		h.writeError(w, scope, status, err)
		return nil, false
	}
	scope.patientID = patientID

	engine, err := h.engines.Engine(scope.r.Context(), patientID)
	if err != nil {
		h.fail(w, scope, err)
		return nil, false
	}
	return engine, true
}

// decode reads a JSON request body into target
func (h engineResolver) decode(w http.ResponseWriter, scope *requestScope, target any) bool {
	scope.r.Body = http.MaxBytesReader(w, scope.r.Body, maxBodyBytes)
	if err := json.NewDecoder(scope.r.Body).Decode(target); err != nil {
		h.writeError(w, scope, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// statusFor maps engine errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidDate), errors.Is(err, domain.ErrInvalidVitals):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownMilestone), errors.Is(err, domain.ErrUnknownBagItem):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoActiveSession):
		return http.StatusConflict
	case errors.Is(err, domain.ErrClearNotConfirmed):
		return http.StatusPreconditionRequired
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error response for an engine error
func (h engineResolver) fail(w http.ResponseWriter, scope *requestScope, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		// storage details stay in the log
		h.logger.Error().Err(err).Str("request_id", scope.id).Str("patient_id", scope.patientID).Msg("request failed")
		h.writeError(w, scope, status, errors.New("internal server error"))
		return
	}
	h.writeError(w, scope, status, err)
}

func (h engineResolver) writeError(w http.ResponseWriter, scope *requestScope, status int, err error) {
	h.respond(w, scope, status, ErrorResponse{Error: err.Error(), RequestID: scope.id})
}

// respond writes a JSON body and logs the request
func (h engineResolver) respond(w http.ResponseWriter, scope *requestScope, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", scope.id)
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			h.logger.Error().Err(err).Str("request_id", scope.id).Msg("failed to encode response")
		}
	}
	h.logRequest(scope, status)
}

// logRequest logs request metadata: request_id, user_id, role, endpoint, status_code, duration
func (h engineResolver) logRequest(scope *requestScope, statusCode int) {
	event := h.logger.Info()
	if statusCode >= http.StatusInternalServerError {
		event = h.logger.Error()
	} else if statusCode >= http.StatusBadRequest {
		event = h.logger.Warn()
	}
	event.
		Str("request_id", scope.id).
		Str("user_id", scope.userID).
		Str("role", scope.role).
		Str("patient_id", scope.patientID).
		Str("method", scope.r.Method).
		Str("endpoint", scope.r.URL.Path).
		Int("status_code", statusCode).
		Int64("duration_ms", time.Since(scope.start).Milliseconds()).
		Msg("request handled")
}
