package handler

import (
	"net/http"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/rs/zerolog"
)

// KickHandler handles the kick counter endpoints
type KickHandler struct {
	engineResolver
}

// NewKickHandler creates a new kick counter handler
func NewKickHandler(engines ports.EngineProvider, logger zerolog.Logger) *KickHandler {
	return &KickHandler{engineResolver: newEngineResolver(engines, logger)}
}

// StartSession handles POST /kicks/start
func (h *KickHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	status, err := engine.Kicks().Start(r.Context())
	if err != nil {
		h.fail(w, scope, err)
		return
	}
	h.respond(w, scope, http.StatusOK, status)
}

// Tap handles POST /kicks/tap
func (h *KickHandler) Tap(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	status, err := engine.Kicks().Tap(r.Context())
	if err != nil {
		h.fail(w, scope, err)
		return
	}
	h.respond(w, scope, http.StatusOK, status)
}

// FinishSession handles POST /kicks/finish
func (h *KickHandler) FinishSession(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	record, err := engine.Kicks().Finish(r.Context())
	if err != nil {
		h.fail(w, scope, err)
		return
	}
	KickSessionsCompleted.Inc()
	h.respond(w, scope, http.StatusCreated, record)
}

// KickHistoryResponse is the body of GET /kicks
type KickHistoryResponse struct {
	Session domain.KickSessionStatus `json:"session"`
	History []domain.KickRecord      `json:"history"`
}

// History handles GET /kicks
func (h *KickHandler) History(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	h.respond(w, scope, http.StatusOK, KickHistoryResponse{
		Session: engine.Kicks().Status(),
		History: engine.Kicks().History(),
	})
}
