package handler

import (
	"net/http"
	"strconv"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/rs/zerolog"
)

// ContractionHandler handles the contraction timer endpoints
type ContractionHandler struct {
	engineResolver
}

// NewContractionHandler creates a new contraction timer handler
func NewContractionHandler(engines ports.EngineProvider, logger zerolog.Logger) *ContractionHandler {
	return &ContractionHandler{engineResolver: newEngineResolver(engines, logger)}
}

// ContractionStateResponse describes the timer after a start, stop or toggle
type ContractionStateResponse struct {
	Active      *domain.ActiveContraction `json:"active"`
	Record      *domain.ContractionRecord `json:"record,omitempty"`
	AlertActive bool                      `json:"alert_active"`
}

// ContractionHistoryResponse is the body of GET /contractions
type ContractionHistoryResponse struct {
	Active      *domain.ActiveContraction  `json:"active"`
	History     []domain.ContractionRecord `json:"history"`
	AlertActive bool                       `json:"alert_active"`
}

// StartContraction handles POST /contractions/start
func (h *ContractionHandler) StartContraction(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	if _, err := engine.Contractions().Start(r.Context()); err != nil {
		h.fail(w, scope, err)
		return
	}
	h.respond(w, scope, http.StatusOK, h.state(engine, nil))
}

// StopContraction handles POST /contractions/stop
func (h *ContractionHandler) StopContraction(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	record, err := engine.Contractions().Stop(r.Context())
	if err != nil {
		h.fail(w, scope, err)
		return
	}
	h.recorded(engine)
	h.respond(w, scope, http.StatusCreated, h.state(engine, &record))
}

// ToggleContraction handles POST /contractions/toggle
func (h *ContractionHandler) ToggleContraction(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	record, err := engine.Contractions().Toggle(r.Context())
	if err != nil {
		h.fail(w, scope, err)
		return
	}
	if record != nil {
		h.recorded(engine)
	}
	h.respond(w, scope, http.StatusOK, h.state(engine, record))
}

// ListContractions handles GET /contractions
func (h *ContractionHandler) ListContractions(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	timer := engine.Contractions()
	h.respond(w, scope, http.StatusOK, ContractionHistoryResponse{
		Active:      timer.Active(),
		History:     timer.History(),
		AlertActive: timer.IsAlertActive(),
	})
}

// ClearContractions handles DELETE /contractions?confirm=true
// Without confirmation the history is left untouched.
func (h *ContractionHandler) ClearContractions(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	if err := engine.Contractions().Clear(r.Context(), confirmed); err != nil {
		h.fail(w, scope, err)
		return
	}
	h.respond(w, scope, http.StatusOK, h.state(engine, nil))
}

func (h *ContractionHandler) state(engine ports.ClinicalEngine, record *domain.ContractionRecord) ContractionStateResponse {
	timer := engine.Contractions()
	return ContractionStateResponse{
		Active:      timer.Active(),
		Record:      record,
		AlertActive: timer.IsAlertActive(),
	}
}

func (h *ContractionHandler) recorded(engine ports.ClinicalEngine) {
	ContractionsRecorded.Inc()
	if engine.Contractions().IsAlertActive() {
		LaborAlertsRaised.Inc()
	}
}
