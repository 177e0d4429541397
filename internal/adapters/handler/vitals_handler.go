package handler

import (
	"net/http"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/rs/zerolog"
)

// VitalsHandler handles the vitals timeline endpoints
type VitalsHandler struct {
	engineResolver
}

// NewVitalsHandler creates a new vitals handler
func NewVitalsHandler(engines ports.EngineProvider, logger zerolog.Logger) *VitalsHandler {
	return &VitalsHandler{engineResolver: newEngineResolver(engines, logger)}
}

// ListVitals handles GET /vitals
func (h *VitalsHandler) ListVitals(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}
	h.respond(w, scope, http.StatusOK, engine.Vitals().All())
}

// LatestVitals handles GET /vitals/latest
func (h *VitalsHandler) LatestVitals(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}
	h.respond(w, scope, http.StatusOK, engine.Vitals().Latest())
}

// CreateVitals handles POST /vitals
// Records are tagged with the current week; a second entry in the same week replaces the first.
func (h *VitalsHandler) CreateVitals(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	var req domain.VitalsInput
	if !h.decode(w, scope, &req) {
		return
	}
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	record, err := engine.Vitals().Add(r.Context(), req)
	if err != nil {
		h.fail(w, scope, err)
		return
	}
	VitalsRecorded.Inc()
	h.respond(w, scope, http.StatusCreated, record)
}
