package handler

import (
	"net/http"

	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/rs/zerolog"
)

// MilestoneHandler handles the antenatal checklist endpoints
type MilestoneHandler struct {
	engineResolver
}

// NewMilestoneHandler creates a new milestone handler
func NewMilestoneHandler(engines ports.EngineProvider, logger zerolog.Logger) *MilestoneHandler {
	return &MilestoneHandler{engineResolver: newEngineResolver(engines, logger)}
}

// ListMilestones handles GET /milestones
func (h *MilestoneHandler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}
	h.respond(w, scope, http.StatusOK, engine.Milestones().List())
}

// ToggleMilestone handles POST /milestones/{milestone_id}/toggle
func (h *MilestoneHandler) ToggleMilestone(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	milestone, err := engine.Milestones().Toggle(r.Context(), r.PathValue("milestone_id"))
	if err != nil {
		h.fail(w, scope, err)
		return
	}
	h.respond(w, scope, http.StatusOK, milestone)
}
