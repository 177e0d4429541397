package handler

import (
	"net/http"

	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/rs/zerolog"
)

// HospitalBagHandler handles the hospital bag checklist endpoints
type HospitalBagHandler struct {
	engineResolver
}

// NewHospitalBagHandler creates a new hospital bag handler
func NewHospitalBagHandler(engines ports.EngineProvider, logger zerolog.Logger) *HospitalBagHandler {
	return &HospitalBagHandler{engineResolver: newEngineResolver(engines, logger)}
}

// ListItems handles GET /hospital-bag
func (h *HospitalBagHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}
	h.respond(w, scope, http.StatusOK, engine.HospitalBag().Items())
}

// ToggleItem handles POST /hospital-bag/{item_id}/toggle
func (h *HospitalBagHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	item, err := engine.HospitalBag().Toggle(r.Context(), r.PathValue("item_id"))
	if err != nil {
		h.fail(w, scope, err)
		return
	}
	h.respond(w, scope, http.StatusOK, item)
}
