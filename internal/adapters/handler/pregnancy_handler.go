package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/IANDYI/maternity-service/internal/core/domain"
	"github.com/IANDYI/maternity-service/internal/core/ports"
	"github.com/rs/zerolog"
)

// PregnancyHandler handles the gestational clock endpoints
type PregnancyHandler struct {
	engineResolver
}

// NewPregnancyHandler creates a new pregnancy handler
func NewPregnancyHandler(engines ports.EngineProvider, logger zerolog.Logger) *PregnancyHandler {
	return &PregnancyHandler{engineResolver: newEngineResolver(engines, logger)}
}

// PregnancyResponse is the pregnancy summary plus the stored BMI
type PregnancyResponse struct {
	domain.PregnancySummary
	BMI float64 `json:"bmi,omitempty"`
}

// SetLMPRequest is the body of PUT /pregnancy/lmp
type SetLMPRequest struct {
	LMP string `json:"lmp"`
}

// SetBMIRequest is the body of POST /pregnancy/bmi
type SetBMIRequest struct {
	HeightCm float64 `json:"height_cm"`
	WeightKg float64 `json:"weight_kg"`
}

// DueDateResponse is the body of GET /pregnancy/due-date
type DueDateResponse struct {
	Week    int     `json:"week"`
	DueDate *string `json:"due_date"`
}

// GetPregnancy handles GET /pregnancy
func (h *PregnancyHandler) GetPregnancy(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	h.respond(w, scope, http.StatusOK, PregnancyResponse{
		PregnancySummary: engine.Gestation().Summary(),
		BMI:              engine.Gestation().BMI(),
	})
}

// SetLMP handles PUT /pregnancy/lmp
func (h *PregnancyHandler) SetLMP(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	var req SetLMPRequest
	if !h.decode(w, scope, &req) {
		return
	}
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	if _, err := engine.Gestation().SetLMP(r.Context(), req.LMP); err != nil {
		h.fail(w, scope, err)
		return
	}

	h.respond(w, scope, http.StatusOK, PregnancyResponse{
		PregnancySummary: engine.Gestation().Summary(),
		BMI:              engine.Gestation().BMI(),
	})
}

// GetDueDate handles GET /pregnancy/due-date?week=N
func (h *PregnancyHandler) GetDueDate(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	week, err := strconv.Atoi(r.URL.Query().Get("week"))
	if err != nil || week < 0 {
		h.writeError(w, scope, http.StatusBadRequest, errors.New("week must be a non-negative integer"))
		return
	}
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	resp := DueDateResponse{Week: week}
	if due := engine.Gestation().DueDateForWeek(week); due != nil {
		formatted := domain.FormatDate(*due)
		resp.DueDate = &formatted
	}
	h.respond(w, scope, http.StatusOK, resp)
}

// SetBMI handles POST /pregnancy/bmi
func (h *PregnancyHandler) SetBMI(w http.ResponseWriter, r *http.Request) {
	scope := h.begin(r)
	var req SetBMIRequest
	if !h.decode(w, scope, &req) {
		return
	}
	if req.HeightCm <= 0 || req.WeightKg <= 0 {
		h.writeError(w, scope, http.StatusBadRequest, errors.New("height_cm and weight_kg must be greater than 0"))
		return
	}
	engine, ok := h.engine(w, scope)
	if !ok {
		return
	}

	bmi, err := engine.Gestation().SetBMI(r.Context(), req.HeightCm, req.WeightKg)
	if err != nil {
		h.fail(w, scope, err)
		return
	}
	h.respond(w, scope, http.StatusOK, map[string]float64{"bmi": bmi})
}
