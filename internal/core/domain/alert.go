package domain

import "time"

// LaborAlertSeverity is fixed: an imminent-labor alert always needs attention
const LaborAlertSeverity = "critical"

// LaborAlert is raised when contraction frequency signals imminent labor
type LaborAlert struct {
	PatientID        string            `json:"patient_id"`
	Contraction      ContractionRecord `json:"contraction"`
	ContractionCount int               `json:"contraction_count"`
	GestationalWeek  int               `json:"gestational_week"`
	RaisedAt         time.Time         `json:"raised_at"`
	AlertType        string            `json:"alert_type"`
	Severity         string            `json:"severity"`
}

// NewLaborAlert builds an alert from the most-recent-first contraction history
func NewLaborAlert(patientID string, history []ContractionRecord, week int, at time.Time) LaborAlert {
	alert := LaborAlert{
		PatientID:        patientID,
		ContractionCount: len(history),
		GestationalWeek:  week,
		RaisedAt:         at,
		AlertType:        "imminent_labor",
		Severity:         LaborAlertSeverity,
	}
	if len(history) > 0 {
		alert.Contraction = history[0]
	}
	return alert
}
