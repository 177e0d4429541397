package handler

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Alert consumer metrics
var (
	AlertsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labor_alerts_consumed_total",
			Help: "Total number of labor alerts consumed from RabbitMQ",
		},
		[]string{"status"},
	)

	AlertsBroadcastTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labor_alerts_broadcast_total",
			Help: "Total number of labor alerts broadcasted via WebSocket",
		},
		[]string{"recipients"},
	)

	WebSocketConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of WebSocket connections",
		},
		[]string{"role"},
	)

	RabbitMQConsumeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rabbitmq_consume_duration_seconds",
			Help:    "Duration of RabbitMQ message consumption",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"status"},
	)
)

// Engine metrics recorded by the API
var (
	KickSessionsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kick_sessions_completed_total",
			Help: "Total number of finished kick-counting sessions",
		},
	)

	ContractionsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contractions_recorded_total",
			Help: "Total number of completed contractions",
		},
	)

	LaborAlertsRaised = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "labor_alerts_raised_total",
			Help: "Total number of contractions that left the imminent-labor alert active",
		},
	)

	VitalsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vitals_recorded_total",
			Help: "Total number of vitals observations recorded",
		},
	)
)

// RegisterAlertConsumerMetrics registers all alert-consumer metrics
func RegisterAlertConsumerMetrics() {
	prometheus.MustRegister(AlertsConsumedTotal)
	prometheus.MustRegister(AlertsBroadcastTotal)
	prometheus.MustRegister(WebSocketConnections)
	prometheus.MustRegister(RabbitMQConsumeDuration)
}

// RegisterEngineMetrics registers the API's engine metrics
func RegisterEngineMetrics() {
	prometheus.MustRegister(KickSessionsCompleted)
	prometheus.MustRegister(ContractionsRecorded)
	prometheus.MustRegister(LaborAlertsRaised)
	prometheus.MustRegister(VitalsRecorded)
}
