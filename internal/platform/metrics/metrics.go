package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RegistrationsScored   *prometheus.CounterVec
	RequestsSubmitted     *prometheus.CounterVec
	AlertsGenerated       prometheus.Counter
	NotificationsDeduped  prometheus.Counter
	InventoryConsumptions *prometheus.CounterVec
	RequestLatency        *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsScored: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_registrations_scored_total",
			Help: "Registrations screened by the trust scorer, by resulting status",
		}, []string{"status"}),
		RequestsSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_blood_requests_total",
			Help: "Hospital blood requests submitted, by priority",
		}, []string{"priority"}),
		AlertsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_alerts_generated_total",
			Help: "Distinct shortage/expiry notifications created by the alert engine",
		}),
		NotificationsDeduped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_notifications_deduplicated_total",
			Help: "Notification creations suppressed by the dedup invariant",
		}),
		InventoryConsumptions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_inventory_units_consumed_total",
			Help: "Blood units consumed from the ledger, by blood group",
		}, []string{"blood_group"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bloodlink_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}
