package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for consent ledger operations.
type Metrics struct {
	ConsentsRequested prometheus.Counter
	ConsentsResolved  *prometheus.CounterVec
	ConsentsRevoked   prometheus.Counter
	AccessLogged      prometheus.Counter
	EntitiesRetired   prometheus.Counter
	OperationLatency  *prometheus.HistogramVec
	TxFailures        *prometheus.CounterVec
	ApprovedPerGrant  prometheus.Histogram
}

// New registers collectors with the default registry. Call it once per process.
func New() *Metrics {
	return &Metrics{
		ConsentsRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustid_consents_requested_total",
			Help: "Total number of consent requests created",
		}),
		ConsentsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustid_consents_resolved_total",
			Help: "Total number of consent responses, labeled by action",
		}, []string{"action"}),
		ConsentsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustid_consents_revoked_total",
			Help: "Total number of consents revoked by their subject",
		}),
		AccessLogged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustid_consent_access_logged_total",
			Help: "Total number of data accesses recorded under a consent",
		}),
		EntitiesRetired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustid_entities_retired_total",
			Help: "Total number of entities removed by administrators",
		}),
		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustid_consent_operation_latency_seconds",
			Help:    "Latency of consent ledger operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"operation"}),
		TxFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustid_consent_tx_failures_total",
			Help: "Ledger transactions rolled back, labeled by operation and error code",
		}, []string{"operation", "code"}),
		ApprovedPerGrant: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustid_consent_approved_attributes",
			Help:    "Distribution of approved attribute counts per grant",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 50},
		}),
	}
}

func (m *Metrics) IncrementRequested() {
	m.ConsentsRequested.Inc()
}

func (m *Metrics) IncrementResolved(action string) {
	m.ConsentsResolved.WithLabelValues(action).Inc()
}

func (m *Metrics) IncrementRevoked() {
	m.ConsentsRevoked.Inc()
}

func (m *Metrics) IncrementAccessLogged() {
	m.AccessLogged.Inc()
}

func (m *Metrics) IncrementEntitiesRetired() {
	m.EntitiesRetired.Inc()
}

func (m *Metrics) ObserveOperationLatency(operation string, durationSeconds float64) {
	m.OperationLatency.WithLabelValues(operation).Observe(durationSeconds)
}

func (m *Metrics) IncrementTxFailure(operation, code string) {
	m.TxFailures.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) ObserveApprovedAttributes(count int) {
	m.ApprovedPerGrant.Observe(float64(count))
}
