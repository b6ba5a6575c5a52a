package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for account and session operations.
type Metrics struct {
	UsersRegistered   *prometheus.CounterVec
	LoginsTotal       *prometheus.CounterVec
	AuthFailures      *prometheus.CounterVec
	OTPsIssued        *prometheus.CounterVec
	SessionsCreated   prometheus.Counter
	SessionsEnded     *prometheus.CounterVec
	TerminateAllCount prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustid_users_registered_total",
			Help: "Accounts registered by kind",
		}, []string{"kind"}),
		LoginsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustid_logins_total",
			Help: "Successful sign-ins by method",
		}, []string{"method"}),
		AuthFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustid_auth_failures_total",
			Help: "Rejected sign-in attempts by reason",
		}, []string{"reason"}),
		OTPsIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustid_otps_issued_total",
			Help: "One-time codes issued by purpose",
		}, []string{"purpose"}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "trustid_sessions_created_total",
			Help: "Sessions created",
		}),
		SessionsEnded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "trustid_sessions_ended_total",
			Help: "Sessions ended by reason",
		}, []string{"reason"}),
		TerminateAllCount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "trustid_terminate_all_sessions",
			Help:    "Sessions removed per terminate-all request",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
	}
}

func (m *Metrics) IncrementRegistered(kind string) {
	if m == nil {
		return
	}
	m.UsersRegistered.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementLogin(method string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(method).Inc()
	m.SessionsCreated.Inc()
}

func (m *Metrics) IncrementAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementOTPIssued(purpose string) {
	if m == nil {
		return
	}
	m.OTPsIssued.WithLabelValues(purpose).Inc()
}

func (m *Metrics) IncrementSessionsEnded(reason string, n int) {
	if m == nil {
		return
	}
	m.SessionsEnded.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) ObserveTerminateAll(n int) {
	if m == nil {
		return
	}
	m.TerminateAllCount.Observe(float64(n))
}
