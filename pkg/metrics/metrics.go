package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Auth flow metrics
	Signups       *prometheus.CounterVec
	Logins        *prometheus.CounterVec
	Verifications *prometheus.CounterVec
	OTPsIssued    *prometheus.CounterVec
	TokensIssued  *prometheus.CounterVec

	// Notification metrics
	Deliveries *prometheus.CounterVec

	// ML proxy metrics
	Predictions       *prometheus.CounterVec
	PredictionLatency *prometheus.HistogramVec
}

// New registers all application metrics with reg.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Signups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "signups_total",
			Help:      "Total number of signup attempts",
		}, []string{"user_type", "result"}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Total number of password login attempts",
		}, []string{"user_type", "result"}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "otp_verifications_total",
			Help:      "Total number of OTP verification attempts",
		}, []string{"user_type", "result"}),
		OTPsIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "otp_issued_total",
			Help:      "Total number of one-time codes issued",
		}, []string{"user_type"}),
		TokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tokens_issued_total",
			Help:      "Total number of session tokens minted",
		}, []string{"user_type"}),

		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "deliveries_total",
			Help:      "OTP delivery outcomes per channel",
		}, []string{"channel", "status"}),

		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ml",
			Name:      "predictions_total",
			Help:      "Total number of proxied prediction requests",
		}, []string{"model", "result"}),
		PredictionLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ml",
			Name:      "prediction_duration_seconds",
			Help:      "Duration of proxied prediction requests",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"model"}),
	}
}

// NewNop returns metrics bound to a throwaway registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry(), "metabridge")
}

// Result labels a counter by error presence.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
