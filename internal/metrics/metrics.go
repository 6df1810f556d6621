package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthFlowsTotal counts every lifecycle flow by its final status
	// (success, pending, failed, register, error).
	AuthFlowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_auth_flow_total",
			Help: "Total number of account lifecycle flows by outcome",
		},
		[]string{"flow", "outcome"},
	)

	OTPChallengesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_auth_otp_challenges_total",
			Help: "Total number of OTP requests and verifications by outcome",
		},
		[]string{"purpose", "outcome"},
	)

	SessionVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_auth_session_verifications_total",
			Help: "Total number of session checks by result (ok, refresh, rejected, missing)",
		},
		[]string{"result"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_auth_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

func RecordFlow(flow string, outcome string) {
	AuthFlowsTotal.WithLabelValues(flow, outcome).Inc()
}

func RecordOTP(purpose string, outcome string) {
	OTPChallengesTotal.WithLabelValues(purpose, outcome).Inc()
}

func RecordSession(result string) {
	SessionVerificationsTotal.WithLabelValues(result).Inc()
}
