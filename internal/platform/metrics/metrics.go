package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	OTPRequested         *prometheus.CounterVec
	OTPVerified          *prometheus.CounterVec
	ProviderErrors       *prometheus.CounterVec
	TokenRefreshes       prometheus.Counter
	ProfilesMaterialized *prometheus.CounterVec
	AuditEntriesDropped  prometheus.Counter
	OutboxDepth          prometheus.Gauge
	ProviderLatency      *prometheus.HistogramVec
	EndpointLatency      *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		OTPRequested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "homehelp_otp_requested_total",
			Help: "Total number of OTP generation requests, labeled by flow",
		}, []string{"flow"}),
		OTPVerified: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "homehelp_otp_verified_total",
			Help: "Total number of OTP verification attempts, labeled by outcome",
		}, []string{"outcome"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "homehelp_provider_errors_total",
			Help: "Total number of provider rejections, labeled by classified kind",
		}, []string{"kind"}),
		TokenRefreshes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homehelp_provider_token_refreshes_total",
			Help: "Total number of provider access token acquisitions",
		}),
		ProfilesMaterialized: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "homehelp_profiles_materialized_total",
			Help: "Total number of identity profiles created or refreshed, labeled by class",
		}, []string{"class"}),
		AuditEntriesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "homehelp_audit_entries_dropped_total",
			Help: "Total number of audit entries dropped due to a full publisher buffer",
		}),
		OutboxDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "homehelp_audit_outbox_depth",
			Help: "Number of unpublished rows in the audit outbox",
		}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "homehelp_provider_latency_seconds",
			Help:    "Latency of provider calls in seconds, labeled by endpoint",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "homehelp_endpoint_latency_seconds",
			Help:    "Latency of HTTP endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) IncrementOTPRequested(flow string) {
	m.OTPRequested.WithLabelValues(flow).Inc()
}

func (m *Metrics) IncrementOTPVerified(outcome string) {
	m.OTPVerified.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementProviderErrors(kind string) {
	m.ProviderErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementTokenRefreshes() {
	m.TokenRefreshes.Inc()
}

func (m *Metrics) IncrementProfilesMaterialized(class string) {
	m.ProfilesMaterialized.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementAuditEntriesDropped() {
	m.AuditEntriesDropped.Inc()
}

func (m *Metrics) SetOutboxDepth(depth int) {
	m.OutboxDepth.Set(float64(depth))
}

// ObserveProviderLatency records the latency of a provider call.
func (m *Metrics) ObserveProviderLatency(endpoint string, durationSeconds float64) {
	m.ProviderLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

// ObserveEndpointLatency records the latency for a given endpoint
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}
