package metrics

import "github.com/prometheus/client_golang/prometheus"

// Submission outcomes recorded by the intake service.
const (
	OutcomeAccepted                = "accepted"
	OutcomeInvalid                 = "invalid"
	OutcomeVerificationRequired    = "verification_required"
	OutcomeVerificationFailed      = "verification_failed"
	OutcomeVerificationUnavailable = "verification_unavailable"
	OutcomeDispatchFailed          = "dispatch_failed"
)

// Email kinds.
const (
	EmailConfirmation = "confirmation"
	EmailInternal     = "internal"
)

// LeadMetrics exposes counters/histograms for the lead intake flow.
type LeadMetrics struct {
	submissionsTotal   *prometheus.CounterVec
	verificationsTotal *prometheus.CounterVec
	emailsTotal        *prometheus.CounterVec
	emailLatency       *prometheus.HistogramVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exchange",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Lead submissions by outcome",
		}, []string{"outcome"}),
		verificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exchange",
			Subsystem: "leads",
			Name:      "verifications_total",
			Help:      "Bot-challenge token verifications by result",
		}, []string{"result"}),
		emailsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exchange",
			Subsystem: "leads",
			Name:      "emails_total",
			Help:      "Transactional emails attempted, by kind and status",
		}, []string{"kind", "status"}),
		emailLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "exchange",
			Subsystem: "leads",
			Name:      "email_send_seconds",
			Help:      "Latency of a single provider send",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.verificationsTotal, m.emailsTotal, m.emailLatency)
	return m
}

func (m *LeadMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *LeadMetrics) ObserveVerification(result string) {
	if m == nil {
		return
	}
	m.verificationsTotal.WithLabelValues(result).Inc()
}

// ObserveEmail records one provider send.
func (m *LeadMetrics) ObserveEmail(kind string, err error, seconds float64) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.emailsTotal.WithLabelValues(kind, status).Inc()
	m.emailLatency.WithLabelValues(kind).Observe(seconds)
}
