package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestLeadMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLeadMetrics(reg)

	m.ObserveSubmission(OutcomeAccepted)
	m.ObserveSubmission(OutcomeAccepted)
	m.ObserveSubmission(OutcomeInvalid)
	m.ObserveVerification("success")
	m.ObserveEmail(EmailConfirmation, nil, 0.2)
	m.ObserveEmail(EmailInternal, errors.New("boom"), 0.3)

	if got := testutil.ToFloat64(m.submissionsTotal.WithLabelValues(OutcomeAccepted)); got != 2 {
		t.Fatalf("expected 2 accepted submissions, got %v", got)
	}
	if got := testutil.ToFloat64(m.submissionsTotal.WithLabelValues(OutcomeInvalid)); got != 1 {
		t.Fatalf("expected 1 invalid submission, got %v", got)
	}
	if got := testutil.ToFloat64(m.verificationsTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("expected 1 verification, got %v", got)
	}
	if got := testutil.ToFloat64(m.emailsTotal.WithLabelValues(EmailInternal, "failed")); got != 1 {
		t.Fatalf("expected 1 failed internal email, got %v", got)
	}
	if got := testutil.ToFloat64(m.emailsTotal.WithLabelValues(EmailConfirmation, "sent")); got != 1 {
		t.Fatalf("expected 1 sent confirmation, got %v", got)
	}
}

func TestLeadMetrics_HistogramObserved(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLeadMetrics(reg)
	m.ObserveEmail(EmailConfirmation, nil, 0.4)

	observer, err := m.emailLatency.GetMetricWithLabelValues(EmailConfirmation)
	if err != nil {
		t.Fatalf("get histogram: %v", err)
	}
	var out dto.Metric
	if err := observer.(prometheus.Metric).Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if out.GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected 1 sample, got %d", out.GetHistogram().GetSampleCount())
	}
}

func TestLeadMetrics_NilSafe(t *testing.T) {
	var m *LeadMetrics
	m.ObserveSubmission(OutcomeAccepted)
	m.ObserveVerification("success")
	m.ObserveEmail(EmailInternal, nil, 1)
}
