package leads

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/exchange-leads/internal/brand"
	"github.com/wolfman30/exchange-leads/internal/observability/metrics"
	"github.com/wolfman30/exchange-leads/internal/turnstile"
	"github.com/wolfman30/exchange-leads/pkg/logging"
)

type fakeVerifier struct {
	mu     sync.Mutex
	err    error
	tokens []string
}

func (f *fakeVerifier) Verify(ctx context.Context, token, remoteIP string) (*turnstile.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return &turnstile.Result{Success: true}, nil
}

type fakeNotifier struct {
	mu           sync.Mutex
	confirmErr   error
	internalErr  error
	confirmed    []Submission
	internal     []Submission
	sawCancelled bool
}

func (f *fakeNotifier) SendCustomerConfirmation(ctx context.Context, b brand.Context, lead Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctx.Err() != nil {
		f.sawCancelled = true
	}
	f.confirmed = append(f.confirmed, lead)
	return f.confirmErr
}

func (f *fakeNotifier) SendInternalNotifications(ctx context.Context, b brand.Context, lead Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.internal = append(f.internal, lead)
	return f.internalErr
}

func newTestService(v Verifier, n Notifier) (*Service, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	b := brand.Build(brand.Identity{SiteName: "1031 Exchange San Francisco", Phone: "4155551234"})
	return NewService(v, n, b, metrics.NewLeadMetrics(reg), logging.Discard()), reg
}

func submissionCount(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "exchange_leads_submissions_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if hasLabel(metric, "outcome", outcome) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name && lp.GetValue() == value {
			return true
		}
	}
	return false
}

func TestAccept_DispatchesConfirmationAndInternal(t *testing.T) {
	v := &fakeVerifier{}
	n := &fakeNotifier{}
	svc, reg := newTestService(v, n)

	sub := validSubmission()
	sub.Phone = "(415) 555-1234"
	require.NoError(t, svc.Accept(context.Background(), sub, "203.0.113.9"))

	require.Len(t, n.confirmed, 1)
	require.Len(t, n.internal, 1)
	assert.Equal(t, "4155551234", n.confirmed[0].Phone)
	assert.Equal(t, []string{"tok-123"}, v.tokens)
	assert.Equal(t, 1.0, submissionCount(t, reg, metrics.OutcomeAccepted))
}

func TestAccept_InvalidNeverVerifiesOrSends(t *testing.T) {
	v := &fakeVerifier{}
	n := &fakeNotifier{}
	svc, _ := newTestService(v, n)

	sub := validSubmission()
	sub.Email = "not-an-email"
	err := svc.Accept(context.Background(), sub, "")

	fields, ok := IsValidation(err)
	require.True(t, ok, "expected validation error, got %v", err)
	assert.Equal(t, MsgEmailInvalid, fields[FieldEmail])
	assert.Empty(t, v.tokens)
	assert.Empty(t, n.confirmed)
	assert.Empty(t, n.internal)
}

func TestAccept_MissingToken(t *testing.T) {
	v := &fakeVerifier{}
	n := &fakeNotifier{}
	svc, _ := newTestService(v, n)

	sub := validSubmission()
	sub.TurnstileToken = "  "
	err := svc.Accept(context.Background(), sub, "")

	assert.ErrorIs(t, err, ErrVerificationRequired)
	assert.Empty(t, v.tokens)
	assert.Empty(t, n.confirmed)
}

func TestAccept_VerificationOutcomes(t *testing.T) {
	cases := []struct {
		name    string
		verr    error
		wantErr error
	}{
		{"rejected", turnstile.ErrTokenRejected, ErrVerificationFailed},
		{"expired", turnstile.ErrTokenExpired, ErrVerificationFailed},
		{"replayed", turnstile.ErrTokenReplayed, ErrVerificationFailed},
		{"unavailable", turnstile.ErrUnavailable, ErrVerificationUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := &fakeNotifier{}
			svc, _ := newTestService(&fakeVerifier{err: tc.verr}, n)

			err := svc.Accept(context.Background(), validSubmission(), "")
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, n.confirmed, "no email may be sent for an unverified lead")
			assert.Empty(t, n.internal)
		})
	}
}

func TestAccept_ConfirmationFailureFailsRequest(t *testing.T) {
	n := &fakeNotifier{confirmErr: errors.New("provider 429")}
	svc, reg := newTestService(&fakeVerifier{}, n)

	err := svc.Accept(context.Background(), validSubmission(), "")
	assert.ErrorIs(t, err, ErrDispatchFailed)
	assert.Len(t, n.internal, 1, "internal fan-out still attempted")
	assert.Equal(t, 1.0, submissionCount(t, reg, metrics.OutcomeDispatchFailed))
}

func TestAccept_InternalFailureIsNotSurfaced(t *testing.T) {
	n := &fakeNotifier{internalErr: errors.New("bad recipient")}
	svc, _ := newTestService(&fakeVerifier{}, n)

	require.NoError(t, svc.Accept(context.Background(), validSubmission(), ""))
	assert.Len(t, n.confirmed, 1)
}

func TestAccept_DispatchSurvivesClientDisconnect(t *testing.T) {
	n := &fakeNotifier{}
	svc, _ := newTestService(&fakeVerifier{}, n)

	ctx, cancel := context.WithCancel(context.Background())
	verifier := &cancelAfterVerify{cancel: cancel}
	svc.verifier = verifier

	require.NoError(t, svc.Accept(ctx, validSubmission(), ""))
	assert.False(t, n.sawCancelled)
	assert.Len(t, n.confirmed, 1)
}

type cancelAfterVerify struct {
	cancel context.CancelFunc
}

func (c *cancelAfterVerify) Verify(ctx context.Context, token, remoteIP string) (*turnstile.Result, error) {
	c.cancel()
	return &turnstile.Result{Success: true}, nil
}
