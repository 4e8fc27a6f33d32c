package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/exchange-leads/internal/brand"
	"github.com/wolfman30/exchange-leads/internal/leads"
	"github.com/wolfman30/exchange-leads/internal/observability/metrics"
	"github.com/wolfman30/exchange-leads/internal/turnstile"
	"github.com/wolfman30/exchange-leads/pkg/logging"
)

type recordingSender struct {
	mu     sync.Mutex
	sent   []TemplateMessage
	failTo map[string]error
	delay  time.Duration
}

func (r *recordingSender) SendTemplate(ctx context.Context, msg TemplateMessage) error {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.failTo[msg.To]
}

func (r *recordingSender) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, m := range r.sent {
		out = append(out, m.To)
	}
	sort.Strings(out)
	return out
}

func testBrand() brand.Context {
	return brand.Build(brand.Identity{
		SiteName:         "1031 Exchange San Francisco",
		SiteURL:          "https://1031exchangesanfrancisco.com",
		PrimaryCity:      "San Francisco",
		PrimaryStateAbbr: "CA",
		Phone:            "4155551234",
		Email:            "support@1031exchangesanfrancisco.com",
	})
}

func janeDoe() leads.Submission {
	return leads.Submission{
		Name:           "Jane Doe",
		Email:          "jane@example.com",
		Phone:          "4155551234",
		ProjectType:    "Forward Exchange",
		Details:        "Selling a duplex",
		TurnstileToken: "tok-123",
	}
}

func newTestDispatcher(t *testing.T, sender TemplateSender, recipients ...string) *Dispatcher {
	t.Helper()
	d, err := NewDispatcher(sender, DispatcherConfig{
		TemplateID: "d-15217ab1c55347b5847c2421b1a82847",
		FromEmail:  "leads@1031exchangesanfrancisco.com",
		Recipients: recipients,
	}, metrics.NewLeadMetrics(prometheus.NewRegistry()), logging.Discard())
	require.NoError(t, err)
	d.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return d
}

func TestNewDispatcher_RequiresSenderAndTemplate(t *testing.T) {
	_, err := NewDispatcher(nil, DispatcherConfig{TemplateID: "d-1"}, nil, nil)
	assert.Error(t, err)
	_, err = NewDispatcher(&recordingSender{}, DispatcherConfig{}, nil, nil)
	assert.Error(t, err)
}

func TestSendCustomerConfirmation(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(t, sender, "ops@example.com")
	b := testBrand()

	require.NoError(t, d.SendCustomerConfirmation(context.Background(), b, janeDoe()))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "jane@example.com", msg.To)
	assert.Equal(t, "Jane Doe", msg.ToName)
	assert.Equal(t, "leads@1031exchangesanfrancisco.com", msg.FromEmail, "configured sender wins over the brand address")
	assert.Equal(t, "1031 Exchange San Francisco", msg.FromName)
	assert.Equal(t, "d-15217ab1c55347b5847c2421b1a82847", msg.TemplateID)

	assert.Equal(t, "San Francisco, CA", msg.Data["city_state"])
	assert.Equal(t, "March 1, 2026", msg.Data["submitted_date"])
	lead, ok := msg.Data["lead"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", lead["name"])
	assert.Equal(t, "(415) 555-1234", lead["phone"])
	assert.Equal(t, "Selling a duplex", lead["message"])
	assert.NotContains(t, lead, "turnstileToken")
}

func TestSendCustomerConfirmation_FallbackSender(t *testing.T) {
	sender := &recordingSender{}
	d, err := NewDispatcher(sender, DispatcherConfig{TemplateID: "d-1"}, nil, logging.Discard())
	require.NoError(t, err)

	require.NoError(t, d.SendCustomerConfirmation(context.Background(), testBrand(), janeDoe()))
	assert.Equal(t, "support@1031exchangesanfrancisco.com", sender.sent[0].FromEmail)
}

func TestSendInternalNotifications_OnePerRecipient(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(t, sender, "ops@example.com", "OPS@example.com", " contractor@example.com ", "")

	require.NoError(t, d.SendInternalNotifications(context.Background(), testBrand(), janeDoe()))
	assert.Equal(t, []string{"contractor@example.com", "ops@example.com"}, sender.recipients())
	for _, msg := range sender.sent {
		assert.Equal(t, "d-15217ab1c55347b5847c2421b1a82847", msg.TemplateID)
		assert.Contains(t, msg.Data, "lead")
		assert.Contains(t, msg.Data, "company_name")
	}
}

func TestSendInternalNotifications_NoShortCircuit(t *testing.T) {
	sender := &recordingSender{failTo: map[string]error{
		"a@example.com": errors.New("bounced"),
	}}
	d := newTestDispatcher(t, sender, "a@example.com", "b@example.com", "c@example.com")

	err := d.SendInternalNotifications(context.Background(), testBrand(), janeDoe())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a@example.com")
	assert.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, sender.recipients())
}

func TestSendInternalNotifications_NoRecipients(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(t, sender)
	assert.NoError(t, d.SendInternalNotifications(context.Background(), testBrand(), janeDoe()))
	assert.Empty(t, sender.sent)
}

func TestSend_Timeout(t *testing.T) {
	sender := &recordingSender{delay: time.Second}
	d := newTestDispatcher(t, sender)
	d.sendTimeout = 20 * time.Millisecond

	err := d.SendCustomerConfirmation(context.Background(), testBrand(), janeDoe())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTemplateData_DoesNotMutateBrand(t *testing.T) {
	d := newTestDispatcher(t, &recordingSender{})
	b := testBrand()
	before := b.Vars()

	data := d.TemplateData(b, janeDoe())
	data["company_name"] = "tampered"

	assert.Equal(t, before, b.Vars())
	assert.Equal(t, testBrand(), b)
}

func TestEndToEnd_JaneDoe(t *testing.T) {
	sender := &recordingSender{}
	d := newTestDispatcher(t, sender, "contractor@example.com", "rankhoundseo@gmail.com")
	svc := leads.NewService(acceptAll{}, d, testBrand(), nil, logging.Discard())

	require.NoError(t, svc.Accept(context.Background(), janeDoe(), "203.0.113.9"))

	assert.Equal(t,
		[]string{"contractor@example.com", "jane@example.com", "rankhoundseo@gmail.com"},
		sender.recipients())
	for _, msg := range sender.sent {
		assert.Equal(t, "d-15217ab1c55347b5847c2421b1a82847", msg.TemplateID)
		lead := msg.Data["lead"].(map[string]any)
		assert.Equal(t, "Forward Exchange", lead["projectType"])
		assert.Equal(t, "1031 Exchange San Francisco", msg.Data["company_name"])
	}
}

func TestDedupeRecipients(t *testing.T) {
	got := DedupeRecipients([]string{"A@x.com", "a@x.com", " ", "b@x.com"})
	assert.Equal(t, []string{"A@x.com", "b@x.com"}, got)
}

type acceptAll struct{}

func (acceptAll) Verify(ctx context.Context, token, remoteIP string) (*turnstile.Result, error) {
	return &turnstile.Result{Success: true}, nil
}
