// Package notify delivers the transactional emails for accepted leads.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/exchange-leads/internal/brand"
	"github.com/wolfman30/exchange-leads/internal/leads"
	"github.com/wolfman30/exchange-leads/internal/observability/metrics"
	"github.com/wolfman30/exchange-leads/pkg/logging"
)

var tracer = otel.Tracer("exchange.internal.notify")

const submittedDateLayout = "January 2, 2006"

// DispatcherConfig holds the sender identity and recipients.
type DispatcherConfig struct {
	TemplateID string
	// FromEmail is the sender address. The brand support address is used
	// only when it is empty.
	FromEmail   string
	Recipients  []string
	SendTimeout time.Duration
}

// Dispatcher sends the customer confirmation and the internal fan-out.
type Dispatcher struct {
	sender      TemplateSender
	templateID  string
	fromEmail   string
	recipients  []string
	sendTimeout time.Duration
	metrics     *metrics.LeadMetrics
	logger      *logging.Logger
	now         func() time.Time
}

// NewDispatcher wires a dispatcher around an already configured sender.
func NewDispatcher(sender TemplateSender, cfg DispatcherConfig, m *metrics.LeadMetrics, logger *logging.Logger) (*Dispatcher, error) {
	if sender == nil {
		return nil, errors.New("notify: template sender required")
	}
	if strings.TrimSpace(cfg.TemplateID) == "" {
		return nil, errors.New("notify: template id required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		sender:      sender,
		templateID:  cfg.TemplateID,
		fromEmail:   cfg.FromEmail,
		recipients:  DedupeRecipients(cfg.Recipients),
		sendTimeout: cfg.SendTimeout,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// Recipients returns the internal notification list.
func (d *Dispatcher) Recipients() []string {
	return append([]string(nil), d.recipients...)
}

// SendCustomerConfirmation sends one email to the lead.
func (d *Dispatcher) SendCustomerConfirmation(ctx context.Context, b brand.Context, lead leads.Submission) error {
	msg := d.message(b, lead, lead.Email, lead.Name)
	return d.send(ctx, metrics.EmailConfirmation, msg)
}

// SendInternalNotifications sends one email per configured recipient. All
// sends are attempted; the result joins every failure.
func (d *Dispatcher) SendInternalNotifications(ctx context.Context, b brand.Context, lead leads.Submission) error {
	if len(d.recipients) == 0 {
		d.logger.Warn("notify: no internal recipients configured")
		return nil
	}

	errs := make([]error, len(d.recipients))
	var wg sync.WaitGroup
	for i, to := range d.recipients {
		wg.Add(1)
		go func(i int, to string) {
			defer wg.Done()
			if err := d.send(ctx, metrics.EmailInternal, d.message(b, lead, to, "")); err != nil {
				errs[i] = fmt.Errorf("notify: internal notification to %s: %w", to, err)
			}
		}(i, to)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// TemplateData merges the lead alongside the brand variables. The brand
// context is left untouched.
func (d *Dispatcher) TemplateData(b brand.Context, lead leads.Submission) map[string]any {
	tl := lead.ForTemplate()
	return b.Merge(map[string]any{
		"lead":           tl.Vars(),
		"phone_plain":    tl.PhonePlain,
		"submitted_date": d.now().Format(submittedDateLayout),
	})
}

func (d *Dispatcher) message(b brand.Context, lead leads.Submission, to, toName string) TemplateMessage {
	from := strings.TrimSpace(d.fromEmail)
	if from == "" {
		from = strings.TrimSpace(b.SupportEmail)
	}
	return TemplateMessage{
		To:         to,
		ToName:     toName,
		FromEmail:  from,
		FromName:   b.CompanyName,
		TemplateID: d.templateID,
		Data:       d.TemplateData(b, lead),
	}
}

func (d *Dispatcher) send(ctx context.Context, kind string, msg TemplateMessage) error {
	ctx, span := tracer.Start(ctx, "notify.send")
	defer span.End()
	span.SetAttributes(
		attribute.String("exchange.email.kind", kind),
		attribute.String("exchange.email.template", msg.TemplateID),
	)

	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	start := time.Now()
	err := d.sender.SendTemplate(ctx, msg)
	d.metrics.ObserveEmail(kind, err, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.Error("notify: email send failed", "kind", kind, "to", msg.To, "error", err)
		return err
	}
	d.logger.Debug("notify: email sent", "kind", kind, "to", msg.To)
	return nil
}

// DedupeRecipients trims, drops empties and removes case-insensitive
// duplicates, keeping first-seen order.
func DedupeRecipients(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, r := range in {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		key := strings.ToLower(r)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

var _ leads.Notifier = (*Dispatcher)(nil)
