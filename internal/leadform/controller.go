// Package leadform holds the client-side state of the lead form: the draft,
// local validation, the bot-challenge widget lifecycle and submission.
package leadform

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/exchange-leads/internal/brand"
	"github.com/wolfman30/exchange-leads/internal/leads"
	"github.com/wolfman30/exchange-leads/pkg/logging"
)

// Status is the form's submission state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// User-facing status messages.
const (
	MsgCorrectFields  = "Please correct the highlighted fields."
	MsgVerify         = "Please complete the security verification."
	MsgSubmitting     = "Submitting your details..."
	MsgSuccess        = "Thank you. Our team will respond within one business day."
	msgFailureNoPhone = "Something went wrong. Please call us or try again."
)

// DefaultRenderDelay gives the challenge script time to load before render.
const DefaultRenderDelay = 100 * time.Millisecond

var (
	// ErrInvalidDraft is returned by Submit when field validation failed.
	ErrInvalidDraft = errors.New("leadform: draft has field errors")
	// ErrNoToken is returned by Submit when no challenge token is held.
	ErrNoToken = errors.New("leadform: verification token required")
	// ErrBusy is returned by Submit while a submission is in flight.
	ErrBusy = errors.New("leadform: submission in progress")
)

// Options configures a Controller.
type Options struct {
	Variant     leads.Variant
	SiteKey     string
	Widget      ChallengeWidget
	Submitter   Submitter
	RenderDelay time.Duration
	// Phone is offered as the fallback channel in the failure message.
	Phone  string
	Logger *logging.Logger
}

// State is a snapshot of the controller.
type State struct {
	Draft    leads.Submission
	Errors   leads.FieldErrors
	Status   Status
	Message  string
	HasToken bool
}

// Controller owns one form's draft. Safe for concurrent use; widget
// callbacks may arrive from any goroutine.
type Controller struct {
	variant     leads.Variant
	siteKey     string
	widget      ChallengeWidget
	submitter   Submitter
	renderDelay time.Duration
	phone       string
	logger      *logging.Logger

	mu      sync.Mutex
	draft   leads.Submission
	errs    leads.FieldErrors
	status  Status
	message string
	token   string
	handle  WidgetHandle
}

// NewController builds a controller in the idle state.
func NewController(opts Options) (*Controller, error) {
	if opts.Submitter == nil {
		return nil, errors.New("leadform: submitter required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.RenderDelay <= 0 {
		opts.RenderDelay = DefaultRenderDelay
	}
	if opts.Variant.Name == "" {
		opts.Variant = leads.VariantContact
	}
	return &Controller{
		variant:     opts.Variant,
		siteKey:     opts.SiteKey,
		widget:      opts.Widget,
		submitter:   opts.Submitter,
		renderDelay: opts.RenderDelay,
		phone:       opts.Phone,
		logger:      opts.Logger,
		errs:        leads.FieldErrors{},
		status:      StatusIdle,
	}, nil
}

// UpdateField sets one draft field. Only phone is normalized, to digits.
func (c *Controller) UpdateField(field leads.Field, value string) error {
	if field == leads.FieldPhone {
		value = leads.NormalizePhone(value)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft.Set(field, value)
}

// Validate runs the variant's field checks against the current draft.
func (c *Controller) Validate() leads.FieldErrors {
	c.mu.Lock()
	draft := c.draft
	c.mu.Unlock()
	return leads.Validate(draft, c.variant)
}

// Prefill seeds projectType from the page query, for deep links such as
// /contact?projectType=Reverse%20Exchange.
func (c *Controller) Prefill(q url.Values) {
	raw := q.Get(string(leads.FieldProjectType))
	if raw == "" {
		return
	}
	// q.Get already decoded once; a literal "+" must survive the second pass.
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	c.mu.Lock()
	c.draft.ProjectType = raw
	c.mu.Unlock()
}

// Mount waits for the render delay and renders the challenge widget into
// container. It returns early if ctx is cancelled first.
func (c *Controller) Mount(ctx context.Context, container string) error {
	if c.widget == nil {
		return ErrWidgetUnavailable
	}

	timer := time.NewTimer(c.renderDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	handle, err := c.widget.Render(ctx, WidgetConfig{
		SiteKey:   c.siteKey,
		Container: container,
		OnToken:   c.setToken,
		OnError: func(err error) {
			c.logger.Warn("leadform: challenge widget error", "error", err)
			c.setToken("")
		},
		OnExpired: func() { c.setToken("") },
	})
	if err != nil {
		return fmt.Errorf("leadform: render widget: %w", err)
	}

	c.mu.Lock()
	c.handle = handle
	c.mu.Unlock()
	return nil
}

func (c *Controller) setToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// CanSubmit reports whether the submit control should be enabled.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != "" && c.status != StatusLoading
}

// State returns a snapshot of the form.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	errs := make(leads.FieldErrors, len(c.errs))
	for k, v := range c.errs {
		errs[k] = v
	}
	return State{
		Draft:    c.draft,
		Errors:   errs,
		Status:   c.status,
		Message:  c.message,
		HasToken: c.token != "",
	}
}

// Submit validates the draft and, if it is valid and a token is held, sends
// it. On success the draft, errors and token are cleared and the widget is
// reset. On failure the draft is kept so the user can retry.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.status == StatusLoading {
		c.mu.Unlock()
		return ErrBusy
	}

	errs := leads.Validate(c.draft, c.variant)
	c.errs = errs
	if len(errs) > 0 {
		c.status = StatusError
		c.message = MsgCorrectFields
		c.mu.Unlock()
		return ErrInvalidDraft
	}
	if c.token == "" {
		c.status = StatusError
		c.message = MsgVerify
		c.mu.Unlock()
		return ErrNoToken
	}

	payload := c.draft
	payload.Variant = c.variant.Name
	payload.TurnstileToken = c.token
	c.status = StatusLoading
	c.message = MsgSubmitting
	c.mu.Unlock()

	err := c.submitter.Submit(ctx, payload)

	c.mu.Lock()
	if err != nil {
		c.status = StatusError
		c.message = c.failureMessage()
		var handle WidgetHandle
		if tokenConsumed(err) {
			c.token = ""
			handle = c.handle
		}
		c.mu.Unlock()
		c.logger.Error("leadform: submission failed", "error", err)
		c.resetWidget(handle)
		return fmt.Errorf("leadform: submit: %w", err)
	}

	c.status = StatusSuccess
	c.message = MsgSuccess
	c.draft = leads.Submission{}
	c.errs = leads.FieldErrors{}
	c.token = ""
	handle := c.handle
	c.mu.Unlock()

	c.resetWidget(handle)
	return nil
}

// tokenConsumed reports whether the endpoint already redeemed the token, so
// resubmitting it would be rejected as a duplicate.
func tokenConsumed(err error) bool {
	var endpointErr *EndpointError
	if !errors.As(err, &endpointErr) {
		return false
	}
	switch endpointErr.Code {
	case "verification_failed", "dispatch_failed":
		return true
	}
	return false
}

func (c *Controller) resetWidget(handle WidgetHandle) {
	if c.widget == nil || handle == "" {
		return
	}
	if err := c.widget.Reset(handle); err != nil {
		c.logger.Warn("leadform: reset challenge widget failed", "error", err)
	}
}

func (c *Controller) failureMessage() string {
	if c.phone == "" {
		return msgFailureNoPhone
	}
	return FailureMessage(c.phone)
}

// FailureMessage is the generic transient-failure message with the phone
// number offered as the fallback channel.
func FailureMessage(phone string) string {
	return fmt.Sprintf("Something went wrong. Please call us at %s or try again.", brand.FormatPhone(phone))
}
