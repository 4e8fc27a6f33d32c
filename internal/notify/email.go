package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/exchange-leads/pkg/logging"
)

// ErrMissingAPIKey is returned at construction when the provider key is absent.
var ErrMissingAPIKey = errors.New("notify: email provider API key required")

// TemplateSender sends one templated transactional email.
// Implementations can be swapped (SendGrid, SES) without changing callers.
type TemplateSender interface {
	SendTemplate(ctx context.Context, msg TemplateMessage) error
}

// TemplateMessage is a single templated email. Data is handed to the
// provider as dynamic template data.
type TemplateMessage struct {
	To         string
	ToName     string
	FromEmail  string
	FromName   string
	TemplateID string
	Data       map[string]any
}

func (m TemplateMessage) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("notify: recipient required")
	}
	if strings.TrimSpace(m.FromEmail) == "" {
		return errors.New("notify: sender required")
	}
	if strings.TrimSpace(m.TemplateID) == "" {
		return errors.New("notify: template id required")
	}
	return nil
}

// SendGridSender sends templated emails via the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	logger *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey string
	// BaseURL overrides https://api.sendgrid.com (tests, EU data residency).
	BaseURL string
}

// NewSendGridSender creates a SendGrid sender. A missing API key is a
// configuration error and fails here, before any send is attempted.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) (*SendGridSender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		logger = logging.Default()
	}
	client := sendgrid.NewSendClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		client.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/v3/mail/send"
	}
	return &SendGridSender{client: client, logger: logger}, nil
}

// SendTemplate sends a dynamic-template email via SendGrid.
func (s *SendGridSender) SendTemplate(ctx context.Context, msg TemplateMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}

	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(msg.FromName, msg.FromEmail))
	message.SetTemplateID(msg.TemplateID)

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	for k, v := range msg.Data {
		p.SetDynamicTemplateData(k, v)
	}
	message.AddPersonalizations(p)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("email sent via sendgrid", "to", msg.To, "template_id", msg.TemplateID, "status", response.StatusCode)
	return nil
}

// StubEmailSender logs instead of sending. Local development only.
type StubEmailSender struct {
	logger *logging.Logger
}

// NewStubEmailSender creates a stub email sender that logs but doesn't send.
func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

// SendTemplate logs the email but doesn't actually send it.
func (s *StubEmailSender) SendTemplate(ctx context.Context, msg TemplateMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}
	s.logger.Info("stub email sender: would send email",
		"to", msg.To,
		"from", msg.FromEmail,
		"template_id", msg.TemplateID,
		"vars", len(msg.Data),
	)
	return nil
}

var (
	_ TemplateSender = (*SendGridSender)(nil)
	_ TemplateSender = (*StubEmailSender)(nil)
)
