package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/wolfman30/exchange-leads/pkg/logging"
)

// SESAPI is the subset of the SES v2 client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends templated emails via AWS SES. TemplateID names an SES
// template holding the same placeholders as the SendGrid one.
type SESSender struct {
	client           SESAPI
	configurationSet string
	logger           *logging.Logger
}

// SESConfig holds configuration for AWS SES.
type SESConfig struct {
	ConfigurationSet string
}

// NewSESSender creates a new AWS SES email sender.
func NewSESSender(client SESAPI, cfg SESConfig, logger *logging.Logger) (*SESSender, error) {
	if client == nil {
		return nil, errors.New("notify: SES client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SESSender{
		client:           client,
		configurationSet: cfg.ConfigurationSet,
		logger:           logger,
	}, nil
}

// SendTemplate sends a templated email via AWS SES.
func (s *SESSender) SendTemplate(ctx context.Context, msg TemplateMessage) error {
	if err := msg.validate(); err != nil {
		return err
	}

	data, err := json.Marshal(msg.Data)
	if err != nil {
		return fmt.Errorf("notify: encode SES template data: %w", err)
	}

	from := msg.FromEmail
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)
	}
	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", msg.ToName, msg.To)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Template: &types.Template{
				TemplateName: aws.String(msg.TemplateID),
				TemplateData: aws.String(string(data)),
			},
		},
	}
	if s.configurationSet != "" {
		input.ConfigurationSetName = aws.String(s.configurationSet)
	}

	output, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("SES send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: SES send failed: %w", err)
	}

	s.logger.Info("email sent via SES", "to", msg.To, "template", msg.TemplateID, "message_id", aws.ToString(output.MessageId))
	return nil
}

var _ TemplateSender = (*SESSender)(nil)
