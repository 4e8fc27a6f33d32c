package leads

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wolfman30/exchange-leads/internal/brand"
	"github.com/wolfman30/exchange-leads/internal/observability/metrics"
	"github.com/wolfman30/exchange-leads/internal/turnstile"
	"github.com/wolfman30/exchange-leads/pkg/logging"
)

// Verifier checks a bot-challenge token with the provider.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (*turnstile.Result, error)
}

// Notifier delivers the transactional emails for an accepted lead.
type Notifier interface {
	SendCustomerConfirmation(ctx context.Context, b brand.Context, lead Submission) error
	SendInternalNotifications(ctx context.Context, b brand.Context, lead Submission) error
}

// Service is the server-side acceptance point for lead submissions.
type Service struct {
	verifier Verifier
	notifier Notifier
	brand    brand.Context
	metrics  *metrics.LeadMetrics
	logger   *logging.Logger
}

// NewService wires the intake service. The brand context is built once by the
// caller and reused for every request.
func NewService(verifier Verifier, notifier Notifier, b brand.Context, m *metrics.LeadMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		verifier: verifier,
		notifier: notifier,
		brand:    b,
		metrics:  m,
		logger:   logger,
	}
}

// Brand returns the context merged into every email.
func (s *Service) Brand() brand.Context {
	return s.brand
}

// Accept validates, verifies and dispatches one submission. It never trusts
// that the client already validated.
func (s *Service) Accept(ctx context.Context, sub Submission, remoteIP string) error {
	sub = sub.Normalize()
	variant := LookupVariant(sub.Variant)

	if errs := Validate(sub, variant); len(errs) > 0 {
		s.metrics.ObserveSubmission(metrics.OutcomeInvalid)
		return &ValidationError{Fields: errs}
	}
	if sub.TurnstileToken == "" {
		s.metrics.ObserveSubmission(metrics.OutcomeVerificationRequired)
		return ErrVerificationRequired
	}

	if _, err := s.verifier.Verify(ctx, sub.TurnstileToken, remoteIP); err != nil {
		if turnstile.IsRejection(err) {
			s.metrics.ObserveVerification("rejected")
			s.metrics.ObserveSubmission(metrics.OutcomeVerificationFailed)
			return fmt.Errorf("%w: %w", ErrVerificationFailed, err)
		}
		s.metrics.ObserveVerification("unavailable")
		s.metrics.ObserveSubmission(metrics.OutcomeVerificationUnavailable)
		s.logger.Error("lead verification unavailable", "error", err)
		return fmt.Errorf("%w: %w", ErrVerificationUnavailable, err)
	}
	s.metrics.ObserveVerification("success")

	// Sends run to completion even if the client disconnects.
	dispatchCtx := context.WithoutCancel(ctx)

	var (
		wg          sync.WaitGroup
		confirmErr  error
		internalErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		confirmErr = s.notifier.SendCustomerConfirmation(dispatchCtx, s.brand, sub)
	}()
	go func() {
		defer wg.Done()
		internalErr = s.notifier.SendInternalNotifications(dispatchCtx, s.brand, sub)
	}()
	wg.Wait()

	if internalErr != nil {
		s.logger.Error("internal lead notification failed",
			"error", internalErr,
			"lead_email", sub.Email,
			"project_type", sub.ProjectType,
		)
	}
	if confirmErr != nil {
		s.metrics.ObserveSubmission(metrics.OutcomeDispatchFailed)
		s.logger.Error("lead confirmation failed", "error", confirmErr, "lead_email", sub.Email)
		return fmt.Errorf("%w: %w", ErrDispatchFailed, confirmErr)
	}

	s.metrics.ObserveSubmission(metrics.OutcomeAccepted)
	s.logger.Info("lead accepted",
		"lead_email", sub.Email,
		"project_type", sub.ProjectType,
		"variant", variant.Name,
		"internal_notify_ok", internalErr == nil,
	)
	return nil
}

// IsValidation reports whether err is a field validation failure and returns
// the field messages.
func IsValidation(err error) (FieldErrors, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields, true
	}
	return nil, false
}
