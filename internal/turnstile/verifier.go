// Package turnstile verifies Cloudflare Turnstile tokens server side.
package turnstile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/exchange-leads/pkg/logging"
)

var tracer = otel.Tracer("exchange.internal.turnstile")

// DefaultVerifyURL is Cloudflare's siteverify endpoint.
const DefaultVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

const maxAttempts = 2

var (
	// ErrMissingToken is returned for an empty token.
	ErrMissingToken = errors.New("turnstile: token required")
	// ErrTokenRejected is returned when siteverify answered success=false.
	ErrTokenRejected = errors.New("turnstile: token rejected")
	// ErrTokenExpired is returned for expired or already redeemed tokens.
	ErrTokenExpired = errors.New("turnstile: token expired or already used")
	// ErrTokenReplayed is returned when the replay guard has seen the token.
	ErrTokenReplayed = errors.New("turnstile: token replayed")
	// ErrUnavailable is returned when the token could not be checked at all.
	ErrUnavailable = errors.New("turnstile: verification unavailable")
)

// Result is the siteverify response body.
type Result struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
	Action      string   `json:"action"`
	CData       string   `json:"cdata"`
}

// ReplayGuard remembers redeemed tokens.
type ReplayGuard interface {
	Claim(ctx context.Context, token string) error
	Release(ctx context.Context, token string) error
}

// Config holds verifier settings.
type Config struct {
	SecretKey  string
	VerifyURL  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Guard      ReplayGuard
}

// Verifier posts tokens to siteverify.
type Verifier struct {
	secret     string
	verifyURL  string
	timeout    time.Duration
	httpClient *http.Client
	guard      ReplayGuard
	logger     *logging.Logger
}

// NewVerifier builds a verifier. The secret key is mandatory.
func NewVerifier(cfg Config, logger *logging.Logger) (*Verifier, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("turnstile: secret key required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = DefaultVerifyURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Verifier{
		secret:     cfg.SecretKey,
		verifyURL:  cfg.VerifyURL,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		guard:      cfg.Guard,
		logger:     logger,
	}, nil
}

// Verify checks a token once. A nil error means the token was valid and has
// now been redeemed.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (*Result, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	ctx, span := tracer.Start(ctx, "turnstile.siteverify")
	defer span.End()
	span.SetAttributes(attribute.String("exchange.remote_ip", remoteIP))

	claimed := false
	if v.guard != nil {
		err := v.guard.Claim(ctx, token)
		switch {
		case err == nil:
			claimed = true
		case errors.Is(err, ErrTokenReplayed):
			span.RecordError(err)
			span.SetStatus(codes.Error, "replayed")
			v.logger.Warn("turnstile token replayed", "remote_ip", remoteIP)
			return nil, err
		default:
			// siteverify still rejects duplicates on its own.
			v.logger.Warn("turnstile replay guard unavailable", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	result, err := v.post(ctx, token, remoteIP)
	if err == nil {
		err = classify(result)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrUnavailable) && claimed {
			// The provider never saw the token, so let the user retry it.
			if relErr := v.guard.Release(context.WithoutCancel(ctx), token); relErr != nil {
				v.logger.Warn("turnstile: release replay guard failed", "error", relErr)
			}
		}
		v.logger.Warn("turnstile verification failed", "error", err, "remote_ip", remoteIP)
		return result, err
	}

	span.SetAttributes(attribute.String("exchange.turnstile.hostname", result.Hostname))
	return result, nil
}

// post calls siteverify, retrying once on transport errors or 5xx with the
// same idempotency key so the token is only redeemed once.
func (v *Verifier) post(ctx context.Context, token, remoteIP string) (*Result, error) {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}
	form.Set("idempotency_key", uuid.NewString())
	encoded := form.Encode()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(encoded))
		if err != nil {
			return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := v.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("siteverify status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: siteverify status %d", ErrUnavailable, resp.StatusCode)
		}

		var result Result
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("%w: decode siteverify response: %v", ErrUnavailable, err)
		}
		return &result, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func classify(result *Result) error {
	if result.Success {
		return nil
	}
	for _, code := range result.ErrorCodes {
		switch code {
		case "timeout-or-duplicate":
			return ErrTokenExpired
		case "internal-error", "missing-input-secret", "invalid-input-secret":
			return fmt.Errorf("%w: %s", ErrUnavailable, code)
		}
	}
	return fmt.Errorf("%w: %s", ErrTokenRejected, strings.Join(result.ErrorCodes, ","))
}

// IsRejection reports whether err means the token itself was bad, as
// opposed to the check being impossible.
func IsRejection(err error) bool {
	return errors.Is(err, ErrTokenRejected) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenReplayed) ||
		errors.Is(err, ErrMissingToken)
}

// DisabledVerifier accepts every non-empty token. Development only.
type DisabledVerifier struct {
	logger *logging.Logger
}

// NewDisabledVerifier returns a verifier that skips the provider call.
func NewDisabledVerifier(logger *logging.Logger) *DisabledVerifier {
	if logger == nil {
		logger = logging.Default()
	}
	logger.Warn("turnstile verification disabled; every non-empty token is accepted")
	return &DisabledVerifier{logger: logger}
}

// Verify accepts any non-empty token.
func (d *DisabledVerifier) Verify(ctx context.Context, token, remoteIP string) (*Result, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}
	d.logger.Debug("turnstile verification skipped", "remote_ip", remoteIP)
	return &Result{Success: true, Hostname: "disabled"}, nil
}
