package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/exchange-leads/cmd/mainconfig"
	"github.com/wolfman30/exchange-leads/internal/api/router"
	"github.com/wolfman30/exchange-leads/internal/brand"
	appconfig "github.com/wolfman30/exchange-leads/internal/config"
	httpmiddleware "github.com/wolfman30/exchange-leads/internal/http/middleware"
	"github.com/wolfman30/exchange-leads/internal/leads"
	"github.com/wolfman30/exchange-leads/internal/notify"
	"github.com/wolfman30/exchange-leads/internal/observability/metrics"
	"github.com/wolfman30/exchange-leads/internal/turnstile"
	"github.com/wolfman30/exchange-leads/pkg/logging"
)

// Runtime is the assembled lead intake stack.
type Runtime struct {
	Handler     http.Handler
	RateLimiter *httpmiddleware.RateLimiter
	Redis       *redis.Client
	Registry    *prometheus.Registry
}

// Close releases the Redis connection, if any.
func (rt *Runtime) Close() error {
	if rt == nil || rt.Redis == nil {
		return nil
	}
	return rt.Redis.Close()
}

// BuildEmailSender constructs the configured template sender once, at
// startup. It also returns the template identifier for that provider.
func BuildEmailSender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (notify.TemplateSender, string, error) {
	switch cfg.EmailProvider {
	case appconfig.EmailProviderSendGrid:
		sender, err := notify.NewSendGridSender(notify.SendGridConfig{APIKey: cfg.SendGridAPIKey}, logger)
		if err != nil {
			return nil, "", err
		}
		return sender, cfg.SendGridTemplateID, nil
	case appconfig.EmailProviderSES:
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		sender, err := notify.NewSESSender(mainconfig.NewSESClient(awsCfg, cfg), notify.SESConfig{}, logger)
		if err != nil {
			return nil, "", err
		}
		return sender, cfg.SESTemplateName, nil
	case appconfig.EmailProviderStub:
		logger.Warn("email provider is stub; no email will be delivered")
		return notify.NewStubEmailSender(logger), cfg.SendGridTemplateID, nil
	default:
		return nil, "", fmt.Errorf("bootstrap: unknown email provider %q", cfg.EmailProvider)
	}
}

// BuildVerifier returns the Turnstile verifier. The replay guard is only
// attached when a Redis client is available.
func BuildVerifier(cfg *appconfig.Config, rdb *redis.Client, logger *logging.Logger) (leads.Verifier, error) {
	if !cfg.TurnstileEnabled {
		return turnstile.NewDisabledVerifier(logger), nil
	}
	tcfg := turnstile.Config{
		SecretKey: cfg.TurnstileSecretKey,
		VerifyURL: cfg.TurnstileVerifyURL,
		Timeout:   cfg.TurnstileTimeout,
	}
	if guard := turnstile.NewRedisReplayGuard(rdb); guard != nil {
		tcfg.Guard = guard
	}
	v, err := turnstile.NewVerifier(tcfg, logger)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// BuildDispatcher wires the email dispatcher. SENDGRID_FROM_EMAIL is the
// sender for every provider.
func BuildDispatcher(cfg *appconfig.Config, sender notify.TemplateSender, templateID string, m *metrics.LeadMetrics, logger *logging.Logger) (*notify.Dispatcher, error) {
	return notify.NewDispatcher(sender, notify.DispatcherConfig{
		TemplateID:  templateID,
		FromEmail:   cfg.SendGridFromEmail,
		Recipients:  cfg.NotificationRecipients(),
		SendTimeout: cfg.EmailSendTimeout,
	}, m, logger)
}

// BrandIdentity maps site configuration onto the brand identity.
func BrandIdentity(cfg *appconfig.Config) brand.Identity {
	return brand.Identity{
		SiteName:         cfg.SiteName,
		SiteURL:          cfg.SiteURL,
		PrimaryCity:      cfg.PrimaryCity,
		PrimaryStateAbbr: cfg.PrimaryStateAbbr,
		Phone:            cfg.SitePhone,
		Email:            cfg.SiteEmail,
		OfficeAddress:    cfg.OfficeAddress,
		LogoURL:          cfg.LogoURL,
	}
}

// Build wires config into a ready-to-serve router. Fatal misconfiguration,
// such as a missing email provider key, fails here before any request.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	sender, templateID, err := BuildEmailSender(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	rdb := BuildRedisClient(ctx, cfg, logger, true)
	verifier, err := BuildVerifier(cfg, rdb, logger)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	leadMetrics := metrics.NewLeadMetrics(reg)

	dispatcher, err := BuildDispatcher(cfg, sender, templateID, leadMetrics, logger)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, err
	}

	brandCtx := brand.Build(BrandIdentity(cfg))
	service := leads.NewService(verifier, dispatcher, brandCtx, leadMetrics, logger)
	handler := leads.NewHandler(service, leads.FormConfig{
		SiteKey:      cfg.TurnstileSiteKey,
		Phone:        brandCtx.CallPhonePlain,
		PhoneDisplay: brandCtx.CallPhone,
	}, logger)

	var limiter *httpmiddleware.RateLimiter
	if cfg.LeadRateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.LeadRateLimitRPS, cfg.LeadRateLimitBurst)
	}

	logger.Info("lead intake ready",
		"email_provider", cfg.EmailProvider,
		"turnstile_enabled", cfg.TurnstileEnabled,
		"replay_guard", rdb != nil,
		"internal_recipients", len(dispatcher.Recipients()),
	)

	return &Runtime{
		Handler: router.New(&router.Config{
			Logger:             logger,
			LeadsHandler:       handler,
			LeadRateLimiter:    limiter,
			MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		}),
		RateLimiter: limiter,
		Redis:       rdb,
		Registry:    reg,
	}, nil
}
