package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Email provider names accepted in EMAIL_PROVIDER.
const (
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSES      = "ses"
	EmailProviderStub     = "stub"
)

const (
	defaultSendGridTemplateID = "d-15217ab1c55347b5847c2421b1a82847"
	defaultFromEmail          = "support@1031exchangesanfrancisco.com"
	defaultTurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Email
	EmailProvider      string
	SendGridAPIKey     string
	SendGridTemplateID string
	SendGridFromEmail  string
	SESTemplateName    string
	ContractorEmail    string
	InternalRecipients []string
	EmailSendTimeout   time.Duration

	// Bot challenge
	TurnstileEnabled   bool
	TurnstileSiteKey   string
	TurnstileSecretKey string
	TurnstileVerifyURL string
	TurnstileTimeout   time.Duration

	// Optional replay guard
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// HTTP surface
	LeadRateLimitRPS   float64
	LeadRateLimitBurst int
	CORSAllowedOrigins []string

	// Site identity, fed to the brand context
	SiteName         string
	SiteURL          string
	PrimaryCity      string
	PrimaryStateAbbr string
	SitePhone        string
	SiteEmail        string
	OfficeAddress    string
	LogoURL          string

	// AWS (SES)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	siteURL := getEnv("SITE_URL", "https://www.1031exchangesanfrancisco.com")
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		EmailProvider:      strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", EmailProviderSendGrid))),
		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		SendGridTemplateID: getEnv("SENDGRID_TEMPLATE_ID", defaultSendGridTemplateID),
		SendGridFromEmail:  getEnv("SENDGRID_FROM_EMAIL", defaultFromEmail),
		SESTemplateName:    getEnv("SES_TEMPLATE_NAME", "lead-confirmation"),
		ContractorEmail:    strings.TrimSpace(getEnv("CONTRACTOR_EMAIL", "")),
		InternalRecipients: getEnvAsList("INTERNAL_NOTIFY_EMAILS", []string{"rankhoundseo@gmail.com"}),
		EmailSendTimeout:   getEnvAsDuration("EMAIL_SEND_TIMEOUT", 10*time.Second),

		TurnstileEnabled:   getEnvAsBool("TURNSTILE_ENABLED", true),
		TurnstileSiteKey:   getEnv("TURNSTILE_SITE_KEY", ""),
		TurnstileSecretKey: getEnv("TURNSTILE_SECRET_KEY", ""),
		TurnstileVerifyURL: getEnv("TURNSTILE_VERIFY_URL", defaultTurnstileVerifyURL),
		TurnstileTimeout:   getEnvAsDuration("TURNSTILE_TIMEOUT", 5*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		LeadRateLimitRPS:   getEnvAsFloat("LEAD_RATE_LIMIT_RPS", 0.2),
		LeadRateLimitBurst: getEnvAsInt("LEAD_RATE_LIMIT_BURST", 5),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{siteURL}),

		SiteName:         getEnv("SITE_NAME", "1031 Exchange San Francisco"),
		SiteURL:          siteURL,
		PrimaryCity:      getEnv("PRIMARY_CITY", "San Francisco"),
		PrimaryStateAbbr: getEnv("PRIMARY_STATE_ABBR", "CA"),
		SitePhone:        getEnv("SITE_PHONE", "(415) 555-1031"),
		SiteEmail:        getEnv("SITE_EMAIL", defaultFromEmail),
		OfficeAddress:    getEnv("OFFICE_ADDRESS", "San Francisco, CA"),
		LogoURL:          getEnv("LOGO_URL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-west-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// Validate reports configuration that must stop the process at startup.
// A missing email provider key is fatal rather than something to discover on
// the first submission.
func (c *Config) Validate() error {
	var errs []error
	switch c.EmailProvider {
	case EmailProviderSendGrid:
		if strings.TrimSpace(c.SendGridAPIKey) == "" {
			errs = append(errs, errors.New("SENDGRID_API_KEY is required when EMAIL_PROVIDER=sendgrid"))
		}
		if strings.TrimSpace(c.SendGridTemplateID) == "" {
			errs = append(errs, errors.New("SENDGRID_TEMPLATE_ID must not be empty"))
		}
	case EmailProviderSES:
		if strings.TrimSpace(c.SESTemplateName) == "" {
			errs = append(errs, errors.New("SES_TEMPLATE_NAME is required when EMAIL_PROVIDER=ses"))
		}
	case EmailProviderStub:
		if c.IsProduction() {
			errs = append(errs, errors.New("EMAIL_PROVIDER=stub is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EMAIL_PROVIDER %q", c.EmailProvider))
	}
	if strings.TrimSpace(c.SendGridFromEmail) == "" {
		errs = append(errs, errors.New("SENDGRID_FROM_EMAIL must not be empty"))
	}
	if c.TurnstileEnabled && strings.TrimSpace(c.TurnstileSecretKey) == "" {
		errs = append(errs, errors.New("TURNSTILE_SECRET_KEY is required when TURNSTILE_ENABLED=true"))
	}
	if !c.TurnstileEnabled && c.IsProduction() {
		errs = append(errs, errors.New("TURNSTILE_ENABLED=false is not allowed in production"))
	}
	if c.EmailSendTimeout <= 0 || c.TurnstileTimeout <= 0 {
		errs = append(errs, errors.New("EMAIL_SEND_TIMEOUT and TURNSTILE_TIMEOUT must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Env))
	return env == "production" || env == "prod"
}

// NotificationRecipients returns the internal recipients followed by the
// contractor address, de-duplicated case-insensitively.
func (c *Config) NotificationRecipients() []string {
	seen := make(map[string]struct{}, len(c.InternalRecipients)+1)
	out := make([]string, 0, len(c.InternalRecipients)+1)
	for _, addr := range append(append([]string{}, c.InternalRecipients...), c.ContractorEmail) {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
