package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/exchange-leads/internal/http/middleware"
	"github.com/wolfman30/exchange-leads/internal/leads"
	"github.com/wolfman30/exchange-leads/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	LeadsHandler       *leads.Handler
	LeadRateLimiter    *httpmiddleware.RateLimiter
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.LeadsHandler != nil {
		r.Route("/api/lead", func(api chi.Router) {
			api.Get("/form", cfg.LeadsHandler.FormConfig)
			api.Group(func(submit chi.Router) {
				if cfg.LeadRateLimiter != nil {
					submit.Use(httpmiddleware.RateLimit(cfg.LeadRateLimiter, logger))
				}
				submit.Post("/", cfg.LeadsHandler.Submit)
			})
		})
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
