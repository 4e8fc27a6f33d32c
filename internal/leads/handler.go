package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/wolfman30/exchange-leads/pkg/logging"
)

// MaxBodyBytes caps the size of a submission body.
const MaxBodyBytes = 64 << 10

// Acceptor runs a submission through verification and dispatch.
type Acceptor interface {
	Accept(ctx context.Context, sub Submission, remoteIP string) error
}

// FormConfig is the public configuration the form needs before it can render.
type FormConfig struct {
	SiteKey      string    `json:"siteKey"`
	Variants     []Variant `json:"variants"`
	Services     []string  `json:"services"`
	Timelines    []string  `json:"timelines"`
	Phone        string    `json:"phone"`
	PhoneDisplay string    `json:"phoneDisplay"`
}

// Handler handles HTTP requests for lead intake.
type Handler struct {
	service Acceptor
	form    FormConfig
	logger  *logging.Logger
}

// NewHandler creates a new leads handler.
func NewHandler(service Acceptor, form FormConfig, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if form.Variants == nil {
		form.Variants = Variants()
	}
	if form.Services == nil {
		form.Services = Services
	}
	if form.Timelines == nil {
		form.Timelines = Timelines
	}
	return &Handler{service: service, form: form, logger: logger}
}

type errorResponse struct {
	Error  string      `json:"error"`
	Fields FieldErrors `json:"fields,omitempty"`
}

// Submit handles POST /api/lead.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var sub Submission
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&sub); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("lead submission too large", "limit", tooLarge.Limit)
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "payload_too_large"})
			return
		}
		h.logger.Warn("failed to decode lead submission", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_json"})
		return
	}

	err := h.service.Accept(r.Context(), sub, remoteIP(r))
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if fields, ok := IsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_failed", Fields: fields})
		return
	}
	switch {
	case errors.Is(err, ErrVerificationRequired):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "verification_required"})
	case errors.Is(err, ErrVerificationFailed):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "verification_failed"})
	case errors.Is(err, ErrVerificationUnavailable):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "verification_unavailable"})
	case errors.Is(err, ErrDispatchFailed):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "dispatch_failed"})
	default:
		h.logger.Error("unexpected lead error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
	}
}

// FormConfig handles GET /api/lead/form.
func (h *Handler) FormConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, h.form)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// remoteIP prefers the address rewritten by the RealIP middleware.
func remoteIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
