package leadform

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrWidgetUnavailable is returned when the challenge script never loaded.
var ErrWidgetUnavailable = errors.New("leadform: challenge widget unavailable")

// WidgetConfig is handed to the challenge widget when it renders.
type WidgetConfig struct {
	SiteKey   string
	Container string
	OnToken   func(token string)
	OnError   func(err error)
	OnExpired func()
}

// WidgetHandle identifies one rendered widget instance.
type WidgetHandle string

// ChallengeWidget abstracts the bot-challenge widget.
type ChallengeWidget interface {
	Render(ctx context.Context, cfg WidgetConfig) (WidgetHandle, error)
	Reset(h WidgetHandle) error
}

// StaticWidget issues a fixed token as soon as it renders. Used by the CLI
// and by tests, which can also drive the error and expiry callbacks.
type StaticWidget struct {
	Token string

	mu      sync.Mutex
	cfg     WidgetConfig
	handle  WidgetHandle
	renders int
	resets  int
}

// NewStaticWidget returns a widget that solves itself with token.
func NewStaticWidget(token string) *StaticWidget {
	return &StaticWidget{Token: token}
}

// Render records the callbacks and immediately reports the token, if any.
func (w *StaticWidget) Render(ctx context.Context, cfg WidgetConfig) (WidgetHandle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	w.mu.Lock()
	w.renders++
	w.cfg = cfg
	w.handle = WidgetHandle(fmt.Sprintf("static-%d", w.renders))
	handle := w.handle
	w.mu.Unlock()

	if w.Token != "" && cfg.OnToken != nil {
		cfg.OnToken(w.Token)
	}
	return handle, nil
}

// Reset clears the solved state. A new token only arrives through Solve.
func (w *StaticWidget) Reset(h WidgetHandle) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if h != w.handle {
		return fmt.Errorf("leadform: unknown widget handle %q", h)
	}
	w.resets++
	return nil
}

// Solve delivers token through the token callback.
func (w *StaticWidget) Solve(token string) {
	w.mu.Lock()
	cb := w.cfg.OnToken
	w.mu.Unlock()
	if cb != nil {
		cb(token)
	}
}

// Fail fires the error callback.
func (w *StaticWidget) Fail(err error) {
	w.mu.Lock()
	cb := w.cfg.OnError
	w.mu.Unlock()
	if cb != nil {
		cb(err)
	}
}

// Expire fires the expiry callback.
func (w *StaticWidget) Expire() {
	w.mu.Lock()
	cb := w.cfg.OnExpired
	w.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Resets reports how many times the widget was reset.
func (w *StaticWidget) Resets() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resets
}

// Config returns the configuration of the last render.
func (w *StaticWidget) Config() WidgetConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}
