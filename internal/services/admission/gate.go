package admission

import (
	"crypto/subtle"
	"log/slog"
	"sync"
	"time"

	"github.com/arenalab/arena-server/internal/dependencies/clock"
	"github.com/arenalab/arena-server/internal/metrics"
	"github.com/arenalab/arena-server/internal/model"
)

// Config holds admission gate settings
type Config struct {
	// Fixed rate limit window per client key
	Window      time.Duration
	MaxRequests int

	// Operator credential gating the monitor surface
	OperatorUser   string
	OperatorSecret string
}

// DefaultConfig returns the operational defaults: 20 requests per minute
func DefaultConfig() Config {
	return Config{
		Window:       time.Minute,
		MaxRequests:  20,
		OperatorUser: "admin",
	}
}

// Gate applies rate limiting and operator access control at the boundary,
// before any room interaction. It is independent of in-room capacity.
type Gate struct {
	cfg     Config
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	windows map[string]*window
}

// window is one client's fixed counting window
type window struct {
	start time.Time
	count int
}

// New creates a Gate
func New(cfg Config, clock clock.Clock, m *metrics.Metrics, logger *slog.Logger) *Gate {
	if cfg.Window == 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = DefaultConfig().MaxRequests
	}
	return &Gate{
		cfg:     cfg,
		clock:   clock,
		metrics: m,
		logger:  logger.With(slog.String("component", "admission")),
		windows: make(map[string]*window),
	}
}

// Allow counts one request for the client key, rejecting with
// ErrRateLimited once the window's budget is exhausted. The counter resets
// when the window elapses.
func (g *Gate) Allow(key string) error {
	now := g.clock.Now()

	g.mu.Lock()
	w := g.windows[key]
	if w == nil || now.Sub(w.start) >= g.cfg.Window {
		w = &window{start: now}
		g.windows[key] = w
	}
	w.count++
	over := w.count > g.cfg.MaxRequests
	g.mu.Unlock()

	if over {
		g.metrics.AdmissionRejected.Inc()
		return model.ErrRateLimited
	}
	g.metrics.AdmissionAllowed.Inc()
	return nil
}

// RetryAfter reports how long the client must wait before its window resets
func (g *Gate) RetryAfter(key string) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	w := g.windows[key]
	if w == nil {
		return 0
	}
	remaining := g.cfg.Window - g.clock.Now().Sub(w.start)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CheckOperator validates the monitor-surface credential in constant time
func (g *Gate) CheckOperator(user, secret string) error {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(g.cfg.OperatorUser)) == 1
	secretOK := subtle.ConstantTimeCompare([]byte(secret), []byte(g.cfg.OperatorSecret)) == 1
	if !userOK || !secretOK || g.cfg.OperatorSecret == "" {
		return model.ErrUnauthorized
	}
	return nil
}

// Sweep drops windows idle for longer than a full window. Call periodically.
func (g *Gate) Sweep() {
	now := g.clock.Now()
	g.mu.Lock()
	defer g.mu.Unlock()

	for key, w := range g.windows {
		if now.Sub(w.start) >= 2*g.cfg.Window {
			delete(g.windows, key)
		}
	}
}
