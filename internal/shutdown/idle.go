// Package shutdown provides graceful shutdown utilities including idle
// monitoring for scale-to-zero deployments.
package shutdown

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// IdleMonitor signals a graceful shutdown after a quiet period with no
// in-flight requests. Health probes are excluded so platform checks cannot
// keep an otherwise idle instance alive.
type IdleMonitor struct {
	idleTimeout time.Duration
	logger      *slog.Logger

	inFlight   atomic.Int64
	lastActive atomic.Int64 // unix nanos of the last tracked request

	stopCh     chan struct{}
	shutdownCh chan struct{}
	stopOnce   sync.Once
	signalOnce sync.Once
	wg         sync.WaitGroup

	isHealthCheckFn func(*http.Request) bool
}

// IdleMonitorConfig configures the idle monitor.
type IdleMonitorConfig struct {
	// Timeout is the duration of inactivity before triggering shutdown.
	// Set to 0 or negative to disable idle monitoring.
	Timeout time.Duration

	// Logger for idle monitoring events.
	Logger *slog.Logger

	// IsHealthCheck identifies health check requests, which do not reset the
	// idle timer. If nil, uses DefaultIsHealthCheck.
	IsHealthCheck func(*http.Request) bool
}

// NewIdleMonitor creates a new idle monitor.
func NewIdleMonitor(cfg IdleMonitorConfig) *IdleMonitor {
	isHealthCheck := cfg.IsHealthCheck
	if isHealthCheck == nil {
		isHealthCheck = DefaultIsHealthCheck
	}

	m := &IdleMonitor{
		idleTimeout:     cfg.Timeout,
		logger:          cfg.Logger,
		stopCh:          make(chan struct{}),
		shutdownCh:      make(chan struct{}),
		isHealthCheckFn: isHealthCheck,
	}
	m.touch()
	return m
}

// Start begins monitoring for idle state. When the idle timeout elapses with
// no in-flight requests, the shutdown channel is closed. Disabled when the
// timeout is <= 0.
func (m *IdleMonitor) Start() {
	if !m.IsEnabled() {
		m.logger.Info("idle monitoring disabled (set IDLE_TIMEOUT to enable)")
		return
	}

	m.logger.Info("idle monitoring started", "timeout", m.idleTimeout)

	m.wg.Add(1)
	go m.run()
}

// IsEnabled returns true if idle monitoring is enabled.
func (m *IdleMonitor) IsEnabled() bool {
	return m.idleTimeout > 0
}

// Stop stops the idle monitor. Safe to call more than once.
func (m *IdleMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// checkInterval derives the poll cadence from the timeout, clamped so tiny
// timeouts do not spin and huge ones still react within half a minute.
func (m *IdleMonitor) checkInterval() time.Duration {
	interval := m.idleTimeout / 4
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	if interval > 30*time.Second {
		interval = 30 * time.Second
	}
	return interval
}

func (m *IdleMonitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.checkInterval())
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
		}

		if m.inFlight.Load() > 0 {
			continue
		}
		idle := m.IdleTime()
		if idle < m.idleTimeout {
			continue
		}

		m.logger.Info("idle timeout reached, signaling graceful shutdown",
			"idle_time", idle.Round(time.Millisecond),
			"timeout", m.idleTimeout,
		)
		m.signalOnce.Do(func() { close(m.shutdownCh) })
		return
	}
}

func (m *IdleMonitor) touch() {
	m.lastActive.Store(time.Now().UnixNano())
}

// TrackRequest marks that a request has started and returns a function to
// call when it completes. Health checks do not count toward activity.
func (m *IdleMonitor) TrackRequest(r *http.Request) func() {
	if m.isHealthCheckFn(r) {
		return func() {}
	}

	m.inFlight.Add(1)
	m.touch()

	return func() {
		m.inFlight.Add(-1)
		m.touch()
	}
}

// Middleware returns HTTP middleware that tracks requests.
func (m *IdleMonitor) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		done := m.TrackRequest(r)
		defer done()
		next.ServeHTTP(w, r)
	})
}

// ShutdownChan returns a channel that is closed when idle shutdown triggers.
// Main should select on this alongside SIGTERM.
func (m *IdleMonitor) ShutdownChan() <-chan struct{} {
	return m.shutdownCh
}

// ActiveRequests returns the current number of in-flight requests.
func (m *IdleMonitor) ActiveRequests() int64 {
	return m.inFlight.Load()
}

// LastRequestTime returns the time of the last non-health-check request.
func (m *IdleMonitor) LastRequestTime() time.Time {
	return time.Unix(0, m.lastActive.Load())
}

// IdleTime returns how long the server has been idle.
func (m *IdleMonitor) IdleTime() time.Duration {
	return time.Since(m.LastRequestTime())
}

var healthCheckPaths = map[string]struct{}{
	"/health":  {},
	"/healthz": {},
	"/livez":   {},
	"/readyz":  {},
}

// DefaultIsHealthCheck reports whether the request is a health probe, by
// path or by User-Agent.
func DefaultIsHealthCheck(r *http.Request) bool {
	if _, ok := healthCheckPaths[r.URL.Path]; ok {
		return true
	}
	return strings.Contains(r.Header.Get("User-Agent"), "HealthCheck")
}
