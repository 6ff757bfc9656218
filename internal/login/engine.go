package login

import (
	"context"
	"log/slog"
	"time"

	"github.com/pagesnap/pagesnap/internal/store"
)

// Params describes one session-acquisition request.
type Params struct {
	LoginURL    string
	ExpectedURL string // Destination prefix after login; empty means unknown
	Credentials Credentials
	Selectors   SelectorConfig
}

// Result reports how a session was obtained.
type Result struct {
	FinalURL       string // Confirmed destination, empty when undetermined
	Reused         bool   // True when a cached session was restored
	RelaySubmitted bool
	Signal         string
}

// Engine orchestrates session acquisition: restore, validate, login, persist.
// Callers must verify credentials are configured before invoking EnsureSession;
// the engine assumes they are present.
type Engine struct {
	store     store.Store
	driver    *Driver
	detector  *Detector
	validator *Validator
	logger    *slog.Logger
	ttl       time.Duration
}

// NewEngine creates a session-acquisition engine.
func NewEngine(st store.Store, logger *slog.Logger, timeouts Timeouts, ttl time.Duration) *Engine {
	return &Engine{
		store:     st,
		driver:    NewDriver(logger, timeouts),
		detector:  NewDetector(logger, timeouts),
		validator: NewValidator(logger, timeouts),
		logger:    logger,
		ttl:       ttl,
	}
}

// EnsureSession makes the page hold an authenticated session for the login
// URL, reusing a cached cookie set when it still validates and performing a
// fresh credential login otherwise. A fresh login persists the resulting
// cookies; a reused session leaves the stored set untouched.
func (e *Engine) EnsureSession(ctx context.Context, page Page, p Params) Result {
	key := store.SessionKey(p.LoginURL)

	if e.restore(ctx, page, key) {
		// Probe the login URL itself: an authenticated browser is redirected
		// away from it, or the page renders its logged-in indicator.
		if e.validator.IsValid(ctx, page, p.LoginURL, p.Selectors) {
			e.logger.Info("reusing cached session", "login_url", p.LoginURL)
			url, err := page.URL()
			if err != nil {
				url = p.LoginURL
			}
			return Result{FinalURL: url, Reused: true}
		}
		e.logger.Info("cached session no longer valid, performing fresh login", "login_url", p.LoginURL)
	}

	e.driver.Fill(ctx, page, p.LoginURL, p.Credentials, p.Selectors)

	outcome := e.detector.Complete(ctx, page, p.LoginURL, p.ExpectedURL, p.Selectors, func() {
		e.driver.Submit(page, p.Selectors)
	})

	e.persist(ctx, page, key)

	return Result{
		FinalURL:       outcome.FinalURL,
		RelaySubmitted: outcome.RelaySubmitted,
		Signal:         outcome.Signal,
	}
}

// restore loads the cached cookie set and applies it to the page. Any failure
// falls through to a fresh login.
func (e *Engine) restore(ctx context.Context, page Page, key string) bool {
	cookies, err := e.store.Load(ctx, key)
	if err != nil {
		e.logger.Warn("failed to load cached session", "error", err)
		return false
	}
	if cookies.Empty() {
		return false
	}
	if err := page.SetCookies(cookies); err != nil {
		e.logger.Warn("failed to apply cached cookies", "error", err)
		return false
	}
	e.logger.Debug("restored cached cookies", "count", len(cookies))
	return true
}

// persist captures the page's cookies and stores them. Failure is logged and
// swallowed: the login already happened, only the next request pays for it.
func (e *Engine) persist(ctx context.Context, page Page, key string) {
	cookies, err := page.Cookies()
	if err != nil {
		e.logger.Warn("failed to capture cookies after login", "error", err)
		return
	}
	if err := e.store.Save(ctx, key, cookies, e.ttl); err != nil {
		e.logger.Warn("failed to persist session cookies", "error", err)
		return
	}
	e.logger.Info("persisted session cookies", "count", len(cookies), "ttl", e.ttl)
}
