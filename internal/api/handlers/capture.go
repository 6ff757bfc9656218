// Package handlers provides HTTP handlers for the pagesnap service API.
package handlers

import (
	"context"
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-rod/rod"

	"github.com/pagesnap/pagesnap/internal/browser"
	"github.com/pagesnap/pagesnap/internal/config"
	"github.com/pagesnap/pagesnap/internal/logging"
	"github.com/pagesnap/pagesnap/internal/login"
	"github.com/pagesnap/pagesnap/internal/models"
	"github.com/pagesnap/pagesnap/internal/store"
	"github.com/pagesnap/pagesnap/internal/version"
)

// CaptureHandler handles capture requests.
type CaptureHandler struct {
	pool   *browser.Pool
	store  store.Store
	engine *login.Engine
	cfg    *config.Config
	logger *slog.Logger
}

// NewCaptureHandler creates a new capture handler.
func NewCaptureHandler(pool *browser.Pool, st store.Store, engine *login.Engine, cfg *config.Config, logger *slog.Logger) *CaptureHandler {
	return &CaptureHandler{
		pool:   pool,
		store:  st,
		engine: engine,
		cfg:    cfg,
		logger: logger,
	}
}

// Handle processes a capture request: acquire a browser, obtain a session
// when a login URL is given, render the target page and screenshot it.
// Precondition failures (missing url, login requested without configured
// credentials) are client errors and come back as 400; downstream browser
// failures are reported in the response body.
func (h *CaptureHandler) Handle(ctx context.Context, req *models.CaptureRequest) (*models.CaptureResponse, error) {
	startTime := time.Now().UnixMilli()
	ver := version.Get().Version
	requestID := logging.GetRequestID(ctx)
	logger := logging.FromContext(ctx, h.logger)

	logger.Info("capture request received",
		"url", req.URL,
		"login_url", req.LoginURL,
		"expected_url", req.ExpectedURL,
		"full_page", req.FullPage,
		"max_timeout", req.MaxTimeout,
	)

	if req.URL == "" {
		return nil, huma.Error400BadRequest("url required")
	}

	// The engine assumes credentials exist; reject here, before any browser
	// work, when a login is requested without a configured credential pair.
	if req.LoginURL != "" && !h.cfg.HasCredentials() {
		logger.Warn("login requested but credentials are not configured", "login_url", req.LoginURL)
		return nil, huma.Error400BadRequest("login requested but credentials are not configured")
	}

	timeout := h.cfg.CaptureTimeout
	if req.MaxTimeout > 0 {
		timeout = time.Duration(req.MaxTimeout) * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	inst, err := h.pool.Acquire(ctx)
	if err != nil {
		return models.NewErrorResponse("failed to acquire browser: "+err.Error(), startTime, time.Now().UnixMilli(), ver, requestID), nil
	}
	defer h.pool.Release(inst)

	page, err := browser.CreatePage(inst.Browser, h.cfg.DisableStealth)
	if err != nil {
		return models.NewErrorResponse("failed to create page: "+err.Error(), startTime, time.Now().UnixMilli(), ver, requestID), nil
	}
	defer page.Close()

	resp := &models.CaptureResponse{
		Status:         "ok",
		Message:        "Capture completed successfully.",
		StartTimestamp: startTime,
		Version:        ver,
		RequestID:      requestID,
	}

	targetURL := req.URL
	if req.LoginURL != "" {
		result := h.engine.EnsureSession(ctx, browser.NewPage(page, logger), login.Params{
			LoginURL:    req.LoginURL,
			ExpectedURL: req.ExpectedURL,
			Credentials: login.Credentials{
				Username: h.cfg.LoginUsername,
				Password: h.cfg.LoginPassword,
			},
			Selectors: toSelectorConfig(req.Selectors),
		})
		resp.SessionReused = result.Reused
		resp.FinalURL = result.FinalURL
		resp.Determined = result.FinalURL != ""
	}

	// Render the requested page with the session in place.
	if err := page.Context(ctx).Navigate(targetURL); err != nil {
		return models.NewErrorResponse("failed to navigate: "+err.Error(), startTime, time.Now().UnixMilli(), ver, requestID), nil
	}
	if err := page.WaitLoad(); err != nil {
		logger.Warn("page load wait failed", "url", targetURL, "error", err)
	}

	if req.WaitFor != nil {
		if err := h.handleWaitCondition(ctx, page, req.WaitFor); err != nil {
			logger.Warn("wait condition failed", "error", err)
		}
	}

	info, err := page.Info()
	if err != nil {
		return models.NewErrorResponse("failed to get page info: "+err.Error(), startTime, time.Now().UnixMilli(), ver, requestID), nil
	}
	resp.URL = info.URL
	resp.Title = info.Title

	screenshot, err := page.Screenshot(req.FullPage, nil)
	if err != nil {
		return models.NewErrorResponse("failed to capture screenshot: "+err.Error(), startTime, time.Now().UnixMilli(), ver, requestID), nil
	}
	resp.Screenshot = base64.StdEncoding.EncodeToString(screenshot)
	resp.EndTimestamp = time.Now().UnixMilli()

	logger.Info("capture completed",
		"url", info.URL,
		"session_reused", resp.SessionReused,
		"determined", resp.Determined,
		"duration_ms", resp.EndTimestamp-startTime,
	)

	return resp, nil
}

// HandleSessionClear removes the persisted cookie set for a login URL.
// A missing loginUrl is a client error (400); a store failure is reported in
// the response body.
func (h *CaptureHandler) HandleSessionClear(ctx context.Context, req *models.SessionClearRequest) (*models.SessionClearResponse, error) {
	ver := version.Get().Version
	logger := logging.FromContext(ctx, h.logger)

	if req.LoginURL == "" {
		return nil, huma.Error400BadRequest("loginUrl required")
	}

	key := store.SessionKey(req.LoginURL)
	if err := h.store.Delete(ctx, key); err != nil {
		logger.Warn("failed to clear session", "login_url", req.LoginURL, "error", err)
		return &models.SessionClearResponse{
			Status:  "error",
			Message: "failed to clear session: " + err.Error(),
			Version: ver,
		}, nil
	}

	logger.Info("session cleared", "login_url", req.LoginURL)
	return &models.SessionClearResponse{
		Status:  "ok",
		Message: "Session cleared successfully.",
		Version: ver,
	}, nil
}

// handleWaitCondition waits for the specified condition before capturing.
func (h *CaptureHandler) handleWaitCondition(ctx context.Context, page *rod.Page, cond *models.WaitCondition) error {
	if cond.Selector != "" {
		pg := page.Timeout(30 * time.Second)
		_, err := pg.Element(cond.Selector)
		pg.CancelTimeout()
		if err != nil {
			return err
		}
	}

	if cond.Delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(cond.Delay) * time.Millisecond):
		}
	}

	if cond.NetworkIdle {
		if err := page.WaitIdle(30 * time.Second); err != nil {
			return err
		}
	}

	return nil
}

// toSelectorConfig maps request selectors onto the engine's selector config.
func toSelectorConfig(sel *models.Selectors) login.SelectorConfig {
	if sel == nil {
		return login.SelectorConfig{}
	}
	return login.SelectorConfig{
		Username: sel.Username,
		Password: sel.Password,
		Submit:   sel.Submit,
		Success:  sel.Success,
	}
}
