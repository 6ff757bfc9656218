// Package main provides the entry point for the pagesnap server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/pagesnap/pagesnap/internal/api/handlers"
	"github.com/pagesnap/pagesnap/internal/auth"
	"github.com/pagesnap/pagesnap/internal/browser"
	"github.com/pagesnap/pagesnap/internal/config"
	"github.com/pagesnap/pagesnap/internal/http/mw"
	"github.com/pagesnap/pagesnap/internal/logging"
	"github.com/pagesnap/pagesnap/internal/login"
	"github.com/pagesnap/pagesnap/internal/models"
	"github.com/pagesnap/pagesnap/internal/shutdown"
	"github.com/pagesnap/pagesnap/internal/store"
	"github.com/pagesnap/pagesnap/internal/version"
)

func main() {
	// Load configuration first; logging is constructed from explicit config
	// values, never from ambient environment reads.
	cfg := config.Load()

	logger := logging.SetDefault(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Debug:  cfg.Debug,
	})

	logger.Info("starting pagesnap server",
		"version", version.Get().Version,
		"port", cfg.Port,
		"pool_size", cfg.BrowserPoolSize,
		"store_backend", cfg.StoreBackend,
		"has_credentials", cfg.HasCredentials(),
	)

	// Context for background tasks
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session store
	st, err := newStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open session store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Browser pool; warm up asynchronously so the first capture does not pay
	// the Chromium download and launch cost.
	pool := browser.NewPool(cfg, logger)
	defer pool.Close()
	go pool.StartCleanup(ctx)
	go func() {
		if err := pool.Warmup(ctx, 1); err != nil {
			logger.Warn("browser pool warmup failed", "error", err)
		}
	}()

	// Login engine
	timeouts := login.Timeouts{
		Widget:      cfg.WidgetWait,
		Field:       cfg.FieldWait,
		Navigation:  cfg.NavigationWait,
		Relay:       cfg.RelayWait,
		Destination: cfg.DestinationWait,
		Settle:      cfg.SettleWait,
	}
	engine := login.NewEngine(st, logger, timeouts, cfg.SessionTTL)

	// Bearer token verifier (optional)
	var verifier *auth.Verifier
	if cfg.JWTSecret != "" {
		verifier, err = auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
		if err != nil {
			logger.Error("failed to build token verifier", "error", err)
			os.Exit(1)
		}
		logger.Info("bearer token verification enabled", "issuer", cfg.JWTIssuer)
	}

	authConfig := mw.AuthConfig{
		Verifier:             verifier,
		ServiceSecret:        cfg.ServiceSecret,
		AllowUnauthenticated: cfg.AllowUnauthenticated,
		Logger:               logger,
	}

	// Idle monitor for scale-to-zero deployments
	idle := shutdown.NewIdleMonitor(shutdown.IdleMonitorConfig{
		Timeout: cfg.IdleTimeout,
		Logger:  logger,
	})
	idle.Start()
	defer idle.Stop()

	// Handlers
	healthHandler := handlers.NewHealthHandler(pool)
	captureHandler := handlers.NewCaptureHandler(pool, st, engine, cfg, logger)

	// Router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.CaptureTimeout + 30*time.Second))
	r.Use(idle.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(httprate.LimitByIP(60, time.Minute))

	authEnabled := cfg.ServiceSecret != "" || verifier != nil
	if authEnabled && !cfg.AllowUnauthenticated {
		logger.Info("authentication middleware enabled",
			"has_service_secret", cfg.ServiceSecret != "",
			"has_token_verifier", verifier != nil,
		)
	} else if cfg.AllowUnauthenticated {
		logger.Warn("authentication disabled - ALLOW_UNAUTHENTICATED is set")
	} else {
		logger.Warn("no authentication configured - service is unprotected")
	}

	humaConfig := huma.DefaultConfig("Pagesnap Server", version.Get().Version)
	humaConfig.Info.Description = "Authenticated page capture service with cached browser sessions"
	api := humachi.New(r, humaConfig)

	// Health endpoint (no auth required)
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns health status and pool statistics",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		resp := healthHandler.Handle(ctx)
		return &HealthOutput{Body: *resp}, nil
	})

	// Protected routes
	protectedRouter := chi.NewRouter()
	if authEnabled && !cfg.AllowUnauthenticated {
		protectedRouter.Use(mw.Auth(authConfig))
	}
	protectedAPI := humachi.New(protectedRouter, humaConfig)

	huma.Register(protectedAPI, huma.Operation{
		OperationID: "capture",
		Method:      http.MethodPost,
		Path:        "/v1/capture",
		Summary:     "Capture a page",
		Description: "Renders a page, acquiring an authenticated session first when loginUrl is set",
		Tags:        []string{"Capture"},
	}, func(ctx context.Context, input *CaptureInput) (*CaptureOutput, error) {
		resp, err := captureHandler.Handle(ctx, &input.Body)
		if err != nil {
			return nil, err
		}
		return &CaptureOutput{Body: *resp}, nil
	})

	huma.Register(protectedAPI, huma.Operation{
		OperationID: "sessionClear",
		Method:      http.MethodPost,
		Path:        "/v1/session/clear",
		Summary:     "Clear a cached session",
		Description: "Removes the persisted cookie set for a login URL",
		Tags:        []string{"Session"},
	}, func(ctx context.Context, input *SessionClearInput) (*SessionClearOutput, error) {
		resp, err := captureHandler.HandleSessionClear(ctx, &input.Body)
		if err != nil {
			return nil, err
		}
		return &SessionClearOutput{Body: *resp}, nil
	})

	r.Mount("/", protectedRouter)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.CaptureTimeout + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt or idle shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case <-idle.ShutdownChan():
		logger.Info("idle shutdown triggered")
	}

	logger.Info("shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

// newStore opens the configured session store backend. SQLite gets a
// background expiry sweep; Redis expires keys natively.
func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case "redis":
		return store.NewRedisStore(cfg.RedisURL, logger)
	default:
		st, err := store.NewSQLiteStore(cfg.SessionDBPath, logger)
		if err != nil {
			return nil, err
		}
		go st.StartCleanup(ctx, time.Hour)
		return st, nil
	}
}

// CaptureInput is the input for capture requests.
type CaptureInput struct {
	Body models.CaptureRequest
}

// CaptureOutput is the output for capture requests.
type CaptureOutput struct {
	Body models.CaptureResponse
}

// SessionClearInput is the input for session clear requests.
type SessionClearInput struct {
	Body models.SessionClearRequest
}

// SessionClearOutput is the output for session clear requests.
type SessionClearOutput struct {
	Body models.SessionClearResponse
}

// HealthOutput is the output wrapper for the health endpoint.
type HealthOutput struct {
	Body handlers.HealthResponse
}
