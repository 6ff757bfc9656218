package handlers

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagesnap/pagesnap/internal/config"
	"github.com/pagesnap/pagesnap/internal/models"
)

// Note: Full integration tests for CaptureHandler.Handle require a browser
// pool (Chrome/Chromium). The login engine itself is unit tested against
// fakes in internal/login; here we cover the request preconditions and the
// session clear operation.

func testHandlerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubStore struct {
	deleted   []string
	deleteErr error
}

func (s *stubStore) Load(context.Context, string) (models.CookieSet, error) { return nil, nil }
func (s *stubStore) Save(context.Context, string, models.CookieSet, time.Duration) error {
	return nil
}
func (s *stubStore) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return s.deleteErr
}
func (s *stubStore) Close() error { return nil }

// wantBadRequest asserts the handler rejected the request with HTTP 400.
func wantBadRequest(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var se huma.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error %v does not carry an HTTP status", err)
	}
	if se.GetStatus() != 400 {
		t.Errorf("status = %d, want 400", se.GetStatus())
	}
}

func TestCaptureHandler_Preconditions(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		h := &CaptureHandler{
			cfg:    &config.Config{},
			logger: testHandlerLogger(),
		}

		resp, err := h.Handle(context.Background(), &models.CaptureRequest{})

		wantBadRequest(t, err)
		if resp != nil {
			t.Errorf("resp = %+v, want nil", resp)
		}
	})

	t.Run("login without configured credentials", func(t *testing.T) {
		h := &CaptureHandler{
			cfg:    &config.Config{}, // no LOGIN_USERNAME/LOGIN_PASSWORD
			logger: testHandlerLogger(),
		}

		resp, err := h.Handle(context.Background(), &models.CaptureRequest{
			URL:      "https://ex.com/app",
			LoginURL: "https://ex.com/login",
		})

		wantBadRequest(t, err)
		if resp != nil {
			t.Errorf("resp = %+v, want nil before any browser work", resp)
		}
	})

	t.Run("partial credentials still rejected", func(t *testing.T) {
		h := &CaptureHandler{
			cfg:    &config.Config{LoginUsername: "alice"},
			logger: testHandlerLogger(),
		}

		_, err := h.Handle(context.Background(), &models.CaptureRequest{
			URL:      "https://ex.com/app",
			LoginURL: "https://ex.com/login",
		})

		wantBadRequest(t, err)
	})
}

func TestCaptureHandler_HandleSessionClear(t *testing.T) {
	t.Run("clears under the derived key", func(t *testing.T) {
		st := &stubStore{}
		h := &CaptureHandler{
			store:  st,
			cfg:    &config.Config{},
			logger: testHandlerLogger(),
		}

		resp, err := h.HandleSessionClear(context.Background(), &models.SessionClearRequest{
			LoginURL: "https://ex.com/login",
		})

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status != "ok" {
			t.Fatalf("status = %q, want ok", resp.Status)
		}
		if len(st.deleted) != 1 || st.deleted[0] != "cookies:https://ex.com/login" {
			t.Errorf("deleted = %v, want [cookies:https://ex.com/login]", st.deleted)
		}
	})

	t.Run("missing login url", func(t *testing.T) {
		h := &CaptureHandler{
			store:  &stubStore{},
			cfg:    &config.Config{},
			logger: testHandlerLogger(),
		}

		_, err := h.HandleSessionClear(context.Background(), &models.SessionClearRequest{})
		wantBadRequest(t, err)
	})

	t.Run("store failure reported", func(t *testing.T) {
		h := &CaptureHandler{
			store:  &stubStore{deleteErr: errors.New("backend unavailable")},
			cfg:    &config.Config{},
			logger: testHandlerLogger(),
		}

		resp, err := h.HandleSessionClear(context.Background(), &models.SessionClearRequest{
			LoginURL: "https://ex.com/login",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status != "error" {
			t.Errorf("status = %q, want error", resp.Status)
		}
	})
}

func TestToSelectorConfig(t *testing.T) {
	t.Run("nil selectors", func(t *testing.T) {
		sel := toSelectorConfig(nil)
		if sel.Username != "" || sel.Password != "" || sel.Submit != "" || sel.Success != "" {
			t.Errorf("expected zero config, got %+v", sel)
		}
	})

	t.Run("mapped fields", func(t *testing.T) {
		sel := toSelectorConfig(&models.Selectors{
			Username: "#u",
			Password: "#p",
			Submit:   "#s",
			Success:  "#ok",
		})
		if sel.Username != "#u" || sel.Password != "#p" || sel.Submit != "#s" || sel.Success != "#ok" {
			t.Errorf("mapping mismatch: %+v", sel)
		}
	})
}
