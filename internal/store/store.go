// Package store provides TTL-bounded persistence for serialized cookie sets.
package store

import (
	"context"
	"time"

	"github.com/pagesnap/pagesnap/internal/models"
)

// Store is a key/value persistence abstraction with TTL. Load returns
// (nil, nil) when the key is absent or expired; callers treat a load error the
// same way and fall through to a fresh login.
type Store interface {
	// Load retrieves the cookie set stored under key, or nil when absent.
	Load(ctx context.Context, key string) (models.CookieSet, error)

	// Save persists the cookie set under key for the given TTL, replacing any
	// previous value.
	Save(ctx context.Context, key string, cookies models.CookieSet, ttl time.Duration) error

	// Delete removes the cookie set stored under key.
	Delete(ctx context.Context, key string) error

	// Close releases the backing resources.
	Close() error
}

// SessionKey derives the store key for a login URL. Stable for a given login
// URL across requests.
func SessionKey(loginURL string) string {
	return "cookies:" + loginURL
}
