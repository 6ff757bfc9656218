// Package mw contains HTTP middleware for the pagesnap service.
package mw

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pagesnap/pagesnap/internal/auth"
)

// ContextKey is a type for context keys.
type ContextKey string

// PrincipalKey is the context key for the authenticated principal.
const PrincipalKey ContextKey = "principal"

// signedHeaderMaxAge bounds replay of signed service headers.
const signedHeaderMaxAge = 300 // seconds

// Principal identifies the authenticated caller.
type Principal struct {
	CallerID string
	Scopes   []string
}

// HasScope checks whether the caller holds a scope. Supports wildcard
// patterns with a trailing asterisk (e.g. "capture_*").
func (p *Principal) HasScope(pattern string) bool {
	if p == nil || len(p.Scopes) == 0 {
		return false
	}

	if strings.HasSuffix(pattern, "_*") {
		prefix := strings.TrimSuffix(pattern, "*")
		for _, s := range p.Scopes {
			if strings.HasPrefix(s, prefix) {
				return true
			}
		}
		return false
	}

	for _, s := range p.Scopes {
		if s == pattern {
			return true
		}
	}
	return false
}

// GetPrincipal retrieves the authenticated principal from context.
func GetPrincipal(ctx context.Context) *Principal {
	p, ok := ctx.Value(PrincipalKey).(*Principal)
	if !ok {
		return nil
	}
	return p
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// Verifier for direct bearer-token validation (optional).
	Verifier *auth.Verifier

	// ServiceSecret validates signed X-Pagesnap-* headers from trusted
	// internal callers (optional).
	ServiceSecret string

	// AllowUnauthenticated skips authentication entirely. Local development
	// only.
	AllowUnauthenticated bool

	// Logger for auth events.
	Logger *slog.Logger
}

// Auth returns authentication middleware that accepts, in order: signed
// service headers, then a bearer token.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.AllowUnauthenticated {
				next.ServeHTTP(w, r)
				return
			}

			if cfg.ServiceSecret != "" {
				principal, err := validateSignedHeaders(r, cfg.ServiceSecret)
				if err != nil && cfg.Logger != nil {
					cfg.Logger.Debug("signed header validation failed", "error", err)
				}
				if err == nil && principal != nil {
					ctx := context.WithValue(r.Context(), PrincipalKey, principal)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			if cfg.Verifier != nil {
				authHeader := r.Header.Get("Authorization")
				if authHeader == "" {
					http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
					return
				}

				token := strings.TrimPrefix(authHeader, "Bearer ")

				claims, err := cfg.Verifier.VerifyToken(token)
				if err != nil {
					if cfg.Logger != nil {
						cfg.Logger.Debug("bearer token validation failed", "error", err)
					}
					http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
					return
				}

				principal := &Principal{CallerID: claims.Subject, Scopes: claims.Scopes}
				ctx := context.WithValue(r.Context(), PrincipalKey, principal)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			http.Error(w, `{"error":"authentication not configured"}`, http.StatusUnauthorized)
		})
	}
}

// validateSignedHeaders validates the X-Pagesnap-* headers from an internal
// caller.
// Headers:
//   - X-Pagesnap-Signature: HMAC-SHA256 signature
//   - X-Pagesnap-Timestamp: Unix timestamp (for replay protection)
//   - X-Pagesnap-Caller-ID: Caller identity
//   - X-Pagesnap-Scopes: Comma-separated scopes
func validateSignedHeaders(r *http.Request, secret string) (*Principal, error) {
	signature := r.Header.Get("X-Pagesnap-Signature")
	timestamp := r.Header.Get("X-Pagesnap-Timestamp")
	callerID := r.Header.Get("X-Pagesnap-Caller-ID")

	if signature == "" || timestamp == "" || callerID == "" {
		return nil, nil // not using signed headers
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix()-ts > signedHeaderMaxAge {
		return nil, ErrTimestampExpired
	}

	scopes := r.Header.Get("X-Pagesnap-Scopes")
	message := timestamp + ":" + callerID + ":" + scopes

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	expectedSig := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expectedSig)) {
		return nil, ErrInvalidSignature
	}

	var scopeList []string
	if scopes != "" {
		scopeList = strings.Split(scopes, ",")
		for i, s := range scopeList {
			scopeList[i] = strings.TrimSpace(s)
		}
	}

	return &Principal{CallerID: callerID, Scopes: scopeList}, nil
}

// SignHeaders computes the signature an internal caller must send. Exposed so
// callers and tests build headers the same way the validator checks them.
func SignHeaders(secret, timestamp, callerID, scopes string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + ":" + callerID + ":" + scopes))
	return hex.EncodeToString(mac.Sum(nil))
}

// Errors
var (
	ErrTimestampExpired = &AuthError{Message: "timestamp expired"}
	ErrInvalidSignature = &AuthError{Message: "invalid signature"}
)

// AuthError represents an authentication error.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
