// Package auth provides bearer-token verification for the pagesnap service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoSecret is returned when the verifier is constructed without a secret.
	ErrNoSecret = errors.New("JWT secret not configured")
	// ErrInvalidToken is returned for tokens that fail validation.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the token claims the service cares about.
type Claims struct {
	Subject string
	Scopes  []string
	jwt.RegisteredClaims
}

// tokenClaims is the raw claim layout inside the JWT.
type tokenClaims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens issued for this service.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a token verifier. issuer is optional; when set, tokens
// from any other issuer are rejected.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}, nil
}

// VerifyToken validates the token signature, expiry and issuer, and returns
// the claims.
func (v *Verifier) VerifyToken(tokenString string) (*Claims, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("%w: expired", ErrInvalidToken)
	}

	return &Claims{
		Subject:          claims.Subject,
		Scopes:           claims.Scopes,
		RegisteredClaims: claims.RegisteredClaims,
	}, nil
}
