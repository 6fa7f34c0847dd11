// Package auth issues and verifies the bearer tokens that carry a caller's
// identity to the HTTP API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DefaultTTL is the lifetime of issued tokens when none is configured.
const DefaultTTL = 12 * time.Hour

// Token errors.
var (
	// ErrNoSecret indicates a manager was created without a signing secret.
	ErrNoSecret = errors.New("jwt secret not configured")

	// ErrInvalidToken indicates a token that is malformed, expired, wrongly
	// signed or without a subject.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims are the JWT claims of an identity token. The subject claim is
// the owner key.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Manager signs and validates HS256 identity tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager creates a token manager. A zero ttl uses DefaultTTL.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for the identity.
func (m *Manager) Issue(id domain.Identity) (string, error) {
	if !id.IsValid() {
		return "", fmt.Errorf("issue token: %w", domain.ErrInvalidInput)
	}

	now := m.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Email: id.Email,
		Name:  id.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify validates a token and returns the identity it carries.
func (m *Manager) Verify(tokenString string) (domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return domain.Identity{}, ErrInvalidToken
	}

	id := domain.Identity{Subject: claims.Subject, Email: claims.Email, Name: claims.Name}
	if !id.IsValid() {
		return domain.Identity{}, ErrInvalidToken
	}
	return id, nil
}

// TTL returns the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}
