package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mindspace/therapy-platform/internal/core/domain"
)

// DefaultTokenTTL is how long an issued session token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the JWT payload of a session token. Subject holds the principal id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Token is a freshly issued session token.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
	TTL       time.Duration
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customises a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

// NewTokenManager returns a manager signing with secret. A non-positive ttl
// falls back to DefaultTokenTTL.
func NewTokenManager(secret string, ttl time.Duration, opts ...TokenOption) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token manager: signing secret is empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	m := &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL returns the lifetime given to every issued token.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Issue signs a token for p.
func (m *TokenManager) Issue(p *domain.Principal) (Token, error) {
	if p == nil || p.ID == "" {
		return Token{}, errors.New("issue token: principal has no id")
	}

	now := m.now()
	exp := now.Add(m.ttl)
	jti := uuid.NewString()

	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	return Token{Value: signed, ID: jti, ExpiresAt: claims.ExpiresAt.Time, TTL: m.ttl}, nil
}

// Verify checks signature and expiry and returns the encoded identity.
// The result depends only on raw, the manager's clock and its secret.
func (m *TokenManager) Verify(raw string) (domain.Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.Identity{}, classify(err)
	}

	role := domain.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return domain.Identity{}, domain.ErrTokenInvalid
	}

	return domain.Identity{
		PrincipalID: claims.Subject,
		Role:        role,
		TokenID:     claims.ID,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domain.ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	default:
		return domain.ErrTokenInvalid
	}
}
