package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindspace/therapy-platform/internal/core/domain"
)

var issuedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newManager(t *testing.T, secret string, now time.Time) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(secret, 24*time.Hour, WithClock(fixedClock(now)))
	require.NoError(t, err)
	return m
}

func TestTokenManager_RoundTrip(t *testing.T) {
	m := newManager(t, "secret", issuedAt)

	for _, role := range []domain.Role{domain.RoleUser, domain.RolePsychologist, domain.RoleAdmin} {
		p := &domain.Principal{ID: "65f0c0ffee" + string(role), Role: role}

		tok, err := m.Issue(p)
		require.NoError(t, err)
		assert.NotEmpty(t, tok.Value)
		assert.Equal(t, issuedAt.Add(24*time.Hour), tok.ExpiresAt)
		assert.Equal(t, int64(86400000), tok.TTL.Milliseconds())

		id, err := m.Verify(tok.Value)
		require.NoError(t, err)
		assert.Equal(t, p.ID, id.PrincipalID)
		assert.Equal(t, role, id.Role)
		assert.Equal(t, tok.ID, id.TokenID)

		again, err := m.Verify(tok.Value)
		require.NoError(t, err)
		assert.Equal(t, id, again)
	}
}

func TestTokenManager_Expired(t *testing.T) {
	tok, err := newManager(t, "secret", issuedAt).Issue(&domain.Principal{ID: "p1", Role: domain.RoleUser})
	require.NoError(t, err)

	justBefore := newManager(t, "secret", issuedAt.Add(24*time.Hour-time.Second))
	_, err = justBefore.Verify(tok.Value)
	require.NoError(t, err)

	later := newManager(t, "secret", issuedAt.Add(24*time.Hour+time.Second))
	_, err = later.Verify(tok.Value)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	tok, err := newManager(t, "secret", issuedAt).Issue(&domain.Principal{ID: "p1", Role: domain.RoleUser})
	require.NoError(t, err)

	_, err = newManager(t, "other-secret", issuedAt).Verify(tok.Value)
	assert.ErrorIs(t, err, domain.ErrTokenSignatureInvalid)
}

func TestTokenManager_TamperedPayload(t *testing.T) {
	m := newManager(t, "secret", issuedAt)
	tok, err := m.Issue(&domain.Principal{ID: "p1", Role: domain.RoleUser})
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             string(domain.RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{Subject: "p1", ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour))},
	}).SignedString([]byte("attacker"))
	require.NoError(t, err)

	parts := strings.Split(tok.Value, ".")
	forgedParts := strings.Split(forged, ".")
	spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]

	_, err = m.Verify(spliced)
	assert.ErrorIs(t, err, domain.ErrTokenSignatureInvalid)
}

func TestTokenManager_Malformed(t *testing.T) {
	m := newManager(t, "secret", issuedAt)

	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		_, err := m.Verify(raw)
		assert.ErrorIs(t, err, domain.ErrTokenMalformed, "input %q", raw)
	}
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	m := newManager(t, "secret", issuedAt)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             string(domain.RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{Subject: "p1", ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(unsigned)
	assert.ErrorIs(t, err, domain.ErrTokenSignatureInvalid)
}

func TestTokenManager_MissingClaims(t *testing.T) {
	m := newManager(t, "secret", issuedAt)

	sign := func(c Claims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret"))
		require.NoError(t, err)
		return s
	}
	exp := jwt.NewNumericDate(issuedAt.Add(time.Hour))

	_, err := m.Verify(sign(Claims{Role: "user", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}}))
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = m.Verify(sign(Claims{Role: "superuser", RegisteredClaims: jwt.RegisteredClaims{Subject: "p1", ExpiresAt: exp}}))
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = m.Verify(sign(Claims{Role: "user", RegisteredClaims: jwt.RegisteredClaims{Subject: "p1"}}))
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestNewTokenManager(t *testing.T) {
	_, err := NewTokenManager("", time.Hour)
	assert.Error(t, err)

	m, err := NewTokenManager("s", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, m.TTL())
}
