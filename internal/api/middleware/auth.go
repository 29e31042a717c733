package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mindspace/therapy-platform/internal/api/metrics"
	"github.com/mindspace/therapy-platform/internal/core/domain"
)

const identityKey = "identity"

// Authenticator turns a raw bearer token into a verified identity.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (domain.Identity, error)
}

// Auth verifies the bearer token and injects the decoded identity into the
// request context. Failures are returned as domain errors for the central
// error handler to render.
func Auth(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues(verificationResult(err)).Inc()
				return err
			}

			id, err := authn.Authenticate(c.Request().Context(), raw)
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues(verificationResult(err)).Inc()
				return err
			}

			metrics.TokenVerificationsTotal.WithLabelValues("verified").Inc()
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity set by Auth, if any.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(identityKey).(domain.Identity)
	return id, ok
}

// SetIdentity attaches id to the request context.
func SetIdentity(c echo.Context, id domain.Identity) {
	c.Set(identityKey, id)
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", domain.ErrMissingAuthHeader
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", domain.ErrMalformedAuthHeader
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", domain.ErrMalformedAuthHeader
	}
	return token, nil
}

func verificationResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingAuthHeader):
		return "missing_header"
	case errors.Is(err, domain.ErrMalformedAuthHeader):
		return "malformed_header"
	case errors.Is(err, domain.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, domain.ErrTokenSignatureInvalid):
		return "bad_signature"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "invalid"
	default:
		return "error"
	}
}
