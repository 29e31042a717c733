package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/mindspace/therapy-platform/internal/api/metrics"
	"github.com/mindspace/therapy-platform/internal/core/domain"
)

// RequireRole lets the request through only when the authenticated role is
// exactly required. It must be mounted after Auth.
func RequireRole(required domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return domain.ErrMissingAuthHeader
			}
			if !id.Role.Permits(required) {
				metrics.RoleGateDenialsTotal.WithLabelValues(string(required)).Inc()
				return domain.ErrForbiddenRole
			}
			return next(c)
		}
	}
}
