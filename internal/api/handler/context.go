package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/mindspace/therapy-platform/internal/api/middleware"
	"github.com/mindspace/therapy-platform/internal/core/domain"
)

// ctxIdentity returns the identity injected by the Auth middleware. A missing
// identity means the route was mounted without it; treat the caller as
// unauthenticated.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.PrincipalID == "" {
		return domain.Identity{}, domain.ErrMissingAuthHeader
	}
	return id, nil
}
