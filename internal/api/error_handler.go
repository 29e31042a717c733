package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mindspace/therapy-platform/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, rate limiter, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, errorResponse{Error: domain.ErrValidation.Error(), Fields: ve.Fields}
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, errorResponse{Error: "Email already registered"}
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusBadRequest, errorResponse{Error: "Username already taken"}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, errorResponse{Error: "User not found. Please signup first."}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusBadRequest, errorResponse{Error: "Incorrect email or password"}
	case errors.Is(err, domain.ErrAccountInactive):
		return http.StatusForbidden, errorResponse{Error: "Account is deactivated"}
	case errors.Is(err, domain.ErrForbiddenRole):
		return http.StatusForbidden, errorResponse{Error: domain.ErrForbiddenRole.Error()}
	case errors.Is(err, domain.ErrUnauthenticated):
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="api"`)
		return http.StatusUnauthorized, errorResponse{Error: unauthenticatedMessage(err)}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

// unauthenticatedMessage picks the sentinel's own text so wrapped causes never
// reach the client.
func unauthenticatedMessage(err error) string {
	for _, s := range []error{
		domain.ErrMissingAuthHeader,
		domain.ErrMalformedAuthHeader,
		domain.ErrTokenMalformed,
		domain.ErrTokenSignatureInvalid,
		domain.ErrTokenExpired,
		domain.ErrTokenRevoked,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return domain.ErrTokenInvalid.Error()
}
