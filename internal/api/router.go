package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/mindspace/therapy-platform/docs"
	"github.com/mindspace/therapy-platform/internal/api/handler"
	"github.com/mindspace/therapy-platform/internal/api/middleware"
	"github.com/mindspace/therapy-platform/internal/core/domain"
	"github.com/mindspace/therapy-platform/internal/core/ports"
	"github.com/mindspace/therapy-platform/internal/infrastructure/http/handlers"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Auth      ports.AuthService
	Directory ports.DirectoryService
	Checks    []handlers.DependencyCheck
	Log       zerolog.Logger

	// RateLimitRPS and RateLimitBurst throttle the public auth endpoints per
	// client IP. Zero disables throttling.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// HTTP metrics go to a per-router registry so several routers can coexist in tests.
	reg := prometheus.NewRegistry()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "therapy",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth)
	requireAuth := middleware.Auth(d.Auth)

	auth := e.Group("/auth")
	throttle := middleware.RateLimit(d.RateLimitRPS, d.RateLimitBurst)
	auth.POST("/signup", authHandler.Signup, throttle)
	auth.POST("/login", authHandler.Login, throttle)
	auth.GET("/me", authHandler.Me, requireAuth)
	auth.POST("/logout", authHandler.Logout, requireAuth)

	// --- Admin routes ---
	adminHandler := handler.NewAdminHandler(d.Directory)
	admin := e.Group("/admin", requireAuth, middleware.RequireRole(domain.RoleAdmin))
	admin.GET("/principals", adminHandler.List)
	admin.GET("/principals/:id", adminHandler.Get)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(d.Checks...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.Gatherers{prometheus.DefaultGatherer, reg},
	}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
