package api

import (
	"fmt"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/edudash/credential-service/internal/api/handler"
	"github.com/edudash/credential-service/internal/api/middleware"
	"github.com/edudash/credential-service/internal/core/domain"
	"github.com/edudash/credential-service/internal/core/ports"
	infrahttp "github.com/edudash/credential-service/internal/infrastructure/http"
	"github.com/edudash/credential-service/internal/infrastructure/http/handlers"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Auth       ports.AuthService
	Codec      ports.PasswordCodec
	Migrations ports.MigrationService
	Dispatcher handler.MigrationDispatcher
	Tenants    ports.TenantResolver

	TenantHealth handlers.TenantPinger
	Redis        handlers.RedisPinger

	JWTSecret string
	Log       zerolog.Logger
	// Registerer receives the HTTP metrics; nil means the default registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	reg := d.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	promMW, err := echoprometheus.MiddlewareConfig{Subsystem: "credentials_http", Registerer: reg}.ToMiddleware()
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.BodyLimit("64K"))
	e.Use(promMW)
	e.Use(requestLogger(d.Log))

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Codec)
	e.POST("/auth/hash", authHandler.Hash)
	e.POST("/auth/verify", authHandler.Verify)
	e.POST("/auth/login", authHandler.Login)

	// --- Admin routes (JWT + admin role) ---
	migrationHandler := handler.NewMigrationHandler(d.Migrations, d.Dispatcher, d.Tenants)
	admin := e.Group("/admin", middleware.Auth(d.JWTSecret), middleware.RBAC(domain.RoleAdmin))
	admin.POST("/tenants/:domain/migrations", migrationHandler.RunTenant)
	admin.POST("/migrations", migrationHandler.Enqueue)

	// --- Health, metrics, docs (no auth required) ---
	infrahttp.RegisterOperational(e, d.TenantHealth, d.Redis)

	return e, nil
}

// requestLogger writes one zerolog line per request. Bodies are never logged
// since they carry passwords.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
