// Package http registers the operational endpoints shared by every deployment:
// health probes, Prometheus metrics and the Swagger UI.
package http

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/edudash/credential-service/docs"
	"github.com/edudash/credential-service/internal/infrastructure/http/handlers"
)

// RegisterOperational mounts /health, /health/ready, /metrics and /swagger/*
// on e. rdb may be nil when the process runs without Redis.
func RegisterOperational(e *echo.Echo, tenants handlers.TenantPinger, rdb handlers.RedisPinger) {
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(tenants, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)
}
