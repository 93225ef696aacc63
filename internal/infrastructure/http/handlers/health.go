package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler handles GET /health, the liveness probe.
// Returns 200 immediately; confirms the process is alive.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// TenantPinger checks every tenant backend and reports per-tenant errors.
type TenantPinger interface {
	Ping(ctx context.Context) map[string]error
}

// RedisPinger is satisfied by *redis.Client.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// HealthDependenciesHandler handles GET /health/ready, the readiness probe.
// Checks Redis and every tenant's MongoDB before declaring the service ready.
type HealthDependenciesHandler struct {
	tenants TenantPinger
	redis   RedisPinger
}

func NewHealthDependenciesHandler(tenants TenantPinger, rdb RedisPinger) *HealthDependenciesHandler {
	return &HealthDependenciesHandler{
		tenants: tenants,
		redis:   rdb,
	}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

func (h *HealthDependenciesHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
	defer cancel()

	deps := make(map[string]dependencyStatus)
	healthy := true

	// --- Tenant MongoDB pings ---
	results := h.tenants.Ping(ctx)
	tenants := make([]string, 0, len(results))
	for d := range results {
		tenants = append(tenants, d)
	}
	sort.Strings(tenants)
	for _, d := range tenants {
		if err := results[d]; err != nil {
			deps["mongodb:"+d] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			healthy = false
		} else {
			deps["mongodb:"+d] = dependencyStatus{Status: "ok"}
		}
	}

	// --- Redis ping ---
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			deps["redis"] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			healthy = false
		} else {
			deps["redis"] = dependencyStatus{Status: "ok"}
		}
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, readinessResponse{
		Status:       status,
		Dependencies: deps,
	})
}
