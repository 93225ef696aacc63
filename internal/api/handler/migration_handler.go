package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/edudash/credential-service/internal/core/domain"
	"github.com/edudash/credential-service/internal/core/ports"
)

// MigrationDispatcher is the interface the handler uses to queue migrations.
type MigrationDispatcher interface {
	Enqueue(tenantDomain string) error
}

// MigrationHandler exposes plaintext-to-hash migrations to tenant admins.
type MigrationHandler struct {
	service    ports.MigrationService
	dispatcher MigrationDispatcher
	tenants    ports.TenantResolver
}

func NewMigrationHandler(service ports.MigrationService, dispatcher MigrationDispatcher, tenants ports.TenantResolver) *MigrationHandler {
	return &MigrationHandler{service: service, dispatcher: dispatcher, tenants: tenants}
}

// RunTenant handles POST /admin/tenants/:domain/migrations and runs the
// migration synchronously.
//
// @Summary      Migrate one tenant's plaintext passwords
// @Tags         migrations
// @Produce      json
// @Security     BearerAuth
// @Param        domain  path      string  true  "Tenant email domain"
// @Success      200     {object}  domain.MigrationSummary
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Failure      404     {object}  errorResponse
// @Failure      409     {object}  errorResponse
// @Router       /admin/tenants/{domain}/migrations [post]
func (h *MigrationHandler) RunTenant(c echo.Context) error {
	cl, err := ctxClaims(c)
	if err != nil {
		return err
	}

	tenant := strings.ToLower(strings.TrimSpace(c.Param("domain")))
	if tenant != cl.Tenant {
		return domain.ErrForbidden
	}

	summary, err := h.service.Run(c.Request().Context(), tenant)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownTenant) {
			return echo.NewHTTPError(http.StatusNotFound, "tenant not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// Enqueue handles POST /admin/migrations: queues the caller's own tenant on
// the background dispatcher and returns 202. Migrating every tenant at once is
// an operator task left to credmigrate run --all.
//
// @Summary      Queue a migration for the caller's tenant
// @Tags         migrations
// @Produce      json
// @Security     BearerAuth
// @Success      202  {object}  acceptedResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /admin/migrations [post]
func (h *MigrationHandler) Enqueue(c echo.Context) error {
	cl, err := ctxClaims(c)
	if err != nil {
		return err
	}

	project, ok := h.tenants.ResolveByDomain(cl.Tenant)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "tenant not found")
	}

	if err := h.dispatcher.Enqueue(project.Domain); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "migration queue unavailable")
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{
		Message: "migration queued",
		Count:   1,
		Tenants: []string{project.Domain},
	})
}
