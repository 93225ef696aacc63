package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edudash/credential-service/internal/core/domain"
)

// RBAC enforces role-based access control over the roles login issues.
// A token whose role login never issues is rejected as unauthenticated;
// a known role outside allowedRoles is forbidden.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		if !domain.KnownRole(r) {
			panic(fmt.Sprintf("rbac: unknown role %q", r))
		}
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if !domain.KnownRole(role) {
				return echo.NewHTTPError(http.StatusUnauthorized, "unrecognised role")
			}
			if _, ok := allowed[role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
