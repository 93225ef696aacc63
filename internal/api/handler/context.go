package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// claims is the caller identity injected by the Auth middleware.
type claims struct {
	Email  string
	Role   string
	Tenant string
}

// ctxClaims extracts the auth claims and fails fast before any service call:
// role must be present (proving the middleware ran) and so must the tenant,
// since every administrative action is scoped to one.
func ctxClaims(c echo.Context) (claims, error) {
	var cl claims
	cl.Role, _ = c.Get("role").(string)
	if cl.Role == "" {
		return claims{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	cl.Tenant, _ = c.Get("tenant").(string)
	if cl.Tenant == "" {
		return claims{}, echo.NewHTTPError(http.StatusUnauthorized, "token missing tenant")
	}

	cl.Email, _ = c.Get("email").(string)
	return cl, nil
}
