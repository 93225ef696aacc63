package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edudash/credential-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	codec       ports.PasswordCodec
}

func NewAuthHandler(authService ports.AuthService, codec ports.PasswordCodec) *AuthHandler {
	return &AuthHandler{authService: authService, codec: codec}
}

// Hash returns the canonical salted hash of a password.
//
// @Summary      Hash a password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      hashRequest  true  "Password to hash"
// @Success      200   {object}  hashResponse
// @Failure      400   {object}  errorResponse
// @Router       /auth/hash [post]
func (h *AuthHandler) Hash(c echo.Context) error {
	var req hashRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	hashed, err := h.codec.Hash(req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hashResponse{HashedPassword: hashed})
}

// Verify checks a password against a stored hash in either supported format.
// An unreadable hash is reported as isValid=false, never as an error.
//
// @Summary      Verify a password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyRequest  true  "Password and stored hash"
// @Success      200   {object}  verifyResponse
// @Failure      400   {object}  errorResponse
// @Router       /auth/verify [post]
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	outcome := h.codec.Check(*req.Password, *req.HashedPassword)
	return c.JSON(http.StatusOK, verifyResponse{IsValid: outcome.Valid()})
}

// Login authenticates against the tenant selected by the email domain and
// returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
}
