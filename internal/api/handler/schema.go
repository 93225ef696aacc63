package handler

import "github.com/edudash/credential-service/internal/core/domain"

type hashRequest struct {
	Password string `json:"password" validate:"required"`
}

type hashResponse struct {
	HashedPassword string `json:"hashedPassword"`
}

// verifyRequest uses pointers so an absent field can be told apart from an
// empty one; only absence is a bad request.
type verifyRequest struct {
	Password       *string `json:"password"       validate:"required"`
	HashedPassword *string `json:"hashedPassword" validate:"required"`
}

type verifyResponse struct {
	IsValid bool `json:"isValid"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string           `json:"token"`
	User  *domain.Identity `json:"user"`
}

type acceptedResponse struct {
	Message string   `json:"message"`
	Count   int      `json:"count,omitempty"`
	Tenants []string `json:"tenants,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
