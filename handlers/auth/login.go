package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nileshk-dev/gurukul/model"
	"github.com/nileshk-dev/gurukul/utils/response"
	"github.com/nileshk-dev/gurukul/utils/validation"
)

// LoginRequest represents a portal login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Identity     IdentityResponse `json:"identity"`
	Role         string           `json:"role"`
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
}

// IdentityResponse is the public shape of an identity.
type IdentityResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Login authenticates against one portal. The portal is the :portal route
// parameter (admin, teacher or student); credentials valid for a different
// role are rejected the same way as wrong credentials.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	portal := c.Params("portal")
	if !model.ValidRole(portal) {
		return response.NotFound(c, "Unknown login portal")
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	req.Email = validation.SanitizeString(req.Email)

	ip := c.IP()

	identity, tokens, err := h.accounts.Authenticate(c.Context(), req.Email, req.Password, portal)
	if err != nil {
		if h.bruteForce != nil {
			h.bruteForce.RecordFailedAttempt(c, ip)
		}
		return response.FromError(c, err)
	}

	if h.bruteForce != nil {
		h.bruteForce.ClearAttempts(c, ip)
	}

	return response.Success(c, LoginResponse{
		Identity: IdentityResponse{
			ID:    identity.ID,
			Email: identity.Email,
			Name:  identity.Name,
		},
		Role:         portal,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// RefreshRequest carries a refresh token exchange.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Refresh exchanges a refresh token for a new token pair.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	tokens, err := h.accounts.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, tokens)
}
