package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nileshk-dev/gurukul/utils/middleware"
	"github.com/nileshk-dev/gurukul/utils/response"
	"github.com/nileshk-dev/gurukul/utils/validation"
)

// ChangePasswordRequest carries a password rotation.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// ChangePassword rotates the caller's password and revokes all outstanding
// tokens.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	identityID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if ok, problems := validation.ValidatePassword(req.NewPassword); !ok {
		return response.BadRequest(c, problems[0])
	}

	if err := h.accounts.ChangePassword(c.Context(), identityID, req.CurrentPassword, req.NewPassword); err != nil {
		return response.FromError(c, err)
	}

	return response.SuccessWithMessage(c, "Password changed. Please log in again.", nil)
}

// Me returns the authenticated identity.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	return response.Success(c, IdentityResponse{
		ID:    identity.ID,
		Email: identity.Email,
		Name:  identity.Name,
	})
}
