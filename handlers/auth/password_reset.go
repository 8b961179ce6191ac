package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nileshk-dev/gurukul/utils/response"
	"github.com/nileshk-dev/gurukul/utils/validation"
)

// ForgotPasswordRequest asks for a reset link by email.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword mails a reset link. The response is the same whether or not
// the email is registered.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := h.accounts.ForgotPassword(c.Context(), validation.SanitizeString(req.Email)); err != nil {
		return response.FromError(c, err)
	}

	return response.SuccessWithMessage(c, "If the email exists, a password reset link will be sent", nil)
}

// ResetPasswordRequest redeems a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// ResetPassword sets a new password using an emailed token.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if ok, problems := validation.ValidatePassword(req.NewPassword); !ok {
		return response.BadRequest(c, problems[0])
	}

	if err := h.accounts.ResetPassword(c.Context(), req.Token, req.NewPassword); err != nil {
		return response.FromError(c, err)
	}

	return response.SuccessWithMessage(c, "Password reset successfully. Please log in with your new password.", nil)
}
