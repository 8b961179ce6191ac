package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/model"
	"github.com/nileshk-dev/gurukul/utils/apperr"
	"github.com/nileshk-dev/gurukul/utils/auth"
)

const passwordResetTTL = 1 * time.Hour

// ForgotPassword creates a single-use reset token and mails the reset link.
// The caller never learns whether the email exists: an unknown address is a
// silent no-op.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	var identity model.Identity
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&identity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load identity: %w", err)
	}

	reset := model.PasswordResetToken{
		IdentityID: identity.ID,
		Token:      uuid.New().String(),
		ExpiresAt:  time.Now().Add(passwordResetTTL),
	}
	if err := s.db.WithContext(ctx).Create(&reset).Error; err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}

	baseURL := os.Getenv("FRONTEND_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	link := fmt.Sprintf("%s/reset-password?token=%s", baseURL, reset.Token)

	go func() {
		body := fmt.Sprintf(
			`A password reset was requested for your account. The link below is valid for one hour.<br><a href="%s">%s</a><br>If you did not request this, you can ignore this email.`,
			link, link)
		if err := s.notifications.email.Send(identity.Email, "Reset your password", body); err != nil {
			log.Printf("failed to email reset link to %s: %v", identity.Email, err)
		}
	}()

	return nil
}

// ResetPassword redeems a reset token. The token must be unexpired and
// unused; redeeming it rotates the password and bumps the token version so
// every outstanding session token stops working.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	var reset model.PasswordResetToken
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&reset).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Validationf("invalid reset token")
		}
		return fmt.Errorf("failed to load reset token: %w", err)
	}
	if reset.IsExpired() {
		return apperr.Validationf("reset token has expired")
	}
	if reset.IsUsed() {
		return apperr.Validationf("reset token has already been used")
	}

	var identity model.Identity
	if err := s.db.WithContext(ctx).First(&identity, reset.IdentityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Validationf("invalid reset token")
		}
		return fmt.Errorf("failed to load identity: %w", err)
	}

	newHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"password_hash": newHash,
			"token_version": identity.TokenVersion + 1,
		}
		if err := tx.Model(&identity).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		reset.MarkAsUsed()
		if err := tx.Save(&reset).Error; err != nil {
			return fmt.Errorf("failed to mark reset token used: %w", err)
		}
		return s.audit.Record(tx, identity.ID, model.EntityIdentity, identity.ID, model.AuditUpdate,
			"reset account password via emailed token", nil, nil)
	})
}
