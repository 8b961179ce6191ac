package auth

import (
	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/services"
	"github.com/nileshk-dev/gurukul/utils/middleware"
	"github.com/nileshk-dev/gurukul/utils/validation"
)

// AuthHandler serves the three login portals and token management.
type AuthHandler struct {
	db         *gorm.DB
	accounts   *services.AccountService
	bruteForce *middleware.BruteForceProtection
	validator  *validation.Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, accounts *services.AccountService, bruteForce *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		db:         db,
		accounts:   accounts,
		bruteForce: bruteForce,
		validator:  validation.NewValidator(),
	}
}
