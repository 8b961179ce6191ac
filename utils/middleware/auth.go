package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/model"
	"github.com/nileshk-dev/gurukul/utils/auth"
	"github.com/nileshk-dev/gurukul/utils/response"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	db         *gorm.DB
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *auth.JWTManager, db *gorm.DB) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		db:         db,
	}
}

// Required is middleware that requires a valid JWT access token
func (m *AuthMiddleware) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization token")
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Unauthorized(c, "Invalid authorization format")
		}

		claims, err := m.jwtManager.ValidateToken(parts[1])
		if err != nil {
			if err == auth.ErrExpiredToken {
				return response.Unauthorized(c, "Token has expired")
			}
			return response.Unauthorized(c, "Invalid token")
		}

		if claims.TokenType != "access" {
			return response.Unauthorized(c, "Invalid token type")
		}

		// Load identity and verify token version
		var identity model.Identity
		if err := m.db.First(&identity, claims.IdentityID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return response.Unauthorized(c, "Account not found")
			}
			return response.InternalServerError(c, "Failed to load account")
		}

		if identity.TokenVersion != claims.TokenVersion {
			return response.Unauthorized(c, "Token has been invalidated")
		}

		c.Locals("identity_id", claims.IdentityID)
		c.Locals("identity_email", claims.Email)
		c.Locals("identity", &identity)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// GetIdentityID extracts the authenticated identity id from context
func GetIdentityID(c *fiber.Ctx) (uint, bool) {
	id := c.Locals("identity_id")
	if id == nil {
		return 0, false
	}
	v, ok := id.(uint)
	return v, ok
}

// GetIdentity extracts the full identity from context
func GetIdentity(c *fiber.Ctx) (*model.Identity, bool) {
	identity := c.Locals("identity")
	if identity == nil {
		return nil, false
	}
	v, ok := identity.(*model.Identity)
	return v, ok
}
