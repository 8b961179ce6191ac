package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nileshk-dev/gurukul/database"
	"github.com/nileshk-dev/gurukul/utils/response"
)

// HealthHandler reports service and database health
type HealthHandler struct {
	store database.Storage
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store database.Storage) *HealthHandler {
	return &HealthHandler{store: store}
}

// Check returns 200 when the service and its database are reachable.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.store.HealthCheck(); err != nil {
		return response.Error(c, fiber.StatusServiceUnavailable, "database unreachable", "UNHEALTHY")
	}
	return response.Success(c, fiber.Map{"status": "ok"})
}
