package audit

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nileshk-dev/gurukul/services"
	"github.com/nileshk-dev/gurukul/utils/middleware"
	"github.com/nileshk-dev/gurukul/utils/response"
)

// AuditHandler exposes the audit log. All history views are filter queries
// over the one log: admins see everything, teachers and students see the
// entries they authored.
type AuditHandler struct {
	audit *services.AuditService
	roles *services.RoleService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit *services.AuditService, roles *services.RoleService) *AuditHandler {
	return &AuditHandler{audit: audit, roles: roles}
}

// Query returns audit entries newest-first, filtered by query parameters:
// entity_type, entity_id, actor_id, action, from, to (dates), page, limit.
func (h *AuditHandler) Query(c *fiber.Ctx) error {
	viewerID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	role, err := h.roles.Resolve(c.Context(), viewerID)
	if err != nil {
		return response.FromError(c, err)
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	filter := services.AuditFilter{
		EntityType: c.Query("entity_type"),
		EntityID:   uint(c.QueryInt("entity_id", 0)),
		ActorID:    uint(c.QueryInt("actor_id", 0)),
		Action:     c.Query("action"),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	}
	filter = services.ScopeForViewer(filter, role, viewerID)

	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return response.BadRequest(c, "Invalid from date, expected YYYY-MM-DD")
		}
		filter.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return response.BadRequest(c, "Invalid to date, expected YYYY-MM-DD")
		}
		// Inclusive end of day.
		t = t.Add(24*time.Hour - time.Second)
		filter.To = &t
	}

	entries, total, err := h.audit.Query(c.Context(), filter)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Paginated(c, entries, response.CalculatePagination(page, limit, total))
}
