package notification

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nileshk-dev/gurukul/services"
	"github.com/nileshk-dev/gurukul/utils/middleware"
	"github.com/nileshk-dev/gurukul/utils/response"
)

// NotificationHandler serves in-app notifications.
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns the caller's notifications, newest first. Pass unread=true to
// filter to unread only.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	identityID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 50)

	notifications, total, err := h.notifications.List(c.Context(), services.ListOptions{
		IdentityID: identityID,
		UnreadOnly: c.QueryBool("unread", false),
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Paginated(c, notifications, response.CalculatePagination(page, limit, total))
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	identityID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	notificationID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid notification id")
	}

	if err := h.notifications.MarkAsRead(c.Context(), uint(notificationID), identityID); err != nil {
		return response.NotFound(c, "Notification not found")
	}

	return response.SuccessWithMessage(c, "Notification marked as read", nil)
}
