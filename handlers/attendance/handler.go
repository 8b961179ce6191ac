package attendance

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nileshk-dev/gurukul/services"
	"github.com/nileshk-dev/gurukul/utils/middleware"
	"github.com/nileshk-dev/gurukul/utils/response"
	"github.com/nileshk-dev/gurukul/utils/validation"
)

// AttendanceHandler serves the attendance ledger.
type AttendanceHandler struct {
	attendance *services.AttendanceService
	roles      *services.RoleService
	validator  *validation.Validator
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(attendance *services.AttendanceService, roles *services.RoleService) *AttendanceHandler {
	return &AttendanceHandler{
		attendance: attendance,
		roles:      roles,
		validator:  validation.NewValidator(),
	}
}

func paramUint(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// MarkRequest carries one attendance entry.
type MarkRequest struct {
	StudentID uint   `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Status    string `json:"status" validate:"required,oneof=present absent late excused"`
	Remarks   string `json:"remarks" validate:"max=200"`
}

// Mark records or corrects one student's attendance for one day.
func (h *AttendanceHandler) Mark(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req MarkRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	date, err := validation.ParseDate(req.Date)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	record, err := h.attendance.Mark(c.Context(), req.StudentID, date, req.Status, actorID,
		validation.SanitizeString(req.Remarks))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, record)
}

// BulkMarkRequest marks a whole class for one day.
type BulkMarkRequest struct {
	ClassGroupID uint            `json:"class_group_id" validate:"required"`
	Date         string          `json:"date" validate:"required"`
	Statuses     map[uint]string `json:"statuses" validate:"required,min=1"`
}

// BulkMark records attendance for a whole class in one call.
func (h *AttendanceHandler) BulkMark(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req BulkMarkRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	date, err := validation.ParseDate(req.Date)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	records, err := h.attendance.BulkMark(c.Context(), req.ClassGroupID, date, req.Statuses, actorID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, records)
}

// Summary returns a student's attendance aggregate. Students may only view
// their own.
func (h *AttendanceHandler) Summary(c *fiber.Ctx) error {
	viewerID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	studentID, err := paramUint(c, "studentId")
	if err != nil {
		return response.BadRequest(c, "Invalid student id")
	}

	allowed, err := h.roles.Authorize(c.Context(), viewerID, services.ActionViewStudentRecord,
		services.Target{StudentID: studentID})
	if err != nil {
		return response.FromError(c, err)
	}
	if !allowed {
		return response.Forbidden(c, "")
	}

	summary, err := h.attendance.Summarize(c.Context(), studentID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, summary)
}

// History returns a student's attendance records, newest first.
func (h *AttendanceHandler) History(c *fiber.Ctx) error {
	viewerID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	studentID, err := paramUint(c, "studentId")
	if err != nil {
		return response.BadRequest(c, "Invalid student id")
	}

	allowed, err := h.roles.Authorize(c.Context(), viewerID, services.ActionViewStudentRecord,
		services.Target{StudentID: studentID})
	if err != nil {
		return response.FromError(c, err)
	}
	if !allowed {
		return response.Forbidden(c, "")
	}

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 30)
	offset := (page - 1) * limit

	records, total, err := h.attendance.History(c.Context(), studentID, limit, offset)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Paginated(c, records, response.CalculatePagination(page, limit, total))
}
