package marks

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nileshk-dev/gurukul/services"
	"github.com/nileshk-dev/gurukul/utils/middleware"
	"github.com/nileshk-dev/gurukul/utils/response"
	"github.com/nileshk-dev/gurukul/utils/validation"
)

// MarksHandler serves mark entry, result generation and the publication gate.
type MarksHandler struct {
	results   *services.ResultService
	roles     *services.RoleService
	validator *validation.Validator
}

// NewMarksHandler creates a new marks handler
func NewMarksHandler(results *services.ResultService, roles *services.RoleService) *MarksHandler {
	return &MarksHandler{
		results:   results,
		roles:     roles,
		validator: validation.NewValidator(),
	}
}

func paramUint(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// UpsertMarkRequest carries one mark entry. Entering marks twice for the same
// student and subject overwrites the earlier entry.
type UpsertMarkRequest struct {
	StudentID     uint    `json:"student_id" validate:"required"`
	SubjectID     uint    `json:"subject_id" validate:"required"`
	MarksObtained float64 `json:"marks_obtained" validate:"gte=0"`
	ExamDate      string  `json:"exam_date" validate:"required"`
}

// UpsertMark enters or corrects a student's marks for one subject.
func (h *MarksHandler) UpsertMark(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req UpsertMarkRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	examDate, err := validation.ParseDate(req.ExamDate)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	mark, err := h.results.UpsertMark(c.Context(), req.StudentID, req.SubjectID, req.MarksObtained, examDate, actorID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, mark)
}

// Recompute regenerates the result for the student in the route from their
// full current mark set.
func (h *MarksHandler) Recompute(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	studentID, err := paramUint(c, "studentId")
	if err != nil {
		return response.BadRequest(c, "Invalid student id")
	}

	result, err := h.results.RecomputeResult(c.Context(), studentID, actorID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, result)
}

// PublishRequest toggles a result's publication flag.
type PublishRequest struct {
	Published bool `json:"published"`
}

// Publish sets the publication flag on the result in the route.
func (h *MarksHandler) Publish(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	resultID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid result id")
	}

	var req PublishRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.results.SetResultPublished(c.Context(), resultID, req.Published, actorID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, result)
}

// Result returns a student's result through the publication gate: students
// see only their own published result.
func (h *MarksHandler) Result(c *fiber.Ctx) error {
	viewerID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	studentID, err := paramUint(c, "studentId")
	if err != nil {
		return response.BadRequest(c, "Invalid student id")
	}

	result, err := h.results.ResultForViewer(c.Context(), studentID, viewerID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, result)
}

// Summary returns the per-subject marks breakdown for a student. Students may
// only request their own.
func (h *MarksHandler) Summary(c *fiber.Ctx) error {
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

	summary, err := h.results.Summary(c.Context(), studentID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, summary)
}
