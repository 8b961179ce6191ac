package assignment

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nileshk-dev/gurukul/services"
	"github.com/nileshk-dev/gurukul/services/spaces"
	"github.com/nileshk-dev/gurukul/utils/middleware"
	"github.com/nileshk-dev/gurukul/utils/pdfvalidation"
	"github.com/nileshk-dev/gurukul/utils/response"
	"github.com/nileshk-dev/gurukul/utils/validation"
)

// AssignmentHandler serves the assignment lifecycle, submissions and grading.
// The spaces client may be nil when file storage is not configured; uploads
// are rejected in that case but the rest of the workflow still works.
type AssignmentHandler struct {
	assignments *services.AssignmentService
	roles       *services.RoleService
	storage     *spaces.Client
	validator   *validation.Validator
}

// NewAssignmentHandler creates a new assignment handler
func NewAssignmentHandler(assignments *services.AssignmentService, roles *services.RoleService, storage *spaces.Client) *AssignmentHandler {
	return &AssignmentHandler{
		assignments: assignments,
		roles:       roles,
		storage:     storage,
		validator:   validation.NewValidator(),
	}
}

func paramUint(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// CreateRequest carries a new assignment.
type CreateRequest struct {
	Title        string  `json:"title" validate:"required,max=200"`
	Description  string  `json:"description"`
	SubjectID    uint    `json:"subject_id" validate:"required"`
	ClassGroupID uint    `json:"class_group_id" validate:"required"`
	MaxMarks     float64 `json:"max_marks" validate:"required,gte=1"`
	DueDate      string  `json:"due_date" validate:"required"`
}

// Create adds a draft assignment.
func (h *AssignmentHandler) Create(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		return response.BadRequest(c, "Invalid due date, expected RFC3339 timestamp")
	}

	assignment, err := h.assignments.Create(c.Context(), services.CreateAssignmentInput{
		Title:        validation.SanitizeString(req.Title),
		Description:  validation.SanitizeString(req.Description),
		SubjectID:    req.SubjectID,
		ClassGroupID: req.ClassGroupID,
		MaxMarks:     req.MaxMarks,
		DueDate:      dueDate,
	}, actorID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, assignment)
}

// TransitionRequest moves an assignment to its next lifecycle state.
type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=published closed"`
}

// Transition publishes or closes the assignment in the route.
func (h *AssignmentHandler) Transition(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	assignmentID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid assignment id")
	}

	var req TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	assignment, err := h.assignments.Transition(c.Context(), assignmentID, req.Status, actorID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, assignment)
}

// Submit accepts a student's PDF submission as multipart form data. The file
// is validated, stored, and the submission recorded; lateness is decided by
// the server clock against the due date.
func (h *AssignmentHandler) Submit(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	assignmentID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid assignment id")
	}

	student, err := h.roles.StudentByIdentity(c.Context(), actorID)
	if err != nil {
		return response.Forbidden(c, "No student record for this account")
	}

	if h.storage == nil {
		return response.InternalServerError(c, "File storage is not configured")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "Missing submission file")
	}

	result, err := pdfvalidation.ValidatePDFFile(file, pdfvalidation.SubmissionLimits)
	if err != nil {
		return response.InternalServerError(c, "Failed to read submission file")
	}
	if !result.Valid {
		return response.BadRequest(c, result.Error)
	}

	key := spaces.SubmissionKey(assignmentID, student.ID, file.Filename)
	fileURL, err := h.storage.Upload(c.Context(), key, result.Content, "application/pdf")
	if err != nil {
		return response.InternalServerError(c, "Failed to store submission file")
	}

	submission, err := h.assignments.Submit(c.Context(), assignmentID, student.ID, fileURL, actorID)
	if err != nil {
		// The submission row failed; don't leave the orphaned file behind.
		h.storage.Delete(c.Context(), key)
		return response.FromError(c, err)
	}

	return response.Created(c, submission)
}

// GradeRequest carries a grading decision.
type GradeRequest struct {
	MarksObtained float64 `json:"marks_obtained" validate:"gte=0"`
	Feedback      string  `json:"feedback" validate:"max=2000"`
}

// Grade scores the submission in the route.
func (h *AssignmentHandler) Grade(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	submissionID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid submission id")
	}

	var req GradeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	submission, err := h.assignments.Grade(c.Context(), submissionID, req.MarksObtained,
		validation.SanitizeString(req.Feedback), actorID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, submission)
}

// ListForSubject returns a subject's assignments with grading progress.
func (h *AssignmentHandler) ListForSubject(c *fiber.Ctx) error {
	subjectID, err := paramUint(c, "subjectId")
	if err != nil {
		return response.BadRequest(c, "Invalid subject id")
	}

	overviews, err := h.assignments.ListForSubject(c.Context(), subjectID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, overviews)
}

// ListMine returns the calling student's assignments with their submissions.
func (h *AssignmentHandler) ListMine(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	student, err := h.roles.StudentByIdentity(c.Context(), actorID)
	if err != nil {
		return response.Forbidden(c, "No student record for this account")
	}

	assignments, err := h.assignments.ListForStudent(c.Context(), student.ID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, assignments)
}

// Submissions lists an assignment's submissions for graders.
func (h *AssignmentHandler) Submissions(c *fiber.Ctx) error {
	assignmentID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid assignment id")
	}

	submissions, err := h.assignments.Submissions(c.Context(), assignmentID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, submissions)
}
