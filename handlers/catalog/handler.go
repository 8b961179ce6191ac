package catalog

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nileshk-dev/gurukul/services"
	"github.com/nileshk-dev/gurukul/utils/middleware"
	"github.com/nileshk-dev/gurukul/utils/response"
	"github.com/nileshk-dev/gurukul/utils/validation"
)

// CatalogHandler serves class group and subject management.
type CatalogHandler struct {
	catalog   *services.CatalogService
	validator *validation.Validator
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalog:   catalog,
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

// CreateClassGroupRequest carries a new class + section pair.
type CreateClassGroupRequest struct {
	Name    string `json:"name" validate:"required,max=50"`
	Section string `json:"section" validate:"required,max=10"`
}

// CreateClassGroup adds a class group.
func (h *CatalogHandler) CreateClassGroup(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req CreateClassGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	group, err := h.catalog.CreateClassGroup(c.Context(),
		validation.SanitizeString(req.Name), validation.SanitizeString(req.Section), actorID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, group)
}

// ListClassGroups lists all class groups with their subjects.
func (h *CatalogHandler) ListClassGroups(c *fiber.Ctx) error {
	groups, err := h.catalog.ListClassGroups(c.Context())
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, groups)
}

// DeleteClassGroup removes a class group, leaving its students unassigned.
func (h *CatalogHandler) DeleteClassGroup(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	classGroupID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid class group id")
	}

	if err := h.catalog.DeleteClassGroup(c.Context(), classGroupID, actorID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Class group deleted", nil)
}

// CreateSubjectRequest carries a new subject with its marking scheme.
type CreateSubjectRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Code         string `json:"code" validate:"required,max=20"`
	ClassGroupID uint   `json:"class_group_id" validate:"required"`
	MaxMarks     int    `json:"max_marks" validate:"required,gte=1"`
	PassMarks    int    `json:"pass_marks" validate:"gte=0"`
}

// CreateSubject adds a subject to a class group.
func (h *CatalogHandler) CreateSubject(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req CreateSubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	subject, err := h.catalog.CreateSubject(c.Context(), services.CreateSubjectInput{
		Name:         validation.SanitizeString(req.Name),
		Code:         validation.SanitizeString(req.Code),
		ClassGroupID: req.ClassGroupID,
		MaxMarks:     req.MaxMarks,
		PassMarks:    req.PassMarks,
	}, actorID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, subject)
}

// ListSubjects lists subjects, optionally filtered by class group.
func (h *CatalogHandler) ListSubjects(c *fiber.Ctx) error {
	classGroupID := uint(c.QueryInt("class_group_id", 0))

	subjects, err := h.catalog.ListSubjects(c.Context(), classGroupID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, subjects)
}

// DeleteSubject removes a subject from the catalog.
func (h *CatalogHandler) DeleteSubject(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	subjectID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid subject id")
	}

	if err := h.catalog.DeleteSubject(c.Context(), subjectID, actorID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Subject deleted", nil)
}

// AssignTeacherRequest binds a teacher to a subject.
type AssignTeacherRequest struct {
	TeacherID uint `json:"teacher_id" validate:"required"`
}

// AssignTeacher associates a teacher with the subject in the route.
func (h *CatalogHandler) AssignTeacher(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	subjectID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid subject id")
	}

	var req AssignTeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := h.catalog.AssignTeacher(c.Context(), req.TeacherID, subjectID, actorID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Teacher assigned", nil)
}

// UnassignTeacher removes a teacher/subject association.
func (h *CatalogHandler) UnassignTeacher(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	subjectID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid subject id")
	}
	teacherID, err := paramUint(c, "teacherId")
	if err != nil {
		return response.BadRequest(c, "Invalid teacher id")
	}

	if err := h.catalog.UnassignTeacher(c.Context(), teacherID, subjectID, actorID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Teacher unassigned", nil)
}

// AssignStudentRequest moves a student into a class group.
type AssignStudentRequest struct {
	ClassGroupID uint `json:"class_group_id" validate:"required"`
}

// AssignStudent moves the student in the route into a class group.
func (h *CatalogHandler) AssignStudent(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	studentID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid student id")
	}

	var req AssignStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := h.catalog.AssignStudentToClass(c.Context(), studentID, req.ClassGroupID, actorID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Student assigned to class", nil)
}
