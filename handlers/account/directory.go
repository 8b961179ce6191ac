package account

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/nileshk-dev/gurukul/services"
	"github.com/nileshk-dev/gurukul/utils/middleware"
	"github.com/nileshk-dev/gurukul/utils/response"
	"github.com/nileshk-dev/gurukul/utils/validation"
)

func paramUint(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

// ListStudents returns the student directory, optionally filtered by
// class_group_id.
func (h *AccountHandler) ListStudents(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	classGroupID := uint(c.QueryInt("class_group_id", 0))
	students, err := h.accounts.ListStudents(c.Context(), classGroupID, actorID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, students)
}

// ListTeachers returns the teacher directory.
func (h *AccountHandler) ListTeachers(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	teachers, err := h.accounts.ListTeachers(c.Context(), actorID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, teachers)
}

// UpdateStudentRequest carries the editable student fields. Absent fields are
// left untouched.
type UpdateStudentRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone       *string `json:"phone" validate:"omitempty,min=10,max=15"`
	Address     *string `json:"address"`
	FatherName  *string `json:"father_name" validate:"omitempty,max=100"`
	MotherName  *string `json:"mother_name" validate:"omitempty,max=100"`
	Gender      *string `json:"gender" validate:"omitempty,oneof=M F O"`
	DateOfBirth *string `json:"date_of_birth"`
}

// UpdateStudent edits a student's profile.
func (h *AccountHandler) UpdateStudent(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	studentID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid student id")
	}

	var req UpdateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	in := services.UpdateStudentInput{
		Address:    req.Address,
		FatherName: req.FatherName,
		MotherName: req.MotherName,
		Gender:     req.Gender,
	}
	if req.Name != nil {
		name := validation.SanitizeString(*req.Name)
		in.Name = &name
	}
	if req.Phone != nil {
		phone := validation.SanitizeString(*req.Phone)
		in.Phone = &phone
	}
	if req.DateOfBirth != nil {
		dob, err := validation.ParseDate(*req.DateOfBirth)
		if err != nil {
			return response.BadRequest(c, err.Error())
		}
		in.DateOfBirth = &dob
	}

	student, err := h.accounts.UpdateStudent(c.Context(), studentID, in, actorID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, student)
}

// UpdateTeacherRequest carries the editable teacher fields. Absent fields are
// left untouched.
type UpdateTeacherRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone          *string `json:"phone" validate:"omitempty,min=10,max=15"`
	Qualification  *string `json:"qualification" validate:"omitempty,max=100"`
	Specialization *string `json:"specialization" validate:"omitempty,max=100"`
	Experience     *int    `json:"experience" validate:"omitempty,gte=0"`
}

// UpdateTeacher edits a teacher's profile.
func (h *AccountHandler) UpdateTeacher(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	teacherID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid teacher id")
	}

	var req UpdateTeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	in := services.UpdateTeacherInput{
		Qualification:  req.Qualification,
		Specialization: req.Specialization,
		Experience:     req.Experience,
	}
	if req.Name != nil {
		name := validation.SanitizeString(*req.Name)
		in.Name = &name
	}
	if req.Phone != nil {
		phone := validation.SanitizeString(*req.Phone)
		in.Phone = &phone
	}

	teacher, err := h.accounts.UpdateTeacher(c.Context(), teacherID, in, actorID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, teacher)
}

// DeleteStudent removes a student account.
func (h *AccountHandler) DeleteStudent(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	studentID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid student id")
	}

	if err := h.accounts.DeleteStudent(c.Context(), studentID, actorID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Student deleted", nil)
}

// DeleteTeacher removes a teacher account.
func (h *AccountHandler) DeleteTeacher(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}
	teacherID, err := paramUint(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid teacher id")
	}

	if err := h.accounts.DeleteTeacher(c.Context(), teacherID, actorID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessWithMessage(c, "Teacher deleted", nil)
}
