package account

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nileshk-dev/gurukul/services"
	"github.com/nileshk-dev/gurukul/utils/middleware"
	"github.com/nileshk-dev/gurukul/utils/response"
	"github.com/nileshk-dev/gurukul/utils/validation"
)

// AccountHandler serves admin account provisioning.
type AccountHandler struct {
	accounts  *services.AccountService
	validator *validation.Validator
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		validator: validation.NewValidator(),
	}
}

// RegisterStudentRequest carries a student registration.
type RegisterStudentRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=100"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	RollNumber   string `json:"roll_number" validate:"required,max=20"`
	ClassGroupID *uint  `json:"class_group_id"`
	DateOfBirth  string `json:"date_of_birth" validate:"required"`
	Gender       string `json:"gender" validate:"required,oneof=M F O"`
	FatherName   string `json:"father_name" validate:"max=100"`
	MotherName   string `json:"mother_name" validate:"max=100"`
	Phone        string `json:"phone" validate:"required,min=10,max=15"`
	Address      string `json:"address"`
}

// RegisterStudent provisions a student account.
func (h *AccountHandler) RegisterStudent(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req RegisterStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	dob, err := validation.ParseDate(req.DateOfBirth)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	student, err := h.accounts.RegisterStudent(c.Context(), services.RegisterStudentInput{
		Name:         validation.SanitizeString(req.Name),
		Email:        validation.SanitizeString(req.Email),
		Password:     req.Password,
		RollNumber:   validation.SanitizeString(req.RollNumber),
		ClassGroupID: req.ClassGroupID,
		DateOfBirth:  dob,
		Gender:       req.Gender,
		FatherName:   validation.SanitizeString(req.FatherName),
		MotherName:   validation.SanitizeString(req.MotherName),
		Phone:        validation.SanitizeString(req.Phone),
		Address:      validation.SanitizeString(req.Address),
	}, actorID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, student)
}

// RegisterTeacherRequest carries a teacher registration.
type RegisterTeacherRequest struct {
	Name           string `json:"name" validate:"required,min=2,max=100"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	EmployeeID     string `json:"employee_id" validate:"required,max=20"`
	Phone          string `json:"phone" validate:"required,min=10,max=15"`
	Qualification  string `json:"qualification" validate:"max=100"`
	Specialization string `json:"specialization" validate:"max=100"`
	Experience     int    `json:"experience" validate:"gte=0"`
	SubjectIDs     []uint `json:"subject_ids"`
}

// RegisterTeacher provisions a teacher account.
func (h *AccountHandler) RegisterTeacher(c *fiber.Ctx) error {
	actorID, ok := middleware.GetIdentityID(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req RegisterTeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	teacher, err := h.accounts.RegisterTeacher(c.Context(), services.RegisterTeacherInput{
		Name:           validation.SanitizeString(req.Name),
		Email:          validation.SanitizeString(req.Email),
		Password:       req.Password,
		EmployeeID:     validation.SanitizeString(req.EmployeeID),
		Phone:          validation.SanitizeString(req.Phone),
		Qualification:  validation.SanitizeString(req.Qualification),
		Specialization: validation.SanitizeString(req.Specialization),
		Experience:     req.Experience,
		SubjectIDs:     req.SubjectIDs,
	}, actorID)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, teacher)
}
