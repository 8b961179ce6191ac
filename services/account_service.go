package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/model"
	"github.com/nileshk-dev/gurukul/utils/apperr"
	"github.com/nileshk-dev/gurukul/utils/auth"
)

// AccountService provisions identities and runs the three login portals.
type AccountService struct {
	db            *gorm.DB
	roles         *RoleService
	audit         *AuditService
	notifications *NotificationService
	jwtManager    *auth.JWTManager
}

// NewAccountService creates a new account service
func NewAccountService(db *gorm.DB, roles *RoleService, audit *AuditService, notifications *NotificationService, jwtManager *auth.JWTManager) *AccountService {
	return &AccountService{
		db:            db,
		roles:         roles,
		audit:         audit,
		notifications: notifications,
		jwtManager:    jwtManager,
	}
}

// RegisterStudentInput carries everything needed to provision a student:
// the login identity and the student record, created atomically.
type RegisterStudentInput struct {
	Name         string
	Email        string
	Password     string
	RollNumber   string
	ClassGroupID *uint
	DateOfBirth  time.Time
	Gender       string
	FatherName   string
	MotherName   string
	Phone        string
	Address      string
}

// RegisterStudent creates the identity, its student role profile and the
// student row in one transaction. Any unique collision (email, roll number,
// phone) rolls the whole registration back.
func (s *AccountService) RegisterStudent(ctx context.Context, in RegisterStudentInput, actorID uint) (*model.Student, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageAccounts, Target{})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityStudent, 0,
			fmt.Sprintf("denied student registration for %s", in.Email))
		return nil, apperr.Forbiddenf("not allowed to register students")
	}

	if in.ClassGroupID != nil {
		var classGroup model.ClassGroup
		if err := s.db.WithContext(ctx).First(&classGroup, *in.ClassGroupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFoundf("class group %d not found", *in.ClassGroupID)
			}
			return nil, fmt.Errorf("failed to load class group: %w", err)
		}
	}

	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var student model.Student
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		identity := model.Identity{
			Email:        in.Email,
			PasswordHash: passwordHash,
			Name:         in.Name,
		}
		if err := tx.Create(&identity).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return apperr.Conflictf("email %s is already registered", in.Email)
			}
			return fmt.Errorf("failed to create identity: %w", err)
		}

		profile := model.RoleProfile{
			IdentityID: identity.ID,
			Role:       model.RoleStudent,
			Phone:      in.Phone,
			Address:    in.Address,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to create role profile: %w", err)
		}

		student = model.Student{
			IdentityID:   identity.ID,
			RollNumber:   in.RollNumber,
			ClassGroupID: in.ClassGroupID,
			DateOfBirth:  in.DateOfBirth,
			Gender:       in.Gender,
			FatherName:   in.FatherName,
			MotherName:   in.MotherName,
			Phone:        in.Phone,
			Address:      in.Address,
		}
		if err := tx.Create(&student).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return apperr.Conflictf("roll number or phone already in use")
			}
			return fmt.Errorf("failed to create student: %w", err)
		}

		return s.audit.Record(tx, actorID, model.EntityStudent, student.ID, model.AuditCreate,
			fmt.Sprintf("registered student %s (%s)", in.Name, in.RollNumber), nil, student)
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(student.IdentityID, model.NotifyAccountProvisioned,
		"Welcome to Gurukul",
		fmt.Sprintf("Your student account has been created. Your roll number is %s.", in.RollNumber),
		map[string]interface{}{"student_id": student.ID})

	return &student, nil
}

// RegisterTeacherInput carries everything needed to provision a teacher.
type RegisterTeacherInput struct {
	Name           string
	Email          string
	Password       string
	EmployeeID     string
	Phone          string
	Qualification  string
	Specialization string
	Experience     int
	SubjectIDs     []uint
}

// RegisterTeacher creates the identity, its teacher role profile, the teacher
// row and the initial subject associations in one transaction.
func (s *AccountService) RegisterTeacher(ctx context.Context, in RegisterTeacherInput, actorID uint) (*model.Teacher, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageAccounts, Target{})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityTeacher, 0,
			fmt.Sprintf("denied teacher registration for %s", in.Email))
		return nil, apperr.Forbiddenf("not allowed to register teachers")
	}

	var subjects []model.Subject
	if len(in.SubjectIDs) > 0 {
		if err := s.db.WithContext(ctx).Find(&subjects, in.SubjectIDs).Error; err != nil {
			return nil, fmt.Errorf("failed to load subjects: %w", err)
		}
		if len(subjects) != len(in.SubjectIDs) {
			return nil, apperr.Validationf("one or more subject ids do not exist")
		}
	}

	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var teacher model.Teacher
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		identity := model.Identity{
			Email:        in.Email,
			PasswordHash: passwordHash,
			Name:         in.Name,
		}
		if err := tx.Create(&identity).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return apperr.Conflictf("email %s is already registered", in.Email)
			}
			return fmt.Errorf("failed to create identity: %w", err)
		}

		profile := model.RoleProfile{
			IdentityID: identity.ID,
			Role:       model.RoleTeacher,
			Phone:      in.Phone,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to create role profile: %w", err)
		}

		teacher = model.Teacher{
			IdentityID:     identity.ID,
			EmployeeID:     in.EmployeeID,
			Email:          in.Email,
			Phone:          in.Phone,
			Qualification:  in.Qualification,
			Specialization: in.Specialization,
			Experience:     in.Experience,
		}
		if err := tx.Create(&teacher).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return apperr.Conflictf("employee id or phone already in use")
			}
			return fmt.Errorf("failed to create teacher: %w", err)
		}

		if len(subjects) > 0 {
			if err := tx.Model(&teacher).Association("Subjects").Append(subjects); err != nil {
				return fmt.Errorf("failed to associate subjects: %w", err)
			}
		}

		return s.audit.Record(tx, actorID, model.EntityTeacher, teacher.ID, model.AuditCreate,
			fmt.Sprintf("registered teacher %s (%s)", in.Name, in.EmployeeID), nil, teacher)
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(teacher.IdentityID, model.NotifyAccountProvisioned,
		"Welcome to Gurukul",
		fmt.Sprintf("Your teacher account has been created. Your employee id is %s.", in.EmployeeID),
		map[string]interface{}{"teacher_id": teacher.ID})

	return &teacher, nil
}

// TokenPair is the access/refresh pair issued on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Authenticate verifies credentials against one of the three portals. The
// resolved role must match the portal: a student cannot log in through the
// teacher portal even with valid credentials. Failures are deliberately
// indistinguishable to the caller.
func (s *AccountService) Authenticate(ctx context.Context, email, password, portalRole string) (*model.Identity, *TokenPair, error) {
	if !model.ValidRole(portalRole) {
		return nil, nil, apperr.Validationf("unknown portal %q", portalRole)
	}

	var identity model.Identity
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&identity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.Unauthorizedf("invalid email or password")
		}
		return nil, nil, fmt.Errorf("failed to load identity: %w", err)
	}

	if err := auth.VerifyPassword(identity.PasswordHash, password); err != nil {
		return nil, nil, apperr.Unauthorizedf("invalid email or password")
	}

	role, err := s.roles.Resolve(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, apperr.ErrProfileNotFound) {
			return nil, nil, apperr.Unauthorizedf("invalid email or password")
		}
		return nil, nil, err
	}
	if role != portalRole {
		s.audit.RecordDenied(ctx, identity.ID, model.EntityIdentity, identity.ID,
			fmt.Sprintf("%s attempted login through the %s portal", role, portalRole))
		return nil, nil, apperr.Unauthorizedf("invalid email or password")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(identity.ID, identity.Email, role, identity.TokenVersion)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(identity.ID, identity.Email, role, identity.TokenVersion)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &identity, &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorizedf("invalid refresh token")
	}
	if claims.TokenType != "refresh" {
		return nil, apperr.Unauthorizedf("not a refresh token")
	}

	var identity model.Identity
	if err := s.db.WithContext(ctx).First(&identity, claims.IdentityID).Error; err != nil {
		return nil, apperr.Unauthorizedf("invalid refresh token")
	}
	if identity.TokenVersion != claims.TokenVersion {
		return nil, apperr.Unauthorizedf("token has been revoked")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(identity.ID, identity.Email, claims.Role, identity.TokenVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	newRefresh, err := s.jwtManager.GenerateRefreshToken(identity.ID, identity.Email, claims.Role, identity.TokenVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// ChangePassword rotates an identity's password and bumps the token version
// so every outstanding token stops working.
func (s *AccountService) ChangePassword(ctx context.Context, identityID uint, currentPassword, newPassword string) error {
	var identity model.Identity
	if err := s.db.WithContext(ctx).First(&identity, identityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("identity not found")
		}
		return fmt.Errorf("failed to load identity: %w", err)
	}

	if err := auth.VerifyPassword(identity.PasswordHash, currentPassword); err != nil {
		return apperr.Unauthorizedf("current password is incorrect")
	}

	newHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"password_hash": newHash,
			"token_version": identity.TokenVersion + 1,
		}
		if err := tx.Model(&identity).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return s.audit.Record(tx, identityID, model.EntityIdentity, identityID, model.AuditUpdate,
			"changed account password", nil, nil)
	})
}
