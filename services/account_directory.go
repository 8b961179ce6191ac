package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/model"
	"github.com/nileshk-dev/gurukul/utils/apperr"
)

// ListStudents returns the student directory, optionally filtered by class
// group.
func (s *AccountService) ListStudents(ctx context.Context, classGroupID, actorID uint) ([]model.Student, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageAccounts, Target{})
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Forbiddenf("not allowed to list students")
	}

	query := s.db.WithContext(ctx).Preload("Identity").Preload("ClassGroup")
	if classGroupID != 0 {
		query = query.Where("class_group_id = ?", classGroupID)
	}

	var students []model.Student
	if err := query.Order("roll_number ASC").Find(&students).Error; err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return students, nil
}

// ListTeachers returns the teacher directory with subject associations.
func (s *AccountService) ListTeachers(ctx context.Context, actorID uint) ([]model.Teacher, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageAccounts, Target{})
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperr.Forbiddenf("not allowed to list teachers")
	}

	var teachers []model.Teacher
	if err := s.db.WithContext(ctx).
		Preload("Identity").
		Preload("Subjects").
		Order("employee_id ASC").
		Find(&teachers).Error; err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	return teachers, nil
}

// UpdateStudentInput carries the editable student fields. Nil fields are left
// untouched.
type UpdateStudentInput struct {
	Name        *string
	Phone       *string
	Address     *string
	FatherName  *string
	MotherName  *string
	Gender      *string
	DateOfBirth *time.Time
}

// UpdateStudent edits a student's profile. The roll number and the bound
// identity's email are fixed at registration and cannot be edited here.
func (s *AccountService) UpdateStudent(ctx context.Context, studentID uint, in UpdateStudentInput, actorID uint) (*model.Student, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageAccounts, Target{})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityStudent, studentID, "denied student update")
		return nil, apperr.Forbiddenf("not allowed to manage accounts")
	}

	var student model.Student
	if err := s.db.WithContext(ctx).Preload("Identity").First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("student %d not found", studentID)
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}

	old := student
	updates := map[string]interface{}{}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if in.Address != nil {
		updates["address"] = *in.Address
	}
	if in.FatherName != nil {
		updates["father_name"] = *in.FatherName
	}
	if in.MotherName != nil {
		updates["mother_name"] = *in.MotherName
	}
	if in.Gender != nil {
		updates["gender"] = *in.Gender
	}
	if in.DateOfBirth != nil {
		updates["date_of_birth"] = *in.DateOfBirth
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&student).Updates(updates).Error; err != nil {
				if apperr.IsUniqueViolation(err) {
					return apperr.Conflictf("phone number already in use")
				}
				return fmt.Errorf("failed to update student: %w", err)
			}
		}
		if in.Name != nil {
			if err := tx.Model(&model.Identity{}).
				Where("id = ?", student.IdentityID).
				Update("name", *in.Name).Error; err != nil {
				return fmt.Errorf("failed to update identity name: %w", err)
			}
			student.Identity.Name = *in.Name
		}
		return s.audit.Record(tx, actorID, model.EntityStudent, studentID, model.AuditUpdate,
			fmt.Sprintf("updated student %s", student.RollNumber), old, student)
	})
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// UpdateTeacherInput carries the editable teacher fields. Nil fields are left
// untouched.
type UpdateTeacherInput struct {
	Name           *string
	Phone          *string
	Qualification  *string
	Specialization *string
	Experience     *int
}

// UpdateTeacher edits a teacher's profile. Subject associations are managed
// through the catalog, not here.
func (s *AccountService) UpdateTeacher(ctx context.Context, teacherID uint, in UpdateTeacherInput, actorID uint) (*model.Teacher, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageAccounts, Target{})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityTeacher, teacherID, "denied teacher update")
		return nil, apperr.Forbiddenf("not allowed to manage accounts")
	}

	var teacher model.Teacher
	if err := s.db.WithContext(ctx).Preload("Identity").First(&teacher, teacherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("teacher %d not found", teacherID)
		}
		return nil, fmt.Errorf("failed to load teacher: %w", err)
	}

	old := teacher
	updates := map[string]interface{}{}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if in.Qualification != nil {
		updates["qualification"] = *in.Qualification
	}
	if in.Specialization != nil {
		updates["specialization"] = *in.Specialization
	}
	if in.Experience != nil {
		updates["experience"] = *in.Experience
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(&teacher).Updates(updates).Error; err != nil {
				if apperr.IsUniqueViolation(err) {
					return apperr.Conflictf("phone number already in use")
				}
				return fmt.Errorf("failed to update teacher: %w", err)
			}
		}
		if in.Name != nil {
			if err := tx.Model(&model.Identity{}).
				Where("id = ?", teacher.IdentityID).
				Update("name", *in.Name).Error; err != nil {
				return fmt.Errorf("failed to update identity name: %w", err)
			}
			teacher.Identity.Name = *in.Name
		}
		return s.audit.Record(tx, actorID, model.EntityTeacher, teacherID, model.AuditUpdate,
			fmt.Sprintf("updated teacher %s", teacher.EmployeeID), old, teacher)
	})
	if err != nil {
		return nil, err
	}
	return &teacher, nil
}

// DeleteStudent removes a student account: the student row, its role profile
// and its login identity go together. Marks, attendance and submissions stay
// as historical records.
func (s *AccountService) DeleteStudent(ctx context.Context, studentID, actorID uint) error {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageAccounts, Target{})
	if err != nil {
		return err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityStudent, studentID, "denied student deletion")
		return apperr.Forbiddenf("not allowed to manage accounts")
	}

	var student model.Student
	if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("student %d not found", studentID)
		}
		return fmt.Errorf("failed to load student: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("identity_id = ?", student.IdentityID).
			Delete(&model.RoleProfile{}).Error; err != nil {
			return fmt.Errorf("failed to delete role profile: %w", err)
		}
		if err := tx.Delete(&student).Error; err != nil {
			return fmt.Errorf("failed to delete student: %w", err)
		}
		if err := tx.Delete(&model.Identity{}, student.IdentityID).Error; err != nil {
			return fmt.Errorf("failed to delete identity: %w", err)
		}
		return s.audit.Record(tx, actorID, model.EntityStudent, studentID, model.AuditDelete,
			fmt.Sprintf("deleted student %s", student.RollNumber), student, nil)
	})
}

// DeleteTeacher removes a teacher account together with its subject
// associations, role profile and login identity.
func (s *AccountService) DeleteTeacher(ctx context.Context, teacherID, actorID uint) error {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageAccounts, Target{})
	if err != nil {
		return err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityTeacher, teacherID, "denied teacher deletion")
		return apperr.Forbiddenf("not allowed to manage accounts")
	}

	var teacher model.Teacher
	if err := s.db.WithContext(ctx).First(&teacher, teacherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("teacher %d not found", teacherID)
		}
		return fmt.Errorf("failed to load teacher: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&teacher).Association("Subjects").Clear(); err != nil {
			return fmt.Errorf("failed to clear subject associations: %w", err)
		}
		if err := tx.Where("identity_id = ?", teacher.IdentityID).
			Delete(&model.RoleProfile{}).Error; err != nil {
			return fmt.Errorf("failed to delete role profile: %w", err)
		}
		if err := tx.Delete(&teacher).Error; err != nil {
			return fmt.Errorf("failed to delete teacher: %w", err)
		}
		if err := tx.Delete(&model.Identity{}, teacher.IdentityID).Error; err != nil {
			return fmt.Errorf("failed to delete identity: %w", err)
		}
		return s.audit.Record(tx, actorID, model.EntityTeacher, teacherID, model.AuditDelete,
			fmt.Sprintf("deleted teacher %s", teacher.EmployeeID), teacher, nil)
	})
}
