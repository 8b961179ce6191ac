package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/model"
	"github.com/nileshk-dev/gurukul/utils/apperr"
)

// CatalogService manages the academic catalog: class groups, subjects and
// which teacher teaches what.
type CatalogService struct {
	db    *gorm.DB
	roles *RoleService
	audit *AuditService
}

// NewCatalogService creates a new catalog service
func NewCatalogService(db *gorm.DB, roles *RoleService, audit *AuditService) *CatalogService {
	return &CatalogService{db: db, roles: roles, audit: audit}
}

// CreateClassGroup adds a class + section pair. The pair is unique.
func (s *CatalogService) CreateClassGroup(ctx context.Context, name, section string, actorID uint) (*model.ClassGroup, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageClassGroups, Target{})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityClassGroup, 0,
			fmt.Sprintf("denied class group creation %s-%s", name, section))
		return nil, apperr.Forbiddenf("not allowed to manage class groups")
	}

	classGroup := model.ClassGroup{Name: name, Section: section}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&classGroup).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return apperr.Conflictf("class %s section %s already exists", name, section)
			}
			return fmt.Errorf("failed to create class group: %w", err)
		}
		return s.audit.Record(tx, actorID, model.EntityClassGroup, classGroup.ID, model.AuditCreate,
			fmt.Sprintf("created class group %s-%s", name, section), nil, classGroup)
	})
	if err != nil {
		return nil, err
	}
	return &classGroup, nil
}

// ListClassGroups returns all class groups with their subjects.
func (s *CatalogService) ListClassGroups(ctx context.Context) ([]model.ClassGroup, error) {
	var groups []model.ClassGroup
	if err := s.db.WithContext(ctx).
		Preload("Subjects").
		Order("name ASC, section ASC").
		Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to list class groups: %w", err)
	}
	return groups, nil
}

// DeleteClassGroup removes a class group together with its subjects. Students
// of the class are left unassigned, not deleted. Subjects are soft-deleted
// explicitly: the class row only gets its deleted_at set, so the database
// cascade on the subject foreign key never runs.
func (s *CatalogService) DeleteClassGroup(ctx context.Context, classGroupID, actorID uint) error {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageClassGroups, Target{})
	if err != nil {
		return err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityClassGroup, classGroupID, "denied class group deletion")
		return apperr.Forbiddenf("not allowed to manage class groups")
	}

	var classGroup model.ClassGroup
	if err := s.db.WithContext(ctx).First(&classGroup, classGroupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("class group %d not found", classGroupID)
		}
		return fmt.Errorf("failed to load class group: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Student{}).
			Where("class_group_id = ?", classGroupID).
			Update("class_group_id", nil).Error; err != nil {
			return fmt.Errorf("failed to unassign students: %w", err)
		}
		if err := tx.Where("class_group_id = ?", classGroupID).
			Delete(&model.Subject{}).Error; err != nil {
			return fmt.Errorf("failed to delete class subjects: %w", err)
		}
		if err := tx.Delete(&classGroup).Error; err != nil {
			return fmt.Errorf("failed to delete class group: %w", err)
		}
		return s.audit.Record(tx, actorID, model.EntityClassGroup, classGroupID, model.AuditDelete,
			fmt.Sprintf("deleted class group %s-%s", classGroup.Name, classGroup.Section), classGroup, nil)
	})
}

// CreateSubjectInput carries the fields for a new subject.
type CreateSubjectInput struct {
	Name         string
	Code         string
	ClassGroupID uint
	MaxMarks     int
	PassMarks    int
}

// CreateSubject adds a subject to a class group. The marking scheme is part
// of the subject; PassMarks above MaxMarks makes passing impossible and is
// rejected up front.
func (s *CatalogService) CreateSubject(ctx context.Context, in CreateSubjectInput, actorID uint) (*model.Subject, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageSubjects, Target{})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntitySubject, 0,
			fmt.Sprintf("denied subject creation %s", in.Code))
		return nil, apperr.Forbiddenf("not allowed to manage subjects")
	}

	if in.MaxMarks <= 0 {
		return nil, apperr.Validationf("max marks must be positive")
	}
	if in.PassMarks < 0 || in.PassMarks > in.MaxMarks {
		return nil, apperr.Validationf("pass marks must be between 0 and max marks")
	}

	var classGroup model.ClassGroup
	if err := s.db.WithContext(ctx).First(&classGroup, in.ClassGroupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("class group %d not found", in.ClassGroupID)
		}
		return nil, fmt.Errorf("failed to load class group: %w", err)
	}

	subject := model.Subject{
		Name:         in.Name,
		Code:         in.Code,
		ClassGroupID: in.ClassGroupID,
		MaxMarks:     in.MaxMarks,
		PassMarks:    in.PassMarks,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&subject).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return apperr.Conflictf("subject code %s already exists", in.Code)
			}
			return fmt.Errorf("failed to create subject: %w", err)
		}
		return s.audit.Record(tx, actorID, model.EntitySubject, subject.ID, model.AuditCreate,
			fmt.Sprintf("created subject %s (%s) in class %s-%s",
				in.Name, in.Code, classGroup.Name, classGroup.Section), nil, subject)
	})
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListSubjects returns the subjects of one class group, or all subjects when
// classGroupID is zero.
func (s *CatalogService) ListSubjects(ctx context.Context, classGroupID uint) ([]model.Subject, error) {
	query := s.db.WithContext(ctx).Preload("Teachers")
	if classGroupID != 0 {
		query = query.Where("class_group_id = ?", classGroupID)
	}

	var subjects []model.Subject
	if err := query.Order("code ASC").Find(&subjects).Error; err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	return subjects, nil
}

// DeleteSubject removes a subject from the catalog. Existing marks keep their
// rows; results recomputed afterwards simply no longer see the subject.
func (s *CatalogService) DeleteSubject(ctx context.Context, subjectID, actorID uint) error {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageSubjects, Target{})
	if err != nil {
		return err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntitySubject, subjectID, "denied subject deletion")
		return apperr.Forbiddenf("not allowed to manage subjects")
	}

	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, subjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("subject %d not found", subjectID)
		}
		return fmt.Errorf("failed to load subject: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&subject).Error; err != nil {
			return fmt.Errorf("failed to delete subject: %w", err)
		}
		return s.audit.Record(tx, actorID, model.EntitySubject, subjectID, model.AuditDelete,
			fmt.Sprintf("deleted subject %s (%s)", subject.Name, subject.Code), subject, nil)
	})
}

// AssignTeacher associates a teacher with a subject. Idempotent: assigning an
// already-assigned pair is a no-op.
func (s *CatalogService) AssignTeacher(ctx context.Context, teacherID, subjectID, actorID uint) error {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageSubjects, Target{})
	if err != nil {
		return err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntitySubject, subjectID,
			fmt.Sprintf("denied teacher %d assignment to subject %d", teacherID, subjectID))
		return apperr.Forbiddenf("not allowed to manage subjects")
	}

	var teacher model.Teacher
	if err := s.db.WithContext(ctx).First(&teacher, teacherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("teacher %d not found", teacherID)
		}
		return fmt.Errorf("failed to load teacher: %w", err)
	}
	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, subjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("subject %d not found", subjectID)
		}
		return fmt.Errorf("failed to load subject: %w", err)
	}

	teaches, err := s.roles.TeachesSubject(ctx, teacherID, subjectID)
	if err != nil {
		return err
	}
	if teaches {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&teacher).Association("Subjects").Append(&subject); err != nil {
			return fmt.Errorf("failed to assign teacher: %w", err)
		}
		return s.audit.Record(tx, actorID, model.EntitySubject, subjectID, model.AuditUpdate,
			fmt.Sprintf("assigned teacher %s to subject %s", teacher.EmployeeID, subject.Code), nil, nil)
	})
}

// UnassignTeacher removes a teacher/subject association.
func (s *CatalogService) UnassignTeacher(ctx context.Context, teacherID, subjectID, actorID uint) error {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageSubjects, Target{})
	if err != nil {
		return err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntitySubject, subjectID,
			fmt.Sprintf("denied teacher %d removal from subject %d", teacherID, subjectID))
		return apperr.Forbiddenf("not allowed to manage subjects")
	}

	var teacher model.Teacher
	if err := s.db.WithContext(ctx).First(&teacher, teacherID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("teacher %d not found", teacherID)
		}
		return fmt.Errorf("failed to load teacher: %w", err)
	}
	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, subjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("subject %d not found", subjectID)
		}
		return fmt.Errorf("failed to load subject: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&teacher).Association("Subjects").Delete(&subject); err != nil {
			return fmt.Errorf("failed to unassign teacher: %w", err)
		}
		return s.audit.Record(tx, actorID, model.EntitySubject, subjectID, model.AuditUpdate,
			fmt.Sprintf("removed teacher %s from subject %s", teacher.EmployeeID, subject.Code), nil, nil)
	})
}

// AssignStudentToClass moves a student into a class group.
func (s *CatalogService) AssignStudentToClass(ctx context.Context, studentID, classGroupID, actorID uint) error {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageClassGroups, Target{})
	if err != nil {
		return err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityStudent, studentID, "denied class assignment")
		return apperr.Forbiddenf("not allowed to manage class groups")
	}

	var student model.Student
	if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("student %d not found", studentID)
		}
		return fmt.Errorf("failed to load student: %w", err)
	}
	var classGroup model.ClassGroup
	if err := s.db.WithContext(ctx).First(&classGroup, classGroupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("class group %d not found", classGroupID)
		}
		return fmt.Errorf("failed to load class group: %w", err)
	}

	old := student
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&student).Update("class_group_id", classGroupID).Error; err != nil {
			return fmt.Errorf("failed to assign student: %w", err)
		}
		student.ClassGroupID = &classGroupID
		return s.audit.Record(tx, actorID, model.EntityStudent, studentID, model.AuditUpdate,
			fmt.Sprintf("moved student %s to class %s-%s",
				student.RollNumber, classGroup.Name, classGroup.Section), old, student)
	})
}
