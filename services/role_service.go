package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/model"
	"github.com/nileshk-dev/gurukul/utils/apperr"
)

// Action names a capability checked through Authorize. The capability table
// lives in one place (decide) so policy is defined once and tested once.
type Action string

const (
	ActionManageClassGroups Action = "manage_class_groups"
	ActionManageSubjects    Action = "manage_subjects"
	ActionManageAccounts    Action = "manage_accounts"
	ActionWriteMark         Action = "write_mark"
	ActionRecomputeResult   Action = "recompute_result"
	ActionPublishResult     Action = "publish_result"
	ActionMarkAttendance    Action = "mark_attendance"
	ActionManageAssignments Action = "manage_assignments"
	ActionGradeSubmission   Action = "grade_submission"
	ActionSubmitAssignment  Action = "submit_assignment"
	ActionViewStudentRecord Action = "view_student_record"
)

// Target carries the object identifiers an action touches. Zero values mean
// the action has no object of that kind.
type Target struct {
	StudentID uint
	SubjectID uint
}

// RoleService resolves identities to roles and answers capability queries.
type RoleService struct {
	db    *gorm.DB
	audit *AuditService
}

// NewRoleService creates a new role service
func NewRoleService(db *gorm.DB, audit *AuditService) *RoleService {
	return &RoleService{db: db, audit: audit}
}

// Resolve maps an identity to its single role. Identities without a profile
// but with the platform-admin flag resolve to admin; the missing profile is
// materialized explicitly, in a transaction together with its audit entry.
// Anything else fails with ErrProfileNotFound.
func (s *RoleService) Resolve(ctx context.Context, identityID uint) (string, error) {
	var profile model.RoleProfile
	err := s.db.WithContext(ctx).Where("identity_id = ?", identityID).First(&profile).Error
	if err == nil {
		return profile.Role, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to load role profile: %w", err)
	}

	var identity model.Identity
	if err := s.db.WithContext(ctx).First(&identity, identityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.ErrProfileNotFound
		}
		return "", fmt.Errorf("failed to load identity: %w", err)
	}

	if !identity.IsPlatformAdmin {
		return "", apperr.ErrProfileNotFound
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile = model.RoleProfile{IdentityID: identityID, Role: model.RoleAdmin}
		if err := tx.Create(&profile).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				// Lost a race with a concurrent resolve; use the winner's row.
				return tx.Where("identity_id = ?", identityID).First(&profile).Error
			}
			return err
		}
		return s.audit.Record(tx, identityID, model.EntityRoleProfile, profile.ID, model.AuditCreate,
			"materialized admin role profile for platform-admin identity", nil, profile)
	})
	if err != nil {
		return "", fmt.Errorf("failed to materialize admin profile: %w", err)
	}

	return profile.Role, nil
}

// Authorize reports whether the identity may perform action on target.
// Ownership predicates (own student record, teaches the subject) are looked
// up here; the decision itself is the pure capability table below.
func (s *RoleService) Authorize(ctx context.Context, identityID uint, action Action, target Target) (bool, error) {
	role, err := s.Resolve(ctx, identityID)
	if err != nil {
		if errors.Is(err, apperr.ErrProfileNotFound) {
			return false, nil
		}
		return false, err
	}

	owns := false
	if role == model.RoleStudent && target.StudentID != 0 {
		student, err := s.StudentByIdentity(ctx, identityID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
		owns = student != nil && student.ID == target.StudentID
	}

	teaches := false
	if role == model.RoleTeacher && target.SubjectID != 0 {
		teacher, err := s.TeacherByIdentity(ctx, identityID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}
		if teacher != nil {
			teaches, err = s.TeachesSubject(ctx, teacher.ID, target.SubjectID)
			if err != nil {
				return false, err
			}
		}
	}

	return decide(role, action, owns, teaches), nil
}

// decide is the capability table: (role, action, ownership predicates) -> yes/no.
func decide(role string, action Action, owns, teaches bool) bool {
	switch action {
	case ActionManageClassGroups, ActionManageSubjects, ActionManageAccounts, ActionPublishResult:
		return role == model.RoleAdmin
	case ActionWriteMark, ActionGradeSubmission, ActionManageAssignments:
		return role == model.RoleAdmin || (role == model.RoleTeacher && teaches)
	case ActionRecomputeResult, ActionMarkAttendance:
		return role == model.RoleAdmin || role == model.RoleTeacher
	case ActionSubmitAssignment:
		return role == model.RoleStudent && owns
	case ActionViewStudentRecord:
		return role == model.RoleAdmin || role == model.RoleTeacher ||
			(role == model.RoleStudent && owns)
	}
	return false
}

// TeachesSubject is the single membership primitive over the teacher/subject
// relation, used by authorization and roster derivation alike.
func (s *RoleService) TeachesSubject(ctx context.Context, teacherID, subjectID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Table("teacher_subjects").
		Where("teacher_id = ? AND subject_id = ?", teacherID, subjectID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check subject association: %w", err)
	}
	return count > 0, nil
}

// StudentByIdentity loads the student row bound to an identity.
func (s *RoleService) StudentByIdentity(ctx context.Context, identityID uint) (*model.Student, error) {
	var student model.Student
	if err := s.db.WithContext(ctx).Where("identity_id = ?", identityID).First(&student).Error; err != nil {
		return nil, err
	}
	return &student, nil
}

// TeacherByIdentity loads the teacher row bound to an identity.
func (s *RoleService) TeacherByIdentity(ctx context.Context, identityID uint) (*model.Teacher, error) {
	var teacher model.Teacher
	if err := s.db.WithContext(ctx).Where("identity_id = ?", identityID).First(&teacher).Error; err != nil {
		return nil, err
	}
	return &teacher, nil
}
