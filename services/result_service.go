package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/model"
	"github.com/nileshk-dev/gurukul/utils/apperr"
)

// ResultService owns mark entry and the derived Result aggregate: total,
// percentage, grade and pass/fail status are always recomputed together from
// the full current mark set, and the published flag is the only field that
// moves independently.
type ResultService struct {
	db     *gorm.DB
	roles  *RoleService
	audit  *AuditService
	notify *NotificationService
}

// NewResultService creates a new result service
func NewResultService(db *gorm.DB, roles *RoleService, audit *AuditService, notify *NotificationService) *ResultService {
	return &ResultService{db: db, roles: roles, audit: audit, notify: notify}
}

// round2 keeps stored percentages stable across recomputes.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// computeTotals sums obtained and maximum marks over a mark set. Subjects
// must be preloaded. A subject with zero max marks is a configuration error,
// not a zero-percent result.
func computeTotals(marks []model.Mark) (total float64, maxTotal float64, err error) {
	for _, m := range marks {
		if m.Subject.MaxMarks == 0 {
			return 0, 0, apperr.ErrZeroMaxMarks
		}
		total += m.MarksObtained
		maxTotal += float64(m.Subject.MaxMarks)
	}
	return total, maxTotal, nil
}

// gradeFor assigns the letter grade by fixed percentage bands, highest first.
func gradeFor(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A+"
	case percentage >= 75:
		return "A"
	case percentage >= 60:
		return "B"
	case percentage >= 50:
		return "C"
	case percentage >= 35:
		return "D"
	default:
		return "F"
	}
}

// statusFor derives pass/fail from the percentage directly, never from the
// grade letter, so the two cannot drift.
func statusFor(percentage float64) string {
	if percentage >= 35 {
		return model.ResultStatusPass
	}
	return model.ResultStatusFail
}

// VisibleTo implements the publication gate: admins and teachers always see a
// result; a student sees only their own, and only once published.
func VisibleTo(result *model.Result, role string, viewerStudentID uint) bool {
	if result == nil {
		return false
	}
	switch role {
	case model.RoleAdmin, model.RoleTeacher:
		return true
	case model.RoleStudent:
		return result.Published && result.StudentID == viewerStudentID
	}
	return false
}

// UpsertMark writes one student's marks for one subject. Re-entry for the
// same (student, subject) pair overwrites the existing row. Teachers may only
// write marks for subjects they teach.
func (s *ResultService) UpsertMark(ctx context.Context, studentID, subjectID uint, marksObtained float64, examDate time.Time, actorID uint) (*model.Mark, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionWriteMark, Target{SubjectID: subjectID})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityMark, 0,
			fmt.Sprintf("denied mark entry for student %d subject %d", studentID, subjectID))
		return nil, apperr.Forbiddenf("not allowed to enter marks for this subject")
	}

	if marksObtained < 0 {
		return nil, apperr.Validationf("marks obtained must not be negative")
	}

	var student model.Student
	if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("student %d not found", studentID)
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, subjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("subject %d not found", subjectID)
		}
		return nil, fmt.Errorf("failed to load subject: %w", err)
	}

	var mark model.Mark
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Mark
		findErr := tx.Where("student_id = ? AND subject_id = ?", studentID, subjectID).First(&existing).Error

		switch {
		case findErr == nil:
			old := existing
			existing.MarksObtained = marksObtained
			existing.ExamDate = examDate
			if err := tx.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to update marks: %w", err)
			}
			mark = existing
			return s.audit.Record(tx, actorID, model.EntityMark, mark.ID, model.AuditUpdate,
				fmt.Sprintf("updated marks for student %s in %s", student.RollNumber, subject.Code), old, mark)

		case errors.Is(findErr, gorm.ErrRecordNotFound):
			mark = model.Mark{
				StudentID:     studentID,
				SubjectID:     subjectID,
				MarksObtained: marksObtained,
				ExamDate:      examDate,
			}
			if err := tx.Create(&mark).Error; err != nil {
				if apperr.IsUniqueViolation(err) {
					return apperr.Conflictf("marks already entered concurrently for this student and subject")
				}
				return fmt.Errorf("failed to create marks: %w", err)
			}
			return s.audit.Record(tx, actorID, model.EntityMark, mark.ID, model.AuditCreate,
				fmt.Sprintf("entered marks for student %s in %s", student.RollNumber, subject.Code), nil, mark)

		default:
			return fmt.Errorf("failed to look up marks: %w", findErr)
		}
	})
	if err != nil {
		return nil, err
	}

	return &mark, nil
}

// RecomputeResult recalculates the student's result from the full current
// mark set and upserts the single result row. Derived fields are written
// together; the published flag is left untouched on update and defaults to
// false on first creation. Recompute is idempotent for a fixed mark set.
func (s *ResultService) RecomputeResult(ctx context.Context, studentID uint, actorID uint) (*model.Result, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionRecomputeResult, Target{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityResult, 0,
			fmt.Sprintf("denied result recompute for student %d", studentID))
		return nil, apperr.Forbiddenf("not allowed to generate results")
	}

	var student model.Student
	if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("student %d not found", studentID)
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}

	var marks []model.Mark
	if err := s.db.WithContext(ctx).Preload("Subject").
		Where("student_id = ?", studentID).
		Find(&marks).Error; err != nil {
		return nil, fmt.Errorf("failed to load marks: %w", err)
	}
	if len(marks) == 0 {
		return nil, apperr.ErrNoMarksFound
	}

	total, maxTotal, err := computeTotals(marks)
	if err != nil {
		return nil, err
	}
	percentage := round2(100 * total / maxTotal)
	grade := gradeFor(percentage)
	status := statusFor(percentage)

	var result model.Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Result
		findErr := tx.Where("student_id = ?", studentID).First(&existing).Error

		switch {
		case findErr == nil:
			old := existing
			// Overwrite derived fields only; Published stays as-is.
			updates := map[string]interface{}{
				"total_marks": total,
				"percentage":  percentage,
				"grade":       grade,
				"status":      status,
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update result: %w", err)
			}
			existing.TotalMarks = total
			existing.Percentage = percentage
			existing.Grade = grade
			existing.Status = status
			result = existing
			return s.audit.Record(tx, actorID, model.EntityResult, result.ID, model.AuditUpdate,
				fmt.Sprintf("recomputed result for student %s", student.RollNumber), old, result)

		case errors.Is(findErr, gorm.ErrRecordNotFound):
			result = model.Result{
				StudentID:  studentID,
				TotalMarks: total,
				Percentage: percentage,
				Grade:      grade,
				Status:     status,
				Published:  false,
			}
			if err := tx.Create(&result).Error; err != nil {
				if apperr.IsUniqueViolation(err) {
					// Concurrent recompute created the row first; recomputation
					// is idempotent for a fixed mark set, so last write wins.
					if err := tx.Where("student_id = ?", studentID).First(&existing).Error; err != nil {
						return err
					}
					updates := map[string]interface{}{
						"total_marks": total,
						"percentage":  percentage,
						"grade":       grade,
						"status":      status,
					}
					if err := tx.Model(&existing).Updates(updates).Error; err != nil {
						return err
					}
					result = existing
					return s.audit.Record(tx, actorID, model.EntityResult, result.ID, model.AuditUpdate,
						fmt.Sprintf("recomputed result for student %s", student.RollNumber), nil, result)
				}
				return fmt.Errorf("failed to create result: %w", err)
			}
			return s.audit.Record(tx, actorID, model.EntityResult, result.ID, model.AuditCreate,
				fmt.Sprintf("generated result for student %s", student.RollNumber), nil, result)

		default:
			return fmt.Errorf("failed to look up result: %w", findErr)
		}
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// SetResultPublished toggles the publication flag. Admin only; derived fields
// are never touched here.
func (s *ResultService) SetResultPublished(ctx context.Context, resultID uint, published bool, actorID uint) (*model.Result, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionPublishResult, Target{})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityResult, 0,
			fmt.Sprintf("denied publication toggle for result %d", resultID))
		return nil, apperr.Forbiddenf("only admins may publish results")
	}

	var result model.Result
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&result, resultID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("result %d not found", resultID)
			}
			return fmt.Errorf("failed to load result: %w", err)
		}

		old := result
		if err := tx.Model(&result).Update("published", published).Error; err != nil {
			return fmt.Errorf("failed to update publication flag: %w", err)
		}
		result.Published = published

		verb := "unpublished"
		if published {
			verb = "published"
		}
		return s.audit.Record(tx, actorID, model.EntityResult, result.ID, model.AuditUpdate,
			fmt.Sprintf("%s result for student %d", verb, result.StudentID), old, result)
	})
	if err != nil {
		return nil, err
	}

	if published {
		s.notifyResultPublished(&result)
	}

	return &result, nil
}

// notifyResultPublished tells the student their result is out. Best-effort:
// runs after commit and never surfaces errors to the publishing admin.
func (s *ResultService) notifyResultPublished(result *model.Result) {
	var student model.Student
	if err := s.db.Preload("Identity").First(&student, result.StudentID).Error; err != nil {
		return
	}
	s.notify.Notify(student.IdentityID, model.NotifyResultPublished,
		"Your result has been published",
		fmt.Sprintf("Your result is now available: grade %s (%.2f%%), status %s.",
			result.Grade, result.Percentage, result.Status),
		map[string]interface{}{"result_id": result.ID})
}

// ResultForViewer applies the publication gate to a student's result read.
// An unpublished result is indistinguishable from a missing one for the
// owning student.
func (s *ResultService) ResultForViewer(ctx context.Context, studentID uint, viewerID uint) (*model.Result, error) {
	role, err := s.roles.Resolve(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	var viewerStudentID uint
	if role == model.RoleStudent {
		student, err := s.roles.StudentByIdentity(ctx, viewerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.Forbiddenf("no student record for this account")
			}
			return nil, err
		}
		viewerStudentID = student.ID
		if viewerStudentID != studentID {
			s.audit.RecordDenied(ctx, viewerID, model.EntityResult, 0,
				fmt.Sprintf("denied result read for student %d", studentID))
			return nil, apperr.Forbiddenf("students may only view their own result")
		}
	}

	var result model.Result
	if err := s.db.WithContext(ctx).Where("student_id = ?", studentID).First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("no result for student %d", studentID)
		}
		return nil, fmt.Errorf("failed to load result: %w", err)
	}

	if !VisibleTo(&result, role, viewerStudentID) {
		return nil, apperr.NotFoundf("no result for student %d", studentID)
	}

	return &result, nil
}

// SubjectMark is one row of a student's marks view.
type SubjectMark struct {
	Subject       string  `json:"subject"`
	Code          string  `json:"code"`
	MarksObtained float64 `json:"marks_obtained"`
	MaxMarks      int     `json:"max_marks"`
	PassMarks     int     `json:"pass_marks"`
	Percentage    float64 `json:"percentage"`
	Status        string  `json:"status"`
}

// MarksSummary is the per-subject breakdown with the running average.
type MarksSummary struct {
	Marks             []SubjectMark `json:"marks"`
	AveragePercentage float64       `json:"average_percentage"`
}

// Summary builds the per-subject marks view: each subject's percentage and
// pass/fail against its own pass marks, plus the average percentage.
func (s *ResultService) Summary(ctx context.Context, studentID uint) (*MarksSummary, error) {
	var marks []model.Mark
	if err := s.db.WithContext(ctx).Preload("Subject").
		Where("student_id = ?", studentID).
		Find(&marks).Error; err != nil {
		return nil, fmt.Errorf("failed to load marks: %w", err)
	}

	summary := &MarksSummary{Marks: make([]SubjectMark, 0, len(marks))}
	var totalPercentage float64
	for _, m := range marks {
		if m.Subject.MaxMarks == 0 {
			return nil, apperr.ErrZeroMaxMarks
		}
		pct := round2(100 * m.MarksObtained / float64(m.Subject.MaxMarks))
		status := model.ResultStatusFail
		if m.MarksObtained >= float64(m.Subject.PassMarks) {
			status = model.ResultStatusPass
		}
		summary.Marks = append(summary.Marks, SubjectMark{
			Subject:       m.Subject.Name,
			Code:          m.Subject.Code,
			MarksObtained: m.MarksObtained,
			MaxMarks:      m.Subject.MaxMarks,
			PassMarks:     m.Subject.PassMarks,
			Percentage:    pct,
			Status:        status,
		})
		totalPercentage += pct
	}
	if len(summary.Marks) > 0 {
		summary.AveragePercentage = round2(totalPercentage / float64(len(summary.Marks)))
	}

	return summary, nil
}
