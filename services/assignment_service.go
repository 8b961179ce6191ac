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

// AssignmentService runs the assignment lifecycle and the grading workflow.
type AssignmentService struct {
	db            *gorm.DB
	roles         *RoleService
	audit         *AuditService
	notifications *NotificationService
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(db *gorm.DB, roles *RoleService, audit *AuditService, notifications *NotificationService) *AssignmentService {
	return &AssignmentService{db: db, roles: roles, audit: audit, notifications: notifications}
}

// canTransition is the lifecycle table. Movement is forward-only:
// draft -> published -> closed, no skipping, no reopening.
func canTransition(from, to string) bool {
	switch from {
	case model.AssignmentDraft:
		return to == model.AssignmentPublished
	case model.AssignmentPublished:
		return to == model.AssignmentClosed
	}
	return false
}

// submissionStatusAt decides lateness once, at submission time, against the
// assignment's due date. The verdict is stored and never recomputed.
func submissionStatusAt(submittedAt, dueDate time.Time) string {
	if submittedAt.After(dueDate) {
		return model.SubmissionLate
	}
	return model.SubmissionSubmitted
}

// CreateAssignmentInput carries the fields for a new assignment.
type CreateAssignmentInput struct {
	Title         string
	Description   string
	SubjectID     uint
	ClassGroupID  uint
	MaxMarks      float64
	DueDate       time.Time
	AttachmentURL string
}

// Create adds a new assignment in draft state.
func (s *AssignmentService) Create(ctx context.Context, in CreateAssignmentInput, actorID uint) (*model.Assignment, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageAssignments, Target{SubjectID: in.SubjectID})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityAssignment, 0,
			fmt.Sprintf("denied assignment creation for subject %d", in.SubjectID))
		return nil, apperr.Forbiddenf("not allowed to create assignments")
	}

	if in.MaxMarks <= 0 {
		return nil, apperr.Validationf("max marks must be positive")
	}

	var subject model.Subject
	if err := s.db.WithContext(ctx).First(&subject, in.SubjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("subject %d not found", in.SubjectID)
		}
		return nil, fmt.Errorf("failed to load subject: %w", err)
	}
	var classGroup model.ClassGroup
	if err := s.db.WithContext(ctx).First(&classGroup, in.ClassGroupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("class group %d not found", in.ClassGroupID)
		}
		return nil, fmt.Errorf("failed to load class group: %w", err)
	}

	assignment := model.Assignment{
		Title:         in.Title,
		Description:   in.Description,
		SubjectID:     in.SubjectID,
		ClassGroupID:  in.ClassGroupID,
		CreatedByID:   actorID,
		MaxMarks:      in.MaxMarks,
		DueDate:       in.DueDate,
		Status:        model.AssignmentDraft,
		AttachmentURL: in.AttachmentURL,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&assignment).Error; err != nil {
			return fmt.Errorf("failed to create assignment: %w", err)
		}
		return s.audit.Record(tx, actorID, model.EntityAssignment, assignment.ID, model.AuditCreate,
			fmt.Sprintf("created assignment %q for subject %s", assignment.Title, subject.Code), nil, assignment)
	})
	if err != nil {
		return nil, err
	}

	return &assignment, nil
}

// Transition moves an assignment to the next lifecycle state. Publishing
// notifies every student in the target class.
func (s *AssignmentService) Transition(ctx context.Context, assignmentID uint, to string, actorID uint) (*model.Assignment, error) {
	var assignment model.Assignment
	if err := s.db.WithContext(ctx).First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("assignment %d not found", assignmentID)
		}
		return nil, fmt.Errorf("failed to load assignment: %w", err)
	}

	allowed, err := s.roles.Authorize(ctx, actorID, ActionManageAssignments, Target{SubjectID: assignment.SubjectID})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityAssignment, assignmentID,
			fmt.Sprintf("denied transition of assignment %d to %s", assignmentID, to))
		return nil, apperr.Forbiddenf("not allowed to manage this assignment")
	}

	if !canTransition(assignment.Status, to) {
		return nil, apperr.Conflictf("cannot move assignment from %s to %s", assignment.Status, to)
	}

	old := assignment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&assignment).Update("status", to).Error; err != nil {
			return fmt.Errorf("failed to update assignment status: %w", err)
		}
		assignment.Status = to
		return s.audit.Record(tx, actorID, model.EntityAssignment, assignment.ID, model.AuditUpdate,
			fmt.Sprintf("moved assignment %q from %s to %s", assignment.Title, old.Status, to), old, assignment)
	})
	if err != nil {
		return nil, err
	}

	if to == model.AssignmentPublished {
		s.notifyClassAssignmentPosted(ctx, &assignment)
	}

	return &assignment, nil
}

func (s *AssignmentService) notifyClassAssignmentPosted(ctx context.Context, assignment *model.Assignment) {
	var students []model.Student
	if err := s.db.WithContext(ctx).Where("class_group_id = ?", assignment.ClassGroupID).Find(&students).Error; err != nil {
		return
	}
	for _, student := range students {
		s.notifications.Notify(student.IdentityID, model.NotifyAssignmentPosted,
			"New assignment posted",
			fmt.Sprintf("Assignment %q is due on %s.", assignment.Title, assignment.DueDate.Format("2006-01-02 15:04")),
			map[string]interface{}{"assignment_id": assignment.ID})
	}
}

// Submit records a student's submission. Lateness is decided here, once,
// against the due date; a second submission for the same assignment is a
// conflict.
func (s *AssignmentService) Submit(ctx context.Context, assignmentID, studentID uint, fileURL string, actorID uint) (*model.AssignmentSubmission, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionSubmitAssignment, Target{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntitySubmission, 0,
			fmt.Sprintf("denied submission to assignment %d for student %d", assignmentID, studentID))
		return nil, apperr.Forbiddenf("not allowed to submit for this student")
	}

	var assignment model.Assignment
	if err := s.db.WithContext(ctx).First(&assignment, assignmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("assignment %d not found", assignmentID)
		}
		return nil, fmt.Errorf("failed to load assignment: %w", err)
	}
	if assignment.Status != model.AssignmentPublished {
		return nil, apperr.Conflictf("assignment is %s, not accepting submissions", assignment.Status)
	}

	var student model.Student
	if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("student %d not found", studentID)
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if student.ClassGroupID == nil || *student.ClassGroupID != assignment.ClassGroupID {
		return nil, apperr.Validationf("student is not in the assignment's class group")
	}

	now := time.Now()
	submission := model.AssignmentSubmission{
		AssignmentID: assignmentID,
		StudentID:    studentID,
		FileURL:      fileURL,
		Status:       submissionStatusAt(now, assignment.DueDate),
		SubmittedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&submission).Error; err != nil {
			if apperr.IsUniqueViolation(err) {
				return apperr.ErrDuplicateSubmission
			}
			return fmt.Errorf("failed to create submission: %w", err)
		}
		return s.audit.Record(tx, actorID, model.EntitySubmission, submission.ID, model.AuditCreate,
			fmt.Sprintf("student %s submitted assignment %q (%s)",
				student.RollNumber, assignment.Title, submission.Status), nil, submission)
	})
	if err != nil {
		return nil, err
	}

	return &submission, nil
}

// Grade scores a submission. Only the assignment's creator may grade it;
// re-grading is allowed and audited as an update. Lateness recorded at
// submission time is preserved in the audit trail even though the row moves
// to graded.
func (s *AssignmentService) Grade(ctx context.Context, submissionID uint, marks float64, feedback string, actorID uint) (*model.AssignmentSubmission, error) {
	var submission model.AssignmentSubmission
	if err := s.db.WithContext(ctx).Preload("Assignment").First(&submission, submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("submission %d not found", submissionID)
		}
		return nil, fmt.Errorf("failed to load submission: %w", err)
	}

	allowed, err := s.roles.Authorize(ctx, actorID, ActionGradeSubmission, Target{SubjectID: submission.Assignment.SubjectID})
	if err != nil {
		return nil, err
	}
	if !allowed || submission.Assignment.CreatedByID != actorID {
		s.audit.RecordDenied(ctx, actorID, model.EntitySubmission, submissionID,
			fmt.Sprintf("denied grading of submission %d", submissionID))
		return nil, apperr.Forbiddenf("only the assignment's creator may grade its submissions")
	}

	if marks < 0 || marks > submission.Assignment.MaxMarks {
		return nil, apperr.ErrMarksOutOfRange
	}

	old := submission
	now := time.Now()
	regrade := submission.Status == model.SubmissionGraded

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"marks_obtained": marks,
			"feedback":       feedback,
			"status":         model.SubmissionGraded,
			"graded_at":      now,
			"graded_by_id":   actorID,
		}
		if err := tx.Model(&submission).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to grade submission: %w", err)
		}
		submission.MarksObtained = &marks
		submission.Feedback = feedback
		submission.Status = model.SubmissionGraded
		submission.GradedAt = &now
		submission.GradedByID = &actorID

		verb := "graded"
		if regrade {
			verb = "re-graded"
		}
		return s.audit.Record(tx, actorID, model.EntitySubmission, submission.ID, model.AuditUpdate,
			fmt.Sprintf("%s submission %d: %.2f/%.2f", verb, submission.ID, marks, submission.Assignment.MaxMarks),
			old, submission)
	})
	if err != nil {
		return nil, err
	}

	var student model.Student
	if err := s.db.WithContext(ctx).First(&student, submission.StudentID).Error; err == nil {
		s.notifications.Notify(student.IdentityID, model.NotifySubmissionGraded,
			"Submission graded",
			fmt.Sprintf("Your submission for %q was graded: %.2f/%.2f.",
				submission.Assignment.Title, marks, submission.Assignment.MaxMarks),
			map[string]interface{}{"submission_id": submission.ID, "assignment_id": submission.AssignmentID})
	}

	return &submission, nil
}

// AssignmentOverview pairs an assignment with its grading progress.
type AssignmentOverview struct {
	Assignment model.Assignment `json:"assignment"`
	Submitted  int64            `json:"submitted"`
	Graded     int64            `json:"graded"`
	Pending    int64            `json:"pending"`
}

// ListForSubject returns a subject's assignments with submission counts,
// newest first.
func (s *AssignmentService) ListForSubject(ctx context.Context, subjectID uint) ([]AssignmentOverview, error) {
	var assignments []model.Assignment
	if err := s.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at DESC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	overviews := make([]AssignmentOverview, 0, len(assignments))
	for _, a := range assignments {
		var submitted, graded int64
		if err := s.db.WithContext(ctx).Model(&model.AssignmentSubmission{}).
			Where("assignment_id = ?", a.ID).Count(&submitted).Error; err != nil {
			return nil, fmt.Errorf("failed to count submissions: %w", err)
		}
		if err := s.db.WithContext(ctx).Model(&model.AssignmentSubmission{}).
			Where("assignment_id = ? AND status = ?", a.ID, model.SubmissionGraded).
			Count(&graded).Error; err != nil {
			return nil, fmt.Errorf("failed to count graded submissions: %w", err)
		}
		overviews = append(overviews, AssignmentOverview{
			Assignment: a,
			Submitted:  submitted,
			Graded:     graded,
			Pending:    submitted - graded,
		})
	}

	return overviews, nil
}

// ListForStudent returns the published and closed assignments of a student's
// class together with the student's own submission, if any.
func (s *AssignmentService) ListForStudent(ctx context.Context, studentID uint) ([]StudentAssignment, error) {
	var student model.Student
	if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("student %d not found", studentID)
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if student.ClassGroupID == nil {
		return []StudentAssignment{}, nil
	}

	var assignments []model.Assignment
	if err := s.db.WithContext(ctx).
		Where("class_group_id = ? AND status IN ?", *student.ClassGroupID,
			[]string{model.AssignmentPublished, model.AssignmentClosed}).
		Order("due_date ASC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	result := make([]StudentAssignment, 0, len(assignments))
	for _, a := range assignments {
		entry := StudentAssignment{Assignment: a}
		var submission model.AssignmentSubmission
		err := s.db.WithContext(ctx).
			Where("assignment_id = ? AND student_id = ?", a.ID, studentID).
			First(&submission).Error
		switch {
		case err == nil:
			entry.Submission = &submission
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("failed to load submission: %w", err)
		}
		result = append(result, entry)
	}

	return result, nil
}

// StudentAssignment is one assignment from the student's point of view.
type StudentAssignment struct {
	Assignment model.Assignment            `json:"assignment"`
	Submission *model.AssignmentSubmission `json:"submission,omitempty"`
}

// Submissions lists an assignment's submissions for graders, ungraded first.
func (s *AssignmentService) Submissions(ctx context.Context, assignmentID uint) ([]model.AssignmentSubmission, error) {
	var submissions []model.AssignmentSubmission
	if err := s.db.WithContext(ctx).
		Preload("Student").
		Where("assignment_id = ?", assignmentID).
		Order("status DESC, submitted_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}
