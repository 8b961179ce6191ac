package model

import (
	"time"

	"gorm.io/gorm"
)

// Assignment lifecycle states. Transitions are one-way:
// draft -> published -> closed.
const (
	AssignmentDraft     = "draft"
	AssignmentPublished = "published"
	AssignmentClosed    = "closed"
)

// Submission states. Lateness is decided once at submission time; grading is
// the only further transition.
const (
	SubmissionSubmitted = "submitted"
	SubmissionLate      = "late"
	SubmissionGraded    = "graded"
)

// Assignment belongs to one Subject and one ClassGroup.
type Assignment struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	Title         string         `gorm:"type:varchar(200);not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description"`
	SubjectID     uint           `gorm:"not null;index" json:"subject_id"`
	ClassGroupID  uint           `gorm:"not null;index" json:"class_group_id"`
	CreatedByID   uint           `gorm:"not null" json:"created_by_id"` // identity id
	MaxMarks      float64        `gorm:"type:decimal(5,2);default:10" json:"max_marks"`
	DueDate       time.Time      `gorm:"not null" json:"due_date"`
	Status        string         `gorm:"type:varchar(10);not null;default:'draft'" json:"status"`
	AttachmentURL string         `gorm:"type:text" json:"attachment_url"`

	// Relationships
	Subject     Subject                `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
	ClassGroup  ClassGroup             `gorm:"foreignKey:ClassGroupID" json:"class_group,omitempty"`
	CreatedBy   Identity               `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Submissions []AssignmentSubmission `gorm:"foreignKey:AssignmentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Assignment
func (Assignment) TableName() string {
	return "assignments"
}

// AssignmentSubmission is one student's submission for one assignment. The
// (assignment, student) pair is unique: a second submission is a conflict,
// never an overwrite.
type AssignmentSubmission struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	AssignmentID   uint           `gorm:"not null;uniqueIndex:idx_submission_assignment_student" json:"assignment_id"`
	StudentID      uint           `gorm:"not null;uniqueIndex:idx_submission_assignment_student" json:"student_id"`
	FileURL        string         `gorm:"type:text" json:"file_url"`
	SubmissionText string         `gorm:"type:text" json:"submission_text"`
	MarksObtained  *float64       `gorm:"type:decimal(5,2)" json:"marks_obtained"`
	Feedback       string         `gorm:"type:text" json:"feedback"`
	Status         string         `gorm:"type:varchar(10);not null;default:'submitted'" json:"status"`
	SubmittedAt    time.Time      `gorm:"not null" json:"submitted_at"`
	GradedAt       *time.Time     `json:"graded_at"`
	GradedByID     *uint          `json:"graded_by_id"` // identity id

	// Relationships
	Assignment Assignment `gorm:"foreignKey:AssignmentID" json:"assignment,omitempty"`
	Student    Student    `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	GradedBy   *Identity  `gorm:"foreignKey:GradedByID" json:"graded_by,omitempty"`
}

// TableName specifies the table name for AssignmentSubmission
func (AssignmentSubmission) TableName() string {
	return "assignment_submissions"
}
