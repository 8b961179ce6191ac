package model

import (
	"time"

	"gorm.io/gorm"
)

// Result status values.
const (
	ResultStatusPass = "Pass"
	ResultStatusFail = "Fail"
)

// Mark is one student's marks in one subject. The (student, subject) pair is
// unique; re-entering marks for the pair overwrites the existing row.
type Mark struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	StudentID     uint           `gorm:"not null;uniqueIndex:idx_marks_student_subject" json:"student_id"`
	SubjectID     uint           `gorm:"not null;uniqueIndex:idx_marks_student_subject" json:"subject_id"`
	MarksObtained float64        `gorm:"type:decimal(5,2);not null" json:"marks_obtained"`
	ExamDate      time.Time      `gorm:"type:date" json:"exam_date"`

	// Relationships
	Student Student `gorm:"foreignKey:StudentID" json:"-"`
	Subject Subject `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
}

// TableName specifies the table name for Mark
func (Mark) TableName() string {
	return "marks"
}

// Result is the per-student aggregate over the full current mark set. The
// derived fields (TotalMarks, Percentage, Grade, Status) are only ever written
// together by recomputation; Published is the only independently togglable
// field.
type Result struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	StudentID  uint           `gorm:"uniqueIndex;not null" json:"student_id"`
	TotalMarks float64        `gorm:"type:decimal(7,2);not null" json:"total_marks"`
	Percentage float64        `gorm:"type:decimal(5,2);not null" json:"percentage"`
	Grade      string         `gorm:"type:varchar(5);not null" json:"grade"`
	Status     string         `gorm:"type:varchar(10);not null" json:"status"`
	Published  bool           `gorm:"default:false" json:"published"`

	Student Student `gorm:"foreignKey:StudentID" json:"-"`
}

// TableName specifies the table name for Result
func (Result) TableName() string {
	return "results"
}
