package model

import (
	"time"

	"gorm.io/gorm"
)

// Attendance status values.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

// ValidAttendanceStatus reports whether status is a known attendance status.
func ValidAttendanceStatus(status string) bool {
	switch status {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

// Attendance is one student's status for one day. The (student, date) pair is
// unique; re-marking the same day overwrites the existing row.
type Attendance struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	StudentID  uint           `gorm:"not null;uniqueIndex:idx_attendance_student_date" json:"student_id"`
	Date       time.Time      `gorm:"type:date;not null;uniqueIndex:idx_attendance_student_date" json:"date"`
	Status     string         `gorm:"type:varchar(10);not null;default:'present'" json:"status"`
	MarkedByID *uint          `json:"marked_by_id"`
	Remarks    string         `gorm:"type:text" json:"remarks"`

	// Relationships
	Student  Student   `gorm:"foreignKey:StudentID" json:"-"`
	MarkedBy *Identity `gorm:"foreignKey:MarkedByID" json:"marked_by,omitempty"`
}

// TableName specifies the table name for Attendance
func (Attendance) TableName() string {
	return "attendance_records"
}
