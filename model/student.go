package model

import (
	"time"

	"gorm.io/gorm"
)

// Student is bound 1:1 to an Identity. ClassGroupID is nullable: deleting a
// class leaves its students unassigned rather than deleting them.
type Student struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	IdentityID   uint           `gorm:"uniqueIndex;not null" json:"identity_id"`
	RollNumber   string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"roll_number"`
	ClassGroupID *uint          `gorm:"index" json:"class_group_id"`
	DateOfBirth  time.Time      `json:"date_of_birth"`
	Gender       string         `gorm:"type:varchar(1)" json:"gender"` // M, F, O
	FatherName   string         `gorm:"type:varchar(100)" json:"father_name"`
	MotherName   string         `gorm:"type:varchar(100)" json:"mother_name"`
	Phone        string         `gorm:"type:varchar(15);uniqueIndex;not null" json:"phone"`
	Address      string         `gorm:"type:text" json:"address"`

	// Relationships
	Identity    Identity               `gorm:"foreignKey:IdentityID" json:"identity,omitempty"`
	ClassGroup  *ClassGroup            `gorm:"foreignKey:ClassGroupID" json:"class_group,omitempty"`
	Marks       []Mark                 `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
	Result      *Result                `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
	Attendances []Attendance           `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
	Submissions []AssignmentSubmission `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Student
func (Student) TableName() string {
	return "students"
}

// Teacher is bound 1:1 to an Identity and teaches any number of subjects.
// The teacher_subjects relation is the single source for the
// "teaches this subject" authorization predicate.
type Teacher struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	IdentityID     uint           `gorm:"uniqueIndex;not null" json:"identity_id"`
	EmployeeID     string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"employee_id"`
	Email          string         `gorm:"uniqueIndex;not null" json:"email"`
	Phone          string         `gorm:"type:varchar(15);uniqueIndex;not null" json:"phone"`
	Qualification  string         `gorm:"type:varchar(100)" json:"qualification"`
	Specialization string         `gorm:"type:varchar(100)" json:"specialization"`
	Experience     int            `gorm:"default:0" json:"experience"` // years

	// Relationships
	Identity Identity  `gorm:"foreignKey:IdentityID" json:"identity,omitempty"`
	Subjects []Subject `gorm:"many2many:teacher_subjects" json:"subjects,omitempty"`
}

// TableName specifies the table name for Teacher
func (Teacher) TableName() string {
	return "teachers"
}
