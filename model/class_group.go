package model

import (
	"time"

	"gorm.io/gorm"
)

// ClassGroup is a class + section pair, e.g. "10 - A". The pair is unique.
type ClassGroup struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Name      string         `gorm:"type:varchar(50);not null;uniqueIndex:idx_class_name_section" json:"name"`
	Section   string         `gorm:"type:varchar(10);not null;uniqueIndex:idx_class_name_section" json:"section"`

	// Relationships
	Subjects []Subject `gorm:"foreignKey:ClassGroupID;constraint:OnDelete:CASCADE" json:"subjects,omitempty"`
	Students []Student `gorm:"foreignKey:ClassGroupID" json:"students,omitempty"`
}

// TableName specifies the table name for ClassGroup
func (ClassGroup) TableName() string {
	return "class_groups"
}

// Subject belongs to exactly one ClassGroup and carries the marking scheme
// used by result aggregation. PassMarks <= MaxMarks is checked at entry time.
type Subject struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Name         string         `gorm:"type:varchar(100);not null" json:"name"`
	Code         string         `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"`
	ClassGroupID uint           `gorm:"not null;index" json:"class_group_id"`
	MaxMarks     int            `gorm:"default:100" json:"max_marks"`
	PassMarks    int            `gorm:"default:35" json:"pass_marks"`

	// Relationships
	ClassGroup ClassGroup `gorm:"foreignKey:ClassGroupID" json:"class_group,omitempty"`
	Teachers   []Teacher  `gorm:"many2many:teacher_subjects" json:"teachers,omitempty"`
}

// TableName specifies the table name for Subject
func (Subject) TableName() string {
	return "subjects"
}
