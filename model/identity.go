package model

import (
	"time"

	"gorm.io/gorm"
)

// Role values carried by a RoleProfile. Authorization is decided on these
// three values only.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleTeacher || role == RoleStudent
}

// Identity is a login account. A Student or Teacher row is bound 1:1 to an
// Identity; admins may exist as bare identities with the platform flag set.
type Identity struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	Email           string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash    string         `gorm:"not null" json:"-"`
	Name            string         `gorm:"not null" json:"name"`
	IsPlatformAdmin bool           `gorm:"default:false" json:"-"` // legacy superuser flag, see RoleService.Resolve
	TokenVersion    int            `gorm:"default:0" json:"-"`

	// Relationships
	Profile       *RoleProfile   `gorm:"foreignKey:IdentityID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	Notifications []Notification `gorm:"foreignKey:IdentityID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Identity
func (Identity) TableName() string {
	return "identities"
}

// RoleProfile binds an Identity to exactly one role. An identity has at most
// one profile; resolution of identities without a profile is handled by
// RoleService.
type RoleProfile struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	IdentityID uint           `gorm:"uniqueIndex;not null" json:"identity_id"`
	Role       string         `gorm:"type:varchar(20);not null" json:"role"`
	Phone      string         `gorm:"type:varchar(15)" json:"phone"`
	Address    string         `gorm:"type:text" json:"address"`

	Identity Identity `gorm:"foreignKey:IdentityID" json:"-"`
}

// TableName specifies the table name for RoleProfile
func (RoleProfile) TableName() string {
	return "role_profiles"
}
