package model

import (
	"time"

	"gorm.io/gorm"
)

// PasswordResetToken is a single-use, time-limited token mailed to an
// identity that forgot its password.
type PasswordResetToken struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	IdentityID uint           `gorm:"index;not null" json:"identity_id"`
	Token      string         `gorm:"uniqueIndex;not null;type:varchar(100)" json:"-"`
	ExpiresAt  time.Time      `gorm:"index;not null" json:"expires_at"`
	UsedAt     *time.Time     `json:"used_at,omitempty"`

	Identity Identity `gorm:"foreignKey:IdentityID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for PasswordResetToken
func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

// IsExpired checks if the reset token has expired
func (p *PasswordResetToken) IsExpired() bool {
	return time.Now().After(p.ExpiresAt)
}

// IsUsed checks if the reset token has been used
func (p *PasswordResetToken) IsUsed() bool {
	return p.UsedAt != nil
}

// MarkAsUsed marks the token as used
func (p *PasswordResetToken) MarkAsUsed() {
	now := time.Now()
	p.UsedAt = &now
}
