package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Notification template kinds.
const (
	NotifyResultPublished    = "result_published"
	NotifySubmissionGraded   = "submission_graded"
	NotifyAssignmentPosted   = "assignment_posted"
	NotifyAccountProvisioned = "account_provisioned"
)

// Notification is an in-app message for an identity. Delivery (and the
// matching email) is best-effort and never blocks the mutation that
// triggered it.
type Notification struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	IdentityID uint           `gorm:"not null;index" json:"identity_id"`
	Kind       string         `gorm:"type:varchar(50);not null" json:"kind"`
	Title      string         `gorm:"type:varchar(200);not null" json:"title"`
	Message    string         `gorm:"type:text" json:"message"`
	Read       bool           `gorm:"default:false;index" json:"read"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`

	Identity Identity `gorm:"foreignKey:IdentityID" json:"-"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// CronJobLog records one run of a scheduled maintenance job.
type CronJobLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	JobName   string    `gorm:"type:varchar(100);not null;index" json:"job_name"`
	Status    string    `gorm:"type:varchar(20);not null" json:"status"` // started, completed, failed
	Message   string    `gorm:"type:text" json:"message"`
}

// TableName specifies the table name for CronJobLog
func (CronJobLog) TableName() string {
	return "cron_job_logs"
}
