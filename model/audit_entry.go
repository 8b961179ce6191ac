package model

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions.
const (
	AuditCreate       = "create"
	AuditUpdate       = "update"
	AuditDelete       = "delete"
	AuditAccessDenied = "access_denied"
)

// Audited entity types. Kept as strings so the audit table stays a single
// uniform log queried with filters, never per-entity tables.
const (
	EntityStudent     = "student"
	EntityTeacher     = "teacher"
	EntityClassGroup  = "class_group"
	EntitySubject     = "subject"
	EntityMark        = "mark"
	EntityResult      = "result"
	EntityAttendance  = "attendance"
	EntityAssignment  = "assignment"
	EntitySubmission  = "assignment_submission"
	EntityRoleProfile = "role_profile"
	EntityIdentity    = "identity"
)

// AuditEntry is an immutable record of one mutation. Rows are only ever
// inserted, in the same transaction as the mutation they describe. There is
// deliberately no UpdatedAt or DeletedAt: the log is append-only.
type AuditEntry struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	ActorID     uint           `gorm:"not null;index" json:"actor_id"` // identity id
	EntityType  string         `gorm:"type:varchar(50);not null;index" json:"entity_type"`
	EntityID    uint           `gorm:"not null;index" json:"entity_id"`
	Action      string         `gorm:"type:varchar(20);not null" json:"action"`
	Description string         `gorm:"type:text" json:"description"`
	OldValue    datatypes.JSON `json:"old_value,omitempty"`
	NewValue    datatypes.JSON `json:"new_value,omitempty"`

	Actor Identity `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

// TableName specifies the table name for AuditEntry
func (AuditEntry) TableName() string {
	return "audit_entries"
}
