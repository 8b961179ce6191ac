package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/model"
)

// AuditService owns the append-only audit log. Entries for successful
// mutations are written through Record on the same transaction handle as the
// mutation, so the pair commits or rolls back as one unit. Entries are never
// updated or deleted.
type AuditService struct {
	db *gorm.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record appends one entry on tx. Callers pass the transaction their mutation
// runs on; a failed insert fails the whole transaction.
func (s *AuditService) Record(tx *gorm.DB, actorID uint, entityType string, entityID uint, action, description string, oldValue, newValue interface{}) error {
	entry := model.AuditEntry{
		ActorID:     actorID,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Description: description,
	}

	if oldValue != nil {
		raw, err := json.Marshal(oldValue)
		if err != nil {
			return fmt.Errorf("failed to marshal old value: %w", err)
		}
		entry.OldValue = datatypes.JSON(raw)
	}
	if newValue != nil {
		raw, err := json.Marshal(newValue)
		if err != nil {
			return fmt.Errorf("failed to marshal new value: %w", err)
		}
		entry.NewValue = datatypes.JSON(raw)
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// RecordDenied logs a denied authorization attempt. The denial is not part of
// any mutation transaction (the mutation never started), so this is
// best-effort: a failed write is logged, not propagated.
func (s *AuditService) RecordDenied(ctx context.Context, actorID uint, entityType string, entityID uint, description string) {
	entry := model.AuditEntry{
		ActorID:     actorID,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      model.AuditAccessDenied,
		Description: description,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		log.Printf("failed to record denied access for identity %d: %v", actorID, err)
	}
}

// AuditFilter narrows a Query. Zero values mean "no filter". All
// role-specific history views are expressed as filters over the one log.
type AuditFilter struct {
	EntityType string
	EntityID   uint
	ActorID    uint
	Action     string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// ScopeForViewer restricts a filter to what the viewer may see. Admins query
// the whole log; teachers and students only ever see entries they authored,
// whatever actor_id they asked for.
func ScopeForViewer(f AuditFilter, role string, viewerID uint) AuditFilter {
	if role == model.RoleAdmin {
		return f
	}
	f.ActorID = viewerID
	return f
}

// Query returns entries newest-first, with the total count for pagination.
func (s *AuditService) Query(ctx context.Context, f AuditFilter) ([]model.AuditEntry, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.AuditEntry{})

	if f.EntityType != "" {
		query = query.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		query = query.Where("entity_id = ?", f.EntityID)
	}
	if f.ActorID != 0 {
		query = query.Where("actor_id = ?", f.ActorID)
	}
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at <= ?", *f.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var entries []model.AuditEntry
	if err := query.Order("created_at DESC").
		Limit(limit).
		Offset(f.Offset).
		Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit entries: %w", err)
	}

	return entries, total, nil
}
