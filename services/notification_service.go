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

// NotificationService is the fire-and-forget notification sink. Failures are
// logged and swallowed; they never reach the caller of the mutation that
// triggered the notification.
type NotificationService struct {
	db    *gorm.DB
	email *EmailService
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *gorm.DB, email *EmailService) *NotificationService {
	return &NotificationService{db: db, email: email}
}

// Notify records an in-app notification and sends the matching email in the
// background. Best-effort on both halves.
func (s *NotificationService) Notify(identityID uint, kind, title, message string, metadata map[string]interface{}) {
	notification := model.Notification{
		IdentityID: identityID,
		Kind:       kind,
		Title:      title,
		Message:    message,
	}

	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			log.Printf("failed to marshal notification metadata: %v", err)
		} else {
			notification.Metadata = datatypes.JSON(raw)
		}
	}

	if err := s.db.Create(&notification).Error; err != nil {
		log.Printf("failed to store notification for identity %d: %v", identityID, err)
	}

	go func() {
		var identity model.Identity
		if err := s.db.First(&identity, identityID).Error; err != nil {
			log.Printf("failed to load identity %d for email: %v", identityID, err)
			return
		}
		if err := s.email.Send(identity.Email, title, message); err != nil {
			log.Printf("failed to email %s: %v", identity.Email, err)
		}
	}()
}

// ListOptions narrows a notification listing.
type ListOptions struct {
	IdentityID uint
	UnreadOnly bool
	Limit      int
	Offset     int
}

// List returns an identity's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, opts ListOptions) ([]model.Notification, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("identity_id = ?", opts.IdentityID)

	if opts.UnreadOnly {
		query = query.Where("read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var notifications []model.Notification
	if err := query.Order("created_at DESC").
		Limit(limit).
		Offset(opts.Offset).
		Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkAsRead marks one notification as read
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID, identityID uint) error {
	result := s.db.WithContext(ctx).Model(&model.Notification{}).
		Where("id = ? AND identity_id = ?", notificationID, identityID).
		Update("read", true)

	if result.Error != nil {
		return fmt.Errorf("failed to mark notification as read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

// CleanupOld removes read notifications older than the given duration.
func (s *NotificationService) CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result := s.db.WithContext(ctx).
		Where("created_at < ? AND read = ?", cutoff, true).
		Delete(&model.Notification{})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup old notifications: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d old notifications", result.RowsAffected)
	}

	return result.RowsAffected, nil
}
