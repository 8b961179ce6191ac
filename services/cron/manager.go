package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/model"
	"github.com/nileshk-dev/gurukul/services"
)

// CronManager runs the scheduled maintenance jobs. Jobs touch only
// housekeeping data (notifications, job logs); records and results are never
// mutated from here.
type CronManager struct {
	cron          *cron.Cron
	db            *gorm.DB
	notifications *services.NotificationService
}

// NewCronManager creates a new cron manager
func NewCronManager(db *gorm.DB, notifications *services.NotificationService) *CronManager {
	return &CronManager{
		cron:          cron.New(cron.WithSeconds()),
		db:            db,
		notifications: notifications,
	}
}

// Start registers and starts all jobs.
func (m *CronManager) Start() error {
	log.Println("Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("Cron jobs started successfully")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (m *CronManager) Stop() {
	log.Println("Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("Cron jobs stopped")
}

func (m *CronManager) registerJobs() error {
	// Daily at 3 AM: drop read notifications older than 90 days.
	_, err := m.cron.AddFunc("0 0 3 * * *", func() {
		m.logJobStart("cleanup_notifications")
		m.cleanupNotifications()
	})
	if err != nil {
		return err
	}

	// Weekly on Sunday at 4 AM: trim old cron job logs.
	_, err = m.cron.AddFunc("0 0 4 * * 0", func() {
		m.logJobStart("cleanup_cron_logs")
		m.cleanupCronLogs()
	})
	if err != nil {
		return err
	}

	log.Println("All cron jobs registered successfully")
	return nil
}

func (m *CronManager) cleanupNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := m.notifications.CleanupOld(ctx, 90*24*time.Hour)
	if err != nil {
		m.logJobError("cleanup_notifications", err)
		return
	}
	m.logJobComplete("cleanup_notifications", "removed", removed)
}

func (m *CronManager) cleanupCronLogs() {
	cutoff := time.Now().AddDate(0, -6, 0)
	result := m.db.Where("created_at < ?", cutoff).Delete(&model.CronJobLog{})
	if result.Error != nil {
		m.logJobError("cleanup_cron_logs", result.Error)
		return
	}
	m.logJobComplete("cleanup_cron_logs", "removed", result.RowsAffected)
}

func (m *CronManager) logJobStart(jobName string) {
	log.Printf("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))

	cronLog := model.CronJobLog{
		JobName: jobName,
		Status:  "started",
	}
	m.db.Create(&cronLog)
}

func (m *CronManager) logJobComplete(jobName, verb string, count int64) {
	log.Printf("[CRON] Completed job: %s - %s %d rows", jobName, verb, count)

	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "started").
		Order("created_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":  "completed",
			"message": verb,
		})
}

func (m *CronManager) logJobError(jobName string, err error) {
	log.Printf("[CRON] Error in job: %s - %v", jobName, err)

	m.db.Model(&model.CronJobLog{}).
		Where("job_name = ? AND status = ?", jobName, "started").
		Order("created_at DESC").
		Limit(1).
		Updates(map[string]interface{}{
			"status":  "failed",
			"message": err.Error(),
		})
}
