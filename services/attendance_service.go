package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/nileshk-dev/gurukul/model"
	"github.com/nileshk-dev/gurukul/utils/apperr"
)

// AttendanceService keeps the per-student-per-day ledger. One row per
// (student, date); re-marking a day is a correction that overwrites in place.
type AttendanceService struct {
	db    *gorm.DB
	roles *RoleService
	audit *AuditService
}

// NewAttendanceService creates a new attendance service
func NewAttendanceService(db *gorm.DB, roles *RoleService, audit *AuditService) *AttendanceService {
	return &AttendanceService{db: db, roles: roles, audit: audit}
}

// AttendanceSummary is the read-side aggregate for one student.
type AttendanceSummary struct {
	Present        int64   `json:"present"`
	Absent         int64   `json:"absent"`
	Late           int64   `json:"late"`
	Excused        int64   `json:"excused"`
	Total          int64   `json:"total"`
	PercentPresent float64 `json:"percent_present"`
}

// summarizeCounts computes the aggregate from status counts. Only "present"
// counts toward presence; late and excused days do not. Zero records is a
// valid "no data yet" state and yields 0, not an error.
func summarizeCounts(present, absent, late, excused int64) AttendanceSummary {
	summary := AttendanceSummary{
		Present: present,
		Absent:  absent,
		Late:    late,
		Excused: excused,
		Total:   present + absent + late + excused,
	}
	if summary.Total > 0 {
		summary.PercentPresent = round2(100 * float64(present) / float64(summary.Total))
	}
	return summary
}

// Mark upserts the (student, date) attendance record. A prior row for the
// same day is overwritten and audited as an update; otherwise the row is
// created.
func (s *AttendanceService) Mark(ctx context.Context, studentID uint, date time.Time, status string, actorID uint, remarks string) (*model.Attendance, error) {
	allowed, err := s.roles.Authorize(ctx, actorID, ActionMarkAttendance, Target{StudentID: studentID})
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.audit.RecordDenied(ctx, actorID, model.EntityAttendance, 0,
			fmt.Sprintf("denied attendance marking for student %d", studentID))
		return nil, apperr.Forbiddenf("not allowed to mark attendance")
	}

	if !model.ValidAttendanceStatus(status) {
		return nil, apperr.Validationf("invalid attendance status %q", status)
	}

	var student model.Student
	if err := s.db.WithContext(ctx).First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("student %d not found", studentID)
		}
		return nil, fmt.Errorf("failed to load student: %w", err)
	}

	day := date.Truncate(24 * time.Hour)

	var record model.Attendance
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Attendance
		findErr := tx.Where("student_id = ? AND date = ?", studentID, day).First(&existing).Error

		switch {
		case findErr == nil:
			old := existing
			existing.Status = status
			existing.Remarks = remarks
			existing.MarkedByID = &actorID
			if err := tx.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to update attendance: %w", err)
			}
			record = existing
			return s.audit.Record(tx, actorID, model.EntityAttendance, record.ID, model.AuditUpdate,
				fmt.Sprintf("corrected attendance for student %s on %s to %s",
					student.RollNumber, day.Format("2006-01-02"), status), old, record)

		case errors.Is(findErr, gorm.ErrRecordNotFound):
			record = model.Attendance{
				StudentID:  studentID,
				Date:       day,
				Status:     status,
				MarkedByID: &actorID,
				Remarks:    remarks,
			}
			if err := tx.Create(&record).Error; err != nil {
				if apperr.IsUniqueViolation(err) {
					return apperr.Conflictf("attendance already marked concurrently for this day")
				}
				return fmt.Errorf("failed to create attendance: %w", err)
			}
			return s.audit.Record(tx, actorID, model.EntityAttendance, record.ID, model.AuditCreate,
				fmt.Sprintf("marked student %s %s on %s",
					student.RollNumber, status, day.Format("2006-01-02")), nil, record)

		default:
			return fmt.Errorf("failed to look up attendance: %w", findErr)
		}
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// BulkMark marks a whole class for one day. Each student is an independent
// upsert; the first failure aborts and reports which student failed.
func (s *AttendanceService) BulkMark(ctx context.Context, classGroupID uint, date time.Time, statuses map[uint]string, actorID uint) ([]model.Attendance, error) {
	var students []model.Student
	if err := s.db.WithContext(ctx).Where("class_group_id = ?", classGroupID).Find(&students).Error; err != nil {
		return nil, fmt.Errorf("failed to load class roster: %w", err)
	}
	inClass := make(map[uint]bool, len(students))
	for _, st := range students {
		inClass[st.ID] = true
	}

	records := make([]model.Attendance, 0, len(statuses))
	for studentID, status := range statuses {
		if !inClass[studentID] {
			return nil, apperr.Validationf("student %d is not in class group %d", studentID, classGroupID)
		}
		record, err := s.Mark(ctx, studentID, date, status, actorID, "")
		if err != nil {
			return nil, fmt.Errorf("student %d: %w", studentID, err)
		}
		records = append(records, *record)
	}

	return records, nil
}

// Summarize aggregates a student's ledger.
func (s *AttendanceService) Summarize(ctx context.Context, studentID uint) (*AttendanceSummary, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := s.db.WithContext(ctx).Model(&model.Attendance{}).
		Select("status, count(*) as count").
		Where("student_id = ?", studentID).
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate attendance: %w", err)
	}

	var present, absent, late, excused int64
	for _, c := range counts {
		switch c.Status {
		case model.AttendancePresent:
			present = c.Count
		case model.AttendanceAbsent:
			absent = c.Count
		case model.AttendanceLate:
			late = c.Count
		case model.AttendanceExcused:
			excused = c.Count
		}
	}

	summary := summarizeCounts(present, absent, late, excused)
	return &summary, nil
}

// History lists a student's attendance, most recent day first.
func (s *AttendanceService) History(ctx context.Context, studentID uint, limit, offset int) ([]model.Attendance, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Attendance{}).Where("student_id = ?", studentID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance: %w", err)
	}

	if limit <= 0 || limit > 100 {
		limit = 30
	}

	var records []model.Attendance
	if err := query.Order("date DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch attendance: %w", err)
	}

	return records, total, nil
}
