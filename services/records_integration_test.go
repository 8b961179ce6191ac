package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nileshk-dev/gurukul/model"
	"github.com/nileshk-dev/gurukul/utils/apperr"
	"github.com/nileshk-dev/gurukul/utils/auth"
)

// recordsTestEnv wires the real services against a live PostgreSQL database.
// Every fixture gets a unique suffix so runs never collide.
type recordsTestEnv struct {
	db          *gorm.DB
	audit       *AuditService
	roles       *RoleService
	results     *ResultService
	assignments *AssignmentService
	catalog     *CatalogService
	accounts    *AccountService

	suffix            int64
	adminID           uint
	studentIdentityID uint
	class             *model.ClassGroup
	subject           *model.Subject
	student           *model.Student
}

func setupRecordsEnv(t *testing.T) *recordsTestEnv {
	t.Helper()

	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration test. Set RUN_INTEGRATION_TESTS=true to run.")
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER_NAME"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		getEnvOrDefault("DB_SSL_MODE", "disable"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Identity{}, &model.RoleProfile{}, &model.PasswordResetToken{},
		&model.ClassGroup{}, &model.Subject{}, &model.Student{}, &model.Teacher{},
		&model.Mark{}, &model.Result{}, &model.Attendance{},
		&model.Assignment{}, &model.AssignmentSubmission{},
		&model.AuditEntry{}, &model.Notification{}, &model.CronJobLog{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	env := &recordsTestEnv{db: db, suffix: time.Now().UnixNano()}
	env.audit = NewAuditService(db)
	env.roles = NewRoleService(db, env.audit)
	notifications := NewNotificationService(db, NewEmailService())
	env.results = NewResultService(db, env.roles, env.audit, notifications)
	env.assignments = NewAssignmentService(db, env.roles, env.audit, notifications)
	env.catalog = NewCatalogService(db, env.roles, env.audit)
	env.accounts = NewAccountService(db, env.roles, env.audit, notifications, auth.NewJWTManager(auth.JWTConfig{
		Secret:        "integration-test-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "gurukul-test",
	}))

	// Admin fixture
	admin := model.Identity{
		Email:        fmt.Sprintf("it-admin-%d@test.local", env.suffix),
		PasswordHash: "not-a-real-hash",
		Name:         "Integration Admin",
	}
	if err := db.Create(&admin).Error; err != nil {
		t.Fatalf("failed to create admin identity: %v", err)
	}
	if err := db.Create(&model.RoleProfile{IdentityID: admin.ID, Role: model.RoleAdmin}).Error; err != nil {
		t.Fatalf("failed to create admin profile: %v", err)
	}
	env.adminID = admin.ID

	// Class and subject fixtures
	class := model.ClassGroup{Name: fmt.Sprintf("IT%d", env.suffix%1000000), Section: "A"}
	if err := db.Create(&class).Error; err != nil {
		t.Fatalf("failed to create class group: %v", err)
	}
	env.class = &class

	subject := model.Subject{
		Name:         "Integration Mathematics",
		Code:         fmt.Sprintf("ITM-%d", env.suffix),
		ClassGroupID: class.ID,
		MaxMarks:     100,
		PassMarks:    35,
	}
	if err := db.Create(&subject).Error; err != nil {
		t.Fatalf("failed to create subject: %v", err)
	}
	env.subject = &subject

	// Student fixture
	studentIdentity := model.Identity{
		Email:        fmt.Sprintf("it-student-%d@test.local", env.suffix),
		PasswordHash: "not-a-real-hash",
		Name:         "Integration Student",
	}
	if err := db.Create(&studentIdentity).Error; err != nil {
		t.Fatalf("failed to create student identity: %v", err)
	}
	if err := db.Create(&model.RoleProfile{IdentityID: studentIdentity.ID, Role: model.RoleStudent}).Error; err != nil {
		t.Fatalf("failed to create student profile: %v", err)
	}
	env.studentIdentityID = studentIdentity.ID

	student := model.Student{
		IdentityID:   studentIdentity.ID,
		RollNumber:   fmt.Sprintf("IT-%d", env.suffix),
		ClassGroupID: &class.ID,
		DateOfBirth:  time.Date(2008, 6, 1, 0, 0, 0, 0, time.UTC),
		Gender:       "F",
		Phone:        fmt.Sprintf("9%09d", env.suffix%1000000000),
	}
	if err := db.Create(&student).Error; err != nil {
		t.Fatalf("failed to create student: %v", err)
	}
	env.student = &student

	t.Cleanup(func() { env.teardown() })
	return env
}

// teardown hard-deletes everything the fixtures and tests created so repeated
// runs against the same database stay clean.
func (e *recordsTestEnv) teardown() {
	db := e.db.Unscoped()
	db.Where("student_id = ?", e.student.ID).Delete(&model.AssignmentSubmission{})
	db.Where("class_group_id = ?", e.class.ID).Delete(&model.Assignment{})
	db.Where("student_id = ?", e.student.ID).Delete(&model.Mark{})
	db.Where("student_id = ?", e.student.ID).Delete(&model.Result{})
	db.Where("student_id = ?", e.student.ID).Delete(&model.Attendance{})
	db.Delete(e.student)
	db.Where("class_group_id = ?", e.class.ID).Delete(&model.Subject{})
	db.Delete(e.class)
	db.Where("identity_id IN ?", []uint{e.adminID, e.studentIdentityID}).Delete(&model.PasswordResetToken{})
	db.Where("actor_id IN ?", []uint{e.adminID, e.studentIdentityID}).Delete(&model.AuditEntry{})
	db.Where("identity_id IN ?", []uint{e.adminID, e.studentIdentityID}).Delete(&model.Notification{})
	db.Where("identity_id IN ?", []uint{e.adminID, e.studentIdentityID}).Delete(&model.RoleProfile{})
	db.Delete(&model.Identity{}, []uint{e.adminID, e.studentIdentityID})
}

func TestUpsertMarkKeepsOneRowPerStudentSubject(t *testing.T) {
	env := setupRecordsEnv(t)
	ctx := context.Background()
	examDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	if _, err := env.results.UpsertMark(ctx, env.student.ID, env.subject.ID, 40, examDate, env.adminID); err != nil {
		t.Fatalf("first UpsertMark failed: %v", err)
	}
	if _, err := env.results.UpsertMark(ctx, env.student.ID, env.subject.ID, 55, examDate, env.adminID); err != nil {
		t.Fatalf("second UpsertMark failed: %v", err)
	}

	var count int64
	if err := env.db.Model(&model.Mark{}).
		Where("student_id = ? AND subject_id = ?", env.student.ID, env.subject.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count marks: %v", err)
	}
	if count != 1 {
		t.Fatalf("mark rows = %d, want 1", count)
	}

	var mark model.Mark
	if err := env.db.Where("student_id = ? AND subject_id = ?", env.student.ID, env.subject.ID).
		First(&mark).Error; err != nil {
		t.Fatalf("failed to load mark: %v", err)
	}
	if mark.MarksObtained != 55 {
		t.Errorf("MarksObtained = %v, want 55 (second entry should overwrite)", mark.MarksObtained)
	}
}

func TestAuditEntrySharesMutationTransaction(t *testing.T) {
	env := setupRecordsEnv(t)
	ctx := context.Background()

	// Committed mutation carries its audit entry.
	mark, err := env.results.UpsertMark(ctx, env.student.ID, env.subject.ID, 62,
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), env.adminID)
	if err != nil {
		t.Fatalf("UpsertMark failed: %v", err)
	}
	var committed int64
	if err := env.db.Model(&model.AuditEntry{}).
		Where("entity_type = ? AND entity_id = ? AND action = ?", model.EntityMark, mark.ID, model.AuditCreate).
		Count(&committed).Error; err != nil {
		t.Fatalf("failed to count audit entries: %v", err)
	}
	if committed != 1 {
		t.Errorf("audit entries for committed mark = %d, want 1", committed)
	}

	// A rolled-back transaction takes its audit entry down with it.
	sentinel := fmt.Sprintf("rollback-check-%d", env.suffix)
	err = env.db.Transaction(func(tx *gorm.DB) error {
		if err := env.audit.Record(tx, env.adminID, model.EntityMark, mark.ID, model.AuditUpdate,
			sentinel, nil, nil); err != nil {
			return err
		}
		return errors.New("force rollback")
	})
	if err == nil {
		t.Fatal("transaction unexpectedly committed")
	}
	var orphaned int64
	if err := env.db.Model(&model.AuditEntry{}).
		Where("description = ?", sentinel).
		Count(&orphaned).Error; err != nil {
		t.Fatalf("failed to count audit entries: %v", err)
	}
	if orphaned != 0 {
		t.Errorf("audit entries after rollback = %d, want 0", orphaned)
	}
}

func TestSecondSubmissionLeavesFirstUntouched(t *testing.T) {
	env := setupRecordsEnv(t)
	ctx := context.Background()

	assignment, err := env.assignments.Create(ctx, CreateAssignmentInput{
		Title:        "Integration worksheet",
		SubjectID:    env.subject.ID,
		ClassGroupID: env.class.ID,
		MaxMarks:     10,
		DueDate:      time.Now().Add(48 * time.Hour),
	}, env.adminID)
	if err != nil {
		t.Fatalf("failed to create assignment: %v", err)
	}
	if _, err := env.assignments.Transition(ctx, assignment.ID, model.AssignmentPublished, env.adminID); err != nil {
		t.Fatalf("failed to publish assignment: %v", err)
	}

	first, err := env.assignments.Submit(ctx, assignment.ID, env.student.ID, "uploads/first.pdf", env.studentIdentityID)
	if err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	_, err = env.assignments.Submit(ctx, assignment.ID, env.student.ID, "uploads/second.pdf", env.studentIdentityID)
	if !errors.Is(err, apperr.ErrDuplicateSubmission) {
		t.Fatalf("second submission error = %v, want ErrDuplicateSubmission", err)
	}

	var reloaded model.AssignmentSubmission
	if err := env.db.First(&reloaded, first.ID).Error; err != nil {
		t.Fatalf("failed to reload first submission: %v", err)
	}
	if reloaded.FileURL != "uploads/first.pdf" {
		t.Errorf("FileURL = %q, want the first upload to survive", reloaded.FileURL)
	}
	if !reloaded.SubmittedAt.Equal(first.SubmittedAt) {
		t.Errorf("SubmittedAt changed from %v to %v", first.SubmittedAt, reloaded.SubmittedAt)
	}

	var count int64
	if err := env.db.Model(&model.AssignmentSubmission{}).
		Where("assignment_id = ? AND student_id = ?", assignment.ID, env.student.ID).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count submissions: %v", err)
	}
	if count != 1 {
		t.Errorf("submission rows = %d, want 1", count)
	}
}

func TestRecomputePreservesPublishedFlag(t *testing.T) {
	env := setupRecordsEnv(t)
	ctx := context.Background()
	examDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	if _, err := env.results.UpsertMark(ctx, env.student.ID, env.subject.ID, 80, examDate, env.adminID); err != nil {
		t.Fatalf("UpsertMark failed: %v", err)
	}
	result, err := env.results.RecomputeResult(ctx, env.student.ID, env.adminID)
	if err != nil {
		t.Fatalf("RecomputeResult failed: %v", err)
	}
	if result.Published {
		t.Fatal("freshly generated result should start unpublished")
	}

	if _, err := env.results.SetResultPublished(ctx, result.ID, true, env.adminID); err != nil {
		t.Fatalf("SetResultPublished failed: %v", err)
	}

	if _, err := env.results.UpsertMark(ctx, env.student.ID, env.subject.ID, 91, examDate, env.adminID); err != nil {
		t.Fatalf("UpsertMark failed: %v", err)
	}
	recomputed, err := env.results.RecomputeResult(ctx, env.student.ID, env.adminID)
	if err != nil {
		t.Fatalf("second RecomputeResult failed: %v", err)
	}

	var reloaded model.Result
	if err := env.db.First(&reloaded, recomputed.ID).Error; err != nil {
		t.Fatalf("failed to reload result: %v", err)
	}
	if !reloaded.Published {
		t.Error("recompute cleared the published flag")
	}
	if reloaded.Percentage != 91 {
		t.Errorf("Percentage = %v, want 91", reloaded.Percentage)
	}
}

func TestDeleteClassGroupRemovesItsSubjects(t *testing.T) {
	env := setupRecordsEnv(t)
	ctx := context.Background()

	class, err := env.catalog.CreateClassGroup(ctx, fmt.Sprintf("IT%d", env.suffix%1000000), "B", env.adminID)
	if err != nil {
		t.Fatalf("failed to create class group: %v", err)
	}
	subject, err := env.catalog.CreateSubject(ctx, CreateSubjectInput{
		Name:         "Integration Science",
		Code:         fmt.Sprintf("ITS-%d", env.suffix),
		ClassGroupID: class.ID,
		MaxMarks:     100,
		PassMarks:    35,
	}, env.adminID)
	if err != nil {
		t.Fatalf("failed to create subject: %v", err)
	}
	t.Cleanup(func() {
		env.db.Unscoped().Delete(subject)
		env.db.Unscoped().Delete(class)
	})

	if err := env.catalog.DeleteClassGroup(ctx, class.ID, env.adminID); err != nil {
		t.Fatalf("DeleteClassGroup failed: %v", err)
	}

	var orphan model.Subject
	err = env.db.First(&orphan, subject.ID).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("subject still readable after class deletion: %v", err)
	}

	subjects, err := env.catalog.ListSubjects(ctx, class.ID)
	if err != nil {
		t.Fatalf("ListSubjects failed: %v", err)
	}
	if len(subjects) != 0 {
		t.Errorf("ListSubjects returned %d subjects for a deleted class, want 0", len(subjects))
	}
}

func TestPasswordResetTokenRedeemedOnce(t *testing.T) {
	env := setupRecordsEnv(t)
	ctx := context.Background()

	email := fmt.Sprintf("it-student-%d@test.local", env.suffix)
	if err := env.accounts.ForgotPassword(ctx, email); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}

	// An unknown address must not error and must not leave a token behind.
	if err := env.accounts.ForgotPassword(ctx, fmt.Sprintf("nobody-%d@test.local", env.suffix)); err != nil {
		t.Fatalf("ForgotPassword for unknown email failed: %v", err)
	}

	var reset model.PasswordResetToken
	if err := env.db.Where("identity_id = ?", env.studentIdentityID).First(&reset).Error; err != nil {
		t.Fatalf("reset token was not created: %v", err)
	}

	var before model.Identity
	if err := env.db.First(&before, env.studentIdentityID).Error; err != nil {
		t.Fatalf("failed to load identity: %v", err)
	}

	if err := env.accounts.ResetPassword(ctx, reset.Token, "Fresh-Passw0rd"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	var after model.Identity
	if err := env.db.First(&after, env.studentIdentityID).Error; err != nil {
		t.Fatalf("failed to reload identity: %v", err)
	}
	if err := auth.VerifyPassword(after.PasswordHash, "Fresh-Passw0rd"); err != nil {
		t.Errorf("new password does not verify: %v", err)
	}
	if after.TokenVersion != before.TokenVersion+1 {
		t.Errorf("TokenVersion = %d, want %d (outstanding tokens must be revoked)",
			after.TokenVersion, before.TokenVersion+1)
	}

	// Second redemption of the same token must fail.
	err := env.accounts.ResetPassword(ctx, reset.Token, "Another-Passw0rd")
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("second redemption error = %v, want a validation error", err)
	}
}

func TestStudentDirectoryLifecycle(t *testing.T) {
	env := setupRecordsEnv(t)
	ctx := context.Background()

	registered, err := env.accounts.RegisterStudent(ctx, RegisterStudentInput{
		Name:        "Directory Student",
		Email:       fmt.Sprintf("it-directory-%d@test.local", env.suffix),
		Password:    "Initial-Passw0rd",
		RollNumber:  fmt.Sprintf("DIR-%d", env.suffix),
		DateOfBirth: time.Date(2009, 1, 15, 0, 0, 0, 0, time.UTC),
		Gender:      "M",
		Phone:       fmt.Sprintf("8%09d", env.suffix%1000000000),
	}, env.adminID)
	if err != nil {
		t.Fatalf("RegisterStudent failed: %v", err)
	}
	t.Cleanup(func() {
		db := env.db.Unscoped()
		db.Where("actor_id = ?", registered.IdentityID).Delete(&model.AuditEntry{})
		db.Where("identity_id = ?", registered.IdentityID).Delete(&model.Notification{})
		db.Where("identity_id = ?", registered.IdentityID).Delete(&model.RoleProfile{})
		db.Delete(&model.Student{}, registered.ID)
		db.Delete(&model.Identity{}, registered.IdentityID)
	})

	newPhone := fmt.Sprintf("7%09d", env.suffix%1000000000)
	if _, err := env.accounts.UpdateStudent(ctx, registered.ID, UpdateStudentInput{Phone: &newPhone}, env.adminID); err != nil {
		t.Fatalf("UpdateStudent failed: %v", err)
	}
	var reloaded model.Student
	if err := env.db.First(&reloaded, registered.ID).Error; err != nil {
		t.Fatalf("failed to reload student: %v", err)
	}
	if reloaded.Phone != newPhone {
		t.Errorf("Phone = %q, want %q", reloaded.Phone, newPhone)
	}

	if err := env.accounts.DeleteStudent(ctx, registered.ID, env.adminID); err != nil {
		t.Fatalf("DeleteStudent failed: %v", err)
	}

	var goneStudent model.Student
	if err := env.db.First(&goneStudent, registered.ID).Error; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("student still readable after deletion: %v", err)
	}
	var goneIdentity model.Identity
	if err := env.db.First(&goneIdentity, registered.IdentityID).Error; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("identity still readable after deletion: %v", err)
	}
}

func TestDeleteSubjectRemovesItFromCatalog(t *testing.T) {
	env := setupRecordsEnv(t)
	ctx := context.Background()

	subject, err := env.catalog.CreateSubject(ctx, CreateSubjectInput{
		Name:         "Integration History",
		Code:         fmt.Sprintf("ITH-%d", env.suffix),
		ClassGroupID: env.class.ID,
		MaxMarks:     100,
		PassMarks:    35,
	}, env.adminID)
	if err != nil {
		t.Fatalf("failed to create subject: %v", err)
	}

	if err := env.catalog.DeleteSubject(ctx, subject.ID, env.adminID); err != nil {
		t.Fatalf("DeleteSubject failed: %v", err)
	}

	var gone model.Subject
	err = env.db.First(&gone, subject.ID).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("subject still readable after deletion: %v", err)
	}

	var audited int64
	if err := env.db.Model(&model.AuditEntry{}).
		Where("entity_type = ? AND entity_id = ? AND action = ?", model.EntitySubject, subject.ID, model.AuditDelete).
		Count(&audited).Error; err != nil {
		t.Fatalf("failed to count audit entries: %v", err)
	}
	if audited != 1 {
		t.Errorf("audit entries for subject deletion = %d, want 1", audited)
	}
}
