package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validationf("bad marks"), KindValidation},
		{"conflict", Conflictf("duplicate roll number"), KindConflict},
		{"not found", NotFoundf("student %d not found", 7), KindNotFound},
		{"forbidden", Forbiddenf("admin only"), KindForbidden},
		{"sentinel no marks", ErrNoMarksFound, KindNotFound},
		{"sentinel zero max marks", ErrZeroMaxMarks, KindValidation},
		{"sentinel duplicate submission", ErrDuplicateSubmission, KindConflict},
		{"wrapped sentinel", fmt.Errorf("grading: %w", ErrMarksOutOfRange), KindValidation},
		{"gorm record not found", gorm.ErrRecordNotFound, KindNotFound},
		{"plain error", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"pgconn 23505", &pgconn.PgError{Code: "23505"}, true},
		{"pgconn other code", &pgconn.PgError{Code: "23503"}, false},
		{"pq 23505", &pq.Error{Code: "23505"}, true},
		{"pq other code", &pq.Error{Code: "42P01"}, false},
		{"wrapped pgconn", fmt.Errorf("create student: %w", &pgconn.PgError{Code: "23505"}), true},
		{"plain error", errors.New("duplicate key value"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}
