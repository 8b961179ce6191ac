// Package apperr defines the error taxonomy shared by services and handlers.
// Services return these errors; handlers map them onto HTTP responses without
// inspecting error strings.
package apperr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthorized
	KindForbidden
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validationf builds a validation error (rejected before any mutation).
func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a conflict error (unique-constraint violation).
func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a missing-reference error.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthorizedf builds an authentication failure.
func Unauthorizedf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// Forbiddenf builds a role/ownership check failure.
func Forbiddenf(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Internalf wraps an unexpected error.
func Internalf(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// Sentinels for the result computation and grading workflow.
var (
	ErrNoMarksFound        = &Error{Kind: KindNotFound, Message: "no marks found for this student"}
	ErrZeroMaxMarks        = &Error{Kind: KindValidation, Message: "a subject in the mark set has max marks of zero"}
	ErrDuplicateSubmission = &Error{Kind: KindConflict, Message: "a submission already exists for this assignment"}
	ErrMarksOutOfRange     = &Error{Kind: KindValidation, Message: "marks are outside the allowed range"}
	ErrProfileNotFound     = &Error{Kind: KindUnauthorized, Message: "no role profile for this identity"}
)

// KindOf extracts the Kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// uniqueViolation is the SQLSTATE for unique-constraint failures.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique-constraint violation from
// either postgres driver (pgx under GORM, lib/pq for raw database/sql) or
// GORM's own translation.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}
