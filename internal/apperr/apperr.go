package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

type Kind string

const (
	KindUnauthorized Kind = "Unauthorized"
	KindForbidden    Kind = "Forbidden"
	KindNotFound     Kind = "NotFound"
	KindConflict     Kind = "Conflict"
	KindValidation   Kind = "ValidationError"
	KindInternal     Kind = "InternalError"
)

// Reasons distinguish the conflicts callers need to tell apart.
var (
	ErrAlreadyApplied     = errors.New("already applied")
	ErrAlreadyContributor = errors.New("already contributor")
	ErrAlreadyDecided     = errors.New("already decided")
	ErrProfileExists      = errors.New("profile exists")
	ErrNotAccepting       = errors.New("not accepting applications")
	ErrDuplicate          = errors.New("duplicate record")
)

// Error is the classified failure every service returns.
type Error struct {
	Kind    Kind
	Message string
	// Reason is an optional sentinel matched by errors.Is.
	Reason error
	// Err is the underlying cause, never shown to users.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Reason != nil {
		errs = append(errs, e.Reason)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Retryable reports whether a caller may try the operation again.
func (e *Error) Retryable() bool {
	return e.Kind == KindInternal
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Validation(message string) *Error   { return New(KindValidation, message) }

func Conflict(reason error, message string) *Error {
	return &Error{Kind: KindConflict, Message: message, Reason: reason}
}

func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: pkgerrors.WithStack(cause)}
}

// KindOf classifies any error; unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the user facing message for err.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong"
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsUniqueViolation recognises duplicate key failures from postgres and sqlite,
// whether or not gorm translated them.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}

// FromStore maps a persistence error onto the taxonomy. Already classified
// errors pass through untouched.
func FromStore(err error, notFoundMessage string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(notFoundMessage)
	case IsUniqueViolation(err):
		return &Error{Kind: KindConflict, Message: "Record already exists", Reason: ErrDuplicate, Err: err}
	default:
		return Internal("Unexpected storage failure", err)
	}
}

// Result is the tagged value rendered to API callers.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
}

func ResultOf(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	return Result{Success: false, Message: MessageOf(err), Kind: KindOf(err)}
}
