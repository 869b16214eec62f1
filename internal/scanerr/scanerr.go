// Package scanerr defines the typed error kinds that cross the core's
// external boundary (spec §7). Every exported orchestrator call returns
// either a domain value or a *scanerr.Error — never a bare error wrapping
// an internal type the caller can't safely branch on.
package scanerr

import "fmt"

// Kind is the closed set of error categories spec §7 requires.
type Kind string

const (
	InvalidInput     Kind = "InvalidInput"
	Unreachable      Kind = "Unreachable"
	RenderFailure    Kind = "RenderFailure"
	QuotaExceeded    Kind = "QuotaExceeded"
	NotFound         Kind = "NotFound"
	PermissionDenied Kind = "PermissionDenied"
	Dependency       Kind = "Dependency"
	Cancelled        Kind = "Cancelled"
	Internal         Kind = "Internal"
	Busy             Kind = "Busy"
)

// Error is the stable, display-safe error type returned across the core's
// boundary. Message is always safe to show to an end user; Cause carries
// the underlying error for logs only.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func new_(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

func New(kind Kind, code, message string) *Error {
	return new_(kind, code, message, nil)
}

func Wrap(kind Kind, code, message string, cause error) *Error {
	return new_(kind, code, message, cause)
}

// InvalidInputf builds an InvalidInput error with a formatted message.
func InvalidInputf(code, format string, args ...interface{}) *Error {
	return New(InvalidInput, code, fmt.Sprintf(format, args...))
}

// Unreachablef builds an Unreachable error with a formatted message.
func Unreachablef(code, format string, args ...interface{}) *Error {
	return New(Unreachable, code, fmt.Sprintf(format, args...))
}

// QuotaErr builds a QuotaExceeded error carrying the remaining units.
func QuotaErr(kind string, remaining int) *Error {
	return &Error{
		Kind:    QuotaExceeded,
		Code:    "quota_exceeded",
		Message: fmt.Sprintf("%s quota exceeded, %d remaining", kind, remaining),
	}
}

// NotFoundf builds a NotFound error with a formatted message.
func NotFoundf(code, format string, args ...interface{}) *Error {
	return New(NotFound, code, fmt.Sprintf(format, args...))
}

// PermissionDeniedf builds a PermissionDenied error with a formatted
// message.
func PermissionDeniedf(code, format string, args ...interface{}) *Error {
	return New(PermissionDenied, code, fmt.Sprintf(format, args...))
}

// Dependencyf builds a Dependency error wrapping cause.
func Dependencyf(code string, cause error, format string, args ...interface{}) *Error {
	return Wrap(Dependency, code, fmt.Sprintf(format, args...), cause)
}

// CancelledErr builds a Cancelled error.
func CancelledErr() *Error {
	return New(Cancelled, "cancelled", "the operation was cancelled")
}

// Internalf builds an Internal error wrapping cause.
func Internalf(cause error, format string, args ...interface{}) *Error {
	return Wrap(Internal, "internal", fmt.Sprintf(format, args...), cause)
}

// BusyErr builds a Busy error for the per-user concurrency cap.
func BusyErr() *Error {
	return New(Busy, "busy", "too many scans already in flight for this user")
}

// Is reports whether err is a *Error of the given kind, so callers can
// branch without a type assertion at every call site.
func Is(err error, kind Kind) bool {
	se, ok := err.(*Error)
	return ok && se.Kind == kind
}
