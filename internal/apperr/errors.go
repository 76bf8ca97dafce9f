// Package apperr is the domain error taxonomy. Handlers translate these
// into HTTP responses in one place instead of sprinkling status codes
// through the service layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a domain failure with an HTTP status attached.
//
// CurrentVersion is only set for version conflicts: a 409 response
// carries the row's current version so the client can refetch and retry.
type Error struct {
	Status         int    `json:"-"`
	Code           string `json:"code"`
	Message        string `json:"error"`
	CurrentVersion int    `json:"current_version,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NotFound covers both "does not exist" and "exists in another org".
// The two are deliberately indistinguishable to the caller — a uniform
// 404 prevents probing for other tenants' resources.
func NotFound(format string, args ...any) *Error {
	return &Error{Status: http.StatusNotFound, Code: "not_found", Message: fmt.Sprintf(format, args...)}
}

// Forbidden is a role or ownership violation by an authenticated caller.
func Forbidden(format string, args ...any) *Error {
	return &Error{Status: http.StatusForbidden, Code: "forbidden", Message: fmt.Sprintf(format, args...)}
}

// VersionConflict is an optimistic-lock failure. current is the version
// the row holds now.
func VersionConflict(current int) *Error {
	return &Error{
		Status:         http.StatusConflict,
		Code:           "version_conflict",
		Message:        fmt.Sprintf("Message was modified by another user. Current version is %d", current),
		CurrentVersion: current,
	}
}

// Conflict is a non-version conflict, e.g. a duplicate channel name.
func Conflict(format string, args ...any) *Error {
	return &Error{Status: http.StatusConflict, Code: "conflict", Message: fmt.Sprintf(format, args...)}
}

// Validation rejects malformed input: empty/oversized bodies, bad
// identifiers, unknown enum values.
func Validation(format string, args ...any) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: "validation", Message: fmt.Sprintf(format, args...)}
}

// InvalidAudit flags a programming error in an audit call (bad action,
// empty entity type). It should never surface from valid API use.
func InvalidAudit(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "invalid_audit", Message: fmt.Sprintf(format, args...)}
}

// As unwraps err into an *Error if there is one in the chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
