package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrorNoActiveDocument  ErrorCode = "NO_ACTIVE_DOCUMENT"
	ErrorDocumentNotFound  ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrorLookupNotFound    ErrorCode = "LOOKUP_NOT_FOUND"
	ErrorInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorUpstream          ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal          ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UserFacing reports whether the reader should be told about the error.
// Upstream and internal failures have no channel to report through.
func (e *Error) UserFacing() bool {
	if e == nil {
		return false
	}
	switch e.Code {
	case ErrorUpstream, ErrorInternal:
		return false
	default:
		return true
	}
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// codeOf returns the code of a use-case error, or ErrorInternal for any
// other error.
func codeOf(err error) ErrorCode {
	var ucErr *Error
	if errors.As(err, &ucErr) {
		return ucErr.Code
	}
	return ErrorInternal
}
