package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorType string

const (
	ErrorTypeInvalidRoot   ErrorType = "INVALID_ROOT"
	ErrorTypeFileAccess    ErrorType = "FILE_ACCESS"
	ErrorTypeHashAlgorithm ErrorType = "HASH_ALGORITHM"
	ErrorTypeAction        ErrorType = "ACTION"
	ErrorTypeCancelled     ErrorType = "CANCELLED"
	ErrorTypeConfig        ErrorType = "CONFIG"
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Path    string    `json:"path,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidRoot reports a scan root that is missing or not a directory.
func InvalidRoot(path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeInvalidRoot,
		Message: "invalid scan root",
		Path:    path,
		Err:     err,
	}
}

// FileAccess reports a stat, open or read failure on a single file.
func FileAccess(path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeFileAccess,
		Message: "file access failed",
		Path:    path,
		Err:     err,
	}
}

func HashAlgorithm(name string) *Error {
	return &Error{
		Type:    ErrorTypeHashAlgorithm,
		Message: fmt.Sprintf("unsupported hash algorithm %q", name),
	}
}

// Action reports a delete or move failure on a single file.
func Action(action, path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeAction,
		Message: fmt.Sprintf("%s failed", action),
		Path:    path,
		Err:     err,
	}
}

// Cancelled is returned by callers that surface a stopped run as a failure.
// The scanner and engine themselves report cancellation in their results.
func Cancelled(stage string) *Error {
	return &Error{
		Type:    ErrorTypeCancelled,
		Message: fmt.Sprintf("%s cancelled", stage),
	}
}

func Config(message string) *Error {
	return &Error{
		Type:    ErrorTypeConfig,
		Message: message,
	}
}

// IsType reports whether any error in err's chain is an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Type == t
}
