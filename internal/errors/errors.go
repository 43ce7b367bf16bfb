// Package errors defines the coded error type surfaced to users. Every code
// maps to a distinct process exit status so scripts looping over many target
// repositories can tell failure kinds apart.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorCode identifies an error category for stable testing and exit codes.
type ErrorCode string

const (
	ErrUnknown ErrorCode = "UNKNOWN"

	// ErrConfigMissing means the shared root is absent or lacks a required subtree.
	ErrConfigMissing ErrorCode = "CONFIG_MISSING"
	// ErrAlreadyInitialized means init was run on a target that already has .agent/.
	ErrAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"
	// ErrNotInitialized means update was run on a target without .agent/.
	ErrNotInitialized ErrorCode = "NOT_INITIALIZED"
	// ErrBackupCollision means the .backup name for a path is already taken.
	ErrBackupCollision ErrorCode = "BACKUP_COLLISION"
	// ErrPermission means the OS denied a create, rename or link.
	ErrPermission ErrorCode = "PERMISSION"
	// ErrFilesystem covers every other filesystem failure.
	ErrFilesystem ErrorCode = "FILESYSTEM"
	// ErrSettingsInvalid means .agent/agentsync.yaml failed schema validation.
	ErrSettingsInvalid ErrorCode = "SETTINGS_INVALID"
	// ErrInconsistent means status found links or mirrors out of date.
	ErrInconsistent ErrorCode = "INCONSISTENT"
)

var exitCodes = map[ErrorCode]int{
	ErrUnknown:            1,
	ErrConfigMissing:      2,
	ErrAlreadyInitialized: 3,
	ErrNotInitialized:     4,
	ErrBackupCollision:    5,
	ErrPermission:         6,
	ErrFilesystem:         7,
	ErrSettingsInvalid:    8,
	ErrInconsistent:       9,
}

// Error is a structured error with a code, details and an optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates an Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates an Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err with a code and message. It returns nil when err is nil.
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	e := New(code, message)
	e.Wrapped = err
	return e
}

// Wrapf wraps err with a code and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// FromFS wraps a filesystem error, classifying permission denials as
// ErrPermission and everything else as ErrFilesystem.
func FromFS(err error, op, path string) error {
	if err == nil {
		return nil
	}
	code := ErrFilesystem
	if errors.Is(err, fs.ErrPermission) {
		code = ErrPermission
	}
	return Wrapf(err, code, "%s %s", op, path).WithDetail("path", path)
}

// WithDetail adds a detail to the error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithHint attaches the actionable next step shown to the user.
func (e *Error) WithHint(hint string) *Error {
	return e.WithDetail("hint", hint)
}

// IsErrorCode reports whether err carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetErrorCode returns the code of err, or ErrUnknown.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}

// Hint returns the hint attached to err, if any.
func Hint(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if h, ok := e.Details["hint"].(string); ok {
			return h
		}
	}
	return ""
}

// ExitCode maps err to a process exit status. nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := exitCodes[GetErrorCode(err)]; ok {
		return code
	}
	return 1
}
