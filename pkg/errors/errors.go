package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	ErrorTypeTransport ErrorType = "transport"
	ErrorTypeStatus    ErrorType = "status"
	ErrorTypeDecode    ErrorType = "decode"
	ErrorTypeTask      ErrorType = "task"
	ErrorTypeRun       ErrorType = "run"
	ErrorTypeSurface   ErrorType = "surface"
	ErrorTypeConfig    ErrorType = "config"
)

// ErrRunInProgress is returned when an export is requested while another is active.
var ErrRunInProgress = stderrors.New("an export run is already in progress")

// Error represents a pipeline error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Code != 0 {
		msg = fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error with no cause
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Wrap creates a typed error around err
func Wrap(t ErrorType, msg string, err error) *Error {
	return &Error{Type: t, Message: msg, Err: err}
}

// IsType reports whether err, or anything it wraps, is an *Error of type t
func IsType(err error, t ErrorType) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsSuccessStatusCode reports whether an HTTP status counts as a usable response
func IsSuccessStatusCode(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
