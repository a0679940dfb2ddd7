package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	msgs := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		msgs = append(msgs, f.Field+": "+f.Error)
	}
	return strings.Join(msgs, "; ")
}

// TransportError reports that a request never produced a usable server answer:
// network failures, timeouts and bodies that cannot be decoded.
type TransportError struct {
	Op  string
	Err error
}

func NewTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

func (err *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", err.Op, err.Err)
}

func (err *TransportError) Unwrap() error { return err.Err }

// ApplicationError is a well-formed server answer refusing the request (`success: false` or a non-2xx status).
type ApplicationError struct {
	Status  int
	Message string
}

func NewApplicationError(status int, msg string) error {
	return &ApplicationError{Status: status, Message: msg}
}

func (err *ApplicationError) Error() string {
	if err.Message != "" {
		return err.Message
	}
	if txt := http.StatusText(err.Status); txt != "" {
		return txt
	}
	return "request failed"
}

// IsNotFound reports whether err is an ApplicationError with a 404 status.
func IsNotFound(err error) bool {
	appErr, ok := errors.Cause(err).(*ApplicationError)
	return ok && appErr.Status == http.StatusNotFound
}

// DisplayMessage converts any error into the single message shown to the user.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	switch origErr := errors.Cause(err).(type) {
	case *ApplicationError:
		return origErr.Error()
	case *TransportError:
		var timeout interface{ Timeout() bool }
		if errors.Is(origErr.Err, context.DeadlineExceeded) || (errors.As(origErr.Err, &timeout) && timeout.Timeout()) {
			return "the server took too long to respond"
		}
		if errors.Is(origErr.Err, context.Canceled) {
			return "request cancelled"
		}
		return "could not reach the server: " + origErr.Err.Error()
	case *ValidationError:
		return origErr.Error()
	default:
		return err.Error()
	}
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
