package api

import (
	"errors"
	"fmt"
)

var (
	ErrColumnNotFound     = errors.New("column not found")
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrRequestFailed      = errors.New("request failed")
	ErrUnsupported        = errors.New("unsupported operation")
)

// APIError is the single error type surfaced to SDK users. Kind is one of the
// sentinel errors above so callers can match with errors.Is.
type APIError struct {
	Kind       error
	StatusCode int
	msg        string
}

func (e *APIError) Error() string {
	return e.msg
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

func Errorf(kind error, format string, args ...any) error {
	return &APIError{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

func StatusError(code int, format string, args ...any) error {
	return &APIError{Kind: ErrRequestFailed, StatusCode: code, msg: fmt.Sprintf(format, args...)}
}

func ColumnNotFound(column string) error {
	return Errorf(ErrColumnNotFound, "Column %s does not exist in DataFrame", column)
}
