// Package apperr holds the error kinds shared by the ledger, the signal
// registry and the chat surface.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrNotOwner     = errors.New("signal belongs to another user")
	ErrStore        = errors.New("store failure")
	ErrNotification = errors.New("notification failed")
)

// ValidationError carries a message that is safe to show to the user.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string        { return e.Msg }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError carries a message that is safe to show to the user.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string        { return e.Msg }
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StoreError wraps a persistence failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string        { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error        { return e.Err }
func (e *StoreError) Is(target error) bool { return target == ErrStore }

func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// Store classifies err as a store failure unless it already belongs to a
// domain kind.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) || errors.Is(err, ErrStore) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsDomain reports whether err is a caller mistake rather than an
// infrastructure failure.
func IsDomain(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrNotOwner)
}

// UserMessage renders err as a plain reply. Internal details of store
// failures never reach the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotOwner):
		return "❌ You can only change your own signals."
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return "❌ " + err.Error()
	default:
		return "❌ Something went wrong. Please try again later."
	}
}
