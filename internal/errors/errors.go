// Package errors classifies failures across metcatalog so callers can tell
// a contract violation (invalid) from a condition worth retrying
// (transient) or one that should stop the program (fatal).
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Class is the handling classification of an error.
type Class int

const (
	// ClassTransient marks temporary failures that may be retried.
	ClassTransient Class = iota
	// ClassInvalid marks failures caused by bad input.
	ClassInvalid
	// ClassFatal marks unrecoverable failures.
	ClassFatal
)

// String returns the string representation of Class.
func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassInvalid:
		return "invalid"
	case ClassFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Sentinel errors shared by the packages of this module.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("resource not found")
	ErrIncompleteData  = errors.New("incomplete data")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnavailable     = errors.New("service unavailable")
	ErrInvalidConfig   = errors.New("invalid configuration")
)

// ClassifiedError wraps an error with its classification and origin.
type ClassifiedError struct {
	Class     Class
	Err       error
	Component string
	Operation string
}

// Error implements the error interface.
func (ce *ClassifiedError) Error() string {
	return ce.Err.Error()
}

// Unwrap returns the underlying error.
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// Is, As and New re-export the standard library helpers so callers only
// import one errors package.
var (
	Is  = errors.Is
	As  = errors.As
	New = errors.New
)

// ClassOf returns the class of err. Unclassified errors are transient
// unless they wrap one of the invalid sentinels.
func ClassOf(err error) Class {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	switch {
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrIncompleteData),
		errors.Is(err, ErrNotFound):
		return ClassInvalid
	case errors.Is(err, ErrInvalidConfig):
		return ClassFatal
	default:
		return ClassTransient
	}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return ClassOf(err) == ClassTransient
}

// IsInvalid reports whether err was caused by invalid input.
func IsInvalid(err error) bool {
	return err != nil && ClassOf(err) == ClassInvalid
}

// IsFatal reports whether err is unrecoverable.
func IsFatal(err error) bool {
	return err != nil && ClassOf(err) == ClassFatal
}

// Wrap adds context following the pattern "component.op: action: err".
func Wrap(err error, component, op, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s: %w", component, op, action, err)
}

// WrapTransient wraps err as transient.
func WrapTransient(err error, component, op, action string) error {
	return classify(ClassTransient, err, component, op, action)
}

// WrapInvalid wraps err as invalid.
func WrapInvalid(err error, component, op, action string) error {
	return classify(ClassInvalid, err, component, op, action)
}

// WrapFatal wraps err as fatal.
func WrapFatal(err error, component, op, action string) error {
	return classify(ClassFatal, err, component, op, action)
}

func classify(class Class, err error, component, op, action string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{
		Class:     class,
		Err:       Wrap(err, component, op, action),
		Component: component,
		Operation: op,
	}
}
