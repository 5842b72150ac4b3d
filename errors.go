// Package tilegrid structured error types.
package tilegrid

import (
	"errors"
	"fmt"
)

// ErrorType categorizes library errors.
type ErrorType int

const (
	// Memory allocation and pool errors.
	ErrTypeMemory ErrorType = iota
	// Invalid argument errors: bad shapes, strides, sizes.
	ErrTypeInvalidArg
	// Kernel launch and stream errors.
	ErrTypeExecution
	// Numerical errors: verification failures, non-finite results.
	ErrTypeNumerical
	// Device selection errors.
	ErrTypeDevice
)

// Error is a structured error carrying the failing operation and an
// optional cause.
type Error struct {
	Type    ErrorType
	Op      string
	Message string
	Err     error
	Context interface{}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tilegrid %s error in %s: %s (caused by: %v)",
			e.Type, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("tilegrid %s error in %s: %s", e.Type, e.Op, e.Message)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Err }

func (t ErrorType) String() string {
	switch t {
	case ErrTypeMemory:
		return "Memory"
	case ErrTypeInvalidArg:
		return "InvalidArgument"
	case ErrTypeExecution:
		return "Execution"
	case ErrTypeNumerical:
		return "Numerical"
	case ErrTypeDevice:
		return "Device"
	default:
		return "Unknown"
	}
}

// NewMemoryError creates a memory-related error.
func NewMemoryError(op, message string, err error) error {
	return &Error{Type: ErrTypeMemory, Op: op, Message: message, Err: err}
}

// NewInvalidArgError creates an invalid argument error.
func NewInvalidArgError(op, message string) error {
	return &Error{Type: ErrTypeInvalidArg, Op: op, Message: message}
}

// NewExecutionError creates a kernel execution error.
func NewExecutionError(op, message string, err error) error {
	return &Error{Type: ErrTypeExecution, Op: op, Message: message, Err: err}
}

// NewNumericalError creates a numerical error with diagnostic context,
// typically verification statistics.
func NewNumericalError(op, message string, context interface{}) error {
	return &Error{Type: ErrTypeNumerical, Op: op, Message: message, Context: context}
}

var (
	// ErrDoubleFree reports a second Free of the same pointer.
	ErrDoubleFree = NewMemoryError("Free", "double free detected", nil)

	// ErrInvalidDevice reports selection of a device other than 0.
	ErrInvalidDevice = NewInvalidArgError("SetDevice", "invalid device ID")

	// ErrShapeMismatch reports an operand buffer too small for the
	// shape it was passed with.
	ErrShapeMismatch = NewInvalidArgError("MatMul", "operand buffer smaller than its shape")
)

// IsErrorType reports whether err (or anything it wraps) is a tilegrid
// error of the given type.
func IsErrorType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsMemoryError reports whether err is a memory error.
func IsMemoryError(err error) bool { return IsErrorType(err, ErrTypeMemory) }

// IsInvalidArgError reports whether err is an invalid argument error.
func IsInvalidArgError(err error) bool { return IsErrorType(err, ErrTypeInvalidArg) }
