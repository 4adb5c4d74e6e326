package statebuf

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes state buffer errors.
type ErrorCode string

const (
	// ErrCodeAllocationFailure indicates the requested size cannot be backed.
	ErrCodeAllocationFailure ErrorCode = "ALLOCATION_FAILURE"

	// ErrCodeIndexOutOfRange indicates index < 0 or index >= size.
	ErrCodeIndexOutOfRange ErrorCode = "INDEX_OUT_OF_RANGE"

	// ErrCodeInvalidArgument indicates a negative size or an invalid level.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeReleased indicates the buffer has been destroyed.
	ErrCodeReleased ErrorCode = "BUFFER_RELEASED"
)

// Error is returned by every fallible buffer operation.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Index is the slot involved, or -1.
	Index int

	// Size is the buffer size at the time of the error.
	Size int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: %s (index=%d, size=%d)", e.Code, e.Message, e.Index, e.Size)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Code returns the ErrorCode carried by err, or "" if err is not an *Error.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsOutOfRange returns true if err is an index-out-of-range error.
func IsOutOfRange(err error) bool {
	return Code(err) == ErrCodeIndexOutOfRange
}

// IsAllocationFailure returns true if err is an allocation failure.
func IsAllocationFailure(err error) bool {
	return Code(err) == ErrCodeAllocationFailure
}

// IsReleased returns true if err reports a destroyed buffer.
func IsReleased(err error) bool {
	return Code(err) == ErrCodeReleased
}

func newOutOfRange(index, size int) *Error {
	return &Error{
		Code:    ErrCodeIndexOutOfRange,
		Message: "index outside buffer",
		Index:   index,
		Size:    size,
	}
}

func newReleased() *Error {
	return &Error{
		Code:    ErrCodeReleased,
		Message: "buffer has been destroyed",
		Index:   -1,
	}
}
