package imaging

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes adapter errors.
type ErrorCode string

const (
	// ErrCodeDecodeFailure indicates the input image is unreadable or unsupported.
	ErrCodeDecodeFailure ErrorCode = "IMAGE_DECODE_FAILURE"

	// ErrCodeEncodeFailure indicates the output image cannot be written.
	ErrCodeEncodeFailure ErrorCode = "IMAGE_ENCODE_FAILURE"

	// ErrCodeInvalidBuffer indicates a nil, released or mis-sized buffer.
	ErrCodeInvalidBuffer ErrorCode = "INVALID_BUFFER"
)

// Error wraps a failure with its category and the file involved, if any.
type Error struct {
	Code    ErrorCode
	Message string
	Path    string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the ErrorCode carried by err, or "" if err is not an *Error.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsDecodeFailure returns true if err is an image decode failure.
func IsDecodeFailure(err error) bool {
	return Code(err) == ErrCodeDecodeFailure
}

// IsEncodeFailure returns true if err is an image encode failure.
func IsEncodeFailure(err error) bool {
	return Code(err) == ErrCodeEncodeFailure
}
