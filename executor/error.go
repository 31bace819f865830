package executor

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error returned by the executor contract.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrDatabase indicates an error with the underlying store.
	ErrDatabase ErrorCode = iota

	// ErrNoExist indicates the executor state has not been created.
	ErrNoExist

	// ErrInvalidMessage indicates a message could not be decoded.
	ErrInvalidMessage

	// ErrUnauthorized indicates the caller is not the owner.
	ErrUnauthorized

	// ErrNotImplemented indicates an action kind the executor does not
	// forward.
	ErrNotImplemented
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDatabase:       "ErrDatabase",
	ErrNoExist:        "ErrNoExist",
	ErrInvalidMessage: "ErrInvalidMessage",
	ErrUnauthorized:   "ErrUnauthorized",
	ErrNotImplemented: "ErrNotImplemented",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error is the error type returned by the executor contract.
type Error struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error.
func (e Error) Unwrap() error {
	return e.Err
}

func executorError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsError returns whether the error is an Error with a matching error code.
func IsError(err error, code ErrorCode) bool {
	var e Error
	return errors.As(err, &e) && e.ErrorCode == code
}
