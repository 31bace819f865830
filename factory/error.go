package factory

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error returned by the factory contract.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrDatabase indicates an error with the underlying store.  When
	// this error code is set, the Err field of the Error will be set to
	// the underlying error returned from the store.
	ErrDatabase ErrorCode = iota

	// ErrNoExist indicates a lookup found nothing, such as an owner
	// without a wallet.
	ErrNoExist

	// ErrInvalidMessage indicates a message could not be decoded or did
	// not select exactly one variant.
	ErrInvalidMessage

	// ErrInvalidAddress indicates a principal failed address validation.
	ErrInvalidAddress

	// ErrUnauthorized indicates the caller may not perform the
	// operation.
	ErrUnauthorized

	// ErrNotImplemented indicates a feature that is not available, such
	// as executors on a remote chain.
	ErrNotImplemented

	// ErrUnknownReplyID indicates a reply with an id the factory never
	// used.
	ErrUnknownReplyID

	// ErrUnknownChain indicates no executor code is configured for the
	// chain.
	ErrUnknownChain

	// ErrGeneric indicates a reply lacked the data needed to index a new
	// wallet.
	ErrGeneric
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDatabase:       "ErrDatabase",
	ErrNoExist:        "ErrNoExist",
	ErrInvalidMessage: "ErrInvalidMessage",
	ErrInvalidAddress: "ErrInvalidAddress",
	ErrUnauthorized:   "ErrUnauthorized",
	ErrNotImplemented: "ErrNotImplemented",
	ErrUnknownReplyID: "ErrUnknownReplyID",
	ErrUnknownChain:   "ErrUnknownChain",
	ErrGeneric:        "ErrGeneric",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors returned by the factory contract.
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

// factoryError creates an Error given a set of arguments.
func factoryError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsError returns whether the error is an Error with a matching error code.
func IsError(err error, code ErrorCode) bool {
	var e Error
	return errors.As(err, &e) && e.ErrorCode == code
}
