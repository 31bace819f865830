package host

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error returned by the wallet contract.
type ErrorCode int

// These constants are used to identify a specific Error.
const (
	// ErrDatabase indicates an error with the underlying store.  When this
	// error code is set, the Err field of the Error will be set to the
	// underlying error returned from the store.
	ErrDatabase ErrorCode = iota

	// ErrData indicates stored data could not be decoded.
	ErrData

	// ErrNoExist indicates the wallet state has not been created.
	ErrNoExist

	// ErrAlreadyExists indicates instantiate ran on a store that already
	// holds a wallet.
	ErrAlreadyExists

	// ErrInvalidMessage indicates a message could not be decoded or did
	// not select exactly one variant.
	ErrInvalidMessage

	// ErrInvalidAddress indicates a principal failed address validation.
	ErrInvalidAddress

	// ErrUnauthorized indicates the caller lacks the role the operation
	// requires.
	ErrUnauthorized

	// ErrMemberNotFound indicates removal of a principal that is not a
	// pool member.
	ErrMemberNotFound

	// ErrMemberAlreadyAdded indicates addition of a principal that is
	// already a pool member.
	ErrMemberAlreadyAdded

	// ErrNonceAlreadyUsed indicates the supplied nonce is not above the
	// stored watermark.
	ErrNonceAlreadyUsed

	// ErrChainNotRegistered indicates no executor is registered for the
	// wallet's chain.
	ErrChainNotRegistered

	// ErrChainAlreadyRegistered indicates an executor is already
	// registered for the chain.
	ErrChainAlreadyRegistered

	// ErrSelfRecovery indicates a transfer targeting the current owner.
	ErrSelfRecovery

	// ErrAlreadyRecovering indicates a transfer is already pending.
	ErrAlreadyRecovering

	// ErrAlreadyVoted indicates the caller already voted on the pending
	// transfer.
	ErrAlreadyVoted

	// ErrNotInProgress indicates there is no pending transfer of the
	// requested kind.
	ErrNotInProgress

	// ErrInvariantMismatch indicates an approval named a target other
	// than the pending one.
	ErrInvariantMismatch

	// ErrUpgrade indicates the stored state is of a newer version than
	// this code understands.
	ErrUpgrade
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDatabase:               "ErrDatabase",
	ErrData:                   "ErrData",
	ErrNoExist:                "ErrNoExist",
	ErrAlreadyExists:          "ErrAlreadyExists",
	ErrInvalidMessage:         "ErrInvalidMessage",
	ErrInvalidAddress:         "ErrInvalidAddress",
	ErrUnauthorized:           "ErrUnauthorized",
	ErrMemberNotFound:         "ErrMemberNotFound",
	ErrMemberAlreadyAdded:     "ErrMemberAlreadyAdded",
	ErrNonceAlreadyUsed:       "ErrNonceAlreadyUsed",
	ErrChainNotRegistered:     "ErrChainNotRegistered",
	ErrChainAlreadyRegistered: "ErrChainAlreadyRegistered",
	ErrSelfRecovery:           "ErrSelfRecovery",
	ErrAlreadyRecovering:      "ErrAlreadyRecovering",
	ErrAlreadyVoted:           "ErrAlreadyVoted",
	ErrNotInProgress:          "ErrNotInProgress",
	ErrInvariantMismatch:      "ErrInvariantMismatch",
	ErrUpgrade:                "ErrUpgrade",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error provides a single type for errors that can happen during wallet
// contract operation.  It is used to indicate several types of failures
// including errors with caller supplied messages (unauthorized callers,
// stale nonces, conflicting transfers) and errors related to the store.
//
// The caller can use type assertions to determine if an error is an Error
// and access the ErrorCode field to ascertain the specific reason for the
// failure.
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

// hostError creates an Error given a set of arguments.
func hostError(c ErrorCode, desc string, err error) Error {
	return Error{ErrorCode: c, Description: desc, Err: err}
}

// IsError returns whether the error is an Error with a matching error code.
func IsError(err error, code ErrorCode) bool {
	var e Error
	return errors.As(err, &e) && e.ErrorCode == code
}

// Errors with fixed descriptions shared by several operations.
var (
	errUnauthorized      = hostError(ErrUnauthorized, "unauthorized", nil)
	errNonceAlreadyUsed  = hostError(ErrNonceAlreadyUsed, "nonce expired", nil)
	errSelfRecovery      = hostError(ErrSelfRecovery, "cannot transfer ownership to yourself", nil)
	errAlreadyRecovering = hostError(ErrAlreadyRecovering, "recovery already in progress", nil)
	errAlreadyVoted      = hostError(ErrAlreadyVoted, "caller already voted on the pending transfer", nil)
	errNotInProgress     = hostError(ErrNotInProgress, "the requested process was not initiated yet", nil)
	errInvariantMismatch = hostError(ErrInvariantMismatch, "target does not match the pending transfer", nil)
)
