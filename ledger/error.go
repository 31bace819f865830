package ledger

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of error raised by the ledger itself, as
// opposed to an error returned by contract code.
type ErrorCode int

// These constants are used to identify a specific LedgerError.
const (
	// ErrDatabase indicates an error with the underlying database.  When
	// this error code is set, the Err field of the LedgerError will be
	// set to the underlying error returned from the database.
	ErrDatabase ErrorCode = iota

	// ErrInvalidAddress indicates an address failed validation.
	ErrInvalidAddress

	// ErrUnknownCode indicates an instantiate referenced a code id that
	// has not been stored.
	ErrUnknownCode

	// ErrNoContract indicates a call targeted an address that holds no
	// contract.
	ErrNoContract

	// ErrInvalidMsg indicates a message did not set exactly one variant or
	// could not be decoded.
	ErrInvalidMsg

	// ErrUnsupportedMsg indicates a message kind the ledger does not
	// route, such as custom messages.
	ErrUnsupportedMsg

	// ErrNoReplyHandler indicates a sub-message asked for a reply but the
	// emitting contract has no reply entry point.
	ErrNoReplyHandler

	// ErrCallDepth indicates the nesting of sub-messages exceeded the
	// limit.
	ErrCallDepth

	// ErrCodeExists indicates a code name was stored twice with different
	// implementations.
	ErrCodeExists

	// ErrNotOpen indicates the ledger has been closed.
	ErrNotOpen
)

// Map of ErrorCode values back to their constant names for pretty printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrDatabase:       "ErrDatabase",
	ErrInvalidAddress: "ErrInvalidAddress",
	ErrUnknownCode:    "ErrUnknownCode",
	ErrNoContract:     "ErrNoContract",
	ErrInvalidMsg:     "ErrInvalidMsg",
	ErrUnsupportedMsg: "ErrUnsupportedMsg",
	ErrNoReplyHandler: "ErrNoReplyHandler",
	ErrCallDepth:      "ErrCallDepth",
	ErrCodeExists:     "ErrCodeExists",
	ErrNotOpen:        "ErrNotOpen",
}

// String returns the ErrorCode as a human-readable name.
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// LedgerError provides a single type for errors that can happen during
// ledger operation.
type LedgerError struct {
	ErrorCode   ErrorCode // Describes the kind of error
	Description string    // Human readable description of the issue
	Err         error     // Underlying error
}

// Error satisfies the error interface and prints human-readable errors.
func (e LedgerError) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap returns the underlying error.
func (e LedgerError) Unwrap() error {
	return e.Err
}

// ledgerError creates a LedgerError given a set of arguments.
func ledgerError(c ErrorCode, desc string, err error) LedgerError {
	return LedgerError{ErrorCode: c, Description: desc, Err: err}
}

// IsError returns whether the error is a LedgerError with a matching error
// code.
func IsError(err error, code ErrorCode) bool {
	var e LedgerError
	return errors.As(err, &e) && e.ErrorCode == code
}

// ContractError wraps an error returned by contract code together with the
// address of the contract that returned it.  The contract's error is left
// intact and can be recovered with errors.As.
type ContractError struct {
	Contract string
	Err      error
}

// Error satisfies the error interface.
func (e *ContractError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the contract's error.
func (e *ContractError) Unwrap() error {
	return e.Err
}

// wrapContractErr wraps err unless it already carries a contract address.
func wrapContractErr(addr string, err error) error {
	var ce *ContractError
	if errors.As(err, &ce) {
		return err
	}
	var le LedgerError
	if errors.As(err, &le) {
		return err
	}
	return &ContractError{Contract: addr, Err: err}
}
