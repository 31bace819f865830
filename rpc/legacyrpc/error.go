package legacyrpc

import (
	"errors"

	"github.com/abesuite/abec/abejson"
	"github.com/abesuite/hostwallet/executor"
	"github.com/abesuite/hostwallet/factory"
	"github.com/abesuite/hostwallet/host"
	"github.com/abesuite/hostwallet/ledger"
)

// Error types to simplify the reporting of specific categories of
// errors, and their *abejson.RPCError creation.
type (
	// DeserializationError describes a failed deserializaion due to bad
	// user input.  It corresponds to abejson.ErrRPCDeserialization.
	DeserializationError struct {
		error
	}

	// InvalidParameterError describes an invalid parameter passed by
	// the user.  It corresponds to abejson.ErrRPCInvalidParameter.
	InvalidParameterError struct {
		error
	}

	// ParseError describes a failed parse due to bad user input.  It
	// corresponds to abejson.ErrRPCParse.
	ParseError struct {
		error
	}
)

// Errors variables that are defined once here to avoid duplication below.
var (
	ErrEmptyMessage = InvalidParameterError{
		errors.New("contract message must not be empty"),
	}

	ErrEmptyDestination = InvalidParameterError{
		errors.New("backup destination must not be empty"),
	}

	ErrBackupExists = abejson.RPCError{
		Code:    abejson.ErrRPCInvalidParameter,
		Message: "backup destination already exists",
	}
)

// contractErrorCode picks the JSON-RPC error code for an error returned by
// the ledger or by contract code running on it.
func contractErrorCode(err error) abejson.RPCErrorCode {
	var (
		he host.Error
		fe factory.Error
		ee executor.Error
		le ledger.LedgerError
	)
	switch {
	case errors.As(err, &he):
		switch he.ErrorCode {
		case host.ErrInvalidMessage:
			return abejson.ErrRPCInvalidParameter
		case host.ErrInvalidAddress:
			return abejson.ErrRPCInvalidAddressOrKey
		case host.ErrDatabase, host.ErrData:
			return abejson.ErrRPCDatabase
		}

	case errors.As(err, &fe):
		switch fe.ErrorCode {
		case factory.ErrInvalidMessage:
			return abejson.ErrRPCInvalidParameter
		case factory.ErrInvalidAddress, factory.ErrNoExist:
			return abejson.ErrRPCInvalidAddressOrKey
		case factory.ErrDatabase:
			return abejson.ErrRPCDatabase
		}

	case errors.As(err, &ee):
		switch ee.ErrorCode {
		case executor.ErrInvalidMessage:
			return abejson.ErrRPCInvalidParameter
		case executor.ErrDatabase:
			return abejson.ErrRPCDatabase
		}

	case errors.As(err, &le):
		switch le.ErrorCode {
		case ledger.ErrInvalidAddress, ledger.ErrNoContract,
			ledger.ErrUnknownCode:
			return abejson.ErrRPCInvalidAddressOrKey
		case ledger.ErrInvalidMsg, ledger.ErrUnsupportedMsg:
			return abejson.ErrRPCInvalidParameter
		case ledger.ErrDatabase:
			return abejson.ErrRPCDatabase
		}
	}
	return abejson.ErrRPCWallet
}
