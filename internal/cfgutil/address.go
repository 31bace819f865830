package cfgutil

import "github.com/abesuite/hostwallet/ledger"

// AddressFlag holds a ledger account address and implements the
// flags.Marshaler and Unmarshaler interfaces so it can be used as a config
// struct field.  Malformed addresses are rejected while parsing.
type AddressFlag struct {
	Address string
}

// NewAddressFlag creates an AddressFlag with a default address.
func NewAddressFlag(defaultValue string) *AddressFlag {
	return &AddressFlag{defaultValue}
}

// MarshalFlag satisifes the flags.Marshaler interface.
func (a *AddressFlag) MarshalFlag() (string, error) {
	return a.Address, nil
}

// UnmarshalFlag satisifes the flags.Unmarshaler interface.
func (a *AddressFlag) UnmarshalFlag(value string) error {
	if err := ledger.ValidateAddress(value); err != nil {
		return err
	}
	a.Address = value
	return nil
}
