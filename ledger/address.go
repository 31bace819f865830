package ledger

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

const (
	// ContractAddressPrefix starts every address derived for a contract
	// instance.
	ContractAddressPrefix = "abe1"

	// MaxAddressLen is the longest address accepted by AddrValidate.
	MaxAddressLen = 90

	// contractHashLen is the number of hash bytes encoded in a contract
	// address.
	contractHashLen = 20
)

// ContractAddress derives the address of the instance with the given
// sequence number created from codeID.  The result is deterministic so a
// ledger replayed from the same calls yields the same addresses.
func ContractAddress(codeID, instance uint64) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], codeID)
	binary.BigEndian.PutUint64(buf[8:], instance)
	h := sha3.Sum256(buf[:])
	return ContractAddressPrefix + hex.EncodeToString(h[:contractHashLen])
}

// ValidateAddress checks that addr is non-empty, not longer than
// MaxAddressLen, and made of lowercase letters and digits only.
func ValidateAddress(addr string) error {
	if addr == "" {
		return ledgerError(ErrInvalidAddress, "empty address", nil)
	}
	if len(addr) > MaxAddressLen {
		return ledgerError(ErrInvalidAddress,
			"address too long: "+addr[:16]+"...", nil)
	}
	for i := 0; i < len(addr); i++ {
		c := addr[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ledgerError(ErrInvalidAddress,
				"invalid character in address "+addr, nil)
		}
	}
	return nil
}

// addressAPI is the API handed to contracts run by a Ledger.
type addressAPI struct{}

// AddrValidate implements API.
func (addressAPI) AddrValidate(addr string) error {
	return ValidateAddress(addr)
}

// DefaultAPI is the API the ledger hands to contract code.  Contract tests
// that call entry points directly can use it as well.
var DefaultAPI API = addressAPI{}
