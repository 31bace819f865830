package host

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

// RecoveryMethod tells how a pending ownership change was started.
type RecoveryMethod uint8

const (
	// SocialRecovery is started by a recovery pool member on behalf of an
	// owner that lost access.
	SocialRecovery RecoveryMethod = iota + 1

	// TransferOwnership is started by the current owner.
	TransferOwnership
)

var recoveryMethodNames = map[RecoveryMethod]string{
	SocialRecovery:    "recovery",
	TransferOwnership: "transfer_ownership",
}

// String returns the name the method is reported under.
func (m RecoveryMethod) String() string {
	if s, ok := recoveryMethodNames[m]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", uint8(m))
}

// MarshalJSON encodes the method as its name.
func (m RecoveryMethod) MarshalJSON() ([]byte, error) {
	s, ok := recoveryMethodNames[m]
	if !ok {
		return nil, fmt.Errorf("invalid recovery method %d", uint8(m))
	}
	return json.Marshal(s)
}

// UnmarshalJSON decodes a method name.
func (m *RecoveryMethod) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for method, name := range recoveryMethodNames {
		if name == s {
			*m = method
			return nil
		}
	}
	return fmt.Errorf("unknown recovery method %q", s)
}

// Pending is an ownership change waiting for votes.  Keeping method and
// target in one value means a target is recorded exactly when a method is.
type Pending struct {
	Method RecoveryMethod `json:"method"`
	Target string         `json:"target"`

	// StartedAt is the block height the change was started at.
	StartedAt uint64 `json:"started_at"`
}

// WalletState is the authorization state of one wallet.  It is loaded,
// copied, changed and stored back as a whole by every call.
type WalletState struct {
	Owner   string   `json:"owner"`
	Master  string   `json:"master"`
	Pending *Pending `json:"pending,omitempty"`

	RecoveryPool []string `json:"recovery_pool"`
	ApprovalPool []string `json:"approval_pool"`

	RecoveryApprovalsNeeded          uint32 `json:"recovery_approvals_needed"`
	TransferOwnershipApprovalsNeeded uint32 `json:"transfer_ownership_approvals_needed"`

	Chain     string `json:"chain"`
	LastNonce uint64 `json:"last_nonce"`
}

// Copy returns a deep copy of the state.
func (s *WalletState) Copy() *WalletState {
	c := *s
	c.RecoveryPool = append([]string(nil), s.RecoveryPool...)
	c.ApprovalPool = append([]string(nil), s.ApprovalPool...)
	if s.Pending != nil {
		p := *s.Pending
		c.Pending = &p
	}
	return &c
}

// PotentialOwner returns the target of the pending change, if any.
func (s *WalletState) PotentialOwner() (string, bool) {
	if s.Pending == nil {
		return "", false
	}
	return s.Pending.Target, true
}

// Method returns the method of the pending change, if any.
func (s *WalletState) Method() (RecoveryMethod, bool) {
	if s.Pending == nil {
		return 0, false
	}
	return s.Pending.Method, true
}

// quorum returns the number of votes that commits a pending change of the
// given method.  The owner's implicit vote on a transfer counts toward the
// total, so its quorum is one above the configured value.
func (s *WalletState) quorum(m RecoveryMethod) uint64 {
	switch m {
	case SocialRecovery:
		return uint64(s.RecoveryApprovalsNeeded)
	case TransferOwnership:
		return uint64(s.TransferOwnershipApprovalsNeeded) + 1
	}
	panic(fmt.Sprintf("host: quorum for invalid recovery method %d", m))
}

// contains reports whether addr is in pool.
func contains(pool []string, addr string) bool {
	for _, a := range pool {
		if a == addr {
			return true
		}
	}
	return false
}

const (
	// walletStateVersion is the serialization version of WalletState.
	walletStateVersion = 1
)

// serializeWalletState returns the serialization of the wallet state.
func serializeWalletState(s *WalletState) []byte {
	// The serialized format is:
	//   <version><owner><master><chain><lastnonce><recneeded><xferneeded>
	//   <recpool><apppool><haspending>[<method><target><startedat>]
	//
	// 1 byte version + 3 length prefixed strings + 8 bytes last nonce +
	// 4 bytes recovery quorum + 4 bytes transfer quorum + 2 string lists
	// + 1 byte pending flag [+ 1 byte method + string + 8 bytes height]
	buf := make([]byte, 0, 128)
	buf = append(buf, walletStateVersion)
	buf = putString(buf, s.Owner)
	buf = putString(buf, s.Master)
	buf = putString(buf, s.Chain)
	buf = appendUint64(buf, s.LastNonce)
	buf = appendUint32(buf, s.RecoveryApprovalsNeeded)
	buf = appendUint32(buf, s.TransferOwnershipApprovalsNeeded)
	buf = putStringList(buf, s.RecoveryPool)
	buf = putStringList(buf, s.ApprovalPool)
	if s.Pending == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1, byte(s.Pending.Method))
	buf = putString(buf, s.Pending.Target)
	return appendUint64(buf, s.Pending.StartedAt)
}

// deserializeWalletState decodes a wallet state written by
// serializeWalletState.
func deserializeWalletState(b []byte) (*WalletState, error) {
	if len(b) == 0 {
		return nil, errors.New("empty wallet state")
	}
	if b[0] != walletStateVersion {
		str := fmt.Sprintf("unsupported wallet state version %d", b[0])
		return nil, hostError(ErrUpgrade, str, nil)
	}

	r := reader{buf: b[1:]}
	s := &WalletState{
		Owner:                            r.string(),
		Master:                           r.string(),
		Chain:                            r.string(),
		LastNonce:                        r.uint64(),
		RecoveryApprovalsNeeded:          r.uint32(),
		TransferOwnershipApprovalsNeeded: r.uint32(),
		RecoveryPool:                     r.stringList(),
		ApprovalPool:                     r.stringList(),
	}
	if r.byte() == 1 {
		s.Pending = &Pending{
			Method:    RecoveryMethod(r.byte()),
			Target:    r.string(),
			StartedAt: r.uint64(),
		}
		if _, ok := recoveryMethodNames[s.Pending.Method]; !ok && r.err == nil {
			r.err = fmt.Errorf("invalid recovery method %d", s.Pending.Method)
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return s, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

// putString appends s to buf as <4 byte size><bytes>.
func putString(buf []byte, s string) []byte {
	buf = appendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// putStringList appends a count prefixed list of strings.
func putStringList(buf []byte, l []string) []byte {
	buf = appendUint32(buf, uint32(len(l)))
	for _, s := range l {
		buf = putString(buf, s)
	}
	return buf
}

// reader decodes the fields written by the put helpers.  The first short
// read sets err; later reads return zero values.
type reader struct {
	buf []byte
	err error
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < n {
		r.err = errors.New("unexpected end of wallet state")
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) byte() byte {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) uint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) uint64() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *reader) string() string {
	n := r.uint32()
	return string(r.next(int(n)))
}

func (r *reader) stringList() []string {
	n := r.uint32()
	if r.err != nil {
		return nil
	}
	if uint64(n)*4 > uint64(len(r.buf)) {
		r.err = errors.New("string list exceeds wallet state")
		return nil
	}
	l := make([]string, 0, n)
	for i := uint32(0); i < n && r.err == nil; i++ {
		l = append(l, r.string())
	}
	return l
}
