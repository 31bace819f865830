package host

import (
	"encoding/json"

	"github.com/abesuite/hostwallet/ledger"
)

// InstantiateMsg creates a wallet.  The instantiating sender becomes the
// wallet's master.
type InstantiateMsg struct {
	Owner                            string   `json:"owner"`
	RecoveryPool                     []string `json:"recovery_pool"`
	ApprovalPool                     []string `json:"approval_pool"`
	RecoveryApprovalsNeeded          uint32   `json:"recovery_approvals_needed"`
	TransferOwnershipApprovalsNeeded uint32   `json:"transfer_ownership_approvals_needed"`
	Chain                            string   `json:"chain"`
}

// InstantiateData is the typed response data returned by instantiate.
type InstantiateData struct {
	HostAddress string `json:"host_address"`
	Owner       string `json:"owner"`
}

// Attribute keys emitted by instantiate that creators match on.
const (
	AttrHostAddress = "host_address"
	AttrOwner       = "owner"
)

// MemberMsg names a pool member.
type MemberMsg struct {
	Nonce  uint64 `json:"nonce"`
	Member string `json:"member"`
}

// RegisterExecutorMsg is sent by an executor to register itself for a
// chain.  It carries no nonce; the sender must be the registered address.
type RegisterExecutorMsg struct {
	Chain string `json:"chain"`
	Addr  string `json:"addr"`
}

// DispatchMsg forwards an action to the executor of the wallet's chain.
type DispatchMsg struct {
	Nonce  uint64          `json:"nonce"`
	Action json.RawMessage `json:"action"`
}

// TargetMsg names the target owner of a pending change.
type TargetMsg struct {
	Nonce  uint64 `json:"nonce"`
	Target string `json:"target"`
}

// NonceMsg carries only a nonce.
type NonceMsg struct {
	Nonce uint64 `json:"nonce"`
}

// ExecuteMsg is the tagged union of wallet operations.  Exactly one field
// must be set.
type ExecuteMsg struct {
	AddRecoveryMember        *MemberMsg           `json:"add_recovery_member,omitempty"`
	AddApprovalMember        *MemberMsg           `json:"add_approval_member,omitempty"`
	RemoveRecoveryMember     *MemberMsg           `json:"remove_recovery_member,omitempty"`
	RemoveApprovalMember     *MemberMsg           `json:"remove_approval_member,omitempty"`
	RegisterExecutor         *RegisterExecutorMsg `json:"register_executor,omitempty"`
	Dispatch                 *DispatchMsg         `json:"dispatch,omitempty"`
	BeginSocialRecovery      *TargetMsg           `json:"begin_social_recovery,omitempty"`
	ApproveSocialRecovery    *TargetMsg           `json:"approve_social_recovery,omitempty"`
	BeginTransferOwnership   *TargetMsg           `json:"begin_transfer_ownership,omitempty"`
	ApproveTransferOwnership *TargetMsg           `json:"approve_transfer_ownership,omitempty"`
	CancelPending            *NonceMsg            `json:"cancel_pending,omitempty"`
}

// variants returns the number of fields set.
func (m *ExecuteMsg) variants() int {
	n := 0
	for _, set := range []bool{
		m.AddRecoveryMember != nil,
		m.AddApprovalMember != nil,
		m.RemoveRecoveryMember != nil,
		m.RemoveApprovalMember != nil,
		m.RegisterExecutor != nil,
		m.Dispatch != nil,
		m.BeginSocialRecovery != nil,
		m.ApproveSocialRecovery != nil,
		m.BeginTransferOwnership != nil,
		m.ApproveTransferOwnership != nil,
		m.CancelPending != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// QueryMsg is the tagged union of wallet queries.
type QueryMsg struct {
	GetRecoveryPool *struct{}       `json:"get_recovery_pool,omitempty"`
	GetExecutors    *struct{}       `json:"get_executors,omitempty"`
	GetExecutor     *GetExecutorMsg `json:"get_executor,omitempty"`
	GetNonce        *struct{}       `json:"get_nonce,omitempty"`
	GetState        *struct{}       `json:"get_state,omitempty"`
	ContractVersion *struct{}       `json:"contract_version,omitempty"`
}

// GetExecutorMsg looks up the executor of one chain.
type GetExecutorMsg struct {
	Chain string `json:"chain"`
}

// RecoveryPoolResponse reports the recovery pool and the progress of a
// pending change.
type RecoveryPoolResponse struct {
	Members                []string        `json:"members"`
	RecoveryApprovalsCount uint32          `json:"recovery_approvals_count"`
	TransferApprovalsCount uint32          `json:"transfer_approvals_count"`
	RecoveryProgress       []string        `json:"recovery_progress"`
	RecoveryMethod         *RecoveryMethod `json:"recovery_method"`
	NewOwner               *string         `json:"new_owner"`
}

// ExecutorsResponse maps chains to executor addresses.
type ExecutorsResponse struct {
	Executors map[string]string `json:"executors"`
}

// ExecutorResponse holds the executor of one chain, or null.
type ExecutorResponse struct {
	Address *string `json:"address"`
}

// NonceResponse reports the replay watermark.
type NonceResponse struct {
	Nonce uint64 `json:"nonce"`
}

// StateResponse is a full snapshot of the wallet.
type StateResponse struct {
	WalletState
	Votes []string `json:"votes"`
}

// ContractVersionResponse names the code and layout version of the wallet.
type ContractVersionResponse struct {
	Contract string `json:"contract"`
	Version  uint32 `json:"version"`
}

// UpdateOwnerMsg tells the master the wallet changed hands.
type UpdateOwnerMsg struct {
	OldOwner string `json:"old_owner"`
	NewOwner string `json:"new_owner"`
}

// masterMsg is the execute message sent to the master.
type masterMsg struct {
	UpdateOwner *UpdateOwnerMsg `json:"update_owner"`
}

// NewRegisterExecutorMsg builds the message an executor at self sends to
// wallet to register itself for chain.
func NewRegisterExecutorMsg(wallet, chain, self string) (ledger.Msg, error) {
	return ledger.NewExecuteMsg(wallet, ExecuteMsg{
		RegisterExecutor: &RegisterExecutorMsg{Chain: chain, Addr: self},
	}, nil)
}

// decodeExecuteMsg decodes raw and checks it selects one variant.
func decodeExecuteMsg(raw json.RawMessage) (*ExecuteMsg, error) {
	var msg ExecuteMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		str := "malformed execute message"
		return nil, hostError(ErrInvalidMessage, str, err)
	}
	if msg.variants() != 1 {
		str := "execute message must select exactly one operation"
		return nil, hostError(ErrInvalidMessage, str, nil)
	}
	return &msg, nil
}
