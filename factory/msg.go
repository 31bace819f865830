package factory

// InstantiateMsg configures a factory.
type InstantiateMsg struct {
	// HostCodeID is the code wallets are instantiated from.
	HostCodeID uint64 `json:"host_code_id"`

	// HostChain is the chain the factory and its wallets live on.
	HostChain string `json:"host_chain"`

	// ExecutorCodeIDs maps chains to the code executors for that chain
	// are instantiated from.
	ExecutorCodeIDs map[string]uint64 `json:"executor_code_ids"`
}

// CreateWalletMsg creates a wallet owned by the sender.
type CreateWalletMsg struct {
	RecoveryPool                     []string `json:"recovery_pool"`
	ApprovalPool                     []string `json:"approval_pool"`
	RecoveryApprovalsNeeded          uint32   `json:"recovery_approvals_needed"`
	TransferOwnershipApprovalsNeeded uint32   `json:"transfer_ownership_approvals_needed"`
}

// CreateExecutorMsg creates an executor for a wallet.
type CreateExecutorMsg struct {
	WalletAddress string `json:"wallet_address"`
	Chain         string `json:"chain"`
}

// UpdateOwnerMsg re-keys the owner index after a wallet changed hands.
type UpdateOwnerMsg struct {
	OldOwner string `json:"old_owner"`
	NewOwner string `json:"new_owner"`
}

// ExecuteMsg is the tagged union of factory operations.
type ExecuteMsg struct {
	CreateWallet   *CreateWalletMsg   `json:"create_wallet,omitempty"`
	CreateExecutor *CreateExecutorMsg `json:"create_executor,omitempty"`
	UpdateOwner    *UpdateOwnerMsg    `json:"update_owner,omitempty"`
}

// QueryMsg is the tagged union of factory queries.
type QueryMsg struct {
	GetHostContract *GetHostContractMsg `json:"get_host_contract,omitempty"`
	Config          *struct{}           `json:"config,omitempty"`
}

// GetHostContractMsg looks up the wallet of an owner.
type GetHostContractMsg struct {
	Owner string `json:"owner"`
}

// HostContractResponse holds the wallet of an owner.
type HostContractResponse struct {
	Host string `json:"host"`
}

// ConfigResponse describes a factory.
type ConfigResponse struct {
	Contract        string            `json:"contract"`
	HostCodeID      uint64            `json:"host_code_id"`
	HostChain       string            `json:"host_chain"`
	ExecutorCodeIDs map[string]uint64 `json:"executor_code_ids"`
	Wallets         uint64            `json:"wallets"`
}
