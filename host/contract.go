package host

import (
	"encoding/json"
	"strings"

	"github.com/abesuite/hostwallet/ledger"
	"github.com/abesuite/hostwallet/walletdb"
	"github.com/abesuite/hostwallet/walletdb/migration"
)

// Contract is the wallet contract.  It holds no state of its own; each
// instance lives in the store the ledger hands to its entry points.
type Contract struct{}

// Compile-time assertions.
var (
	_ ledger.Contract = Contract{}
	_ ledger.Migrator = Contract{}
)

// call is the working set of one execute.  state is a private copy of the
// stored wallet state and is written back only if the operation succeeds.
type call struct {
	ctx   *ledger.Context
	info  ledger.MessageInfo
	state *WalletState
	resp  *ledger.Response
}

func (c *call) requireOwner() error {
	if c.info.Sender != c.state.Owner {
		return errUnauthorized
	}
	return nil
}

func (c *call) validate(addr string) error {
	return validateAddr(c.ctx.API, addr)
}

func validateAddr(api ledger.API, addr string) error {
	if err := api.AddrValidate(addr); err != nil {
		return hostError(ErrInvalidAddress, "invalid address", err)
	}
	return nil
}

// Instantiate creates the wallet state.  The sender becomes the master that
// is told about ownership changes.
func (Contract) Instantiate(ctx *ledger.Context, info ledger.MessageInfo,
	raw json.RawMessage) (*ledger.Response, error) {

	var msg InstantiateMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		str := "malformed instantiate message"
		return nil, hostError(ErrInvalidMessage, str, err)
	}
	if err := validateAddr(ctx.API, msg.Owner); err != nil {
		return nil, err
	}
	if msg.Chain == "" {
		str := "wallet chain must not be empty"
		return nil, hostError(ErrInvalidMessage, str, nil)
	}

	state := &WalletState{
		Owner:                            msg.Owner,
		Master:                           info.Sender,
		RecoveryApprovalsNeeded:          msg.RecoveryApprovalsNeeded,
		TransferOwnershipApprovalsNeeded: msg.TransferOwnershipApprovalsNeeded,
		Chain:                            msg.Chain,
	}
	var err error
	for _, member := range msg.RecoveryPool {
		if err := validateAddr(ctx.API, member); err != nil {
			return nil, err
		}
		state.RecoveryPool, err = addMember(state.RecoveryPool, member)
		if err != nil {
			return nil, err
		}
	}
	for _, member := range msg.ApprovalPool {
		if err := validateAddr(ctx.API, member); err != nil {
			return nil, err
		}
		state.ApprovalPool, err = addMember(state.ApprovalPool, member)
		if err != nil {
			return nil, err
		}
	}

	if err := createStore(ctx.Store); err != nil {
		return nil, err
	}
	if err := putWalletState(ctx.Store, state); err != nil {
		return nil, err
	}

	self := ctx.Env.Contract.Address
	data, err := json.Marshal(InstantiateData{
		HostAddress: self,
		Owner:       state.Owner,
	})
	if err != nil {
		return nil, hostError(ErrInvalidMessage, "failed to encode data", err)
	}

	log.Infof("Created wallet %s for %s on chain %s", self, state.Owner,
		state.Chain)

	return ledger.NewResponse().
		AddAttribute("method", "instantiate").
		AddAttribute(AttrHostAddress, self).
		AddAttribute(AttrOwner, state.Owner).
		AddAttribute("recovery_pool", formatPool(state.RecoveryPool)).
		AddAttribute("approval_pool", formatPool(state.ApprovalPool)).
		AddAttribute("chain", state.Chain).
		AddAttribute("nonce", "0").
		SetData(data), nil
}

// formatPool renders a pool as a JSON list of strings.
func formatPool(pool []string) string {
	if len(pool) == 0 {
		return "[]"
	}
	return `["` + strings.Join(pool, `","`) + `"]`
}

// Execute runs one wallet operation.
func (Contract) Execute(ctx *ledger.Context, info ledger.MessageInfo,
	raw json.RawMessage) (*ledger.Response, error) {

	msg, err := decodeExecuteMsg(raw)
	if err != nil {
		return nil, err
	}
	state, err := fetchWalletState(ctx.Store)
	if err != nil {
		return nil, err
	}

	c := &call{
		ctx:   ctx,
		info:  info,
		state: state.Copy(),
		resp:  ledger.NewResponse(),
	}
	if err := c.run(msg); err != nil {
		log.Debugf("Wallet %s: call from %s rejected: %v",
			ctx.Env.Contract.Address, info.Sender, err)
		return nil, err
	}
	if err := putWalletState(ctx.Store, c.state); err != nil {
		return nil, err
	}
	return c.resp, nil
}

// run routes msg to its handler.  Every operation except executor
// registration is nonce guarded.
func (c *call) run(msg *ExecuteMsg) error {
	switch {
	case msg.AddRecoveryMember != nil:
		m := msg.AddRecoveryMember
		return c.guarded(m.Nonce, func() error {
			return c.addRecoveryMember(m.Member)
		})

	case msg.AddApprovalMember != nil:
		m := msg.AddApprovalMember
		return c.guarded(m.Nonce, func() error {
			return c.addApprovalMember(m.Member)
		})

	case msg.RemoveRecoveryMember != nil:
		m := msg.RemoveRecoveryMember
		return c.guarded(m.Nonce, func() error {
			return c.removeRecoveryMember(m.Member)
		})

	case msg.RemoveApprovalMember != nil:
		m := msg.RemoveApprovalMember
		return c.guarded(m.Nonce, func() error {
			return c.removeApprovalMember(m.Member)
		})

	case msg.RegisterExecutor != nil:
		m := msg.RegisterExecutor
		return c.registerExecutor(m.Chain, m.Addr)

	case msg.Dispatch != nil:
		m := msg.Dispatch
		return c.guarded(m.Nonce, func() error {
			return c.dispatch(m.Action)
		})

	case msg.BeginSocialRecovery != nil:
		m := msg.BeginSocialRecovery
		return c.guarded(m.Nonce, func() error {
			return c.beginSocialRecovery(m.Target)
		})

	case msg.ApproveSocialRecovery != nil:
		m := msg.ApproveSocialRecovery
		return c.guarded(m.Nonce, func() error {
			return c.approve(SocialRecovery, m.Target)
		})

	case msg.BeginTransferOwnership != nil:
		m := msg.BeginTransferOwnership
		return c.guarded(m.Nonce, func() error {
			return c.beginTransferOwnership(m.Target)
		})

	case msg.ApproveTransferOwnership != nil:
		m := msg.ApproveTransferOwnership
		return c.guarded(m.Nonce, func() error {
			return c.approve(TransferOwnership, m.Target)
		})

	case msg.CancelPending != nil:
		m := msg.CancelPending
		return c.guarded(m.Nonce, c.cancelPending)
	}

	// decodeExecuteMsg guarantees one variant is set.
	panic("host: execute message without a variant")
}

// Query answers read-only questions about the wallet.
func (Contract) Query(ctx *ledger.QueryContext, raw json.RawMessage) (json.RawMessage, error) {
	var msg QueryMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		str := "malformed query message"
		return nil, hostError(ErrInvalidMessage, str, err)
	}
	state, err := fetchWalletState(ctx.Store)
	if err != nil {
		return nil, err
	}

	var resp interface{}
	switch {
	case msg.GetRecoveryPool != nil:
		resp, err = queryRecoveryPool(ctx.Store, state)

	case msg.GetExecutors != nil:
		var executors map[string]string
		executors, err = fetchExecutors(ctx.Store)
		resp = &ExecutorsResponse{Executors: executors}

	case msg.GetExecutor != nil:
		r := &ExecutorResponse{}
		if addr, ok := fetchExecutor(ctx.Store, msg.GetExecutor.Chain); ok {
			r.Address = &addr
		}
		resp = r

	case msg.GetNonce != nil:
		resp = &NonceResponse{Nonce: state.LastNonce}

	case msg.GetState != nil:
		var votes []string
		votes, err = fetchVotes(ctx.Store)
		resp = &StateResponse{WalletState: *state, Votes: votes}

	case msg.ContractVersion != nil:
		var version uint32
		version, err = fetchStoreVersion(ctx.Store)
		resp = &ContractVersionResponse{
			Contract: fetchContractName(ctx.Store),
			Version:  version,
		}

	default:
		str := "query message must select one query"
		return nil, hostError(ErrInvalidMessage, str, nil)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

func queryRecoveryPool(ns walletdb.ReadBucket, state *WalletState) (*RecoveryPoolResponse, error) {
	votes, err := fetchVotes(ns)
	if err != nil {
		return nil, err
	}
	if votes == nil {
		votes = []string{}
	}
	members := state.RecoveryPool
	if members == nil {
		members = []string{}
	}

	resp := &RecoveryPoolResponse{
		Members:                members,
		RecoveryApprovalsCount: state.RecoveryApprovalsNeeded,
		TransferApprovalsCount: state.TransferOwnershipApprovalsNeeded,
		RecoveryProgress:       votes,
	}
	if p := state.Pending; p != nil {
		method, target := p.Method, p.Target
		resp.RecoveryMethod = &method
		resp.NewOwner = &target
	}
	return resp, nil
}

// MigrationManager returns the manager upgrading the wallet store in ns.
func (Contract) MigrationManager(ns walletdb.ReadWriteBucket) migration.Manager {
	return NewMigrationManager(ns)
}
