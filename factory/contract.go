package factory

import (
	"encoding/json"

	"github.com/abesuite/hostwallet/executor"
	"github.com/abesuite/hostwallet/host"
	"github.com/abesuite/hostwallet/ledger"
)

// Reply ids used to correlate sub-message results.
const (
	replyCreateWallet uint64 = 1
)

// Contract is the factory contract.
type Contract struct{}

// Compile-time assertions.
var (
	_ ledger.Contract     = Contract{}
	_ ledger.ReplyHandler = Contract{}
)

func validateAddr(api ledger.API, addr string) error {
	if err := api.AddrValidate(addr); err != nil {
		return factoryError(ErrInvalidAddress, "invalid address", err)
	}
	return nil
}

// Instantiate stores the code templates the factory creates contracts from.
func (Contract) Instantiate(ctx *ledger.Context, info ledger.MessageInfo,
	raw json.RawMessage) (*ledger.Response, error) {

	var msg InstantiateMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		str := "malformed instantiate message"
		return nil, factoryError(ErrInvalidMessage, str, err)
	}
	if msg.HostChain == "" {
		str := "host chain must not be empty"
		return nil, factoryError(ErrInvalidMessage, str, nil)
	}
	for chain := range msg.ExecutorCodeIDs {
		if chain == "" {
			str := "executor chain must not be empty"
			return nil, factoryError(ErrInvalidMessage, str, nil)
		}
	}

	if err := createStore(ctx.Store, &msg); err != nil {
		return nil, err
	}

	log.Infof("Factory %s creating wallets from code %d on chain %s",
		ctx.Env.Contract.Address, msg.HostCodeID, msg.HostChain)

	return ledger.NewResponse().
		AddAttribute("method", "instantiate").
		AddAttribute("host_code_id", formatUint(msg.HostCodeID)).
		AddAttribute("host_chain", msg.HostChain), nil
}

// Execute runs one factory operation.
func (Contract) Execute(ctx *ledger.Context, info ledger.MessageInfo,
	raw json.RawMessage) (*ledger.Response, error) {

	var msg ExecuteMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		str := "malformed execute message"
		return nil, factoryError(ErrInvalidMessage, str, err)
	}
	cfg, err := fetchConfig(ctx.Store)
	if err != nil {
		return nil, err
	}

	switch {
	case msg.CreateWallet != nil && msg.CreateExecutor == nil && msg.UpdateOwner == nil:
		return createWallet(ctx, info, cfg, msg.CreateWallet)

	case msg.CreateExecutor != nil && msg.CreateWallet == nil && msg.UpdateOwner == nil:
		return createExecutor(ctx, cfg, msg.CreateExecutor)

	case msg.UpdateOwner != nil && msg.CreateWallet == nil && msg.CreateExecutor == nil:
		return updateOwner(ctx, info, msg.UpdateOwner)

	default:
		str := "execute message must select exactly one operation"
		return nil, factoryError(ErrInvalidMessage, str, nil)
	}
}

// createWallet instantiates a wallet owned by the sender.  The owner index
// is written once the reply comes back.
func createWallet(ctx *ledger.Context, info ledger.MessageInfo, cfg *config,
	msg *CreateWalletMsg) (*ledger.Response, error) {

	inst, err := ledger.NewInstantiateMsg(cfg.hostCodeID, &host.InstantiateMsg{
		Owner:                            info.Sender,
		RecoveryPool:                     msg.RecoveryPool,
		ApprovalPool:                     msg.ApprovalPool,
		RecoveryApprovalsNeeded:          msg.RecoveryApprovalsNeeded,
		TransferOwnershipApprovalsNeeded: msg.TransferOwnershipApprovalsNeeded,
		Chain:                            cfg.hostChain,
	}, info.Sender)
	if err != nil {
		return nil, factoryError(ErrInvalidMessage, "failed to encode wallet", err)
	}

	return ledger.NewResponse().
		AddAttribute("method", "create_wallet").
		AddAttribute("owner", info.Sender).
		AddSubMessage(replyCreateWallet, inst), nil
}

// createExecutor instantiates an executor for a wallet.  Only executors on
// the factory's own chain can be created.
func createExecutor(ctx *ledger.Context, cfg *config,
	msg *CreateExecutorMsg) (*ledger.Response, error) {

	if err := validateAddr(ctx.API, msg.WalletAddress); err != nil {
		return nil, err
	}
	if msg.Chain != cfg.hostChain {
		str := "executors on chain " + msg.Chain + " need a cross-chain " +
			"relay, which is not available"
		return nil, factoryError(ErrNotImplemented, str, nil)
	}
	codeID, ok := fetchExecutorCodeID(ctx.Store, msg.Chain)
	if !ok {
		str := "no executor code configured for chain " + msg.Chain
		return nil, factoryError(ErrUnknownChain, str, nil)
	}

	inst, err := ledger.NewInstantiateMsg(codeID, &executor.InstantiateMsg{
		Owner: msg.WalletAddress,
		Chain: msg.Chain,
	}, msg.WalletAddress+"/"+msg.Chain)
	if err != nil {
		str := "failed to encode executor"
		return nil, factoryError(ErrInvalidMessage, str, err)
	}

	return ledger.NewResponse().
		AddAttribute("method", "create_executor").
		AddAttribute("wallet_address", msg.WalletAddress).
		AddAttribute("chain", msg.Chain).
		AddMessage(inst), nil
}

// updateOwner re-keys the owner index.  Only the wallet indexed under the
// old owner may move its own entry.
func updateOwner(ctx *ledger.Context, info ledger.MessageInfo,
	msg *UpdateOwnerMsg) (*ledger.Response, error) {

	wallet, ok := fetchWallet(ctx.Store, msg.OldOwner)
	if !ok || wallet != info.Sender {
		return nil, factoryError(ErrUnauthorized, "unauthorized", nil)
	}
	if err := validateAddr(ctx.API, msg.NewOwner); err != nil {
		return nil, err
	}

	if err := deleteWallet(ctx.Store, msg.OldOwner); err != nil {
		return nil, err
	}
	if err := putWallet(ctx.Store, msg.NewOwner, wallet); err != nil {
		return nil, err
	}

	log.Infof("Wallet %s moved from %s to %s", wallet, msg.OldOwner,
		msg.NewOwner)

	return ledger.NewResponse().
		AddAttribute("method", "update_owner").
		AddAttribute("old_owner", msg.OldOwner).
		AddAttribute("new_owner", msg.NewOwner), nil
}

// Reply indexes a newly created wallet under its owner.
func (Contract) Reply(ctx *ledger.Context, reply ledger.Reply) (*ledger.Response, error) {
	if reply.ID != replyCreateWallet {
		str := "unknown reply id " + formatUint(reply.ID)
		return nil, factoryError(ErrUnknownReplyID, str, nil)
	}

	wallet, owner := parseInstantiateResult(&reply.Result)
	if wallet == "" {
		return nil, factoryError(ErrGeneric, "Host address not detected.", nil)
	}
	if owner == "" {
		return nil, factoryError(ErrGeneric, "Owner address not detected.", nil)
	}
	if err := validateAddr(ctx.API, wallet); err != nil {
		return nil, err
	}
	if err := validateAddr(ctx.API, owner); err != nil {
		return nil, err
	}

	if err := putWallet(ctx.Store, owner, wallet); err != nil {
		return nil, err
	}

	log.Debugf("Indexed wallet %s under %s", wallet, owner)

	return ledger.NewResponse().
		AddAttribute("method", "reply").
		AddAttribute("host_address", wallet).
		AddAttribute("owner", owner), nil
}

// parseInstantiateResult pulls the wallet and owner out of a wallet's
// instantiate result.  The typed data wins; the wasm event attributes are
// read when the data is missing or incomplete.
func parseInstantiateResult(res *ledger.SubMsgResponse) (wallet, owner string) {
	if len(res.Data) > 0 {
		var data host.InstantiateData
		if err := json.Unmarshal(res.Data, &data); err == nil {
			wallet, owner = data.HostAddress, data.Owner
		}
	}
	for i := range res.Events {
		ev := &res.Events[i]
		if ev.Type != "wasm" {
			continue
		}
		if wallet == "" {
			wallet, _ = ev.Attr(host.AttrHostAddress)
		}
		if owner == "" {
			owner, _ = ev.Attr(host.AttrOwner)
		}
	}
	return wallet, owner
}

// Query answers the owner lookup and config queries.
func (Contract) Query(ctx *ledger.QueryContext, raw json.RawMessage) (json.RawMessage, error) {
	var msg QueryMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		str := "malformed query"
		return nil, factoryError(ErrInvalidMessage, str, err)
	}

	switch {
	case msg.GetHostContract != nil:
		wallet, ok := fetchWallet(ctx.Store, msg.GetHostContract.Owner)
		if !ok {
			str := "no wallet for " + msg.GetHostContract.Owner
			return nil, factoryError(ErrNoExist, str, nil)
		}
		return json.Marshal(&HostContractResponse{Host: wallet})

	case msg.Config != nil:
		cfg, err := fetchConfig(ctx.Store)
		if err != nil {
			return nil, err
		}
		executors, err := fetchExecutorCodeIDs(ctx.Store)
		if err != nil {
			return nil, err
		}
		wallets, err := countWallets(ctx.Store)
		if err != nil {
			return nil, err
		}
		return json.Marshal(&ConfigResponse{
			Contract:        string(ctx.Store.NestedReadBucket(mainBucketName).Get(contractName)),
			HostCodeID:      cfg.hostCodeID,
			HostChain:       cfg.hostChain,
			ExecutorCodeIDs: executors,
			Wallets:         wallets,
		})

	default:
		str := "unknown query"
		return nil, factoryError(ErrInvalidMessage, str, nil)
	}
}
