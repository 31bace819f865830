// Package executor implements the per-chain executor contract.  An executor
// belongs to a single wallet, registers itself with that wallet when it is
// created and forwards whatever action the wallet hands it.
package executor

import (
	"encoding/json"

	"github.com/abesuite/hostwallet/host"
	"github.com/abesuite/hostwallet/ledger"
)

// ContractName is recorded in the store at instantiate.
const ContractName = "hostwallet:executor"

var (
	ownerKey    = []byte("owner")
	chainKey    = []byte("chain")
	contractKey = []byte("contract")
)

// InstantiateMsg creates an executor for the wallet at Owner.
type InstantiateMsg struct {
	Owner string `json:"owner"`
	Chain string `json:"chain"`
}

// QueryMsg is the tagged union of executor queries.
type QueryMsg struct {
	Config *struct{} `json:"config,omitempty"`
}

// ConfigResponse describes an executor.
type ConfigResponse struct {
	Contract string `json:"contract"`
	Owner    string `json:"owner"`
	Chain    string `json:"chain"`
}

// Contract is the executor contract.
type Contract struct{}

var _ ledger.Contract = Contract{}

// Instantiate stores the owner and registers the new executor with it.
func (Contract) Instantiate(ctx *ledger.Context, info ledger.MessageInfo,
	raw json.RawMessage) (*ledger.Response, error) {

	var msg InstantiateMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		str := "malformed instantiate message"
		return nil, executorError(ErrInvalidMessage, str, err)
	}
	if err := ctx.API.AddrValidate(msg.Owner); err != nil {
		return nil, executorError(ErrInvalidMessage, "invalid owner", err)
	}

	for _, kv := range [][2][]byte{
		{ownerKey, []byte(msg.Owner)},
		{chainKey, []byte(msg.Chain)},
		{contractKey, []byte(ContractName)},
	} {
		if err := ctx.Store.Put(kv[0], kv[1]); err != nil {
			return nil, executorError(ErrDatabase, "failed to store state", err)
		}
	}

	self := ctx.Env.Contract.Address
	register, err := host.NewRegisterExecutorMsg(msg.Owner, msg.Chain, self)
	if err != nil {
		return nil, executorError(ErrInvalidMessage,
			"failed to encode registration", err)
	}

	log.Infof("Created executor %s for wallet %s on chain %s", self,
		msg.Owner, msg.Chain)

	return ledger.NewResponse().
		AddAttribute("method", "instantiate").
		AddAttribute("executor_address", self).
		AddAttribute("owner", msg.Owner).
		AddMessage(register), nil
}

// Execute forwards the action in raw on behalf of the owner.  Custom actions
// are refused.
func (Contract) Execute(ctx *ledger.Context, info ledger.MessageInfo,
	raw json.RawMessage) (*ledger.Response, error) {

	owner := ctx.Store.Get(ownerKey)
	if owner == nil {
		return nil, executorError(ErrNoExist, "executor not initialized", nil)
	}
	if info.Sender != string(owner) {
		return nil, executorError(ErrUnauthorized, "unauthorized", nil)
	}

	var action ledger.Msg
	if err := json.Unmarshal(raw, &action); err != nil {
		str := "malformed action"
		return nil, executorError(ErrInvalidMessage, str, err)
	}
	if action.IsCustom() {
		str := "custom messages not supported yet"
		return nil, executorError(ErrNotImplemented, str, nil)
	}

	log.Debugf("Executor %s forwarding %s action", ctx.Env.Contract.Address,
		action.Kind())

	return ledger.NewResponse().
		AddAttribute("contract", "executor").
		AddAttribute("method", "execute").
		AddMessage(action), nil
}

// Query answers the config query.
func (Contract) Query(ctx *ledger.QueryContext, raw json.RawMessage) (json.RawMessage, error) {
	var msg QueryMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Config == nil {
		str := "unknown query"
		return nil, executorError(ErrInvalidMessage, str, err)
	}
	return json.Marshal(&ConfigResponse{
		Contract: string(ctx.Store.Get(contractKey)),
		Owner:    string(ctx.Store.Get(ownerKey)),
		Chain:    string(ctx.Store.Get(chainKey)),
	})
}
