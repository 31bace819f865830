package host

import (
	"encoding/json"

	"github.com/abesuite/hostwallet/ledger"
)

// dispatch forwards action, untouched, to the executor registered for the
// wallet's own chain along with any funds attached to the call.
func (c *call) dispatch(action json.RawMessage) error {
	if err := c.requireOwner(); err != nil {
		return err
	}
	executor, ok := fetchExecutor(c.ctx.Store, c.state.Chain)
	if !ok {
		str := "no executor registered for chain " + c.state.Chain
		return hostError(ErrChainNotRegistered, str, nil)
	}

	c.resp.AddMessage(ledger.Msg{Wasm: &ledger.WasmMsg{
		Execute: &ledger.WasmExecute{
			ContractAddr: executor,
			Msg:          action,
			Funds:        c.info.Funds,
		},
	}})
	c.resp.AddAttribute("action", "dispatch").
		AddAttribute("chain", c.state.Chain).
		AddAttribute("executor", executor)
	return nil
}
