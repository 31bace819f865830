package ledger

import (
	"strconv"

	"github.com/abesuite/hostwallet/walletdb"
)

// maxCallDepth bounds how deeply sub-messages may nest.
const maxCallDepth = 16

// contractAddressKey is the attribute carrying the emitting contract on every
// event the ledger builds.
const contractAddressKey = "_contract_address"

// callExec carries the state of one top level call while it runs.
type callExec struct {
	l     *Ledger
	ns    walletdb.ReadWriteBucket
	block BlockInfo
	depth int
}

func (e *callExec) context(addr string, store walletdb.ReadWriteBucket) *Context {
	return &Context{
		Env: Env{
			Block:    e.block,
			Contract: ContractInfo{Address: addr},
		},
		Store: store,
		API:   DefaultAPI,
	}
}

func (e *callExec) enter() error {
	if e.depth >= maxCallDepth {
		str := "maximum call depth of " + strconv.Itoa(maxCallDepth) +
			" exceeded"
		return ledgerError(ErrCallDepth, str, nil)
	}
	e.depth++
	return nil
}

func (e *callExec) leave() {
	e.depth--
}

// instantiate creates a new contract instance and runs its instantiate entry
// point.
func (e *callExec) instantiate(sender string, m *WasmInstantiate) (string, *SubMsgResponse, error) {
	if err := e.enter(); err != nil {
		return "", nil, err
	}
	defer e.leave()

	c, err := e.l.lookupCode(m.CodeID)
	if err != nil {
		return "", nil, err
	}
	if m.Admin != "" {
		if err := ValidateAddress(m.Admin); err != nil {
			return "", nil, err
		}
	}

	seq, err := nextInstance(e.ns)
	if err != nil {
		return "", nil, err
	}
	addr := ContractAddress(m.CodeID, seq)
	record := &ContractRecord{
		Address:  addr,
		CodeID:   m.CodeID,
		CodeName: c.name,
		Creator:  sender,
		Admin:    m.Admin,
		Label:    m.Label,
		Created:  e.block.Height,
	}
	store, err := putContract(e.ns, record)
	if err != nil {
		return "", nil, err
	}

	log.Tracef("Instantiating %s (code %d) for %s", addr, m.CodeID, sender)

	info := MessageInfo{Sender: sender, Funds: m.Funds}
	resp, err := c.impl.Instantiate(e.context(addr, store), info, m.Msg)
	if err != nil {
		return "", nil, wrapContractErr(addr, err)
	}

	res, err := e.handleResponse(addr, c, store, resp)
	if err != nil {
		return "", nil, err
	}
	ev := Event{
		Type: "instantiate",
		Attributes: []Attribute{
			{Key: contractAddressKey, Value: addr},
			{Key: "code_id", Value: strconv.FormatUint(m.CodeID, 10)},
		},
	}
	res.Events = append([]Event{ev}, res.Events...)
	return addr, res, nil
}

// execute runs the execute entry point of an existing contract.
func (e *callExec) execute(sender string, m *WasmExecute) (*SubMsgResponse, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	defer e.leave()

	addr := m.ContractAddr
	r, err := fetchContractRecord(e.ns, addr)
	if err != nil {
		return nil, err
	}
	c, err := e.l.lookupCode(r.CodeID)
	if err != nil {
		return nil, err
	}
	store := contractStore(e.ns, addr)

	log.Tracef("Executing %s for %s", addr, sender)

	info := MessageInfo{Sender: sender, Funds: m.Funds}
	resp, err := c.impl.Execute(e.context(addr, store), info, m.Msg)
	if err != nil {
		return nil, wrapContractErr(addr, err)
	}

	res, err := e.handleResponse(addr, c, store, resp)
	if err != nil {
		return nil, err
	}
	ev := Event{
		Type:       "execute",
		Attributes: []Attribute{{Key: contractAddressKey, Value: addr}},
	}
	res.Events = append([]Event{ev}, res.Events...)
	return res, nil
}

// dispatch routes a message emitted by the contract at sender.
func (e *callExec) dispatch(sender string, msg *Msg) (*SubMsgResponse, error) {
	switch msg.Kind() {
	case "wasm.execute":
		return e.execute(sender, msg.Wasm.Execute)

	case "wasm.instantiate":
		_, res, err := e.instantiate(sender, msg.Wasm.Instantiate)
		return res, err

	case "bank.send":
		send := msg.Bank.Send
		if err := ValidateAddress(send.ToAddress); err != nil {
			return nil, err
		}
		ev := Event{
			Type: "transfer",
			Attributes: []Attribute{
				{Key: "recipient", Value: send.ToAddress},
				{Key: "sender", Value: sender},
				{Key: "amount", Value: send.Amount.String()},
			},
		}
		return &SubMsgResponse{Events: []Event{ev}}, nil

	case "custom":
		str := "custom messages are not supported"
		return nil, ledgerError(ErrUnsupportedMsg, str, nil)

	default:
		str := "message must set exactly one variant"
		return nil, ledgerError(ErrInvalidMsg, str, nil)
	}
}

// handleResponse turns a contract response into events and runs its
// messages in order.  The first failing message aborts the call.
func (e *callExec) handleResponse(addr string, c *code,
	store walletdb.ReadWriteBucket, resp *Response) (*SubMsgResponse, error) {

	if resp == nil {
		resp = NewResponse()
	}

	var events []Event
	if len(resp.Attributes) > 0 {
		attrs := make([]Attribute, 0, len(resp.Attributes)+1)
		attrs = append(attrs, Attribute{Key: contractAddressKey, Value: addr})
		attrs = append(attrs, resp.Attributes...)
		events = append(events, Event{Type: "wasm", Attributes: attrs})
	}
	for _, ev := range resp.Events {
		attrs := make([]Attribute, 0, len(ev.Attributes)+1)
		attrs = append(attrs, Attribute{Key: contractAddressKey, Value: addr})
		attrs = append(attrs, ev.Attributes...)
		events = append(events, Event{Type: "wasm-" + ev.Type, Attributes: attrs})
	}

	data := resp.Data
	for i := range resp.Messages {
		sm := &resp.Messages[i]
		if sm.ReplyOn > ReplyOnSuccess {
			str := "only reply on success is supported"
			return nil, ledgerError(ErrUnsupportedMsg, str, nil)
		}

		sub, err := e.dispatch(addr, &sm.Msg)
		if err != nil {
			return nil, err
		}
		events = append(events, sub.Events...)
		if sm.ReplyOn != ReplyOnSuccess {
			continue
		}

		handler, ok := c.impl.(ReplyHandler)
		if !ok {
			str := "contract " + addr + " cannot handle replies"
			return nil, ledgerError(ErrNoReplyHandler, str, nil)
		}
		reply := Reply{ID: sm.ID, Result: *sub}
		rresp, err := handler.Reply(e.context(addr, store), reply)
		if err != nil {
			return nil, wrapContractErr(addr, err)
		}
		rres, err := e.handleResponse(addr, c, store, rresp)
		if err != nil {
			return nil, err
		}
		events = append(events, Event{
			Type: "reply",
			Attributes: []Attribute{
				{Key: contractAddressKey, Value: addr},
				{Key: "id", Value: strconv.FormatUint(sm.ID, 10)},
			},
		})
		events = append(events, rres.Events...)
		if rres.Data != nil {
			data = rres.Data
		}
	}

	return &SubMsgResponse{Events: events, Data: data}, nil
}
