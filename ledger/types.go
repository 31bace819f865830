package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Coin is an amount of a single denomination attached to a call.  The ledger
// carries coins along with messages but keeps no balances.
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount,string"`
}

// String returns the coin in the "<amount><denom>" form.
func (c Coin) String() string {
	return fmt.Sprintf("%d%s", c.Amount, c.Denom)
}

// Coins is a list of coins.
type Coins []Coin

// String returns a comma separated list of the coins.
func (cs Coins) String() string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, ",")
}

// ParseCoins parses a comma separated list of coins in the form produced by
// Coins.String.  An empty string yields no coins.
func ParseCoins(s string) (Coins, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var coins Coins
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		i := strings.IndexFunc(part, func(r rune) bool {
			return r < '0' || r > '9'
		})
		switch {
		case i == 0 || part == "":
			return nil, fmt.Errorf("coin %q must start with an amount", part)
		case i < 0:
			return nil, fmt.Errorf("coin %q has no denomination", part)
		}
		amount, err := strconv.ParseUint(part[:i], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid amount in coin %q: %v", part, err)
		}
		coins = append(coins, Coin{Denom: part[i:], Amount: amount})
	}
	return coins, nil
}

// Attribute is a single key/value pair attached to an event.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is a typed list of attributes emitted while processing a call.
type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

// Attr returns the value of the first attribute with the given key.
func (e *Event) Attr(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// BlockInfo describes the block a call is executed in.
type BlockInfo struct {
	Height  uint64    `json:"height"`
	Time    time.Time `json:"time"`
	ChainID string    `json:"chain_id"`
}

// ContractInfo identifies the contract being called.
type ContractInfo struct {
	Address string `json:"address"`
}

// Env is the environment a contract entry point runs in.
type Env struct {
	Block    BlockInfo    `json:"block"`
	Contract ContractInfo `json:"contract"`
}

// MessageInfo carries the authenticated sender of a call and the coins sent
// along with it.
type MessageInfo struct {
	Sender string `json:"sender"`
	Funds  Coins  `json:"funds"`
}

// Msg is an outbound message a contract asks the ledger to perform on its
// behalf.  Exactly one of the fields must be set.
type Msg struct {
	Wasm   *WasmMsg        `json:"wasm,omitempty"`
	Bank   *BankMsg        `json:"bank,omitempty"`
	Custom json.RawMessage `json:"custom,omitempty"`
}

// WasmMsg targets another contract.
type WasmMsg struct {
	Execute     *WasmExecute     `json:"execute,omitempty"`
	Instantiate *WasmInstantiate `json:"instantiate,omitempty"`
}

// WasmExecute calls the execute entry point of an existing contract.
type WasmExecute struct {
	ContractAddr string          `json:"contract_addr"`
	Msg          json.RawMessage `json:"msg"`
	Funds        Coins           `json:"funds"`
}

// WasmInstantiate creates a new contract instance from a stored code.
type WasmInstantiate struct {
	Admin  string          `json:"admin,omitempty"`
	CodeID uint64          `json:"code_id"`
	Msg    json.RawMessage `json:"msg"`
	Funds  Coins           `json:"funds"`
	Label  string          `json:"label"`
}

// BankMsg moves coins.
type BankMsg struct {
	Send *BankSend `json:"send,omitempty"`
}

// BankSend sends coins to an address.
type BankSend struct {
	ToAddress string `json:"to_address"`
	Amount    Coins  `json:"amount"`
}

// Kind returns a short name for the message variant, or an empty string if
// the message does not set exactly one variant.
func (m *Msg) Kind() string {
	var kinds []string
	if m.Wasm != nil {
		switch {
		case m.Wasm.Execute != nil && m.Wasm.Instantiate == nil:
			kinds = append(kinds, "wasm.execute")
		case m.Wasm.Instantiate != nil && m.Wasm.Execute == nil:
			kinds = append(kinds, "wasm.instantiate")
		default:
			kinds = append(kinds, "")
		}
	}
	if m.Bank != nil {
		if m.Bank.Send != nil {
			kinds = append(kinds, "bank.send")
		} else {
			kinds = append(kinds, "")
		}
	}
	if len(m.Custom) != 0 {
		kinds = append(kinds, "custom")
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// IsCustom reports whether the message is a custom, chain specific message.
func (m *Msg) IsCustom() bool {
	return len(m.Custom) != 0
}

// NewExecuteMsg builds a wasm execute message, serializing msg to JSON.
func NewExecuteMsg(contractAddr string, msg interface{}, funds Coins) (Msg, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return Msg{}, err
	}
	return Msg{Wasm: &WasmMsg{Execute: &WasmExecute{
		ContractAddr: contractAddr,
		Msg:          raw,
		Funds:        funds,
	}}}, nil
}

// NewInstantiateMsg builds a wasm instantiate message, serializing msg to
// JSON.
func NewInstantiateMsg(codeID uint64, msg interface{}, label string) (Msg, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return Msg{}, err
	}
	return Msg{Wasm: &WasmMsg{Instantiate: &WasmInstantiate{
		CodeID: codeID,
		Msg:    raw,
		Label:  label,
	}}}, nil
}

// ReplyOn selects when the ledger calls back into the contract that emitted a
// sub-message.
type ReplyOn uint8

const (
	// ReplyNever never calls back.
	ReplyNever ReplyOn = iota

	// ReplyOnSuccess calls back once the sub-message succeeded.  A failed
	// sub-message aborts the whole call.
	ReplyOnSuccess
)

// SubMsg wraps a message with an id used to correlate the reply.
type SubMsg struct {
	ID      uint64  `json:"id"`
	Msg     Msg     `json:"msg"`
	ReplyOn ReplyOn `json:"reply_on"`
}

// SubMsgResponse is the result of a successful sub-message.
type SubMsgResponse struct {
	Events []Event `json:"events"`
	Data   []byte  `json:"data,omitempty"`
}

// Reply is handed to a contract's reply entry point.
type Reply struct {
	ID     uint64         `json:"id"`
	Result SubMsgResponse `json:"result"`
}

// Response is returned by every contract entry point that may change state.
type Response struct {
	Messages   []SubMsg    `json:"messages"`
	Attributes []Attribute `json:"attributes"`
	Events     []Event     `json:"events"`
	Data       []byte      `json:"data,omitempty"`
}

// NewResponse returns an empty response.
func NewResponse() *Response {
	return &Response{}
}

// AddAttribute appends a key/value pair to the contract's wasm event.
func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// AddMessage appends a fire-and-forget message.
func (r *Response) AddMessage(msg Msg) *Response {
	r.Messages = append(r.Messages, SubMsg{Msg: msg, ReplyOn: ReplyNever})
	return r
}

// AddSubMessage appends a message whose success is reported back to the
// contract under the given id.
func (r *Response) AddSubMessage(id uint64, msg Msg) *Response {
	r.Messages = append(r.Messages, SubMsg{ID: id, Msg: msg, ReplyOn: ReplyOnSuccess})
	return r
}

// AddEvent appends a custom event.
func (r *Response) AddEvent(ev Event) *Response {
	r.Events = append(r.Events, ev)
	return r
}

// SetData sets the response data returned to the caller.
func (r *Response) SetData(data []byte) *Response {
	r.Data = data
	return r
}

// TxResult describes a committed top level call.
type TxResult struct {
	Height          uint64    `json:"height"`
	Time            time.Time `json:"time"`
	Sender          string    `json:"sender"`
	ContractAddress string    `json:"contract_address"`
	Events          []Event   `json:"events"`
	Data            []byte    `json:"data,omitempty"`
}
