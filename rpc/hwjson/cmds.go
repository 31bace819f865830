// Package hwjson defines the JSON-RPC commands, notifications and results
// of the wallet daemon.  The commands are registered with abejson so the
// server and the ctl can marshal and parse them the way every other abejson
// command is handled.
package hwjson

import (
	"encoding/json"

	"github.com/abesuite/abec/abejson"
)

// InstantiateCmd defines the instantiate JSON-RPC command.
type InstantiateCmd struct {
	Sender string
	CodeID uint64
	Msg    json.RawMessage
	Label  *string
	Admin  *string
	Funds  *string
}

// NewInstantiateCmd returns a new instance which can be used to issue an
// instantiate JSON-RPC command.
func NewInstantiateCmd(sender string, codeID uint64, msg json.RawMessage,
	label, admin, funds *string) *InstantiateCmd {

	return &InstantiateCmd{
		Sender: sender,
		CodeID: codeID,
		Msg:    msg,
		Label:  label,
		Admin:  admin,
		Funds:  funds,
	}
}

// ExecuteCmd defines the execute JSON-RPC command.
type ExecuteCmd struct {
	Sender   string
	Contract string
	Msg      json.RawMessage
	Funds    *string
}

// NewExecuteCmd returns a new instance which can be used to issue an
// execute JSON-RPC command.
func NewExecuteCmd(sender, contract string, msg json.RawMessage,
	funds *string) *ExecuteCmd {

	return &ExecuteCmd{
		Sender:   sender,
		Contract: contract,
		Msg:      msg,
		Funds:    funds,
	}
}

// QueryCmd defines the query JSON-RPC command.
type QueryCmd struct {
	Contract string
	Msg      json.RawMessage
}

// ContractInfoCmd defines the contractinfo JSON-RPC command.
type ContractInfoCmd struct {
	Address string
}

// ListContractsCmd defines the listcontracts JSON-RPC command.
type ListContractsCmd struct {
	CodeID uint64
}

// ListCodesCmd defines the listcodes JSON-RPC command.
type ListCodesCmd struct{}

// BlockHeightCmd defines the blockheight JSON-RPC command.
type BlockHeightCmd struct{}

// BackupCmd defines the backup JSON-RPC command.  The database is written
// to Destination on the daemon's host.
type BackupCmd struct {
	Destination string
}

// TxCommittedNtfnMethod is the method of the notification sent to websocket
// clients for every committed call.
const TxCommittedNtfnMethod = "txcommitted"

// TxCommittedNtfn defines the txcommitted JSON-RPC notification.
type TxCommittedNtfn struct {
	Result json.RawMessage
}

func init() {
	// The commands in this file are only usable against the wallet
	// daemon.
	flags := abejson.UFWalletOnly

	abejson.MustRegisterCmd("instantiate", (*InstantiateCmd)(nil), flags)
	abejson.MustRegisterCmd("execute", (*ExecuteCmd)(nil), flags)
	abejson.MustRegisterCmd("query", (*QueryCmd)(nil), flags)
	abejson.MustRegisterCmd("contractinfo", (*ContractInfoCmd)(nil), flags)
	abejson.MustRegisterCmd("listcontracts", (*ListContractsCmd)(nil), flags)
	abejson.MustRegisterCmd("listcodes", (*ListCodesCmd)(nil), flags)
	abejson.MustRegisterCmd("blockheight", (*BlockHeightCmd)(nil), flags)
	abejson.MustRegisterCmd("backup", (*BackupCmd)(nil), flags)

	abejson.MustRegisterCmd(TxCommittedNtfnMethod, (*TxCommittedNtfn)(nil),
		abejson.UFWalletOnly|abejson.UFWebsocketOnly|abejson.UFNotification)
}

// methods lists the request methods served by the wallet daemon, including
// the help and stop commands shared with other abejson servers.
var methods = []string{
	"instantiate",
	"execute",
	"query",
	"contractinfo",
	"listcontracts",
	"listcodes",
	"blockheight",
	"backup",
	"help",
	"stop",
}

// Methods returns the request methods served by the wallet daemon in display
// order.
func Methods() []string {
	return append([]string(nil), methods...)
}
