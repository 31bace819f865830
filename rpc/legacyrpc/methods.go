package legacyrpc

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/abesuite/abec/abejson"
	"github.com/abesuite/hostwallet/ledger"
	"github.com/abesuite/hostwallet/rpc/hwjson"
)

// requestHandler is a handler function to handle an unmarshaled and parsed
// request into a marshalable response.  If the error is a *abejson.RPCError
// or any of the above special error classes, the server will respond with
// the JSON-RPC appropiate error code.  Errors from the ledger and from
// contract code are mapped by contractErrorCode.
type requestHandler func(interface{}, *ledger.Ledger) (interface{}, error)

var rpcHandlers = map[string]struct {
	handler requestHandler

	// Function variables cannot be compared against anything but nil, so
	// use a boolean to record whether help generation is necessary.  This
	// is used by the tests to ensure that help can be generated for every
	// implemented method.
	noHelp bool
}{
	"instantiate":   {handler: instantiate},
	"execute":       {handler: execute},
	"query":         {handler: query},
	"contractinfo":  {handler: contractInfo},
	"listcontracts": {handler: listContracts},
	"listcodes":     {handler: listCodes},
	"blockheight":   {handler: blockHeight},
	"backup":        {handler: backup},
	"help":          {handler: help},

	// Standard wallet methods which have no meaning for a contract
	// wallet.
	"getbalance":    {handler: unsupported, noHelp: true},
	"sendtoaddress": {handler: unsupported, noHelp: true},
	"walletlock":    {handler: unsupported, noHelp: true},
}

// unsupported handles a standard wallet RPC request which is unsupported
// by the contract wallet due to design differences.
func unsupported(interface{}, *ledger.Ledger) (interface{}, error) {
	return nil, &abejson.RPCError{
		Code:    -1,
		Message: "Request unsupported by hostwallet",
	}
}

// lazyHandler is a closure over a requestHandler with the RPC server's
// ledger as part of the closure context.
type lazyHandler func() (interface{}, *abejson.RPCError)

// lazyApplyHandler looks up the request handler func for the method,
// returning a closure that will execute it against the ledger.
func lazyApplyHandler(request *abejson.Request, l *ledger.Ledger) lazyHandler {
	handlerData, ok := rpcHandlers[request.Method]
	if !ok || handlerData.handler == nil {
		return func() (interface{}, *abejson.RPCError) {
			return nil, abejson.ErrRPCMethodNotFound
		}
	}

	return func() (interface{}, *abejson.RPCError) {
		cmd, err := abejson.UnmarshalCmd(request)
		if err != nil {
			return nil, abejson.ErrRPCInvalidRequest
		}
		resp, err := handlerData.handler(cmd, l)
		if err != nil {
			return nil, jsonError(err)
		}
		return resp, nil
	}
}

// makeResponse makes the JSON-RPC response struct for the result and error
// returned by a requestHandler.  The returned response is not ready for
// marshaling and sending off to a client, but must be
func makeResponse(id, result interface{}, err error) abejson.Response {
	idPtr := idPointer(id)
	if err != nil {
		return abejson.Response{
			ID:    idPtr,
			Error: jsonError(err),
		}
	}
	resultBytes, err := json.Marshal(result)
	if err != nil {
		return abejson.Response{
			ID: idPtr,
			Error: &abejson.RPCError{
				Code:    abejson.ErrRPCInternal.Code,
				Message: "Unexpected error marshalling result",
			},
		}
	}
	return abejson.Response{
		ID:     idPtr,
		Result: json.RawMessage(resultBytes),
	}
}

// marshalResponse marshals the response to a request with the result and
// error of its handler.
func marshalResponse(id, result interface{}, jsonErr *abejson.RPCError) ([]byte, error) {
	// A nil *RPCError must not become a non-nil error interface.
	var err error
	if jsonErr != nil {
		err = jsonErr
	}
	return json.Marshal(makeResponse(id, result, err))
}

// jsonError creates a JSON-RPC error from the Go error.
func jsonError(err error) *abejson.RPCError {
	if err == nil {
		return nil
	}

	code := abejson.ErrRPCWallet
	switch e := err.(type) {
	case abejson.RPCError:
		return &e
	case *abejson.RPCError:
		return e
	case DeserializationError:
		code = abejson.ErrRPCDeserialization
	case InvalidParameterError:
		code = abejson.ErrRPCInvalidParameter
	case ParseError:
		code = abejson.ErrRPCParse.Code
	default:
		code = contractErrorCode(err)
	}
	return &abejson.RPCError{
		Code:    code,
		Message: err.Error(),
	}
}

// parseFunds parses the optional funds parameter of a request.
func parseFunds(s *string) (ledger.Coins, error) {
	if s == nil {
		return nil, nil
	}
	coins, err := ledger.ParseCoins(*s)
	if err != nil {
		return nil, InvalidParameterError{err}
	}
	return coins, nil
}

// checkMessage rejects an absent contract message.
func checkMessage(msg json.RawMessage) error {
	if len(msg) == 0 || string(msg) == "null" {
		return ErrEmptyMessage
	}
	return nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// instantiate handles an instantiate request by creating a new contract
// instance on behalf of the sender.
func instantiate(icmd interface{}, l *ledger.Ledger) (interface{}, error) {
	cmd := icmd.(*hwjson.InstantiateCmd)

	if err := checkMessage(cmd.Msg); err != nil {
		return nil, err
	}
	funds, err := parseFunds(cmd.Funds)
	if err != nil {
		return nil, err
	}
	return l.Instantiate(cmd.Sender, cmd.CodeID, cmd.Msg, funds,
		stringValue(cmd.Label), stringValue(cmd.Admin))
}

// execute handles an execute request by calling a contract on behalf of the
// sender.
func execute(icmd interface{}, l *ledger.Ledger) (interface{}, error) {
	cmd := icmd.(*hwjson.ExecuteCmd)

	if err := checkMessage(cmd.Msg); err != nil {
		return nil, err
	}
	funds, err := parseFunds(cmd.Funds)
	if err != nil {
		return nil, err
	}
	return l.Execute(cmd.Sender, cmd.Contract, cmd.Msg, funds)
}

// query handles a query request by returning the contract's answer
// verbatim.
func query(icmd interface{}, l *ledger.Ledger) (interface{}, error) {
	cmd := icmd.(*hwjson.QueryCmd)

	if err := checkMessage(cmd.Msg); err != nil {
		return nil, err
	}
	return l.Query(cmd.Contract, cmd.Msg)
}

// contractInfo handles a contractinfo request.
func contractInfo(icmd interface{}, l *ledger.Ledger) (interface{}, error) {
	cmd := icmd.(*hwjson.ContractInfoCmd)
	return l.ContractInfo(cmd.Address)
}

// listContracts handles a listcontracts request by returning every instance
// of a code in creation order.
func listContracts(icmd interface{}, l *ledger.Ledger) (interface{}, error) {
	cmd := icmd.(*hwjson.ListContractsCmd)
	records, err := l.Contracts(cmd.CodeID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*ledger.ContractRecord{}
	}
	return records, nil
}

// listCodes handles a listcodes request.
func listCodes(icmd interface{}, l *ledger.Ledger) (interface{}, error) {
	return l.Codes(), nil
}

// blockHeight handles a blockheight request.
func blockHeight(icmd interface{}, l *ledger.Ledger) (interface{}, error) {
	height, err := l.Height()
	if err != nil {
		return nil, err
	}
	return &hwjson.BlockHeightResult{
		Height:  height,
		Time:    l.Now().Unix(),
		ChainID: l.ChainID(),
	}, nil
}

// backup handles a backup request by writing a snapshot of the database to
// a new file.  Existing files are never overwritten.
func backup(icmd interface{}, l *ledger.Ledger) (interface{}, error) {
	cmd := icmd.(*hwjson.BackupCmd)
	if cmd.Destination == "" {
		return nil, ErrEmptyDestination
	}

	f, err := os.OpenFile(cmd.Destination, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if os.IsExist(err) {
		return nil, ErrBackupExists
	}
	if err != nil {
		return nil, err
	}
	if err := l.Backup(f); err != nil {
		f.Close()
		os.Remove(cmd.Destination)
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	log.Infof("Wrote database backup to %s", cmd.Destination)
	return &hwjson.BackupResult{
		Destination: cmd.Destination,
		Bytes:       fi.Size(),
	}, nil
}

var helpDescs map[string]string
var helpDescsMu sync.Mutex // Help may execute concurrently, so synchronize access.

// help handles the help request by returning one line usage of all available
// methods, or full help for a specific method.
func help(icmd interface{}, _ *ledger.Ledger) (interface{}, error) {
	cmd := icmd.(*abejson.HelpCmd)
	if cmd.Command == nil || *cmd.Command == "" {
		return requestUsages, nil
	}

	defer helpDescsMu.Unlock()
	helpDescsMu.Lock()

	if helpDescs == nil {
		// TODO: Allow other locales to be set via config or detemine
		// this from environment variables.  For now, hardcode US
		// English.
		helpDescs = localeHelpDescs["en_US"]()
	}

	helpText, ok := helpDescs[*cmd.Command]
	if ok {
		return helpText, nil
	}
	return nil, &abejson.RPCError{
		Code:    abejson.ErrRPCInvalidParameter,
		Message: fmt.Sprintf("No help for method '%s'", *cmd.Command),
	}
}
