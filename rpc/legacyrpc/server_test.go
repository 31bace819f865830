package legacyrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/abesuite/abec/abejson"
	"github.com/abesuite/hostwallet/factory"
	"github.com/abesuite/hostwallet/host"
	"github.com/abesuite/hostwallet/ledger"
	"github.com/abesuite/hostwallet/rpc/hwjson"
	"github.com/abesuite/hostwallet/walletdb"
	_ "github.com/abesuite/hostwallet/walletdb/bdb"
	"github.com/gorilla/websocket"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

const (
	testUser = "user"
	testPass = "pass"
)

type testServer struct {
	t        *testing.T
	l        *ledger.Ledger
	s        *Server
	addr     string
	hostCode uint64
	factory  string
}

func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()

	db, err := walletdb.Create("bdb", filepath.Join(t.TempDir(), "ledger.db"), true)
	require.NoError(t, err)
	clk := clock.NewTestClock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, ledger.Create(db, "rpctest", clk))
	l, err := ledger.Open(&ledger.Config{DB: db, Clock: clk})
	require.NoError(t, err)
	t.Cleanup(func() {
		l.Close()
		db.Close()
	})
	return l
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	l := newTestLedger(t)
	hostCode, err := l.StoreCode(host.ContractName, host.Contract{})
	require.NoError(t, err)
	factoryCode, err := l.StoreCode(factory.ContractName, factory.Contract{})
	require.NoError(t, err)

	msg, err := json.Marshal(&factory.InstantiateMsg{
		HostCodeID: hostCode,
		HostChain:  "local",
	})
	require.NoError(t, err)
	res, err := l.Instantiate("deployer", factoryCode, msg, nil, "factory", "")
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := NewServer(&Options{
		Username:            testUser,
		Password:            testPass,
		MaxPOSTClients:      4,
		MaxWebsocketClients: 4,
	}, l, []net.Listener{lis})
	t.Cleanup(s.Stop)

	return &testServer{
		t:        t,
		l:        l,
		s:        s,
		addr:     lis.Addr().String(),
		hostCode: hostCode,
		factory:  res.ContractAddress,
	}
}

func (ts *testServer) request(method string, params ...interface{}) []byte {
	ts.t.Helper()

	raw := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		b, err := json.Marshal(p)
		require.NoError(ts.t, err)
		raw = append(raw, b)
	}
	b, err := json.Marshal(&abejson.Request{
		Jsonrpc: "1.0",
		Method:  method,
		Params:  raw,
		ID:      1,
	})
	require.NoError(ts.t, err)
	return b
}

func (ts *testServer) post(body []byte, auth bool) *http.Response {
	ts.t.Helper()

	req, err := http.NewRequest("POST", "http://"+ts.addr+"/", bytes.NewReader(body))
	require.NoError(ts.t, err)
	if auth {
		req.SetBasicAuth(testUser, testPass)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err)
	return resp
}

// call posts a request and returns the result, or the error of the
// response.
func (ts *testServer) call(method string, params ...interface{}) (json.RawMessage, *abejson.RPCError) {
	ts.t.Helper()

	resp := ts.post(ts.request(method, params...), true)
	defer resp.Body.Close()
	require.Equal(ts.t, http.StatusOK, resp.StatusCode)

	var r abejson.Response
	require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(&r))
	return r.Result, r.Error
}

func TestPostAuth(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.post(ts.request("blockheight"), false)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	res, jerr := ts.call("blockheight")
	require.Nil(t, jerr)
	var height hwjson.BlockHeightResult
	require.NoError(t, json.Unmarshal(res, &height))
	require.Equal(t, hwjson.BlockHeightResult{
		Height:  1,
		Time:    time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC).Unix(),
		ChainID: "rpctest",
	}, height)
}

func TestPostMalformedRequest(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.post([]byte("{"), true)
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)

	var r abejson.Response
	require.NoError(t, json.Unmarshal(body, &r))
	require.NotNil(t, r.Error)
	require.Equal(t, abejson.ErrRPCInvalidRequest.Code, r.Error.Code)
}

func TestPostWalletFlow(t *testing.T) {
	ts := newTestServer(t)

	_, jerr := ts.call("execute", "owner", ts.factory, &factory.ExecuteMsg{
		CreateWallet: &factory.CreateWalletMsg{
			RecoveryPool:            []string{"alice"},
			RecoveryApprovalsNeeded: 1,
		},
	})
	require.Nil(t, jerr)

	res, jerr := ts.call("query", ts.factory, &factory.QueryMsg{
		GetHostContract: &factory.GetHostContractMsg{Owner: "owner"},
	})
	require.Nil(t, jerr)
	var wallet factory.HostContractResponse
	require.NoError(t, json.Unmarshal(res, &wallet))

	res, jerr = ts.call("contractinfo", wallet.Host)
	require.Nil(t, jerr)
	var record ledger.ContractRecord
	require.NoError(t, json.Unmarshal(res, &record))
	require.Equal(t, ts.hostCode, record.CodeID)
	require.Equal(t, host.ContractName, record.CodeName)
	require.Equal(t, ts.factory, record.Creator)

	res, jerr = ts.call("listcontracts", ts.hostCode)
	require.Nil(t, jerr)
	var records []ledger.ContractRecord
	require.NoError(t, json.Unmarshal(res, &records))
	require.Len(t, records, 1)

	// A replayed nonce is refused by the wallet.
	begin := &host.ExecuteMsg{BeginSocialRecovery: &host.TargetMsg{
		Nonce: 0, Target: "carol",
	}}
	_, jerr = ts.call("execute", "alice", wallet.Host, begin)
	require.NotNil(t, jerr)
	require.Equal(t, abejson.ErrRPCWallet, jerr.Code)

	// Nonce 1 passes and alice alone reaches the quorum.
	begin.BeginSocialRecovery.Nonce = 1
	_, jerr = ts.call("execute", "alice", wallet.Host, begin)
	require.Nil(t, jerr)

	res, jerr = ts.call("query", ts.factory, &factory.QueryMsg{
		GetHostContract: &factory.GetHostContractMsg{Owner: "carol"},
	})
	require.Nil(t, jerr)
	var moved factory.HostContractResponse
	require.NoError(t, json.Unmarshal(res, &moved))
	require.Equal(t, wallet.Host, moved.Host)
}

func TestPostErrors(t *testing.T) {
	ts := newTestServer(t)

	_, jerr := ts.call("nosuchmethod")
	require.Equal(t, abejson.ErrRPCMethodNotFound.Code, jerr.Code)

	_, jerr = ts.call("getbalance")
	require.NotNil(t, jerr)

	_, jerr = ts.call("contractinfo", "abe1missing")
	require.Equal(t, abejson.ErrRPCInvalidAddressOrKey, jerr.Code)

	_, jerr = ts.call("query", ts.factory, nil)
	require.Equal(t, abejson.ErrRPCInvalidParameter, jerr.Code)

	_, jerr = ts.call("execute", "owner", ts.factory, map[string]int{}, "5")
	require.Equal(t, abejson.ErrRPCInvalidParameter, jerr.Code)

	_, jerr = ts.call("execute", "owner", ts.factory, map[string]int{})
	require.Equal(t, abejson.ErrRPCInvalidParameter, jerr.Code)

	res, jerr := ts.call("help")
	require.Nil(t, jerr)
	var usage string
	require.NoError(t, json.Unmarshal(res, &usage))
	require.Equal(t, requestUsages, usage)

	_, jerr = ts.call("help", "nosuchmethod")
	require.Equal(t, abejson.ErrRPCInvalidParameter, jerr.Code)
}

func TestBackup(t *testing.T) {
	ts := newTestServer(t)
	dest := filepath.Join(t.TempDir(), "backup.db")

	res, jerr := ts.call("backup", dest)
	require.Nil(t, jerr)
	var backup hwjson.BackupResult
	require.NoError(t, json.Unmarshal(res, &backup))
	require.Equal(t, dest, backup.Destination)
	require.NotZero(t, backup.Bytes)

	_, jerr = ts.call("backup", dest)
	require.Equal(t, ErrBackupExists.Code, jerr.Code)

	// The copy opens as a database with the same contracts.
	db, err := walletdb.Open("bdb", dest, true)
	require.NoError(t, err)
	defer db.Close()
	exists, err := ledger.Exists(db)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestHelpCoversEveryHandler(t *testing.T) {
	descs := helpDescsEnUS()
	for method, h := range rpcHandlers {
		if h.noHelp {
			continue
		}
		_, ok := descs[method]
		require.True(t, ok, "no help for %s", method)
	}

	// Every advertised method is served.  stop is handled by the server
	// itself.
	for _, method := range hwjson.Methods() {
		if method == "stop" {
			continue
		}
		_, ok := rpcHandlers[method]
		require.True(t, ok, "no handler for %s", method)
	}
}

func TestJSONError(t *testing.T) {
	tests := []struct {
		err  error
		code abejson.RPCErrorCode
	}{
		{InvalidParameterError{errors.New("x")}, abejson.ErrRPCInvalidParameter},
		{DeserializationError{errors.New("x")}, abejson.ErrRPCDeserialization},
		{host.Error{ErrorCode: host.ErrUnauthorized}, abejson.ErrRPCWallet},
		{host.Error{ErrorCode: host.ErrInvalidMessage}, abejson.ErrRPCInvalidParameter},
		{
			&ledger.ContractError{
				Contract: "abe1x",
				Err:      factory.Error{ErrorCode: factory.ErrNoExist},
			},
			abejson.ErrRPCInvalidAddressOrKey,
		},
		{ledger.LedgerError{ErrorCode: ledger.ErrUnsupportedMsg}, abejson.ErrRPCInvalidParameter},
		{ledger.LedgerError{ErrorCode: ledger.ErrDatabase}, abejson.ErrRPCDatabase},
		{errors.New("x"), abejson.ErrRPCWallet},
	}
	for _, test := range tests {
		require.Equal(t, test.code, jsonError(test.err).Code, "%v", test.err)
	}
	require.Nil(t, jsonError(nil))
}

func TestWebsocketNotifications(t *testing.T) {
	ts := newTestServer(t)

	// Unauthenticated clients must authenticate first.
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ts.addr+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	auth := ts.request("authenticate", testUser, testPass)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, auth))
	var r abejson.Response
	require.NoError(t, conn.ReadJSON(&r))
	require.Nil(t, r.Error)

	_, err = ts.l.Execute("owner", ts.factory, json.RawMessage(
		`{"create_wallet":{"recovery_pool":[],"approval_pool":[],`+
			`"recovery_approvals_needed":1,"transfer_ownership_approvals_needed":0}}`,
	), nil)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ntfn abejson.Request
	require.NoError(t, conn.ReadJSON(&ntfn))
	require.Equal(t, hwjson.TxCommittedNtfnMethod, ntfn.Method)
	require.Len(t, ntfn.Params, 1)

	var result ledger.TxResult
	require.NoError(t, json.Unmarshal(ntfn.Params[0], &result))
	require.Equal(t, ts.factory, result.ContractAddress)
	require.Equal(t, "owner", result.Sender)

	// Requests are served on the same connection.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		ts.request("blockheight")))
	r = abejson.Response{}
	require.NoError(t, conn.ReadJSON(&r))
	require.Nil(t, r.Error)
}

func TestWebsocketBadAuth(t *testing.T) {
	ts := newTestServer(t)

	header := http.Header{}
	header.Set("Authorization", "Basic bm9wZQ==")
	_, resp, err := websocket.DefaultDialer.Dial("ws://"+ts.addr+"/ws", header)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
