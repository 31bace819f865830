package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abesuite/abec/abejson"
	"github.com/stretchr/testify/require"
)

func TestReadParams(t *testing.T) {
	stdin := bufio.NewReader(strings.NewReader("{\"get_nonce\":{}}\r\nsecond"))

	params, err := readParams([]string{"abe1wallet", "-", "-"}, stdin)
	require.NoError(t, err)
	require.Equal(t, []interface{}{
		"abe1wallet", `{"get_nonce":{}}`, "second",
	}, params)

	_, err = readParams([]string{"-"}, stdin)
	require.Error(t, err)
}

func TestParseCredentials(t *testing.T) {
	var cfg config
	parseCredentials(&cfg, "; comment\nusername=first\n  username=alice\n"+
		"password=secret\n;password=ignored\n")
	require.Equal(t, "alice", cfg.RPCUser)
	require.Equal(t, "secret", cfg.RPCPassword)
}

func TestNormalizeAddress(t *testing.T) {
	require.Equal(t, "localhost:18665", normalizeAddress("localhost", defaultRPCPort))
	require.Equal(t, "10.0.0.1:1", normalizeAddress("10.0.0.1:1", defaultRPCPort))
}

// fakeServer answers query requests from canned contract answers.
func fakeServer(t *testing.T, answers map[string]string) sender {
	return func(marshalledJSON []byte) ([]byte, error) {
		var req abejson.Request
		require.NoError(t, json.Unmarshal(marshalledJSON, &req))
		require.Equal(t, "query", req.Method)
		require.Len(t, req.Params, 2)

		var contract string
		require.NoError(t, json.Unmarshal(req.Params[0], &contract))
		key := contract + " " + string(req.Params[1])
		answer, ok := answers[key]
		if !ok {
			return nil, &abejson.RPCError{
				Code:    abejson.ErrRPCWallet,
				Message: "no answer for " + key,
			}
		}
		return []byte(answer), nil
	}
}

func TestWalletState(t *testing.T) {
	send := fakeServer(t, map[string]string{
		`abe1factory {"get_host_contract":{"owner":"alice"}}`: `{"host":"abe1wallet"}`,
		`abe1wallet {"get_state":{}}`: `{"owner":"alice","master":"abe1factory",` +
			`"recovery_pool":["bob"],"approval_pool":[],"recovery_approvals_needed":1,` +
			`"transfer_ownership_approvals_needed":0,"chain":"local","last_nonce":4,"votes":[]}`,
	})

	out, err := walletState([]interface{}{"abe1factory", "alice"}, send)
	require.NoError(t, err)

	var res walletStateResult
	require.NoError(t, json.Unmarshal(out, &res))
	require.Equal(t, "abe1wallet", res.Wallet)
	require.Equal(t, "alice", res.State.Owner)
	require.Equal(t, uint64(4), res.State.LastNonce)

	_, err = walletState([]interface{}{"abe1factory", "bob"}, send)
	require.Error(t, err)

	_, err = walletState([]interface{}{"abe1factory"}, send)
	require.Error(t, err)
}

func TestNextNonce(t *testing.T) {
	send := fakeServer(t, map[string]string{
		`abe1wallet {"get_nonce":{}}`: `{"nonce":7}`,
	})

	out, err := nextNonce([]interface{}{"abe1wallet"}, send)
	require.NoError(t, err)
	require.Equal(t, "8", string(out))

	_, err = nextNonce([]interface{}{""}, send)
	require.Error(t, err)
}

func TestSendPostRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "pass" {
			http.Error(w, "401 Unauthorized.", http.StatusUnauthorized)
			return
		}

		var req abejson.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch req.Method {
		case "blockheight":
			fmt.Fprint(w, `{"result":{"height":3},"error":null,"id":1}`)
		default:
			fmt.Fprint(w, `{"result":null,"error":{"code":-32601,`+
				`"message":"Method not found"},"id":1}`)
		}
	}))
	defer srv.Close()

	cfg := &config{
		RPCServer:   strings.TrimPrefix(srv.URL, "http://"),
		RPCUser:     "user",
		RPCPassword: "pass",
	}

	marshalled, err := abejson.MarshalCmd(1, &abejson.HelpCmd{})
	require.NoError(t, err)
	_, err = sendPostRequest(marshalled, cfg)
	require.Error(t, err)
	var rpcErr *abejson.RPCError
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, abejson.ErrRPCMethodNotFound.Code, rpcErr.Code)

	marshalled = []byte(`{"jsonrpc":"1.0","method":"blockheight","params":[],"id":1}`)
	res, err := sendPostRequest(marshalled, cfg)
	require.NoError(t, err)
	require.JSONEq(t, `{"height":3}`, string(res))

	cfg.RPCPassword = "wrong"
	_, err = sendPostRequest(marshalled, cfg)
	require.EqualError(t, err, "401 Unauthorized.")
}
