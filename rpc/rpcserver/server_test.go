package rpcserver

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/abesuite/hostwallet/factory"
	"github.com/abesuite/hostwallet/host"
	"github.com/abesuite/hostwallet/ledger"
	"github.com/abesuite/hostwallet/walletdb"
	_ "github.com/abesuite/hostwallet/walletdb/bdb"
	"github.com/golang/protobuf/ptypes/wrappers"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type testEnv struct {
	t        *testing.T
	l        *ledger.Ledger
	client   LedgerClient
	hostCode uint64
	factory  uint64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := walletdb.Create("bdb", filepath.Join(t.TempDir(), "ledger.db"), true)
	require.NoError(t, err)
	clk := clock.NewTestClock(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, ledger.Create(db, "grpctest", clk))
	l, err := ledger.Open(&ledger.Config{DB: db, Clock: clk})
	require.NoError(t, err)

	hostCode, err := l.StoreCode(host.ContractName, host.Contract{})
	require.NoError(t, err)
	factoryCode, err := l.StoreCode(factory.ContractName, factory.Contract{})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	StartLedgerService(server, l)
	go server.Serve(lis)

	dialer := func(context.Context, string) (net.Conn, error) {
		return lis.Dial()
	}
	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(dialer), grpc.WithInsecure())
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		server.Stop()
		l.Close()
		db.Close()
	})

	return &testEnv{
		t:        t,
		l:        l,
		client:   NewLedgerClient(conn),
		hostCode: hostCode,
		factory:  factoryCode,
	}
}

func wrap(t *testing.T, v interface{}) *wrappers.BytesValue {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)
	return &wrappers.BytesValue{Value: b}
}

func (e *testEnv) deployFactory() string {
	e.t.Helper()

	msg, err := json.Marshal(&factory.InstantiateMsg{
		HostCodeID: e.hostCode,
		HostChain:  "local",
	})
	require.NoError(e.t, err)
	out, err := e.client.Instantiate(context.Background(), wrap(e.t, &InstantiateRequest{
		Sender: "deployer",
		CodeID: e.factory,
		Msg:    msg,
		Label:  "factory",
	}))
	require.NoError(e.t, err)

	var res ledger.TxResult
	require.NoError(e.t, json.Unmarshal(out.Value, &res))
	require.NotEmpty(e.t, res.ContractAddress)
	return res.ContractAddress
}

func TestLedgerServiceWalletFlow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	fact := e.deployFactory()

	create, err := json.Marshal(&factory.ExecuteMsg{
		CreateWallet: &factory.CreateWalletMsg{
			RecoveryPool:                     []string{"alice", "bob"},
			ApprovalPool:                     []string{"alice"},
			RecoveryApprovalsNeeded:          1,
			TransferOwnershipApprovalsNeeded: 1,
		},
	})
	require.NoError(t, err)
	out, err := e.client.Execute(ctx, wrap(t, &ExecuteRequest{
		Sender:   "owner",
		Contract: fact,
		Msg:      create,
	}))
	require.NoError(t, err)

	var res ledger.TxResult
	require.NoError(t, json.Unmarshal(out.Value, &res))
	require.Equal(t, "owner", res.Sender)
	require.Equal(t, uint64(2), res.Height)

	q, err := json.Marshal(&factory.QueryMsg{
		GetHostContract: &factory.GetHostContractMsg{Owner: "owner"},
	})
	require.NoError(t, err)
	out, err = e.client.Query(ctx, wrap(t, &QueryRequest{
		Contract: fact,
		Msg:      q,
	}))
	require.NoError(t, err)

	var wallet factory.HostContractResponse
	require.NoError(t, json.Unmarshal(out.Value, &wallet))
	require.NotEmpty(t, wallet.Host)

	// The wallet answers its own state query through the same service.
	out, err = e.client.Query(ctx, wrap(t, &QueryRequest{
		Contract: wallet.Host,
		Msg:      json.RawMessage(`{"get_state":{}}`),
	}))
	require.NoError(t, err)

	var state host.StateResponse
	require.NoError(t, json.Unmarshal(out.Value, &state))
	require.Equal(t, "owner", state.Owner)
	require.Equal(t, fact, state.Master)
}

func TestLedgerServiceErrors(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	fact := e.deployFactory()

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{{
		name: "malformed envelope",
		call: func() error {
			_, err := e.client.Execute(ctx, &wrappers.BytesValue{Value: []byte("{")})
			return err
		},
		code: codes.InvalidArgument,
	}, {
		name: "unknown contract",
		call: func() error {
			_, err := e.client.Query(ctx, wrap(t, &QueryRequest{
				Contract: "abe1missing",
				Msg:      json.RawMessage(`{"config":{}}`),
			}))
			return err
		},
		code: codes.NotFound,
	}, {
		name: "unknown code",
		call: func() error {
			_, err := e.client.Instantiate(ctx, wrap(t, &InstantiateRequest{
				Sender: "deployer",
				CodeID: 99,
				Msg:    json.RawMessage(`{}`),
			}))
			return err
		},
		code: codes.NotFound,
	}, {
		name: "owner without a wallet",
		call: func() error {
			_, err := e.client.Query(ctx, wrap(t, &QueryRequest{
				Contract: fact,
				Msg:      json.RawMessage(`{"get_host_contract":{"owner":"nobody"}}`),
			}))
			return err
		},
		code: codes.NotFound,
	}, {
		name: "unauthorized owner update",
		call: func() error {
			_, err := e.client.Execute(ctx, wrap(t, &ExecuteRequest{
				Sender:   "mallory",
				Contract: fact,
				Msg:      json.RawMessage(`{"update_owner":{"old_owner":"owner","new_owner":"mallory"}}`),
			}))
			return err
		},
		code: codes.PermissionDenied,
	}, {
		name: "remote executor",
		call: func() error {
			_, err := e.client.Execute(ctx, wrap(t, &ExecuteRequest{
				Sender:   "owner",
				Contract: fact,
				Msg:      json.RawMessage(`{"create_executor":{"wallet_address":"abe1wallet","chain":"remote"}}`),
			}))
			return err
		},
		code: codes.Unimplemented,
	}}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			err := test.call()
			require.Error(t, err)
			require.Equal(t, test.code, status.Code(err), err.Error())
		})
	}
}

func TestLedgerServiceSubscribe(t *testing.T) {
	e := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := e.client.Subscribe(ctx, &wrappers.BytesValue{})
	require.NoError(t, err)

	// The subscription is registered on the server once the first message
	// is requested, so keep committing until something arrives.
	got := make(chan *ledger.TxResult, 1)
	go func() {
		msg, err := stream.Recv()
		if err != nil {
			close(got)
			return
		}
		var r ledger.TxResult
		if json.Unmarshal(msg.Value, &r) != nil {
			close(got)
			return
		}
		got <- &r
	}()

	var fact string
	deadline := time.After(5 * time.Second)
	for fact == "" {
		addr := e.deployFactory()
		select {
		case r, ok := <-got:
			require.True(t, ok, "stream ended without a result")
			require.Equal(t, "deployer", r.Sender)
			fact = r.ContractAddress
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatalf("no notification after deploying %s", addr)
		}
	}
	require.NotEmpty(t, fact)
}
