package factory_test

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/abesuite/hostwallet/executor"
	"github.com/abesuite/hostwallet/factory"
	"github.com/abesuite/hostwallet/host"
	"github.com/abesuite/hostwallet/ledger"
	"github.com/abesuite/hostwallet/walletdb"
	_ "github.com/abesuite/hostwallet/walletdb/bdb"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

const (
	deployer = "deployer"
	owner    = "owner"
	alice    = "alice"
	bob      = "bob"
	mallory  = "mallory"
	newOwner = "newowner"
	payee    = "payee"
	chain    = "local"
)

// suite is a ledger with the wallet, executor and factory codes stored and
// one factory deployed.
type suite struct {
	t *testing.T
	l *ledger.Ledger

	hostCode     uint64
	executorCode uint64
	factoryCode  uint64
	factory      string
}

func newSuite(t *testing.T) *suite {
	t.Helper()

	db, err := walletdb.Create("bdb", filepath.Join(t.TempDir(), "ledger.db"), true)
	require.NoError(t, err)
	clk := clock.NewTestClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, ledger.Create(db, "testchain", clk))
	l, err := ledger.Open(&ledger.Config{DB: db, Clock: clk})
	require.NoError(t, err)
	t.Cleanup(func() {
		l.Close()
		db.Close()
	})

	s := &suite{t: t, l: l}
	s.hostCode, err = l.StoreCode(host.ContractName, host.Contract{})
	require.NoError(t, err)
	s.executorCode, err = l.StoreCode(executor.ContractName, executor.Contract{})
	require.NoError(t, err)
	s.factoryCode, err = l.StoreCode(factory.ContractName, factory.Contract{})
	require.NoError(t, err)

	s.factory = s.deploy(map[string]uint64{chain: s.executorCode})
	return s
}

// deploy instantiates a factory with the given executor templates.
func (s *suite) deploy(executors map[string]uint64) string {
	res, err := s.l.Instantiate(deployer, s.factoryCode, s.marshal(&factory.InstantiateMsg{
		HostCodeID:      s.hostCode,
		HostChain:       chain,
		ExecutorCodeIDs: executors,
	}), nil, "factory", deployer)
	require.NoError(s.t, err)
	return res.ContractAddress
}

func (s *suite) marshal(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	require.NoError(s.t, err)
	return b
}

func (s *suite) execFactory(sender string, msg factory.ExecuteMsg) (*ledger.TxResult, error) {
	return s.l.Execute(sender, s.factory, s.marshal(&msg), nil)
}

func (s *suite) execWallet(sender, wallet string, msg host.ExecuteMsg,
	funds ...ledger.Coin) (*ledger.TxResult, error) {

	return s.l.Execute(sender, wallet, s.marshal(&msg), funds)
}

func (s *suite) query(addr string, msg, out interface{}) error {
	res, err := s.l.Query(addr, s.marshal(msg))
	if err != nil {
		return err
	}
	return json.Unmarshal(res, out)
}

// createWallet creates a wallet for owner through the factory and returns
// its address.
func (s *suite) createWallet(owner string, pool []string, recovery, transfer uint32) string {
	_, err := s.execFactory(owner, factory.ExecuteMsg{
		CreateWallet: &factory.CreateWalletMsg{
			RecoveryPool:                     pool,
			RecoveryApprovalsNeeded:          recovery,
			TransferOwnershipApprovalsNeeded: transfer,
		},
	})
	require.NoError(s.t, err)

	wallet, err := s.walletOf(owner)
	require.NoError(s.t, err)
	return wallet
}

func (s *suite) walletOf(owner string) (string, error) {
	var resp factory.HostContractResponse
	err := s.query(s.factory, &factory.QueryMsg{
		GetHostContract: &factory.GetHostContractMsg{Owner: owner},
	}, &resp)
	return resp.Host, err
}

func (s *suite) walletState(wallet string) *host.StateResponse {
	var state host.StateResponse
	err := s.query(wallet, &host.QueryMsg{GetState: &struct{}{}}, &state)
	require.NoError(s.t, err)
	return &state
}

func eventTypes(events []ledger.Event) []string {
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

func findEvent(events []ledger.Event, typ string) *ledger.Event {
	for i := range events {
		if events[i].Type == typ {
			return &events[i]
		}
	}
	return nil
}

func TestCreateWallet(t *testing.T) {
	s := newSuite(t)

	res, err := s.execFactory(owner, factory.ExecuteMsg{
		CreateWallet: &factory.CreateWalletMsg{
			RecoveryPool:                     []string{alice, bob},
			RecoveryApprovalsNeeded:          2,
			TransferOwnershipApprovalsNeeded: 1,
		},
	})
	require.NoError(t, err)
	require.Equal(t, []string{
		"execute", "wasm", "instantiate", "wasm", "reply", "wasm",
	}, eventTypes(res.Events))

	inst := findEvent(res.Events, "instantiate")
	wallet, ok := inst.Attr("_contract_address")
	require.True(t, ok)

	got, err := s.walletOf(owner)
	require.NoError(t, err)
	require.Equal(t, wallet, got)

	state := s.walletState(wallet)
	require.Equal(t, owner, state.Owner)
	require.Equal(t, s.factory, state.Master)
	require.Equal(t, chain, state.Chain)
	require.Equal(t, []string{alice, bob}, state.RecoveryPool)

	record, err := s.l.ContractInfo(wallet)
	require.NoError(t, err)
	require.Equal(t, s.factory, record.Creator)
	require.Equal(t, owner, record.Label)

	var cfg factory.ConfigResponse
	require.NoError(t, s.query(s.factory, &factory.QueryMsg{Config: &struct{}{}}, &cfg))
	require.Equal(t, factory.ConfigResponse{
		Contract:        factory.ContractName,
		HostCodeID:      s.hostCode,
		HostChain:       chain,
		ExecutorCodeIDs: map[string]uint64{chain: s.executorCode},
		Wallets:         1,
	}, cfg)
}

func TestCreateWalletFailureLeavesNoIndex(t *testing.T) {
	s := newSuite(t)

	_, err := s.execFactory(owner, factory.ExecuteMsg{
		CreateWallet: &factory.CreateWalletMsg{
			RecoveryPool: []string{alice, alice},
		},
	})
	require.True(t, host.IsError(err, host.ErrMemberAlreadyAdded), err)

	_, err = s.walletOf(owner)
	require.True(t, factory.IsError(err, factory.ErrNoExist), err)

	contracts, err := s.l.Contracts(s.hostCode)
	require.NoError(t, err)
	require.Empty(t, contracts)
}

func TestCreateWalletReplacesIndex(t *testing.T) {
	s := newSuite(t)

	first := s.createWallet(owner, nil, 1, 0)
	second := s.createWallet(owner, nil, 1, 0)
	require.NotEqual(t, first, second)

	got, err := s.walletOf(owner)
	require.NoError(t, err)
	require.Equal(t, second, got)
}

func TestSocialRecoveryMovesIndex(t *testing.T) {
	s := newSuite(t)
	wallet := s.createWallet(owner, []string{alice, bob}, 2, 1)

	_, err := s.execWallet(alice, wallet, host.ExecuteMsg{
		BeginSocialRecovery: &host.TargetMsg{Nonce: 1, Target: newOwner},
	})
	require.NoError(t, err)

	res, err := s.execWallet(bob, wallet, host.ExecuteMsg{
		ApproveSocialRecovery: &host.TargetMsg{Nonce: 2, Target: newOwner},
	})
	require.NoError(t, err)

	// The wallet told the factory, which re-keyed its index in the same
	// call.
	var moved bool
	for _, ev := range res.Events {
		addr, _ := ev.Attr("_contract_address")
		method, _ := ev.Attr("method")
		if ev.Type == "wasm" && addr == s.factory && method == "update_owner" {
			moved = true
		}
	}
	require.True(t, moved, "no update_owner event in %v", res.Events)

	require.Equal(t, newOwner, s.walletState(wallet).Owner)

	got, err := s.walletOf(newOwner)
	require.NoError(t, err)
	require.Equal(t, wallet, got)

	_, err = s.walletOf(owner)
	require.True(t, factory.IsError(err, factory.ErrNoExist), err)
}

func TestTransferOwnershipMovesIndex(t *testing.T) {
	s := newSuite(t)
	wallet := s.createWallet(owner, []string{alice}, 1, 0)

	_, err := s.execWallet(owner, wallet, host.ExecuteMsg{
		BeginTransferOwnership: &host.TargetMsg{Nonce: 1, Target: newOwner},
	})
	require.NoError(t, err)

	got, err := s.walletOf(newOwner)
	require.NoError(t, err)
	require.Equal(t, wallet, got)
}

func TestUpdateOwnerUnauthorized(t *testing.T) {
	s := newSuite(t)
	wallet := s.createWallet(owner, nil, 1, 0)

	for _, sender := range []string{mallory, owner} {
		_, err := s.execFactory(sender, factory.ExecuteMsg{
			UpdateOwner: &factory.UpdateOwnerMsg{
				OldOwner: owner,
				NewOwner: mallory,
			},
		})
		require.True(t, factory.IsError(err, factory.ErrUnauthorized), err)
	}

	// Unknown old owners are refused the same way.
	_, err := s.l.Execute(wallet, s.factory, s.marshal(&factory.ExecuteMsg{
		UpdateOwner: &factory.UpdateOwnerMsg{OldOwner: bob, NewOwner: mallory},
	}), nil)
	require.True(t, factory.IsError(err, factory.ErrUnauthorized), err)

	got, err := s.walletOf(owner)
	require.NoError(t, err)
	require.Equal(t, wallet, got)
}

func TestExecuteRejectsAmbiguousMessage(t *testing.T) {
	s := newSuite(t)

	for _, msg := range []factory.ExecuteMsg{
		{},
		{
			CreateWallet: &factory.CreateWalletMsg{},
			UpdateOwner:  &factory.UpdateOwnerMsg{},
		},
	} {
		_, err := s.execFactory(owner, msg)
		require.True(t, factory.IsError(err, factory.ErrInvalidMessage), err)
	}

	_, err := s.l.Execute(owner, s.factory, json.RawMessage(`{"create_wallet":`), nil)
	require.True(t, factory.IsError(err, factory.ErrInvalidMessage), err)
}

func TestCreateExecutorAndDispatch(t *testing.T) {
	s := newSuite(t)
	wallet := s.createWallet(owner, nil, 1, 0)

	res, err := s.execFactory(owner, factory.ExecuteMsg{
		CreateExecutor: &factory.CreateExecutorMsg{
			WalletAddress: wallet,
			Chain:         chain,
		},
	})
	require.NoError(t, err)
	inst := findEvent(res.Events, "instantiate")
	require.NotNil(t, inst)
	executorAddr, _ := inst.Attr("_contract_address")

	var resp host.ExecutorResponse
	err = s.query(wallet, &host.QueryMsg{
		GetExecutor: &host.GetExecutorMsg{Chain: chain},
	}, &resp)
	require.NoError(t, err)
	require.NotNil(t, resp.Address)
	require.Equal(t, executorAddr, *resp.Address)

	var cfg executor.ConfigResponse
	err = s.query(executorAddr, &executor.QueryMsg{Config: &struct{}{}}, &cfg)
	require.NoError(t, err)
	require.Equal(t, executor.ConfigResponse{
		Contract: executor.ContractName,
		Owner:    wallet,
		Chain:    chain,
	}, cfg)

	action := s.marshal(&ledger.Msg{Bank: &ledger.BankMsg{
		Send: &ledger.BankSend{
			ToAddress: payee,
			Amount:    ledger.Coins{{Denom: "abe", Amount: 5}},
		},
	}})
	res, err = s.execWallet(owner, wallet, host.ExecuteMsg{
		Dispatch: &host.DispatchMsg{Nonce: 1, Action: action},
	})
	require.NoError(t, err)

	transfer := findEvent(res.Events, "transfer")
	require.NotNil(t, transfer)
	sender, _ := transfer.Attr("sender")
	recipient, _ := transfer.Attr("recipient")
	amount, _ := transfer.Attr("amount")
	require.Equal(t, executorAddr, sender)
	require.Equal(t, payee, recipient)
	require.Equal(t, "5abe", amount)

	// Only the wallet may drive its executor.
	_, err = s.l.Execute(owner, executorAddr, action, nil)
	require.True(t, executor.IsError(err, executor.ErrUnauthorized), err)

	// A second executor for the same chain is refused by the wallet.
	_, err = s.execFactory(owner, factory.ExecuteMsg{
		CreateExecutor: &factory.CreateExecutorMsg{
			WalletAddress: wallet,
			Chain:         chain,
		},
	})
	require.True(t, host.IsError(err, host.ErrChainAlreadyRegistered), err)
}

func TestDispatchCustomActionRefused(t *testing.T) {
	s := newSuite(t)
	wallet := s.createWallet(owner, nil, 1, 0)

	_, err := s.execFactory(owner, factory.ExecuteMsg{
		CreateExecutor: &factory.CreateExecutorMsg{
			WalletAddress: wallet,
			Chain:         chain,
		},
	})
	require.NoError(t, err)

	_, err = s.execWallet(owner, wallet, host.ExecuteMsg{
		Dispatch: &host.DispatchMsg{
			Nonce:  1,
			Action: json.RawMessage(`{"custom":{"ping":{}}}`),
		},
	})
	require.True(t, executor.IsError(err, executor.ErrNotImplemented), err)

	// The failed dispatch did not burn the nonce.
	var nonce host.NonceResponse
	require.NoError(t, s.query(wallet, &host.QueryMsg{GetNonce: &struct{}{}}, &nonce))
	require.Equal(t, uint64(0), nonce.Nonce)
}

func TestCreateExecutorChecks(t *testing.T) {
	s := newSuite(t)
	wallet := s.createWallet(owner, nil, 1, 0)

	_, err := s.execFactory(owner, factory.ExecuteMsg{
		CreateExecutor: &factory.CreateExecutorMsg{
			WalletAddress: wallet,
			Chain:         "remote",
		},
	})
	require.True(t, factory.IsError(err, factory.ErrNotImplemented), err)

	_, err = s.execFactory(owner, factory.ExecuteMsg{
		CreateExecutor: &factory.CreateExecutorMsg{
			WalletAddress: "Not An Address",
			Chain:         chain,
		},
	})
	require.True(t, factory.IsError(err, factory.ErrInvalidAddress), err)

	// A factory without a template for its own chain.
	s.factory = s.deploy(nil)
	_, err = s.execFactory(owner, factory.ExecuteMsg{
		CreateExecutor: &factory.CreateExecutorMsg{
			WalletAddress: wallet,
			Chain:         chain,
		},
	})
	require.True(t, factory.IsError(err, factory.ErrUnknownChain), err)
}

func TestInstantiateRejectsBadConfig(t *testing.T) {
	s := newSuite(t)

	for _, msg := range []factory.InstantiateMsg{
		{HostCodeID: s.hostCode},
		{
			HostCodeID:      s.hostCode,
			HostChain:       chain,
			ExecutorCodeIDs: map[string]uint64{"": s.executorCode},
		},
	} {
		_, err := s.l.Instantiate(deployer, s.factoryCode, s.marshal(&msg),
			nil, "factory", "")
		require.True(t, factory.IsError(err, factory.ErrInvalidMessage), err)
	}
}

func TestQueryErrors(t *testing.T) {
	s := newSuite(t)

	_, err := s.l.Query(s.factory, json.RawMessage(`{}`))
	require.True(t, factory.IsError(err, factory.ErrInvalidMessage), err)

	_, err = s.l.Query(s.factory, json.RawMessage(`[`))
	require.True(t, factory.IsError(err, factory.ErrInvalidMessage), err)
}
