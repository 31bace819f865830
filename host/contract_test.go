package host_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/abesuite/hostwallet/host"
	"github.com/abesuite/hostwallet/ledger"
	"github.com/abesuite/hostwallet/walletdb"
	_ "github.com/abesuite/hostwallet/walletdb/bdb"
	"github.com/stretchr/testify/require"
)

const (
	walletAddr = "abe1wallet"
	master     = "abe1factory"
	owner      = "owner"
	alice      = "alice"
	bob        = "bob"
	carol      = "carol"
	mallory    = "mallory"
	newOwner   = "newowner"
	chain      = "local"
)

var walletBucket = []byte("wallet")

// harness runs wallet entry points against a store in a temporary
// database.  Each call gets its own transaction, which is rolled back when
// the call fails, the way the ledger does it.
type harness struct {
	t      *testing.T
	db     walletdb.DB
	height uint64
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := walletdb.Create("bdb", filepath.Join(t.TempDir(), "w.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	err = walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		_, err := tx.CreateTopLevelBucket(walletBucket)
		return err
	})
	require.NoError(t, err)

	return &harness{t: t, db: db}
}

// newWallet instantiates a wallet owned by owner with the given recovery
// pool and quorums.
func newWallet(t *testing.T, pool []string, recovery, transfer uint32) *harness {
	t.Helper()

	h := newHarness(t)
	_, err := h.instantiate(master, host.InstantiateMsg{
		Owner:                            owner,
		RecoveryPool:                     pool,
		RecoveryApprovalsNeeded:          recovery,
		TransferOwnershipApprovalsNeeded: transfer,
		Chain:                            chain,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) env() ledger.Env {
	return ledger.Env{
		Block:    ledger.BlockInfo{Height: h.height, ChainID: "test"},
		Contract: ledger.ContractInfo{Address: walletAddr},
	}
}

func (h *harness) update(f func(ctx *ledger.Context) (*ledger.Response, error)) (*ledger.Response, error) {
	h.height++
	var resp *ledger.Response
	err := walletdb.Update(h.db, func(tx walletdb.ReadWriteTx) error {
		ctx := &ledger.Context{
			Env:   h.env(),
			Store: tx.ReadWriteBucket(walletBucket),
			API:   ledger.DefaultAPI,
		}
		var err error
		resp, err = f(ctx)
		return err
	})
	return resp, err
}

func (h *harness) instantiate(sender string, msg interface{}) (*ledger.Response, error) {
	raw, err := json.Marshal(msg)
	require.NoError(h.t, err)
	return h.update(func(ctx *ledger.Context) (*ledger.Response, error) {
		info := ledger.MessageInfo{Sender: sender}
		return host.Contract{}.Instantiate(ctx, info, raw)
	})
}

func (h *harness) execute(sender string, msg host.ExecuteMsg,
	funds ...ledger.Coin) (*ledger.Response, error) {

	raw, err := json.Marshal(msg)
	require.NoError(h.t, err)
	return h.executeRaw(sender, raw, funds...)
}

func (h *harness) executeRaw(sender string, raw json.RawMessage,
	funds ...ledger.Coin) (*ledger.Response, error) {

	return h.update(func(ctx *ledger.Context) (*ledger.Response, error) {
		info := ledger.MessageInfo{Sender: sender, Funds: funds}
		return host.Contract{}.Execute(ctx, info, raw)
	})
}

func (h *harness) query(msg host.QueryMsg, out interface{}) {
	raw, err := json.Marshal(msg)
	require.NoError(h.t, err)

	err = walletdb.View(h.db, func(tx walletdb.ReadTx) error {
		ctx := &ledger.QueryContext{
			Env:   h.env(),
			Store: tx.ReadBucket(walletBucket),
			API:   ledger.DefaultAPI,
		}
		res, err := host.Contract{}.Query(ctx, raw)
		if err != nil {
			return err
		}
		return json.Unmarshal(res, out)
	})
	require.NoError(h.t, err)
}

func (h *harness) state() *host.StateResponse {
	var s host.StateResponse
	h.query(host.QueryMsg{GetState: &struct{}{}}, &s)
	return &s
}

func (h *harness) recoveryPool() *host.RecoveryPoolResponse {
	var r host.RecoveryPoolResponse
	h.query(host.QueryMsg{GetRecoveryPool: &struct{}{}}, &r)
	return &r
}

func requireCode(t *testing.T, err error, code host.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.True(t, host.IsError(err, code), "want %v, got %v", code, err)
}

func attr(resp *ledger.Response, key string) string {
	for _, a := range resp.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

func addRecovery(nonce uint64, member string) host.ExecuteMsg {
	return host.ExecuteMsg{AddRecoveryMember: &host.MemberMsg{
		Nonce: nonce, Member: member,
	}}
}

func beginSocial(nonce uint64, target string) host.ExecuteMsg {
	return host.ExecuteMsg{BeginSocialRecovery: &host.TargetMsg{
		Nonce: nonce, Target: target,
	}}
}

func approveSocial(nonce uint64, target string) host.ExecuteMsg {
	return host.ExecuteMsg{ApproveSocialRecovery: &host.TargetMsg{
		Nonce: nonce, Target: target,
	}}
}

func beginTransfer(nonce uint64, target string) host.ExecuteMsg {
	return host.ExecuteMsg{BeginTransferOwnership: &host.TargetMsg{
		Nonce: nonce, Target: target,
	}}
}

func approveTransfer(nonce uint64, target string) host.ExecuteMsg {
	return host.ExecuteMsg{ApproveTransferOwnership: &host.TargetMsg{
		Nonce: nonce, Target: target,
	}}
}

// requireOwnerUpdate checks resp carries the owner update sent to the
// master.
func requireOwnerUpdate(t *testing.T, resp *ledger.Response, oldOwner, newOwner string) {
	t.Helper()

	require.Len(t, resp.Messages, 1)
	exec := resp.Messages[0].Msg.Wasm.Execute
	require.NotNil(t, exec)
	require.Equal(t, master, exec.ContractAddr)

	var msg struct {
		UpdateOwner host.UpdateOwnerMsg `json:"update_owner"`
	}
	require.NoError(t, json.Unmarshal(exec.Msg, &msg))
	require.Equal(t, oldOwner, msg.UpdateOwner.OldOwner)
	require.Equal(t, newOwner, msg.UpdateOwner.NewOwner)
}

func TestInstantiate(t *testing.T) {
	h := newHarness(t)
	resp, err := h.instantiate(master, host.InstantiateMsg{
		Owner:                            owner,
		RecoveryPool:                     []string{alice, bob},
		ApprovalPool:                     []string{carol},
		RecoveryApprovalsNeeded:          2,
		TransferOwnershipApprovalsNeeded: 1,
		Chain:                            chain,
	})
	require.NoError(t, err)

	require.Equal(t, "instantiate", attr(resp, "method"))
	require.Equal(t, walletAddr, attr(resp, host.AttrHostAddress))
	require.Equal(t, owner, attr(resp, host.AttrOwner))
	require.Equal(t, `["alice","bob"]`, attr(resp, "recovery_pool"))
	require.Equal(t, `["carol"]`, attr(resp, "approval_pool"))
	require.Equal(t, "0", attr(resp, "nonce"))

	var data host.InstantiateData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Equal(t, host.InstantiateData{HostAddress: walletAddr, Owner: owner}, data)

	s := h.state()
	require.Equal(t, owner, s.Owner)
	require.Equal(t, master, s.Master)
	require.Nil(t, s.Pending)
	require.Equal(t, []string{alice, bob}, s.RecoveryPool)
	require.Equal(t, uint64(0), s.LastNonce)
	require.Empty(t, s.Votes)

	var version host.ContractVersionResponse
	h.query(host.QueryMsg{ContractVersion: &struct{}{}}, &version)
	require.Equal(t, host.ContractName, version.Contract)
	require.Equal(t, uint32(host.LatestVersion), version.Version)

	// A store holds a single wallet.
	_, err = h.instantiate(master, host.InstantiateMsg{Owner: owner, Chain: chain})
	requireCode(t, err, host.ErrAlreadyExists)
}

func TestInstantiateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		msg  host.InstantiateMsg
		code host.ErrorCode
	}{{
		name: "bad owner",
		msg:  host.InstantiateMsg{Owner: "Owner!", Chain: chain},
		code: host.ErrInvalidAddress,
	}, {
		name: "no chain",
		msg:  host.InstantiateMsg{Owner: owner},
		code: host.ErrInvalidMessage,
	}, {
		name: "duplicate member",
		msg: host.InstantiateMsg{
			Owner:        owner,
			RecoveryPool: []string{alice, alice},
			Chain:        chain,
		},
		code: host.ErrMemberAlreadyAdded,
	}, {
		name: "bad member",
		msg: host.InstantiateMsg{
			Owner:        owner,
			ApprovalPool: []string{""},
			Chain:        chain,
		},
		code: host.ErrInvalidAddress,
	}}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.instantiate(master, test.msg)
			requireCode(t, err, test.code)
		})
	}
}

func TestExecuteRejectsMalformedMessages(t *testing.T) {
	h := newWallet(t, nil, 1, 0)

	_, err := h.executeRaw(owner, json.RawMessage(`{`))
	requireCode(t, err, host.ErrInvalidMessage)

	_, err = h.executeRaw(owner, json.RawMessage(`{}`))
	requireCode(t, err, host.ErrInvalidMessage)

	_, err = h.execute(owner, host.ExecuteMsg{
		AddRecoveryMember: &host.MemberMsg{Nonce: 1, Member: alice},
		AddApprovalMember: &host.MemberMsg{Nonce: 2, Member: bob},
	})
	requireCode(t, err, host.ErrInvalidMessage)

	require.Equal(t, uint64(0), h.state().LastNonce)
}

func TestNonceGuard(t *testing.T) {
	h := newWallet(t, nil, 1, 0)

	// The watermark starts at zero, so zero is already used.
	_, err := h.execute(owner, addRecovery(0, alice))
	requireCode(t, err, host.ErrNonceAlreadyUsed)

	_, err = h.execute(owner, addRecovery(5, alice))
	require.NoError(t, err)

	for _, nonce := range []uint64{5, 3} {
		_, err = h.execute(owner, addRecovery(nonce, bob))
		requireCode(t, err, host.ErrNonceAlreadyUsed)
	}
	s := h.state()
	require.Equal(t, uint64(5), s.LastNonce)
	require.Equal(t, []string{alice}, s.RecoveryPool)

	// Gaps are fine.
	_, err = h.execute(owner, addRecovery(10, bob))
	require.NoError(t, err)

	// A failing operation does not consume its nonce.
	_, err = h.execute(mallory, addRecovery(11, carol))
	requireCode(t, err, host.ErrUnauthorized)
	_, err = h.execute(owner, addRecovery(11, alice))
	requireCode(t, err, host.ErrMemberAlreadyAdded)
	require.Equal(t, uint64(10), h.state().LastNonce)

	_, err = h.execute(owner, addRecovery(11, carol))
	require.NoError(t, err)

	var nonce host.NonceResponse
	h.query(host.QueryMsg{GetNonce: &struct{}{}}, &nonce)
	require.Equal(t, uint64(11), nonce.Nonce)
}

func TestPoolEdits(t *testing.T) {
	h := newWallet(t, nil, 1, 0)

	resp, err := h.execute(owner, addRecovery(1, alice))
	require.NoError(t, err)
	require.Equal(t, "add_recovery_member", attr(resp, "action"))

	_, err = h.execute(owner, addRecovery(2, alice))
	requireCode(t, err, host.ErrMemberAlreadyAdded)

	_, err = h.execute(owner, host.ExecuteMsg{AddApprovalMember: &host.MemberMsg{
		Nonce: 3, Member: alice,
	}})
	require.NoError(t, err)

	_, err = h.execute(owner, host.ExecuteMsg{RemoveApprovalMember: &host.MemberMsg{
		Nonce: 4, Member: bob,
	}})
	requireCode(t, err, host.ErrMemberNotFound)

	_, err = h.execute(alice, host.ExecuteMsg{RemoveRecoveryMember: &host.MemberMsg{
		Nonce: 5, Member: alice,
	}})
	requireCode(t, err, host.ErrUnauthorized)

	_, err = h.execute(owner, addRecovery(6, bob))
	require.NoError(t, err)
	_, err = h.execute(owner, host.ExecuteMsg{RemoveRecoveryMember: &host.MemberMsg{
		Nonce: 7, Member: alice,
	}})
	require.NoError(t, err)

	s := h.state()
	require.Equal(t, []string{bob}, s.RecoveryPool)
	require.Equal(t, []string{alice}, s.ApprovalPool)
}

func TestSocialRecovery(t *testing.T) {
	h := newWallet(t, []string{alice, bob}, 2, 0)

	resp, err := h.execute(alice, beginSocial(1, newOwner))
	require.NoError(t, err)
	require.Empty(t, resp.Messages)
	require.Equal(t, "1", attr(resp, "votes"))

	s := h.state()
	require.Equal(t, owner, s.Owner)
	target, ok := s.PotentialOwner()
	require.True(t, ok)
	require.Equal(t, newOwner, target)
	method, ok := s.Method()
	require.True(t, ok)
	require.Equal(t, host.SocialRecovery, method)

	pool := h.recoveryPool()
	require.Equal(t, []string{alice}, pool.RecoveryProgress)
	require.NotNil(t, pool.NewOwner)
	require.Equal(t, newOwner, *pool.NewOwner)
	require.Equal(t, host.SocialRecovery, *pool.RecoveryMethod)

	_, err = h.execute(alice, approveSocial(2, newOwner))
	requireCode(t, err, host.ErrAlreadyVoted)

	resp, err = h.execute(bob, approveSocial(3, newOwner))
	require.NoError(t, err)
	requireOwnerUpdate(t, resp, owner, newOwner)
	require.Equal(t, newOwner, attr(resp, "new_owner"))

	s = h.state()
	require.Equal(t, newOwner, s.Owner)
	require.Nil(t, s.Pending)
	require.Empty(t, s.Votes)

	// The transfer is over; further votes find nothing to approve.
	_, err = h.execute(alice, approveSocial(4, newOwner))
	requireCode(t, err, host.ErrNotInProgress)

	pool = h.recoveryPool()
	require.Nil(t, pool.NewOwner)
	require.Nil(t, pool.RecoveryMethod)
	require.Empty(t, pool.RecoveryProgress)
}

func TestSocialRecoveryQuorumOfOne(t *testing.T) {
	h := newWallet(t, []string{alice}, 1, 0)

	resp, err := h.execute(alice, beginSocial(1, newOwner))
	require.NoError(t, err)
	requireOwnerUpdate(t, resp, owner, newOwner)

	s := h.state()
	require.Equal(t, newOwner, s.Owner)
	require.Nil(t, s.Pending)
}

func TestBeginSocialRecoveryChecks(t *testing.T) {
	h := newWallet(t, []string{alice, bob, owner}, 2, 0)

	// Self targeted changes fail whoever asks.
	for _, sender := range []string{alice, mallory, owner} {
		_, err := h.execute(sender, beginSocial(1, owner))
		requireCode(t, err, host.ErrSelfRecovery)
	}

	_, err := h.execute(mallory, beginSocial(1, newOwner))
	requireCode(t, err, host.ErrUnauthorized)

	// The owner may sit in the pool but never drives its own recovery.
	_, err = h.execute(owner, beginSocial(1, newOwner))
	requireCode(t, err, host.ErrUnauthorized)

	_, err = h.execute(alice, beginSocial(1, newOwner))
	require.NoError(t, err)

	_, err = h.execute(bob, beginSocial(2, carol))
	requireCode(t, err, host.ErrAlreadyRecovering)

	_, err = h.execute(owner, beginTransfer(3, carol))
	requireCode(t, err, host.ErrAlreadyRecovering)

	_, err = h.execute(owner, approveSocial(4, newOwner))
	requireCode(t, err, host.ErrUnauthorized)

	require.Equal(t, []string{alice}, h.state().Votes)
}

func TestApproveChecks(t *testing.T) {
	h := newWallet(t, []string{alice, bob, carol}, 3, 1)

	_, err := h.execute(bob, approveSocial(1, newOwner))
	requireCode(t, err, host.ErrNotInProgress)

	_, err = h.execute(alice, beginSocial(1, newOwner))
	require.NoError(t, err)

	_, err = h.execute(mallory, approveSocial(2, newOwner))
	requireCode(t, err, host.ErrUnauthorized)

	_, err = h.execute(bob, approveTransfer(2, newOwner))
	requireCode(t, err, host.ErrNotInProgress)

	_, err = h.execute(bob, approveSocial(2, carol))
	requireCode(t, err, host.ErrInvariantMismatch)

	_, err = h.execute(bob, approveSocial(2, newOwner))
	require.NoError(t, err)

	s := h.state()
	require.Equal(t, owner, s.Owner)
	require.Equal(t, []string{alice, bob}, s.Votes)
	require.Equal(t, uint64(2), s.LastNonce)
}

func TestTransferOwnership(t *testing.T) {
	h := newWallet(t, []string{alice, bob, carol}, 1, 2)

	_, err := h.execute(alice, beginTransfer(1, newOwner))
	requireCode(t, err, host.ErrUnauthorized)

	_, err = h.execute(owner, beginTransfer(1, owner))
	requireCode(t, err, host.ErrSelfRecovery)

	resp, err := h.execute(owner, beginTransfer(1, newOwner))
	require.NoError(t, err)
	require.Empty(t, resp.Messages)

	s := h.state()
	require.Equal(t, []string{owner}, s.Votes)
	method, _ := s.Method()
	require.Equal(t, host.TransferOwnership, method)

	_, err = h.execute(alice, approveSocial(2, newOwner))
	requireCode(t, err, host.ErrNotInProgress)

	resp, err = h.execute(alice, approveTransfer(2, newOwner))
	require.NoError(t, err)
	require.Empty(t, resp.Messages)
	require.Equal(t, owner, h.state().Owner)

	resp, err = h.execute(bob, approveTransfer(3, newOwner))
	require.NoError(t, err)
	requireOwnerUpdate(t, resp, owner, newOwner)

	require.Equal(t, newOwner, h.state().Owner)

	_, err = h.execute(carol, approveTransfer(4, newOwner))
	requireCode(t, err, host.ErrNotInProgress)
}

func TestTransferOwnershipWithoutApprovals(t *testing.T) {
	h := newWallet(t, nil, 1, 0)

	resp, err := h.execute(owner, beginTransfer(1, newOwner))
	require.NoError(t, err)
	requireOwnerUpdate(t, resp, owner, newOwner)
	require.Equal(t, newOwner, h.state().Owner)

	// The new owner holds the wallet now.
	_, err = h.execute(owner, addRecovery(2, alice))
	requireCode(t, err, host.ErrUnauthorized)
	_, err = h.execute(newOwner, addRecovery(2, alice))
	require.NoError(t, err)
}

func TestOwnerInPoolCannotApproveOwnTransferTwice(t *testing.T) {
	h := newWallet(t, []string{owner, alice}, 1, 1)

	_, err := h.execute(owner, beginTransfer(1, newOwner))
	require.NoError(t, err)

	_, err = h.execute(owner, approveTransfer(2, newOwner))
	requireCode(t, err, host.ErrAlreadyVoted)

	resp, err := h.execute(alice, approveTransfer(3, newOwner))
	require.NoError(t, err)
	requireOwnerUpdate(t, resp, owner, newOwner)
}

func TestPoolEditsLeavePendingAlone(t *testing.T) {
	h := newWallet(t, []string{alice, bob}, 2, 0)

	_, err := h.execute(alice, beginSocial(1, newOwner))
	require.NoError(t, err)

	_, err = h.execute(owner, host.ExecuteMsg{RemoveRecoveryMember: &host.MemberMsg{
		Nonce: 2, Member: alice,
	}})
	require.NoError(t, err)

	s := h.state()
	require.NotNil(t, s.Pending)
	require.Equal(t, []string{alice}, s.Votes)

	// Alice's earlier vote still counts toward the quorum.
	resp, err := h.execute(bob, approveSocial(3, newOwner))
	require.NoError(t, err)
	requireOwnerUpdate(t, resp, owner, newOwner)
}

func TestCancelPending(t *testing.T) {
	h := newWallet(t, []string{alice, bob}, 2, 0)

	cancel := func(nonce uint64) host.ExecuteMsg {
		return host.ExecuteMsg{CancelPending: &host.NonceMsg{Nonce: nonce}}
	}

	_, err := h.execute(owner, cancel(1))
	requireCode(t, err, host.ErrNotInProgress)

	_, err = h.execute(alice, beginSocial(1, newOwner))
	require.NoError(t, err)

	_, err = h.execute(alice, cancel(2))
	requireCode(t, err, host.ErrUnauthorized)

	resp, err := h.execute(owner, cancel(2))
	require.NoError(t, err)
	require.Equal(t, "recovery", attr(resp, "method"))

	s := h.state()
	require.Nil(t, s.Pending)
	require.Empty(t, s.Votes)
	require.Equal(t, owner, s.Owner)

	// A fresh recovery starts from an empty vote list.
	_, err = h.execute(bob, beginSocial(3, carol))
	require.NoError(t, err)
	require.Equal(t, []string{bob}, h.state().Votes)
}

func TestExecutorRegistry(t *testing.T) {
	h := newWallet(t, nil, 1, 0)
	register := func(chain, addr string) host.ExecuteMsg {
		return host.ExecuteMsg{RegisterExecutor: &host.RegisterExecutorMsg{
			Chain: chain, Addr: addr,
		}}
	}

	var executor host.ExecutorResponse
	h.query(host.QueryMsg{GetExecutor: &host.GetExecutorMsg{Chain: "x"}}, &executor)
	require.Nil(t, executor.Address)

	_, err := h.execute(owner, register("x", "abe1exec"))
	requireCode(t, err, host.ErrUnauthorized)

	_, err = h.execute("abe1exec", register("", "abe1exec"))
	requireCode(t, err, host.ErrInvalidMessage)

	resp, err := h.execute("abe1exec", register("x", "abe1exec"))
	require.NoError(t, err)
	require.Equal(t, "register_executor", attr(resp, "action"))

	_, err = h.execute("abe1other", register("x", "abe1other"))
	requireCode(t, err, host.ErrChainAlreadyRegistered)

	_, err = h.execute("abe1other", register("y", "abe1other"))
	require.NoError(t, err)

	h.query(host.QueryMsg{GetExecutor: &host.GetExecutorMsg{Chain: "x"}}, &executor)
	require.NotNil(t, executor.Address)
	require.Equal(t, "abe1exec", *executor.Address)

	var executors host.ExecutorsResponse
	h.query(host.QueryMsg{GetExecutors: &struct{}{}}, &executors)
	require.Equal(t, map[string]string{
		"x": "abe1exec",
		"y": "abe1other",
	}, executors.Executors)

	// Registration is not nonce guarded.
	require.Equal(t, uint64(0), h.state().LastNonce)
}

func TestDispatch(t *testing.T) {
	h := newWallet(t, nil, 1, 0)
	action := json.RawMessage(`{"bank":{"send":{"to_address":"bob","amount":[{"denom":"abe","amount":"7"}]}}}`)
	dispatch := func(nonce uint64) host.ExecuteMsg {
		return host.ExecuteMsg{Dispatch: &host.DispatchMsg{
			Nonce: nonce, Action: action,
		}}
	}

	_, err := h.execute(owner, dispatch(1))
	requireCode(t, err, host.ErrChainNotRegistered)

	// Only the wallet's own chain is used.
	_, err = h.execute("abe1remote", host.ExecuteMsg{
		RegisterExecutor: &host.RegisterExecutorMsg{Chain: "remote", Addr: "abe1remote"},
	})
	require.NoError(t, err)
	_, err = h.execute(owner, dispatch(1))
	requireCode(t, err, host.ErrChainNotRegistered)

	_, err = h.execute("abe1exec", host.ExecuteMsg{
		RegisterExecutor: &host.RegisterExecutorMsg{Chain: chain, Addr: "abe1exec"},
	})
	require.NoError(t, err)

	_, err = h.execute(alice, dispatch(1))
	requireCode(t, err, host.ErrUnauthorized)

	funds := ledger.Coin{Denom: "abe", Amount: 7}
	resp, err := h.execute(owner, dispatch(1), funds)
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)

	exec := resp.Messages[0].Msg.Wasm.Execute
	require.Equal(t, "abe1exec", exec.ContractAddr)
	require.JSONEq(t, string(action), string(exec.Msg))
	require.Equal(t, ledger.Coins{funds}, exec.Funds)
	require.Equal(t, ledger.ReplyNever, resp.Messages[0].ReplyOn)

	_, err = h.execute(owner, dispatch(1))
	requireCode(t, err, host.ErrNonceAlreadyUsed)
}

func TestQueryRejectsEmptyMessage(t *testing.T) {
	h := newWallet(t, nil, 1, 0)

	err := walletdb.View(h.db, func(tx walletdb.ReadTx) error {
		ctx := &ledger.QueryContext{
			Env:   h.env(),
			Store: tx.ReadBucket(walletBucket),
			API:   ledger.DefaultAPI,
		}
		_, err := host.Contract{}.Query(ctx, json.RawMessage(`{}`))
		return err
	})
	requireCode(t, err, host.ErrInvalidMessage)
}
