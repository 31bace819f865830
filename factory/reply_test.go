package factory

import (
	"encoding/json"
	"testing"

	"github.com/abesuite/hostwallet/host"
	"github.com/abesuite/hostwallet/ledger"
	"github.com/stretchr/testify/require"
)

func wasmEvent(attrs ...string) ledger.Event {
	ev := ledger.Event{Type: "wasm"}
	for i := 0; i+1 < len(attrs); i += 2 {
		ev.Attributes = append(ev.Attributes, ledger.Attribute{
			Key: attrs[i], Value: attrs[i+1],
		})
	}
	return ev
}

func TestParseInstantiateResult(t *testing.T) {
	data, err := json.Marshal(&host.InstantiateData{
		HostAddress: "abe1typed",
		Owner:       "typedowner",
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		res    ledger.SubMsgResponse
		wallet string
		owner  string
	}{{
		name: "typed data wins",
		res: ledger.SubMsgResponse{
			Data: data,
			Events: []ledger.Event{
				wasmEvent(host.AttrHostAddress, "abe1attr", host.AttrOwner, "attrowner"),
			},
		},
		wallet: "abe1typed",
		owner:  "typedowner",
	}, {
		name: "attributes without data",
		res: ledger.SubMsgResponse{
			Events: []ledger.Event{
				{Type: "instantiate", Attributes: []ledger.Attribute{
					{Key: host.AttrOwner, Value: "ignored"},
				}},
				wasmEvent("method", "instantiate",
					host.AttrHostAddress, "abe1attr",
					host.AttrOwner, "attrowner"),
			},
		},
		wallet: "abe1attr",
		owner:  "attrowner",
	}, {
		name: "undecodable data",
		res: ledger.SubMsgResponse{
			Data:   []byte("abe1raw"),
			Events: []ledger.Event{wasmEvent(host.AttrOwner, "attrowner")},
		},
		owner: "attrowner",
	}, {
		name: "nothing",
	}}

	for _, test := range tests {
		wallet, owner := parseInstantiateResult(&test.res)
		require.Equal(t, test.wallet, wallet, test.name)
		require.Equal(t, test.owner, owner, test.name)
	}
}

func TestReplyErrors(t *testing.T) {
	ctx := &ledger.Context{API: ledger.DefaultAPI}

	_, err := Contract{}.Reply(ctx, ledger.Reply{ID: 99})
	require.True(t, IsError(err, ErrUnknownReplyID), err)

	_, err = Contract{}.Reply(ctx, ledger.Reply{
		ID: replyCreateWallet,
		Result: ledger.SubMsgResponse{
			Events: []ledger.Event{wasmEvent(host.AttrOwner, "owner")},
		},
	})
	require.True(t, IsError(err, ErrGeneric), err)
	require.Equal(t, "Host address not detected.", err.Error())

	_, err = Contract{}.Reply(ctx, ledger.Reply{
		ID: replyCreateWallet,
		Result: ledger.SubMsgResponse{
			Events: []ledger.Event{wasmEvent(host.AttrHostAddress, "abe1x")},
		},
	})
	require.True(t, IsError(err, ErrGeneric), err)
	require.Equal(t, "Owner address not detected.", err.Error())

	_, err = Contract{}.Reply(ctx, ledger.Reply{
		ID: replyCreateWallet,
		Result: ledger.SubMsgResponse{
			Events: []ledger.Event{
				wasmEvent(host.AttrHostAddress, "ABE1X", host.AttrOwner, "owner"),
			},
		},
	})
	require.True(t, IsError(err, ErrInvalidAddress), err)
}
