// Package rpcserver implements the gRPC ledger service.  Requests and
// responses are JSON documents wrapped in BytesValue messages so that the
// contract messages, which are JSON themselves, pass through untouched.
package rpcserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/abesuite/hostwallet/executor"
	"github.com/abesuite/hostwallet/factory"
	"github.com/abesuite/hostwallet/host"
	"github.com/abesuite/hostwallet/ledger"
	"github.com/golang/protobuf/ptypes/wrappers"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// InstantiateRequest is the envelope of an Instantiate call.
type InstantiateRequest struct {
	Sender string          `json:"sender"`
	CodeID uint64          `json:"code_id"`
	Msg    json.RawMessage `json:"msg"`
	Funds  ledger.Coins    `json:"funds,omitempty"`
	Label  string          `json:"label"`
	Admin  string          `json:"admin,omitempty"`
}

// ExecuteRequest is the envelope of an Execute call.
type ExecuteRequest struct {
	Sender   string          `json:"sender"`
	Contract string          `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
	Funds    ledger.Coins    `json:"funds,omitempty"`
}

// QueryRequest is the envelope of a Query call.
type QueryRequest struct {
	Contract string          `json:"contract"`
	Msg      json.RawMessage `json:"msg"`
}

// LedgerService serves the ledger over gRPC.
type LedgerService struct {
	ledger *ledger.Ledger
}

var _ LedgerServer = (*LedgerService)(nil)

// NewLedgerService creates the service for l.
func NewLedgerService(l *ledger.Ledger) *LedgerService {
	return &LedgerService{ledger: l}
}

// StartLedgerService registers the ledger service with server.  The caller
// remains responsible for serving and stopping it.
func StartLedgerService(server *grpc.Server, l *ledger.Ledger) {
	RegisterLedgerServer(server, NewLedgerService(l))
}

func decodeRequest(in *wrappers.BytesValue, v interface{}) error {
	if err := json.Unmarshal(in.GetValue(), v); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

func encodeResponse(v interface{}) (*wrappers.BytesValue, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "cannot encode response: %v", err)
	}
	return &wrappers.BytesValue{Value: b}, nil
}

// Instantiate creates a contract instance.
func (s *LedgerService) Instantiate(ctx context.Context, in *wrappers.BytesValue) (*wrappers.BytesValue, error) {
	var req InstantiateRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	res, err := s.ledger.Instantiate(req.Sender, req.CodeID, req.Msg,
		req.Funds, req.Label, req.Admin)
	if err != nil {
		return nil, translateError(err)
	}
	return encodeResponse(res)
}

// Execute calls a contract.
func (s *LedgerService) Execute(ctx context.Context, in *wrappers.BytesValue) (*wrappers.BytesValue, error) {
	var req ExecuteRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	res, err := s.ledger.Execute(req.Sender, req.Contract, req.Msg, req.Funds)
	if err != nil {
		return nil, translateError(err)
	}
	return encodeResponse(res)
}

// Query runs a contract query.  The contract's answer is returned as is.
func (s *LedgerService) Query(ctx context.Context, in *wrappers.BytesValue) (*wrappers.BytesValue, error) {
	var req QueryRequest
	if err := decodeRequest(in, &req); err != nil {
		return nil, err
	}
	res, err := s.ledger.Query(req.Contract, req.Msg)
	if err != nil {
		return nil, translateError(err)
	}
	return &wrappers.BytesValue{Value: res}, nil
}

// Subscribe streams every committed call until the client goes away or the
// ledger is closed.
func (s *LedgerService) Subscribe(_ *wrappers.BytesValue, stream Ledger_SubscribeServer) error {
	sub := s.ledger.Subscribe()
	defer sub.Cancel()

	log.Debugf("New gRPC subscriber")
	for {
		select {
		case r, ok := <-sub.Updates():
			if !ok {
				return status.Error(codes.Unavailable, "ledger closed")
			}
			msg, err := encodeResponse(r)
			if err != nil {
				return err
			}
			if err := stream.Send(msg); err != nil {
				return err
			}

		case <-stream.Context().Done():
			return nil
		}
	}
}

// translateError maps ledger and contract errors to gRPC status errors.
func translateError(err error) error {
	var (
		he host.Error
		fe factory.Error
		ee executor.Error
		le ledger.LedgerError
	)
	code := codes.Unknown
	switch {
	case errors.As(err, &he):
		switch he.ErrorCode {
		case host.ErrInvalidMessage, host.ErrInvalidAddress,
			host.ErrInvariantMismatch, host.ErrSelfRecovery:
			code = codes.InvalidArgument
		case host.ErrUnauthorized:
			code = codes.PermissionDenied
		case host.ErrNonceAlreadyUsed, host.ErrAlreadyRecovering,
			host.ErrNotInProgress, host.ErrAlreadyVoted,
			host.ErrChainNotRegistered:
			code = codes.FailedPrecondition
		case host.ErrMemberAlreadyAdded, host.ErrChainAlreadyRegistered,
			host.ErrAlreadyExists:
			code = codes.AlreadyExists
		case host.ErrMemberNotFound, host.ErrNoExist:
			code = codes.NotFound
		case host.ErrDatabase, host.ErrData, host.ErrUpgrade:
			code = codes.Internal
		}

	case errors.As(err, &fe):
		switch fe.ErrorCode {
		case factory.ErrInvalidMessage, factory.ErrInvalidAddress,
			factory.ErrUnknownChain:
			code = codes.InvalidArgument
		case factory.ErrUnauthorized:
			code = codes.PermissionDenied
		case factory.ErrNoExist:
			code = codes.NotFound
		case factory.ErrNotImplemented:
			code = codes.Unimplemented
		case factory.ErrDatabase:
			code = codes.Internal
		}

	case errors.As(err, &ee):
		switch ee.ErrorCode {
		case executor.ErrInvalidMessage:
			code = codes.InvalidArgument
		case executor.ErrUnauthorized:
			code = codes.PermissionDenied
		case executor.ErrNotImplemented:
			code = codes.Unimplemented
		case executor.ErrNoExist:
			code = codes.NotFound
		case executor.ErrDatabase:
			code = codes.Internal
		}

	case errors.As(err, &le):
		switch le.ErrorCode {
		case ledger.ErrInvalidAddress, ledger.ErrInvalidMsg:
			code = codes.InvalidArgument
		case ledger.ErrNoContract, ledger.ErrUnknownCode:
			code = codes.NotFound
		case ledger.ErrUnsupportedMsg, ledger.ErrNoReplyHandler:
			code = codes.Unimplemented
		case ledger.ErrCodeExists:
			code = codes.AlreadyExists
		case ledger.ErrCallDepth:
			code = codes.ResourceExhausted
		case ledger.ErrDatabase, ledger.ErrNotOpen:
			code = codes.Internal
		}
	}
	return status.Error(code, err.Error())
}
