package rpcserver

import (
	"context"

	"github.com/golang/protobuf/ptypes/wrappers"
	"google.golang.org/grpc"
)

// LedgerServer is the server API of the hostwallet.Ledger service.  Every
// request and response is a JSON document carried in a BytesValue.
type LedgerServer interface {
	Instantiate(context.Context, *wrappers.BytesValue) (*wrappers.BytesValue, error)
	Execute(context.Context, *wrappers.BytesValue) (*wrappers.BytesValue, error)
	Query(context.Context, *wrappers.BytesValue) (*wrappers.BytesValue, error)
	Subscribe(*wrappers.BytesValue, Ledger_SubscribeServer) error
}

// Ledger_SubscribeServer is the server side stream of Subscribe.
type Ledger_SubscribeServer interface {
	Send(*wrappers.BytesValue) error
	grpc.ServerStream
}

// RegisterLedgerServer registers srv with s.
func RegisterLedgerServer(s *grpc.Server, srv LedgerServer) {
	s.RegisterService(&_Ledger_serviceDesc, srv)
}

func _Ledger_Instantiate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrappers.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).Instantiate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/hostwallet.Ledger/Instantiate",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LedgerServer).Instantiate(ctx, req.(*wrappers.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Ledger_Execute_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrappers.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).Execute(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/hostwallet.Ledger/Execute",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LedgerServer).Execute(ctx, req.(*wrappers.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Ledger_Query_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrappers.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).Query(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/hostwallet.Ledger/Query",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(LedgerServer).Query(ctx, req.(*wrappers.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _Ledger_Subscribe_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(wrappers.BytesValue)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(LedgerServer).Subscribe(m, &ledgerSubscribeServer{stream})
}

type ledgerSubscribeServer struct {
	grpc.ServerStream
}

func (x *ledgerSubscribeServer) Send(m *wrappers.BytesValue) error {
	return x.ServerStream.SendMsg(m)
}

var _Ledger_serviceDesc = grpc.ServiceDesc{
	ServiceName: "hostwallet.Ledger",
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Instantiate",
			Handler:    _Ledger_Instantiate_Handler,
		},
		{
			MethodName: "Execute",
			Handler:    _Ledger_Execute_Handler,
		},
		{
			MethodName: "Query",
			Handler:    _Ledger_Query_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       _Ledger_Subscribe_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "hostwallet/ledger.proto",
}

// LedgerClient is the client API of the hostwallet.Ledger service.
type LedgerClient interface {
	Instantiate(ctx context.Context, in *wrappers.BytesValue, opts ...grpc.CallOption) (*wrappers.BytesValue, error)
	Execute(ctx context.Context, in *wrappers.BytesValue, opts ...grpc.CallOption) (*wrappers.BytesValue, error)
	Query(ctx context.Context, in *wrappers.BytesValue, opts ...grpc.CallOption) (*wrappers.BytesValue, error)
	Subscribe(ctx context.Context, in *wrappers.BytesValue, opts ...grpc.CallOption) (Ledger_SubscribeClient, error)
}

type ledgerClient struct {
	cc grpc.ClientConnInterface
}

// NewLedgerClient returns a client of the hostwallet.Ledger service.
func NewLedgerClient(cc grpc.ClientConnInterface) LedgerClient {
	return &ledgerClient{cc}
}

func (c *ledgerClient) Instantiate(ctx context.Context, in *wrappers.BytesValue, opts ...grpc.CallOption) (*wrappers.BytesValue, error) {
	out := new(wrappers.BytesValue)
	err := c.cc.Invoke(ctx, "/hostwallet.Ledger/Instantiate", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Execute(ctx context.Context, in *wrappers.BytesValue, opts ...grpc.CallOption) (*wrappers.BytesValue, error) {
	out := new(wrappers.BytesValue)
	err := c.cc.Invoke(ctx, "/hostwallet.Ledger/Execute", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Query(ctx context.Context, in *wrappers.BytesValue, opts ...grpc.CallOption) (*wrappers.BytesValue, error) {
	out := new(wrappers.BytesValue)
	err := c.cc.Invoke(ctx, "/hostwallet.Ledger/Query", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Subscribe(ctx context.Context, in *wrappers.BytesValue, opts ...grpc.CallOption) (Ledger_SubscribeClient, error) {
	stream, err := c.cc.NewStream(ctx, &_Ledger_serviceDesc.Streams[0], "/hostwallet.Ledger/Subscribe", opts...)
	if err != nil {
		return nil, err
	}
	x := &ledgerSubscribeClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// Ledger_SubscribeClient is the client side stream of Subscribe.
type Ledger_SubscribeClient interface {
	Recv() (*wrappers.BytesValue, error)
	grpc.ClientStream
}

type ledgerSubscribeClient struct {
	grpc.ClientStream
}

func (x *ledgerSubscribeClient) Recv() (*wrappers.BytesValue, error) {
	m := new(wrappers.BytesValue)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
