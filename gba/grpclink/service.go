package grpclink

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"vfdump/gba"
	"vfdump/gba/link"
)

const execMethod = "/vfdump.link.Bus/Exec"

// BusServer executes encoded link requests.
type BusServer interface {
	Exec(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

var busServiceDesc = grpc.ServiceDesc{
	ServiceName: "vfdump.link.Bus",
	HandlerType: (*BusServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Exec",
			Handler:    execHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vfdump/link.proto",
}

func execHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BusServer).Exec(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: execMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(BusServer).Exec(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

type busServer struct {
	server *link.Server
}

func (s *busServer) Exec(_ context.Context, req *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return wrapperspb.Bytes(s.server.Exec(req.GetValue())), nil
}

// Register serves bus on s. Requests are executed one at a time.
func Register(s *grpc.Server, bus gba.Bus) {
	RegisterServer(s, link.NewServer(bus))
}

// RegisterServer serves a link server that may be shared with other transports.
func RegisterServer(s *grpc.Server, server *link.Server) {
	s.RegisterService(&busServiceDesc, &busServer{server: server})
}
