package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*VerificationServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListCertificateValidity",
			Handler: unaryHandler("ListCertificateValidity", func(srv VerificationServer) unaryMethod {
				return srv.ListCertificateValidity
			}),
		},
		{
			MethodName: "CheckEligibility",
			Handler: unaryHandler("CheckEligibility", func(srv VerificationServer) unaryMethod {
				return srv.CheckEligibility
			}),
		},
		{
			MethodName: "VerifyLocation",
			Handler: unaryHandler("VerifyLocation", func(srv VerificationServer) unaryMethod {
				return srv.VerifyLocation
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "securyflex/verification/v1/verification.proto",
}

type unaryMethod func(context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryHandler builds the grpc.MethodHandler for one Struct-in/Struct-out method.
func unaryHandler(name string, pick func(VerificationServer) unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + ServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		method := pick(srv.(VerificationServer))
		if interceptor == nil {
			return method(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return method(ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
