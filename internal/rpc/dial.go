package rpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Dial opens a client connection to addr configured to use the JSON codec
// and plaintext transport, plus any caller-supplied options (e.g. an otel
// unary interceptor).
func Dial(addr string, extra ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	}, extra...)
	return grpc.NewClient(addr, opts...)
}

// ServerOption returns the server option a grpc.Server must be constructed
// with so that it decodes the JSON codec regardless of the content-subtype
// a client sent.
func ServerOption() grpc.ServerOption {
	return grpc.ForceServerCodec(jsonCodec{})
}
