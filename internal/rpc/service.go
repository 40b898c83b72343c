package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the gRPC service name under which the four ring
// operations are registered.
const ServiceName = "chordkv.Ring"

// Server is implemented by anything that can answer the four ring
// operations. The node package's rpc handlers implement this.
type Server interface {
	Whois(ctx context.Context, req *WhoisRequest) (*WhoisResponse, error)
	Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error)
	Get(ctx context.Context, req *GetRequest) (*GetResponse, error)
	Set(ctx context.Context, req *SetRequest) (*SetResponse, error)
}

func whoisHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(WhoisRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Whois(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Whois"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Whois(ctx, req.(*WhoisRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func lookupHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(LookupRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Lookup(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Lookup"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Lookup(ctx, req.(*LookupRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Get(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Get"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Get(ctx, req.(*GetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func setHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).Set(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ServiceName + "/Set"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(Server).Set(ctx, req.(*SetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// serviceDesc mirrors the shape protoc-gen-go-grpc would emit for a
// four-method unary service, hand-written because no .proto/generator step
// is available in this build.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Whois", Handler: whoisHandler},
		{MethodName: "Lookup", Handler: lookupHandler},
		{MethodName: "Get", Handler: getHandler},
		{MethodName: "Set", Handler: setHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chordkv/ring.proto",
}

// RegisterServer registers srv on s under the ring service.
func RegisterServer(s grpc.ServiceRegistrar, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}

// Client is the node-to-node RPC client stub for the ring service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection as a ring RPC client.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Whois(ctx context.Context, req *WhoisRequest, opts ...grpc.CallOption) (*WhoisResponse, error) {
	out := new(WhoisResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/Whois", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Lookup(ctx context.Context, req *LookupRequest, opts ...grpc.CallOption) (*LookupResponse, error) {
	out := new(LookupResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/Lookup", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, req *GetRequest, opts ...grpc.CallOption) (*GetResponse, error) {
	out := new(GetResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/Get", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Set(ctx context.Context, req *SetRequest, opts ...grpc.CallOption) (*SetResponse, error) {
	out := new(SetResponse)
	if err := c.cc.Invoke(ctx, ServiceName+"/Set", req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
