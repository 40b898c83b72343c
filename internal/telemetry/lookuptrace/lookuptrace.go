// Package lookuptrace instruments the relayed LOOKUP/GET/SET hop chain
// with OpenTelemetry spans, propagated over gRPC metadata across hops, so
// an operator can see how many hops a relayed request actually took.
package lookuptrace

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

const (
	relayedMetaKey = "x-chordkv-relayed"
	tracerName     = "chordkv/lookuptrace"
)

var tracer = otel.Tracer(tracerName)

// WithRelayed marks the outgoing context as part of a relayed request.
func WithRelayed(ctx context.Context) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(relayedMetaKey, "true")
	return metadata.NewOutgoingContext(ctx, md)
}

// IsRelayed reports whether the incoming context belongs to a relayed hop.
func IsRelayed(ctx context.Context) bool {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return false
	}
	values := md.Get(relayedMetaKey)
	return len(values) > 0 && values[0] == "true"
}

// ServerInterceptor creates a span for every Lookup/Get/Set call that
// arrives already marked relayed, or for the first Lookup/Get/Set in a
// chain (so the client-originated hop is also captured).
func ServerInterceptor() grpc.UnaryServerInterceptor {
	propagator := otel.GetTextMapPropagator()

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			ctx = propagator.Extract(ctx, metadataCarrier(md))
		}

		method := info.FullMethod
		if isTraced(method) {
			ctx = WithRelayed(ctx)
			ctx, span := tracer.Start(ctx, method, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
			return handler(ctx, req)
		}
		return handler(ctx, req)
	}
}

// ClientInterceptor propagates the relayed marker and starts a client-side
// span whenever the outgoing call is part of a relayed chain.
func ClientInterceptor() grpc.UnaryClientInterceptor {
	propagator := otel.GetTextMapPropagator()

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if !isTraced(method) {
			return invoker(ctx, method, req, reply, cc, opts...)
		}
		ctx = WithRelayed(ctx)
		ctx, span := tracer.Start(ctx, method, trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		md, _ := metadata.FromOutgoingContext(ctx)
		md = md.Copy()
		propagator.Inject(ctx, metadataCarrier(md))
		ctx = metadata.NewOutgoingContext(ctx, md)

		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func isTraced(method string) bool {
	return strings.HasSuffix(method, "/Lookup") || strings.HasSuffix(method, "/Get") || strings.HasSuffix(method, "/Set")
}

type metadataCarrier metadata.MD

func (mc metadataCarrier) Get(key string) string {
	vals := metadata.MD(mc).Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func (mc metadataCarrier) Set(key, value string) {
	metadata.MD(mc).Set(key, value)
}

func (mc metadataCarrier) Keys() []string {
	out := make([]string, 0, len(mc))
	for k := range mc {
		out = append(out, k)
	}
	return out
}
