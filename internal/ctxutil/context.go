// Package ctxutil provides small context helpers shared by RPC handlers:
// cancellation-to-status mapping and a hop counter for relayed requests.
package ctxutil

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type hopsKey struct{}

// WithHops initializes the hop counter at 0 on ctx.
func WithHops(ctx context.Context) context.Context {
	return context.WithValue(ctx, hopsKey{}, 0)
}

// Hops returns the current hop counter, or -1 if none was set.
func Hops(ctx context.Context) int {
	if v, ok := ctx.Value(hopsKey{}).(int); ok {
		return v
	}
	return -1
}

// IncHops increments the hop counter if present; otherwise returns ctx
// unchanged.
func IncHops(ctx context.Context) context.Context {
	if v, ok := ctx.Value(hopsKey{}).(int); ok {
		return context.WithValue(ctx, hopsKey{}, v+1)
	}
	return ctx
}

// CheckContext maps a canceled or expired context to the corresponding
// gRPC status error; nil if the context is still active. RPC handlers
// call this before doing any work.
func CheckContext(ctx context.Context) error {
	switch err := ctx.Err(); {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled by client")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded")
	default:
		return nil
	}
}
