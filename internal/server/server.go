// Package server hosts the gRPC server exposing the ring RPC surface.
package server

import (
	"fmt"
	"net"

	"chordkv/internal/logger"
	"chordkv/internal/rpc"

	"google.golang.org/grpc"
)

// Server wraps a gRPC server hosting the ring service.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	lgr        logger.Logger
}

// New creates a server bound to lis, hosting h. grpcOpts are passed through
// to grpc.NewServer in addition to the JSON codec this module requires;
// srvOpts configure the Server wrapper itself (e.g. WithLogger).
func New(lis net.Listener, h rpc.Server, grpcOpts []grpc.ServerOption, srvOpts ...Option) *Server {
	opts := append([]grpc.ServerOption{rpc.ServerOption()}, grpcOpts...)
	s := &Server{
		grpcServer: grpc.NewServer(opts...),
		listener:   lis,
		lgr:        &logger.NopLogger{},
	}
	for _, opt := range srvOpts {
		opt(s)
	}
	rpc.RegisterServer(s.grpcServer, h)
	return s
}

// Start runs the server and blocks until it stops.
func (s *Server) Start() error {
	if err := s.grpcServer.Serve(s.listener); err != nil {
		return fmt.Errorf("gRPC server stopped: %w", err)
	}
	return nil
}

// Stop immediately terminates the server and closes active connections.
func (s *Server) Stop() { s.grpcServer.Stop() }

// GracefulStop waits for in-flight RPCs to finish before stopping.
func (s *Server) GracefulStop() { s.grpcServer.GracefulStop() }
