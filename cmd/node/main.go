package main

import (
	"chordkv/internal/bootstrap"
	"chordkv/internal/config"
	"chordkv/internal/logger"
	zapfactory "chordkv/internal/logger/zap"
	"chordkv/internal/node"
	"chordkv/internal/peer"
	"chordkv/internal/ring"
	"chordkv/internal/router"
	"chordkv/internal/server"
	"chordkv/internal/store"
	"chordkv/internal/telemetry"
	"chordkv/internal/telemetry/lookuptrace"
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"google.golang.org/grpc"
)

var defaultConfigPath = "config/node/config.yaml"

// bootstrapRetries bounds how many extra attempts Run makes to dial the
// seed before giving up, covering the case where two nodes are started
// back to back and the seed's listener is not quite up yet.
const bootstrapRetries = 5

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	lis, advertised, err := server.Listen(cfg.Node.Bind, cfg.Node.Host, cfg.Node.Port)
	if err != nil {
		lgr.Error("failed to initialize listener", logger.F("err", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = lis.Close() }()
	lgr.Debug("created listener", logger.F("addr", advertised))

	space, err := ring.NewSpace(cfg.Ring.Bits)
	if err != nil {
		lgr.Error("failed to initialize ring space", logger.F("err", err.Error()))
		os.Exit(1)
	}

	self := peer.Info{KeySlot: ring.ID(cfg.Ring.KeySlot), Addr: advertised}
	lgr = lgr.Named("node").With(logger.F("key_slot", uint64(self.KeySlot)), logger.F("addr", self.Addr))
	lgr.Info("node initializing")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry, "chordkv-node", uint64(self.KeySlot), lgr)
	if err != nil {
		lgr.Error("failed to initialize tracing", logger.F("err", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	rtr := router.New(space, self, lgr, nil)
	st := store.New(lgr)
	n := node.New(rtr, st, lgr)

	var grpcOpts []grpc.ServerOption
	if cfg.Telemetry.Tracing.Enabled {
		grpcOpts = append(grpcOpts, grpc.ChainUnaryInterceptor(lookuptrace.ServerInterceptor()))
		lgr.Debug("gRPC tracing enabled")
	}

	srv := server.New(lis, n, grpcOpts, server.WithLogger(lgr.Named("server")))

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()
	lgr.Debug("server started")

	seedAddr, err := bootstrap.ResolveSeed(ctx, cfg.Ring.Bootstrap)
	if err != nil {
		lgr.Error("failed to resolve bootstrap seed", logger.F("err", err.Error()))
		srv.Stop()
		os.Exit(1)
	}
	if err := bootstrap.Run(ctx, rtr, seedAddr, bootstrapRetries, lgr); err != nil {
		lgr.Error("bootstrap failed, node stays up without a route", logger.F("err", err.Error()))
	}

	var registrar *bootstrap.Registrar
	if cfg.Ring.Bootstrap.Register.Enabled {
		registrar, err = bootstrap.NewRegistrar(ctx, cfg.Ring.Bootstrap.Register)
		if err != nil {
			lgr.Error("failed to initialize registrar", logger.F("err", err.Error()))
		} else {
			host, portStr, splitErr := net.SplitHostPort(advertised)
			port, atoiErr := strconv.Atoi(portStr)
			if splitErr != nil || atoiErr != nil {
				lgr.Error("failed to parse advertised address", logger.F("addr", advertised))
			} else if err := registrar.Register(ctx, uint64(self.KeySlot), host, port); err != nil {
				lgr.Error("failed to register node", logger.F("err", err.Error()))
			} else {
				lgr.Info("node registered")
				defer func() {
					deregCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					if err := registrar.Deregister(deregCtx, uint64(self.KeySlot), host, port); err != nil {
						lgr.Warn("failed to deregister node", logger.F("err", err.Error()))
					}
				}()
			}
		}
	}

	select {
	case <-ctx.Done():
		lgr.Info("shutdown signal received, stopping server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
			lgr.Info("server stopped gracefully")
		case <-shutdownCtx.Done():
			lgr.Warn("graceful stop timed out, forcing shutdown")
			srv.Stop()
		}
	case err := <-serveErr:
		lgr.Error("gRPC server terminated unexpectedly", logger.F("err", err.Error()))
		os.Exit(1)
	}
}
