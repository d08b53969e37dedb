package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/intake-tracker/internal/app"
	"github.com/joseph-ayodele/intake-tracker/internal/async"
	"github.com/joseph-ayodele/intake-tracker/internal/common"
	"github.com/joseph-ayodele/intake-tracker/internal/ingest"
	"github.com/joseph-ayodele/intake-tracker/internal/logging"
	"github.com/joseph-ayodele/intake-tracker/internal/notify"
	"github.com/joseph-ayodele/intake-tracker/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "intaked: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := common.LoadConfig()

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Error("intaked.config.invalid", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("intaked.startup.failed", zap.Error(err))
		return err
	}
	defer a.Close()

	hub := notify.NewHub(cfg.Server.CORSOrigins, logger)
	sub := a.Queue.Subscribe()
	defer sub.Unsubscribe()

	srv, err := server.NewServer(a.Extraction, a.Queue, a.Review, hub, server.Config{
		Addr:        cfg.Server.HTTPAddr,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, logger)
	if err != nil {
		return err
	}

	// gRPC health for orchestrator probes
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)
	lis, err := net.Listen("tcp", cfg.Server.GRPCHealthAddr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", cfg.Server.GRPCHealthAddr)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hub.Run(gctx, sub) })
	g.Go(srv.Start)
	g.Go(func() error {
		logger.Info("intaked.grpc.start", zap.String("addr", cfg.Server.GRPCHealthAddr))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error { return watchStoreHealth(gctx, a, hs, logger) })

	if cfg.Sources.Watch {
		items, werrs, err := ingest.StartWatcher(gctx, ingest.WatchConfig{
			BaseDir:     cfg.Sources.BaseDir,
			InitialScan: true,
			Debounce:    cfg.Sources.WatchDebounce,
		}, logger)
		if err != nil {
			return err
		}
		pool := async.NewProcessorQueue(a.Extraction, logger,
			async.WithWorkers(cfg.Sources.WatchWorkers),
			async.WithProcessTimeout(cfg.Extraction.FileTimeout+5*time.Second),
		)
		g.Go(func() error {
			defer pool.Shutdown(context.Background())
			return pool.Pump(gctx, items)
		})
		g.Go(func() error {
			for err := range werrs {
				logger.Warn("intaked.watcher.error", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("intaked.shutdown")
		hs.Shutdown()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return srv.Shutdown(sctx)
	})

	logger.Info("intaked.ready",
		zap.String("http", cfg.Server.HTTPAddr),
		zap.String("base_dir", cfg.Sources.BaseDir),
		zap.Bool("watch", cfg.Sources.Watch),
		zap.Bool("llm", cfg.LLM.Enabled),
	)
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error("intaked.exit", zap.Error(err))
		return err
	}
	return nil
}

// watchStoreHealth flips the gRPC status when the queue store stops answering.
func watchStoreHealth(ctx context.Context, a *app.App, hs *health.Server, logger *zap.Logger) error {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	serving := true
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.Queue.Ping(pctx)
			cancel()
			switch {
			case err != nil && serving:
				logger.Warn("intaked.store.unhealthy", zap.Error(err))
				hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
				serving = false
			case err == nil && !serving:
				logger.Info("intaked.store.recovered")
				hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
				serving = true
			}
		}
	}
}
