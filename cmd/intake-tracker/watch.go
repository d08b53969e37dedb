package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/internal/async"
	"github.com/joseph-ayodele/intake-tracker/internal/ingest"
)

var watchWorkers int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process existing and newly dropped source files until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		items, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			BaseDir:     a.Config.Sources.BaseDir,
			InitialScan: true,
			Debounce:    a.Config.Sources.WatchDebounce,
		}, a.Logger)
		if err != nil {
			return err
		}
		go func() {
			for err := range errs {
				a.Logger.Warn("cli.watch.error", zap.Error(err))
			}
		}()

		workers := a.Config.Sources.WatchWorkers
		if watchWorkers > 0 {
			workers = watchWorkers
		}
		pool := async.NewProcessorQueue(a.Extraction, a.Logger,
			async.WithWorkers(workers),
			async.WithProcessTimeout(a.Config.Extraction.FileTimeout+5*time.Second),
		)
		a.Logger.Info("cli.watch.started", zap.String("base_dir", a.Config.Sources.BaseDir), zap.Int("workers", workers))

		err = pool.Pump(ctx, items)
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		pool.Shutdown(sctx)
		return err
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchWorkers, "workers", 0, "worker count (overrides WATCH_WORKERS)")
	rootCmd.AddCommand(watchCmd)
}
