// Command intake-tracker is the operator CLI: scan sources, inspect the pending queue and review records.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/internal/app"
	"github.com/joseph-ayodele/intake-tracker/internal/common"
	"github.com/joseph-ayodele/intake-tracker/internal/logging"
)

var (
	flagBaseDir string
	flagNoLLM   bool
	flagLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "intake-tracker",
	Short:         "Extract client and invoice data from source documents into a review queue",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseDir, "base-dir", "", "source directory holding forms/, emails/ and invoices/ (overrides BASE_DIR)")
	rootCmd.PersistentFlags().BoolVar(&flagNoLLM, "no-llm", false, "use only the rule-based extractors")
	rootCmd.PersistentFlags().StringVar(&flagLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openApp loads configuration, applies flag overrides and builds the components.
func openApp(ctx context.Context) (*app.App, error) {
	cfg := common.LoadConfig()
	if flagBaseDir != "" {
		cfg.Sources.BaseDir = flagBaseDir
	}
	if flagNoLLM {
		cfg.LLM.Enabled = false
	}
	if flagLevel != "" {
		cfg.Log.Level = flagLevel
	}
	// console logs unless LOG_FORMAT asks otherwise
	if cfg.Log.Format == "json" && os.Getenv("LOG_FORMAT") == "" {
		cfg.Log.Format = "console"
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("cli.config.invalid", zap.Error(err))
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}
