package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/intake-tracker/internal/entity"
	"github.com/joseph-ayodele/intake-tracker/internal/extract"
	"github.com/joseph-ayodele/intake-tracker/internal/ingest"
	"github.com/joseph-ayodele/intake-tracker/internal/services/extraction"
)

var (
	extractTimes   int
	extractVerbose bool
)

// extractCmd runs the hybrid extractor against one file without touching the queue.
// Repeating it is useful for checking how stable AI confidence is on a document.
var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Dry-run extraction on a single source file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, err := ingest.Route(args[0])
		if err != nil {
			return err
		}
		doc, err := extract.ReadDocument(args[0], typ)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		for i := 1; i <= extractTimes; i++ {
			runCtx, cancel := context.WithTimeout(cmd.Context(), a.Config.Extraction.FileTimeout)
			start := time.Now()
			res, err := a.Selector.Extract(runCtx, doc)
			cancel()
			if err != nil {
				a.Logger.Error("cli.extract.failed", zap.Int("iter", i), zap.String("path", doc.Path), zap.Error(err))
				return err
			}
			errs, warns := entity.CountBySeverity(res.Warnings)
			fmt.Fprintf(out, "#%d %s method=%s score=%.3f errors=%d warnings=%d (%s)\n",
				i, typ, res.Method, extraction.Score(typ, res), errs, warns, time.Since(start).Round(time.Millisecond))
			if extractVerbose {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res.Fields); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().IntVar(&extractTimes, "times", 1, "number of runs")
	extractCmd.Flags().BoolVarP(&extractVerbose, "verbose", "v", false, "print extracted fields")
	rootCmd.AddCommand(extractCmd)
}
