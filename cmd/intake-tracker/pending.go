package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/intake-tracker/internal/entity"
)

var pendingJSON bool

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Inspect the pending queue",
}

var pendingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records awaiting review",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.Queue.ListAll(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if pendingJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTYPE\tCONFIDENCE\tMETHOD\tCLIENT\tSOURCE")
		for _, r := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Type, confidence(r), r.ExtractionMethod, entity.Deref(r.ClientName), r.SourceFile)
		}
		return tw.Flush()
	},
}

var pendingCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of pending records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Queue.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

var pendingClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every pending record and forget processed files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		n, err := a.Queue.Count(ctx)
		if err != nil {
			return err
		}
		if err := a.Queue.Clear(ctx); err != nil {
			return err
		}
		if err := a.Queue.ClearProcessedFiles(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %d records\n", n)
		return nil
	},
}

func confidence(r entity.ExtractionRecord) string {
	if r.Confidence == nil {
		return "-"
	}
	return fmt.Sprintf("%.3f", *r.Confidence)
}

func init() {
	pendingListCmd.Flags().BoolVar(&pendingJSON, "json", false, "print records as JSON")
	pendingCmd.AddCommand(pendingListCmd, pendingCountCmd, pendingClearCmd)
	rootCmd.AddCommand(pendingCmd)
}
