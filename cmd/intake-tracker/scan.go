package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/intake-tracker/internal/services/extraction"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Extract every unprocessed source document into the pending queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Extraction.ScanAndExtract(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, extraction.Describe(res))
		for _, e := range res.Errors {
			fmt.Fprintln(out, "  "+e)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
