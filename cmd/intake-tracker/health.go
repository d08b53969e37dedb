package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/intake-tracker/internal/repository"
)

var healthTimeout time.Duration

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the queue store is reachable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		if err := repository.HealthCheck(cmd.Context(), a.DB, healthTimeout); err != nil {
			fmt.Fprintf(out, "store (%s): FAIL (%v)\n", a.DB.Dialect, err)
			return err
		}
		n, err := a.Queue.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "store (%s): OK\npending records: %d\n", a.DB.Dialect, n)
		return nil
	},
}

func init() {
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", time.Second, "ping timeout")
	rootCmd.AddCommand(healthCmd)
}
