package main

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/joseph-ayodele/intake-tracker/constants"
	"github.com/joseph-ayodele/intake-tracker/internal/entity"
	"github.com/joseph-ayodele/intake-tracker/internal/export"
)

var approveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Write a record to the spreadsheet and remove it from the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		rec, ok, err := a.Queue.GetByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		res, err := a.Review.Approve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !res.Success {
			return errors.New(res.Error)
		}
		label := fmt.Sprint(*res.SheetRow)
		if ok {
			label = export.RowLabel(export.SheetFor(rec), *res.SheetRow)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "approved %s -> %s (%s)\n", args[0], label, a.Sheets.Path())
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Remove a record from the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Review.Reject(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rejected %s\n", args[0])
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of a pending record",
	Example: `  intake-tracker edit 3f2a... --email=maria@example.gr --priority=high
  intake-tracker edit 3f2a... --amount=850 --vat=204 --total_amount=1054`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		upd, err := updateFromFlags(cmd.Flags())
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Review.Edit(cmd.Context(), args[0], upd)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

var editableText = []string{
	constants.FieldClientName, constants.FieldEmail, constants.FieldPhone, constants.FieldCompany,
	constants.FieldServiceInterest, constants.FieldPriority, constants.FieldMessage, constants.FieldDate,
	constants.FieldInvoiceNumber,
}

var editableNumbers = []string{
	constants.FieldAmount, constants.FieldVAT, constants.FieldTotalAmount, constants.FieldConfidence,
}

// updateFromFlags builds a RecordUpdate from the flags the user actually set.
func updateFromFlags(fs *pflag.FlagSet) (entity.RecordUpdate, error) {
	raw := map[string]any{}
	for _, name := range editableText {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			raw[name] = v
		}
	}
	for _, name := range editableNumbers {
		if fs.Changed(name) {
			v, _ := fs.GetFloat64(name)
			raw[name] = v
		}
	}
	var upd entity.RecordUpdate
	b, err := json.Marshal(raw)
	if err != nil {
		return upd, err
	}
	if err := json.Unmarshal(b, &upd); err != nil {
		return upd, err
	}
	if upd.IsEmpty() {
		return upd, errors.New("no fields given; see --help")
	}
	return upd, nil
}

func init() {
	for _, name := range editableText {
		editCmd.Flags().String(name, "", "new "+name)
	}
	for _, name := range editableNumbers {
		editCmd.Flags().Float64(name, 0, "new "+name)
	}
	rootCmd.AddCommand(approveCmd, rejectCmd, editCmd)
}
