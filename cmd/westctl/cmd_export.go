package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Roughriver74/west-rashod-sub001/internals/schemas"
	"github.com/Roughriver74/west-rashod-sub001/internals/timeouts"
)

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export dashboard data",
	}
	cmd.AddCommand(newExportTransactionsCommand())
	return cmd
}

func newExportTransactionsCommand() *cobra.Command {
	var (
		output   string
		dateFrom string
		dateTo   string
		category string
	)
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Export transactions as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()

			out := os.Stdout
			if output != "" && output != "-" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				out = file
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeouts.Request)
			defer cancel()
			filter := schemas.TransactionFilter{
				DateFrom: dateFrom,
				DateTo:   dateTo,
				Category: category,
			}
			if err := client.ExportTransactionsCSV(ctx, filter, out); err != nil {
				return err
			}
			if out != os.Stdout {
				fmt.Fprintf(os.Stderr, "wrote %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&dateFrom, "from", "", "period start, YYYY-MM-DD")
	cmd.Flags().StringVar(&dateTo, "to", "", "period end, YYYY-MM-DD")
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	return cmd
}
