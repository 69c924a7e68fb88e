package main

import (
	"github.com/spf13/cobra"

	"dualledger/internal/app"
)

func rateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Inspect and refresh the exchange rate",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "current",
		Short: "Print the current rate, refreshing it when expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.App) error {
				quote, err := a.Rates.CurrentRate(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, quote)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle against the rate source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.App) error {
				result := a.Refresher.RunOnce(cmd.Context())
				if result.Err != nil {
					return result.Err
				}
				return printJSON(cmd, result.Sample)
			})
		},
	})

	var limit int
	history := &cobra.Command{
		Use:   "history",
		Short: "Print stored rate samples, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(func(a *app.App) error {
				samples, err := a.Rates.RateHistory(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printJSON(cmd, samples)
			})
		},
	}
	history.Flags().IntVar(&limit, "limit", 30, "number of samples")
	cmd.AddCommand(history)

	return cmd
}
