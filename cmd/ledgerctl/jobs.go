package main

import (
	"time"

	"github.com/spf13/cobra"

	"dualledger/internal/app"
)

// periodFlags binds --month and --year, defaulting to the month offset
// months away from now.
func periodFlags(cmd *cobra.Command, offset int) (*int, *int) {
	ref := time.Now().UTC()
	ref = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, offset, 0)
	month := cmd.Flags().Int("month", int(ref.Month()), "month (1-12)")
	year := cmd.Flags().Int("year", ref.Year(), "year")
	return month, year
}

func rolloverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rollover",
		Short: "Carry unspent budget allowance into the following month",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Close a month for every user (defaults to last month)",
		Args:  cobra.NoArgs,
	}
	month, year := periodFlags(run, -1)
	run.RunE = func(cmd *cobra.Command, _ []string) error {
		return withApp(func(a *app.App) error {
			report, err := a.Budgets.RunRolloverForAll(cmd.Context(), *month, *year)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		})
	}
	cmd.AddCommand(run)

	return cmd
}

func fixedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fixed",
		Short: "Manage recurring expense generation",
	}

	generate := &cobra.Command{
		Use:   "generate",
		Short: "Create this month's fixed expense transactions for every user",
		Args:  cobra.NoArgs,
	}
	month, year := periodFlags(generate, 0)
	generate.RunE = func(cmd *cobra.Command, _ []string) error {
		return withApp(func(a *app.App) error {
			created, err := a.FixedExpenses.GenerateForAll(cmd.Context(), *month, *year)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]int{"month": *month, "year": *year, "transactions_created": created})
		})
	}
	cmd.AddCommand(generate)

	return cmd
}
