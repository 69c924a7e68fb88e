// Command ledgerctl runs the ledger's scheduled jobs by hand: exchange rate
// refresh, budget rollover and fixed expense generation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dualledger/internal/app"
	"dualledger/internal/config"
	"dualledger/internal/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate a DualLedger installation",
		Long:          `ledgerctl runs the jobs the API server schedules (rate refresh, budget rollover, fixed expense generation) against the configured database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(rateCmd())
	root.AddCommand(rolloverCmd())
	root.AddCommand(fixedCmd())
	root.AddCommand(tokenCmd())

	return root
}

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads configuration, wires the application and hands it to fn.
func withApp(fn func(a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a, err := app.New(cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Named("ledgerctl").Warnw("failed to close database", "error", closeErr)
		}
	}()
	return fn(a)
}

// printJSON writes v indented to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
