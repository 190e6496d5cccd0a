package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"heist/cmd"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "heist",
		Short:         "Chat economy bot: accounts, transfers, theft and guided purchases",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(c *cobra.Command, _ []string) error {
			// Handle graceful shutdown
			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return cmd.Run(ctx)
		},
	}
	rootCmd.SetContext(context.Background())

	rootCmd.AddCommand(
		newMigrateCmd(),
		newOddsCmd(),
	)
	return rootCmd
}
