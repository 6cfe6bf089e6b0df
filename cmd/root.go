// Package cmd defines and implements the CLI commands for the
// estate-harvester executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estate-harvester",
		Short: "A two-phase harvester for real-estate listing portals.",
		Long: `estate-harvester walks a portal's paginated list views, follows each
listing to its detail page, and consolidates the enriched records into
per-page batches plus a final CSV. Transient page loads are retried with a
linear cooldown; politeness delays keep the request cadence unremarkable.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default searches ., /etc/estate-harvester, $HOME/.estate-harvester)")
	cmd.AddCommand(newHarvestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
