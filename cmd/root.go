package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "flasharb",
	Short: "Cross-venue flash loan arbitrage bot",
	Long: `Flash loan arbitrage bot that scans an external price feed for
cross-venue spreads on monitored tokens and executes atomic
borrow-swap-swap-repay round trips against a ledger simulation.

The bot exposes an HTTP control surface for deploying the engine,
starting and stopping the control loop, and inspecting opportunities.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
