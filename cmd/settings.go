package cmd

import (
	"github.com/spf13/cobra"

	"github.com/msandoval/flasharb/pkg/httpserver"
)

//nolint:gochecknoglobals // Cobra boilerplate
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Update the running bot's execution thresholds",
	Long: `Overwrites the engine's execution thresholds on the running bot.
Values are stored verbatim and take effect on the next submission; in-flight
executions keep the thresholds they started with.

The engine must be deployed (POST /deploy) first.`,
	RunE: runSettings,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.Flags().String("server", "", "Bot control API base URL (default from HTTP_PORT)")
	settingsCmd.Flags().Uint64("min-profit-bps", 0, "Minimum acceptable profit in basis points (required)")
	settingsCmd.Flags().String("max-gas-price", "", "Gas price cap in wei (required)")
	settingsCmd.Flags().Uint64("max-slippage-bps", 0, "Per-leg slippage tolerance in basis points (required)")
	_ = settingsCmd.MarkFlagRequired("min-profit-bps")
	_ = settingsCmd.MarkFlagRequired("max-gas-price")
	_ = settingsCmd.MarkFlagRequired("max-slippage-bps")
}

func runSettings(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	minProfit, _ := cmd.Flags().GetUint64("min-profit-bps")
	maxGasPrice, _ := cmd.Flags().GetString("max-gas-price")
	maxSlippage, _ := cmd.Flags().GetUint64("max-slippage-bps")

	if server == "" {
		server = defaultServerURL()
	}

	var resp map[string]string
	err := postJSON(server, "/settings", httpserver.SettingsRequest{
		MinProfitBPS:   minProfit,
		MaxGasPriceWei: maxGasPrice,
		MaxSlippageBPS: maxSlippage,
	}, &resp)
	if err != nil {
		return err
	}

	return printJSON(resp)
}
