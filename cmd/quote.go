package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/msandoval/flasharb/pkg/httpserver"
)

//nolint:gochecknoglobals // Cobra boilerplate
var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Probe a round-trip quote on the running bot's engine",
	Long: `Asks the running bot's engine for a two-leg round-trip quote on the
primary venue: token-a to token-b at fee1, then back at fee2. The result
says whether the trip clears the configured profit threshold.

The engine must be deployed (POST /deploy) first.`,
	RunE: runQuote,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.Flags().String("server", "", "Bot control API base URL (default from HTTP_PORT)")
	quoteCmd.Flags().String("token-a", "", "Input token address (required)")
	quoteCmd.Flags().String("token-b", "", "Intermediate token address (required)")
	quoteCmd.Flags().Uint32("fee1", 3000, "Fee tier for the outbound leg")
	quoteCmd.Flags().Uint32("fee2", 3000, "Fee tier for the return leg")
	quoteCmd.Flags().String("amount", "", "Probe amount in base units (required)")
	_ = quoteCmd.MarkFlagRequired("token-a")
	_ = quoteCmd.MarkFlagRequired("token-b")
	_ = quoteCmd.MarkFlagRequired("amount")
}

func runQuote(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	tokenA, _ := cmd.Flags().GetString("token-a")
	tokenB, _ := cmd.Flags().GetString("token-b")
	fee1, _ := cmd.Flags().GetUint32("fee1")
	fee2, _ := cmd.Flags().GetUint32("fee2")
	amount, _ := cmd.Flags().GetString("amount")

	if !common.IsHexAddress(tokenA) || !common.IsHexAddress(tokenB) {
		return fmt.Errorf("token-a and token-b must be hex addresses")
	}

	if server == "" {
		server = defaultServerURL()
	}

	var resp httpserver.QuoteResponse
	err := postJSON(server, "/quote", httpserver.QuoteRequest{
		TokenA:     tokenA,
		TokenB:     tokenB,
		FeeLeg1:    fee1,
		FeeLeg2:    fee2,
		TestAmount: amount,
	}, &resp)
	if err != nil {
		return err
	}

	return printJSON(resp)
}
