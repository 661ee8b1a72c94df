package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/msandoval/flasharb/pkg/httpserver"
)

//nolint:gochecknoglobals // Cobra boilerplate
var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Sweep engine balances to the operator wallet",
	Long: `Transfers the engine's entire balance of a token, or its native
reserve with --reserve, to the operator wallet on the running bot.

The engine must be deployed (POST /deploy) first.`,
	RunE: runWithdraw,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(withdrawCmd)
	withdrawCmd.Flags().String("server", "", "Bot control API base URL (default from HTTP_PORT)")
	withdrawCmd.Flags().String("token", "", "Token address to sweep")
	withdrawCmd.Flags().Bool("reserve", false, "Sweep the native reserve instead of a token")
}

func runWithdraw(cmd *cobra.Command, args []string) error {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	reserve, _ := cmd.Flags().GetBool("reserve")

	if !reserve && !common.IsHexAddress(token) {
		return fmt.Errorf("either --reserve or a hex --token is required")
	}

	if server == "" {
		server = defaultServerURL()
	}

	var resp httpserver.WithdrawResponse
	err := postJSON(server, "/withdraw", httpserver.WithdrawRequest{
		Token:   token,
		Reserve: reserve,
	}, &resp)
	if err != nil {
		return err
	}

	return printJSON(resp)
}
