package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/msandoval/flasharb/internal/scanner"
	"github.com/msandoval/flasharb/pkg/config"
	"github.com/msandoval/flasharb/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan and print the retained opportunities",
	Long: `Queries the price feed once for every monitored token, applies the
retention filters, and prints the ranked opportunity set as JSON.

Useful for tuning filter thresholds without starting the bot.`,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Duration("timeout", 30*time.Second, "Scan timeout")
}

func runScan(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	timeout, _ := cmd.Flags().GetDuration("timeout")

	feed := scanner.NewFeedClient(cfg.FeedBaseURL, cfg.FeedTimeout, nil, 0, logger)

	sc, err := scanner.New(scanner.Config{
		Network:         cfg.Network,
		MonitoredTokens: cfg.MonitoredTokens,
		MinLiquidityUSD: cfg.ScanMinLiquidity,
		DeltaLowerPct:   cfg.ScanDeltaLowerPct,
		DeltaUpperPct:   cfg.ScanDeltaUpperPct,
		MaxPriceRatio:   cfg.ScanMaxPriceRatio,
		PriceBandMin:    cfg.ScanPriceBandMin,
		PriceBandMax:    cfg.ScanPriceBandMax,
		TopK:            cfg.ScanTopK,
		Logger:          logger,
	}, feed)
	if err != nil {
		return fmt.Errorf("create scanner: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	opps, err := sc.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	output, err := formatOpportunities(opps)
	if err != nil {
		return fmt.Errorf("format output: %w", err)
	}

	fmt.Println(output)

	return nil
}

// formatOpportunities renders the retained set as indented JSON. An empty
// set renders as an empty array, not null.
func formatOpportunities(opps []types.Opportunity) (string, error) {
	if opps == nil {
		opps = []types.Opportunity{}
	}

	encoded, err := json.MarshalIndent(opps, "", "  ")
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}
