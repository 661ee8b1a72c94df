package app

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap/zaptest"

	"github.com/msandoval/flasharb/internal/engine"
	"github.com/msandoval/flasharb/pkg/config"
	"github.com/msandoval/flasharb/pkg/httpserver"
	"github.com/msandoval/flasharb/pkg/types"
)

var (
	wethAddr = common.HexToAddress("0x7ceb23fd6bc0add59e62ac25578270cff1b9f619")
	usdcAddr = common.HexToAddress("0x2791bca1f2de4661ed88a30c99a7a9449aa84174")
)

func testAppConfig(feedURL string) *config.Config {
	return &config.Config{
		LogLevel: "debug",
		HTTPPort: "0",

		FeedBaseURL:  feedURL,
		FeedTimeout:  5 * time.Second,
		FeedCacheTTL: time.Millisecond,
		Network:      "polygon",

		MonitoredTokens:    []common.Address{wethAddr},
		QuoteAsset:         usdcAddr,
		QuoteAssetDecimals: 6,

		ScanMinLiquidity:  50_000,
		ScanDeltaLowerPct: 0.5,
		ScanDeltaUpperPct: 20,
		ScanMaxPriceRatio: 10,
		ScanPriceBandMin:  1e-9,
		ScanPriceBandMax:  1e9,
		ScanTopK:          10,

		ScanInterval:     10 * time.Millisecond,
		CooldownInterval: 10 * time.Millisecond,
		ExecThresholdPct: 1.5,
		LoanFraction:     0.1,
		GasAdjustmentPct: 10,
		WorkBudget:       1_000_000,
		DefaultFeeLeg1:   3000,
		DefaultFeeLeg2:   3000,

		MinProfitBPS:   50,
		MaxGasPriceWei: 300_000_000_000,
		MaxSlippageBPS: 1_000,

		LoanPremiumBPS: 9,

		GasOracleMode:     "static",
		StaticGasPriceWei: 40_000_000_000,

		PrimaryVenue:   "uniswap",
		AlternateVenue: "quickswap",

		BreakerCheckInterval:  time.Minute,
		BreakerLoanMultiplier: 3,
		BreakerMinAbsolute:    1_000,
		BreakerHysteresis:     1.5,

		GenesisFacilityLiquidity: 10_000_000,
		GenesisOperatorBalance:   100_000,
		GenesisPoolQuoteReserve:  2_000_000,
		GenesisPoolTokenReserve:  1_000,
		GenesisAlternateSkewBPS:  500,

		StorageMode: "console",
	}
}

// feedHandler serves a fixed two-venue spread for the monitored token.
func feedHandler(priceA, priceB float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"pairs":[
			{"chainId":"polygon","dexId":"uniswap","priceUsd":"%f",
			 "baseToken":{"address":"%s","symbol":"WETH"},
			 "quoteToken":{"address":"%s","symbol":"USDC"},
			 "liquidity":{"usd":200000},"volume":{"h24":1000000}},
			{"chainId":"polygon","dexId":"quickswap","priceUsd":"%f",
			 "baseToken":{"address":"%s","symbol":"WETH"},
			 "quoteToken":{"address":"%s","symbol":"USDC"},
			 "liquidity":{"usd":100000},"volume":{"h24":800000}}
		]}`, priceA, wethAddr.Hex(), usdcAddr.Hex(), priceB, wethAddr.Hex(), usdcAddr.Hex())
	}
}

func TestApp_DeployLifecycle(t *testing.T) {
	t.Parallel()

	a, err := New(testAppConfig("http://127.0.0.1:0"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer a.cancel()

	// Start before deploy is rejected.
	if err := a.StartBot(); !errors.Is(err, httpserver.ErrNotDeployed) {
		t.Errorf("expected ErrNotDeployed, got %v", err)
	}

	status := a.Status()
	if status.Deployed || status.Running {
		t.Error("expected undeployed, stopped status")
	}
	if status.WalletAddress == "" {
		t.Error("expected wallet address in status")
	}
	// Operator working capital from genesis: 100k at 6 decimals.
	if status.Balance != "100000000000" {
		t.Errorf("expected genesis operator balance, got %s", status.Balance)
	}

	addr, err := a.Deploy(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if addr == (common.Address{}) {
		t.Fatal("expected non-zero engine address")
	}

	if _, err := a.Deploy(context.Background()); !errors.Is(err, ErrAlreadyDeployed) {
		t.Errorf("expected ErrAlreadyDeployed, got %v", err)
	}

	status = a.Status()
	if !status.Deployed {
		t.Error("expected deployed status")
	}
	if status.EngineAddress != addr.Hex() {
		t.Errorf("expected engine address %s, got %s", addr.Hex(), status.EngineAddress)
	}
}

func TestApp_GenesisEngineRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := testAppConfig("http://127.0.0.1:0")
	a, err := New(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer a.cancel()

	if _, err := a.Deploy(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Genesis skews the alternate venue's quote reserve 5% above the
	// primary's, so a cross-venue round trip on a modest loan clears both
	// fees and the premium.
	amount := big.NewInt(10_000_000_000) // 10k USDC
	params := &types.ArbitrageParams{
		TokenIn:           usdcAddr,
		TokenOut:          wethAddr,
		AmountIn:          amount,
		FeeLeg1:           cfg.DefaultFeeLeg1,
		FeeLeg2:           cfg.DefaultFeeLeg2,
		UseAlternateVenue: true,
	}

	facilityBefore := a.led.BalanceOf(usdcAddr, a.facility.Address())

	outcome, err := a.eng.RequestExecution(context.Background(), a.signer.Address(),
		usdcAddr, amount, params, engine.SubmitOptions{WorkBudget: cfg.WorkBudget})
	if err != nil {
		t.Fatalf("expected successful execution, got %v", err)
	}
	if !outcome.Succeeded {
		t.Fatalf("expected success, got failure reason %s", outcome.FailureReason)
	}
	if outcome.Profit.Sign() <= 0 {
		t.Errorf("expected positive profit, got %s", outcome.Profit)
	}

	// The facility earned exactly the premium.
	premium := a.facility.Premium(amount)
	facilityAfter := a.led.BalanceOf(usdcAddr, a.facility.Address())
	gained := new(big.Int).Sub(facilityAfter, facilityBefore)
	if gained.Cmp(premium) != 0 {
		t.Errorf("expected facility to gain premium %s, got %s", premium, gained)
	}

	// Profit net of premium stays with the engine until withdrawn.
	engineBalance := a.led.BalanceOf(usdcAddr, a.eng.Address())
	wantRetained := new(big.Int).Sub(outcome.Profit, premium)
	if engineBalance.Cmp(wantRetained) != 0 {
		t.Errorf("expected engine to retain %s, got %s", wantRetained, engineBalance)
	}
}

func TestApp_BotLoopAgainstFeed(t *testing.T) {
	t.Parallel()

	feed := httptest.NewServer(feedHandler(2000, 2100))
	defer feed.Close()

	a, err := New(testAppConfig(feed.URL), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer a.cancel()

	if _, err := a.Deploy(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := a.StartBot(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := a.StartBot(); err == nil {
		t.Error("expected error starting a running bot")
	}

	deadline := time.After(5 * time.Second)
	for len(a.LastOpportunities()) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for scan results")
		case <-time.After(5 * time.Millisecond):
		}
	}

	opps := a.LastOpportunities()
	if opps[0].VenueA == opps[0].VenueB {
		t.Error("expected cross-venue opportunity")
	}

	status := a.Status()
	if !status.Running {
		t.Error("expected running status")
	}

	a.StopBot()

	status = a.Status()
	if status.Running {
		t.Error("expected stopped status")
	}
	if status.State != "idle" {
		t.Errorf("expected idle state after stop, got %s", status.State)
	}

	// Stopping again is a no-op.
	a.StopBot()
}
