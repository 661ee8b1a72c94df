package app

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/msandoval/flasharb/internal/ledger"
	"github.com/msandoval/flasharb/internal/lending"
	"github.com/msandoval/flasharb/internal/venue"
	"github.com/msandoval/flasharb/pkg/config"
	"github.com/msandoval/flasharb/pkg/wallet"
)

// flatFeePPM is the alternate venue's uniform swap fee (0.3%).
const flatFeePPM = 3000

// tokenDecimals assumed for monitored tokens.
const tokenDecimals = 18

// deriveAddress maps a stable label to a ledger address.
func deriveAddress(label string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(label))[12:])
}

// scaleUnits converts whole units to base units at the given decimals.
func scaleUnits(units uint64, decimals int) *big.Int {
	scaled := new(big.Int).SetUint64(units)
	for i := 0; i < decimals; i++ {
		scaled.Mul(scaled, big.NewInt(10))
	}
	return scaled
}

func setupVenues(cfg *config.Config, logger *zap.Logger) (*venue.AMM, *venue.FlatFeeAMM) {
	primary := venue.NewAMM(cfg.PrimaryVenue, logger)
	alternate := venue.NewFlatFeeAMM(cfg.AlternateVenue, flatFeePPM, logger)
	return primary, alternate
}

// seedGenesis mints the simulation's initial state: facility liquidity,
// operator working capital, and one pool per monitored token on each venue.
// The alternate venue's quote reserve is skewed so the two venues open with
// a small spread.
func seedGenesis(cfg *config.Config, led *ledger.Ledger, signer *wallet.Signer,
	facility *lending.Facility, primary *venue.AMM, alternate *venue.FlatFeeAMM,
) {
	quote := cfg.QuoteAsset

	led.Mint(quote, facility.Address(), scaleUnits(cfg.GenesisFacilityLiquidity, cfg.QuoteAssetDecimals))
	led.Mint(quote, signer.Address(), scaleUnits(cfg.GenesisOperatorBalance, cfg.QuoteAssetDecimals))
	led.MintNative(signer.Address(), scaleUnits(10, 18))

	tokenReserve := scaleUnits(cfg.GenesisPoolTokenReserve, tokenDecimals)
	quoteReserve := scaleUnits(cfg.GenesisPoolQuoteReserve, cfg.QuoteAssetDecimals)

	skewed := new(big.Int).Mul(quoteReserve, new(big.Int).SetUint64(10_000+cfg.GenesisAlternateSkewBPS))
	skewed.Div(skewed, big.NewInt(10_000))

	for _, token := range cfg.MonitoredTokens {
		primaryPool := deriveAddress(fmt.Sprintf("flasharb/pool/%s/%s", cfg.PrimaryVenue, token.Hex()))
		led.Mint(token, primaryPool, new(big.Int).Set(tokenReserve))
		led.Mint(quote, primaryPool, new(big.Int).Set(quoteReserve))

		// The same pool backs both configured fee tiers.
		primary.AddPool(token, quote, cfg.DefaultFeeLeg1, primaryPool)
		if cfg.DefaultFeeLeg2 != cfg.DefaultFeeLeg1 {
			primary.AddPool(token, quote, cfg.DefaultFeeLeg2, primaryPool)
		}

		alternatePool := deriveAddress(fmt.Sprintf("flasharb/pool/%s/%s", cfg.AlternateVenue, token.Hex()))
		led.Mint(token, alternatePool, new(big.Int).Set(tokenReserve))
		led.Mint(quote, alternatePool, new(big.Int).Set(skewed))
		alternate.AddPool(token, quote, alternatePool)
	}
}
