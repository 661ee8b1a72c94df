// Package venue abstracts the exchange-specific swap and quote calls the
// engine performs. The engine is written against Adapter only; concrete
// venues register liquidity pools whose reserves live in the ledger, so a
// rolled-back transaction also rolls back every pool it touched.
package venue

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/msandoval/flasharb/internal/ledger"
	"github.com/msandoval/flasharb/pkg/types"
)

var (
	// ErrNoPool is returned when a venue has no pool for the requested
	// pair and fee selector.
	ErrNoPool = errors.New("no pool for pair")

	// ErrInsufficientLiquidity is returned when a pool cannot cover the
	// requested output.
	ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")

	// ErrSlippageExceeded is returned when a swap's output falls below the
	// caller's minimum.
	ErrSlippageExceeded = errors.New("slippage exceeded")
)

// Adapter is one trading venue. Quote and Swap have identical signatures
// across every variant.
type Adapter interface {
	// Name returns the venue identifier as reported by the price feed.
	Name() string

	// Quote returns the expected output of swapping amountIn against pool
	// state as seen through view, without executing. Callers inside a
	// ledger transaction pass their Tx; callers outside pass the ledger's
	// committed view. A missing pool, a drained reserve, or a failed read
	// yields a tagged unavailable quote, never an error.
	Quote(view ledger.Reader, tokenIn, tokenOut common.Address, feeTier uint32, amountIn *big.Int) types.Quote

	// Swap executes the exchange inside tx on behalf of sender, enforcing
	// minAmountOut. Returns the realized output amount.
	Swap(tx *ledger.Tx, sender common.Address, tokenIn, tokenOut common.Address,
		feeTier uint32, amountIn, minAmountOut *big.Int) (*big.Int, error)
}

// pairKey identifies a pool by its ordered pair and fee selector.
type pairKey struct {
	token0  common.Address
	token1  common.Address
	feeTier uint32
}

func newPairKey(tokenA, tokenB common.Address, feeTier uint32) pairKey {
	if tokenA.Cmp(tokenB) > 0 {
		tokenA, tokenB = tokenB, tokenA
	}

	return pairKey{token0: tokenA, token1: tokenB, feeTier: feeTier}
}

// constantProductOut computes the x*y=k swap output for amountIn with the
// fee expressed in millionths (Uniswap fee-tier convention: 3000 = 0.3%).
func constantProductOut(reserveIn, reserveOut, amountIn *big.Int, feePPM uint32) *big.Int {
	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		return new(big.Int)
	}

	million := big.NewInt(1_000_000)
	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(int64(1_000_000-feePPM)))

	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, million)
	denominator.Add(denominator, inWithFee)

	return numerator.Div(numerator, denominator)
}
