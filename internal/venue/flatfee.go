package venue

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/msandoval/flasharb/internal/ledger"
	"github.com/msandoval/flasharb/pkg/types"
)

// FlatFeeAMM is the alternate venue variant: a constant-product exchange
// with one pool per pair and a single venue-wide fee. The feeTier argument
// is accepted for signature parity but does not select a pool here.
type FlatFeeAMM struct {
	name   string
	feePPM uint32
	pools  map[pairKey]common.Address
	logger *zap.Logger
}

// NewFlatFeeAMM creates the alternate venue with the given fee in millionths.
func NewFlatFeeAMM(name string, feePPM uint32, logger *zap.Logger) *FlatFeeAMM {
	return &FlatFeeAMM{
		name:   name,
		feePPM: feePPM,
		pools:  make(map[pairKey]common.Address),
		logger: logger,
	}
}

// Name returns the venue identifier.
func (f *FlatFeeAMM) Name() string {
	return f.name
}

// AddPool registers the single pool account for a pair.
func (f *FlatFeeAMM) AddPool(tokenA, tokenB common.Address, pool common.Address) {
	f.pools[newPairKey(tokenA, tokenB, 0)] = pool
}

// Quote returns the expected swap output against pool reserves read
// through view, tagged unavailable when no answer can be obtained.
func (f *FlatFeeAMM) Quote(view ledger.Reader, tokenIn, tokenOut common.Address,
	_ uint32, amountIn *big.Int,
) types.Quote {
	pool, ok := f.pools[newPairKey(tokenIn, tokenOut, 0)]
	if !ok {
		f.logger.Debug("quote-no-pool",
			zap.String("venue", f.name),
			zap.String("token-in", tokenIn.Hex()),
			zap.String("token-out", tokenOut.Hex()))
		return types.QuoteUnavailable()
	}

	reserveIn, err := view.BalanceOf(tokenIn, pool)
	if err != nil {
		return types.QuoteUnavailable()
	}

	reserveOut, err := view.BalanceOf(tokenOut, pool)
	if err != nil {
		return types.QuoteUnavailable()
	}

	out := constantProductOut(reserveIn, reserveOut, amountIn, f.feePPM)
	if out.Sign() == 0 {
		return types.QuoteUnavailable()
	}

	return types.QuoteOf(out)
}

// Swap executes the exchange inside tx.
func (f *FlatFeeAMM) Swap(tx *ledger.Tx, sender common.Address, tokenIn, tokenOut common.Address,
	_ uint32, amountIn, minAmountOut *big.Int,
) (*big.Int, error) {
	pool, ok := f.pools[newPairKey(tokenIn, tokenOut, 0)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s on %s",
			ErrNoPool, tokenIn.Hex(), tokenOut.Hex(), f.name)
	}

	reserveIn, err := tx.BalanceOf(tokenIn, pool)
	if err != nil {
		return nil, err
	}

	reserveOut, err := tx.BalanceOf(tokenOut, pool)
	if err != nil {
		return nil, err
	}

	out := constantProductOut(reserveIn, reserveOut, amountIn, f.feePPM)
	if out.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s/%s on %s",
			ErrInsufficientLiquidity, tokenIn.Hex(), tokenOut.Hex(), f.name)
	}

	if minAmountOut != nil && out.Cmp(minAmountOut) < 0 {
		return nil, fmt.Errorf("%w: out %s below min %s on %s",
			ErrSlippageExceeded, out, minAmountOut, f.name)
	}

	err = tx.Transfer(tokenIn, sender, pool, amountIn)
	if err != nil {
		return nil, fmt.Errorf("pay pool: %w", err)
	}

	err = tx.Transfer(tokenOut, pool, sender, out)
	if err != nil {
		return nil, fmt.Errorf("receive from pool: %w", err)
	}

	f.logger.Debug("swap-executed",
		zap.String("venue", f.name),
		zap.String("token-in", tokenIn.Hex()),
		zap.String("token-out", tokenOut.Hex()),
		zap.String("amount-in", amountIn.String()),
		zap.String("amount-out", out.String()))

	return out, nil
}
