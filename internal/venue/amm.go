package venue

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/msandoval/flasharb/internal/ledger"
	"github.com/msandoval/flasharb/pkg/types"
)

// AMM is a tiered constant-product venue: one pool per pair per fee tier,
// the Uniswap V3 selector convention (500, 3000, 10000 millionths).
type AMM struct {
	name   string
	pools  map[pairKey]common.Address
	logger *zap.Logger
}

// NewAMM creates a tiered constant-product venue.
func NewAMM(name string, logger *zap.Logger) *AMM {
	return &AMM{
		name:   name,
		pools:  make(map[pairKey]common.Address),
		logger: logger,
	}
}

// Name returns the venue identifier.
func (a *AMM) Name() string {
	return a.name
}

// AddPool registers the pool account for a pair at a fee tier. The pool's
// reserves are its ledger balances; seed them through the ledger.
func (a *AMM) AddPool(tokenA, tokenB common.Address, feeTier uint32, pool common.Address) {
	a.pools[newPairKey(tokenA, tokenB, feeTier)] = pool
}

// Quote returns the expected swap output against pool reserves read
// through view, tagged unavailable when no answer can be obtained.
func (a *AMM) Quote(view ledger.Reader, tokenIn, tokenOut common.Address,
	feeTier uint32, amountIn *big.Int,
) types.Quote {
	pool, ok := a.pools[newPairKey(tokenIn, tokenOut, feeTier)]
	if !ok {
		a.logger.Debug("quote-no-pool",
			zap.String("venue", a.name),
			zap.String("token-in", tokenIn.Hex()),
			zap.String("token-out", tokenOut.Hex()),
			zap.Uint32("fee-tier", feeTier))
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

	out := constantProductOut(reserveIn, reserveOut, amountIn, feeTier)
	if out.Sign() == 0 {
		return types.QuoteUnavailable()
	}

	return types.QuoteOf(out)
}

// Swap executes the exchange inside tx. Reserves are read and written
// through the transaction, so an aborted attempt leaves the pool untouched.
func (a *AMM) Swap(tx *ledger.Tx, sender common.Address, tokenIn, tokenOut common.Address,
	feeTier uint32, amountIn, minAmountOut *big.Int,
) (*big.Int, error) {
	pool, ok := a.pools[newPairKey(tokenIn, tokenOut, feeTier)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s fee %d on %s",
			ErrNoPool, tokenIn.Hex(), tokenOut.Hex(), feeTier, a.name)
	}

	reserveIn, err := tx.BalanceOf(tokenIn, pool)
	if err != nil {
		return nil, err
	}

	reserveOut, err := tx.BalanceOf(tokenOut, pool)
	if err != nil {
		return nil, err
	}

	out := constantProductOut(reserveIn, reserveOut, amountIn, feeTier)
	if out.Sign() == 0 {
		return nil, fmt.Errorf("%w: %s/%s fee %d on %s",
			ErrInsufficientLiquidity, tokenIn.Hex(), tokenOut.Hex(), feeTier, a.name)
	}

	if minAmountOut != nil && out.Cmp(minAmountOut) < 0 {
		return nil, fmt.Errorf("%w: out %s below min %s on %s",
			ErrSlippageExceeded, out, minAmountOut, a.name)
	}

	err = tx.Transfer(tokenIn, sender, pool, amountIn)
	if err != nil {
		return nil, fmt.Errorf("pay pool: %w", err)
	}

	err = tx.Transfer(tokenOut, pool, sender, out)
	if err != nil {
		return nil, fmt.Errorf("receive from pool: %w", err)
	}

	a.logger.Debug("swap-executed",
		zap.String("venue", a.name),
		zap.String("token-in", tokenIn.Hex()),
		zap.String("token-out", tokenOut.Hex()),
		zap.Uint32("fee-tier", feeTier),
		zap.String("amount-in", amountIn.String()),
		zap.String("amount-out", out.String()))

	return out, nil
}
