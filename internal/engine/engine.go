// Package engine implements the atomic borrow-swap-swap-repay unit. The
// request path and the loan callback execute as one ledger transaction:
// any failure anywhere unwinds every effect, loan included, with no partial
// execution observable afterward.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/msandoval/flasharb/internal/gas"
	"github.com/msandoval/flasharb/internal/ledger"
	"github.com/msandoval/flasharb/internal/lending"
	"github.com/msandoval/flasharb/internal/settings"
	"github.com/msandoval/flasharb/internal/venue"
	"github.com/msandoval/flasharb/pkg/types"
)

// Engine is the on-ledger arbitrage execution unit.
type Engine struct {
	addr      common.Address
	owner     common.Address
	led       *ledger.Ledger
	facility  *lending.Facility
	primary   venue.Adapter
	alternate venue.Adapter
	settings  *settings.Store
	gasOracle gas.Oracle
	logger    *zap.Logger

	// submitMu serializes whole submissions; executing rejects re-entrant
	// callback invocation as the second line of defense.
	submitMu  sync.Mutex
	executing atomic.Bool

	// profit realized by the in-flight callback, read back by the
	// submission after commit. Guarded by submitMu.
	lastProfit *big.Int
}

// Config holds engine construction parameters.
type Config struct {
	Address   common.Address
	Owner     common.Address
	Ledger    *ledger.Ledger
	Facility  *lending.Facility
	Primary   venue.Adapter
	Alternate venue.Adapter
	Settings  *settings.Store
	GasOracle gas.Oracle
	Logger    *zap.Logger
}

// New creates an engine.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger cannot be nil")
	}
	if cfg.Facility == nil {
		return nil, fmt.Errorf("facility cannot be nil")
	}
	if cfg.Primary == nil || cfg.Alternate == nil {
		return nil, fmt.Errorf("both venue adapters must be set")
	}
	if cfg.Settings == nil {
		return nil, fmt.Errorf("settings store cannot be nil")
	}
	if cfg.GasOracle == nil {
		return nil, fmt.Errorf("gas oracle cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Engine{
		addr:      cfg.Address,
		owner:     cfg.Owner,
		led:       cfg.Ledger,
		facility:  cfg.Facility,
		primary:   cfg.Primary,
		alternate: cfg.Alternate,
		settings:  cfg.Settings,
		gasOracle: cfg.GasOracle,
		logger:    cfg.Logger,
	}, nil
}

// Address returns the engine's ledger address.
func (e *Engine) Address() common.Address {
	return e.addr
}

// SubmitOptions carry the per-submission resource policy.
type SubmitOptions struct {
	GasPrice   *big.Int // nil means ask the oracle
	WorkBudget uint64
}

// RequestExecution initiates a flash-loan arbitrage attempt. Owner only.
// The current gas price must not exceed the configured cap; settings are
// read at this moment, never cached from an earlier attempt.
func (e *Engine) RequestExecution(ctx context.Context, caller, asset common.Address,
	amount *big.Int, params *types.ArbitrageParams, opts SubmitOptions,
) (*types.ExecutionOutcome, error) {
	e.submitMu.Lock()
	defer e.submitMu.Unlock()

	outcome := &types.ExecutionOutcome{
		ID:         uuid.New().String(),
		Asset:      asset,
		Amount:     new(big.Int).Set(amount),
		ExecutedAt: time.Now(),
	}

	if caller != e.owner {
		return e.reject(outcome, types.NewEngineError(types.ReasonAccessDenied,
			"caller %s is not the owner", caller.Hex()))
	}

	gasPrice := opts.GasPrice
	if gasPrice == nil {
		suggested, err := e.gasOracle.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch gas price: %w", err)
		}
		gasPrice = suggested
	}

	current := e.settings.Get()
	if current.MaxGasPrice != nil && gasPrice.Cmp(current.MaxGasPrice) > 0 {
		return e.reject(outcome, types.NewEngineError(types.ReasonGasPriceExceeded,
			"gas price %s exceeds cap %s", gasPrice, current.MaxGasPrice))
	}

	blob, err := params.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}

	e.lastProfit = nil

	workUsed, execErr := e.led.Exec(opts.WorkBudget, func(tx *ledger.Tx) error {
		return e.facility.FlashLoan(tx, e, asset, amount, e.addr, blob)
	})

	outcome.WorkUsed = workUsed

	if execErr != nil {
		return e.reject(outcome, execErr)
	}

	outcome.Succeeded = true
	outcome.Profit = e.lastProfit
	outcome.TxRef = crypto.Keccak256Hash([]byte(outcome.ID), asset.Bytes(), blob)

	ExecutionsTotal.WithLabelValues("success").Inc()
	profitFloat, _ := new(big.Float).SetInt(outcome.Profit).Float64()
	ExecutionProfitTotal.Add(profitFloat)
	ExecutionWorkUsed.Observe(float64(workUsed))

	e.logger.Info("execution-completed",
		zap.String("attempt-id", outcome.ID),
		zap.String("asset", asset.Hex()),
		zap.String("amount", amount.String()),
		zap.String("profit", outcome.Profit.String()),
		zap.Uint64("work-used", workUsed),
		zap.String("tx-ref", outcome.TxRef.Hex()))

	return outcome, nil
}

func (e *Engine) reject(outcome *types.ExecutionOutcome, err error) (*types.ExecutionOutcome, error) {
	outcome.Succeeded = false
	outcome.FailureReason = types.ReasonOf(err)

	reason := string(outcome.FailureReason)
	if reason == "" {
		reason = "LEDGER_FAULT"
	}
	ExecutionsTotal.WithLabelValues("failure").Inc()
	ExecutionFailuresTotal.WithLabelValues(reason).Inc()

	e.logger.Warn("execution-rejected",
		zap.String("attempt-id", outcome.ID),
		zap.String("asset", outcome.Asset.Hex()),
		zap.String("reason", reason),
		zap.Error(err))

	return outcome, err
}

// OnLoanReceived is the flash loan continuation. Only the trusted lending
// facility may invoke it, only on this engine's own behalf, and never while
// another invocation is in progress.
func (e *Engine) OnLoanReceived(tx *ledger.Tx, caller, asset common.Address,
	amount, premium *big.Int, initiator common.Address, blob []byte,
) error {
	if caller != e.facility.Address() {
		return types.NewEngineError(types.ReasonInvalidCaller,
			"caller %s is not the lending facility", caller.Hex())
	}

	if initiator != e.addr {
		return types.NewEngineError(types.ReasonInvalidInitiator,
			"initiator %s is not this engine", initiator.Hex())
	}

	if !e.executing.CompareAndSwap(false, true) {
		return types.NewEngineError(types.ReasonReentrancyBlocked,
			"loan callback already in progress")
	}
	defer e.executing.Store(false)

	params, err := types.DecodeArbitrageParams(blob)
	if err != nil {
		return fmt.Errorf("decode params: %w", err)
	}

	preBalance, err := tx.BalanceOf(asset, e.addr)
	if err != nil {
		return err
	}

	current := e.settings.Get()

	out1, err := e.swapLeg(tx, e.primary, asset, params.TokenOut,
		params.FeeLeg1, amount, current.MaxSlippageBPS)
	if err != nil {
		return fmt.Errorf("swap leg 1: %w", err)
	}

	leg2Venue := e.primary
	if params.UseAlternateVenue {
		leg2Venue = e.alternate
	}

	_, err = e.swapLeg(tx, leg2Venue, params.TokenOut, asset,
		params.FeeLeg2, out1, current.MaxSlippageBPS)
	if err != nil {
		return fmt.Errorf("swap leg 2: %w", err)
	}

	postBalance, err := tx.BalanceOf(asset, e.addr)
	if err != nil {
		return err
	}

	profit := new(big.Int).Sub(postBalance, preBalance)
	if profit.Sign() <= 0 {
		return types.NewEngineError(types.ReasonUnprofitableTrade,
			"round trip returned %s on %s borrowed", profit, amount)
	}

	repayment := new(big.Int).Add(amount, premium)
	if postBalance.Cmp(repayment) < 0 {
		return types.NewEngineError(types.ReasonInsufficientRepayment,
			"post balance %s below repayment %s", postBalance, repayment)
	}

	err = tx.Approve(asset, e.addr, caller, repayment)
	if err != nil {
		return err
	}

	e.lastProfit = profit

	return nil
}

// swapLeg executes one exchange with the slippage bound derived from the
// venue's own quote, read through the transaction so the in-flight loan
// is visible and the ledger is never re-entered. An unavailable quote
// leaves the leg unbounded rather than aborting, as does a tolerance of
// 100% or more; the profit check still gates the final result.
func (e *Engine) swapLeg(tx *ledger.Tx, adapter venue.Adapter,
	tokenIn, tokenOut common.Address, feeTier uint32,
	amountIn *big.Int, maxSlippageBPS uint64,
) (*big.Int, error) {
	var minOut *big.Int

	quote := adapter.Quote(tx, tokenIn, tokenOut, feeTier, amountIn)
	if quote.Available && maxSlippageBPS < 10_000 {
		minOut = new(big.Int).Mul(quote.AmountOut, new(big.Int).SetUint64(10_000-maxSlippageBPS))
		minOut.Div(minOut, big.NewInt(10_000))
	}

	return adapter.Swap(tx, e.addr, tokenIn, tokenOut, feeTier, amountIn, minOut)
}

// QuoteOpportunity estimates a two-leg round trip on the primary venue:
// tokenA -> tokenB at feeLeg1, then back at feeLeg2. A failed venue quote
// yields an unavailable result, never an error, so callers can distinguish
// "no answer" from "zero output".
func (e *Engine) QuoteOpportunity(tokenA, tokenB common.Address,
	feeLeg1, feeLeg2 uint32, testAmount *big.Int,
) types.OpportunityQuote {
	unavailable := types.OpportunityQuote{
		ExpectedProfit:    new(big.Int),
		RecommendedAmount: new(big.Int),
	}

	view := e.led.Committed()

	forward := e.primary.Quote(view, tokenA, tokenB, feeLeg1, testAmount)
	if !forward.Available {
		QuotesUnavailableTotal.Inc()
		e.logger.Debug("quote-unavailable", zap.String("leg", "forward"))
		return unavailable
	}

	back := e.primary.Quote(view, tokenB, tokenA, feeLeg2, forward.AmountOut)
	if !back.Available {
		QuotesUnavailableTotal.Inc()
		e.logger.Debug("quote-unavailable", zap.String("leg", "back"))
		return unavailable
	}

	expectedProfit := new(big.Int).Sub(back.AmountOut, testAmount)

	profitBPS := new(big.Int).Mul(expectedProfit, big.NewInt(10_000))
	profitBPS.Div(profitBPS, testAmount)

	minProfit := new(big.Int).SetUint64(e.settings.Get().MinProfitBPS)
	profitable := profitBPS.Cmp(minProfit) >= 0

	recommended := new(big.Int)
	if profitable {
		recommended.Set(testAmount)
	}

	return types.OpportunityQuote{
		Profitable:        profitable,
		ExpectedProfit:    expectedProfit,
		RecommendedAmount: recommended,
		Available:         true,
	}
}

// UpdateSettings overwrites the execution thresholds. Owner only; values
// are stored verbatim.
func (e *Engine) UpdateSettings(caller common.Address, next types.Settings) error {
	err := e.settings.Set(caller, next)
	if err != nil {
		return err
	}

	e.logger.Info("settings-updated",
		zap.Uint64("min-profit-bps", next.MinProfitBPS),
		zap.String("max-gas-price", next.MaxGasPrice.String()),
		zap.Uint64("max-slippage-bps", next.MaxSlippageBPS))

	return nil
}

// WithdrawProfits transfers the engine's entire balance of token to the
// owner. Owner only.
func (e *Engine) WithdrawProfits(caller, token common.Address) (*big.Int, error) {
	if caller != e.owner {
		return nil, types.NewEngineError(types.ReasonAccessDenied,
			"caller %s is not the owner", caller.Hex())
	}

	balance := e.led.BalanceOf(token, e.addr)
	if balance.Sign() == 0 {
		return nil, types.NewEngineError(types.ReasonNothingToWithdraw,
			"no %s held", token.Hex())
	}

	_, err := e.led.Exec(withdrawBudget, func(tx *ledger.Tx) error {
		return tx.Transfer(token, e.addr, e.owner, balance)
	})
	if err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}

	WithdrawalsTotal.Inc()

	e.logger.Info("withdrawal-completed",
		zap.String("token", token.Hex()),
		zap.String("amount", balance.String()))

	return balance, nil
}

// WithdrawReserve transfers the engine's entire native reserve to the
// owner. Owner only.
func (e *Engine) WithdrawReserve(caller common.Address) (*big.Int, error) {
	if caller != e.owner {
		return nil, types.NewEngineError(types.ReasonAccessDenied,
			"caller %s is not the owner", caller.Hex())
	}

	balance := e.led.NativeBalanceOf(e.addr)
	if balance.Sign() == 0 {
		return nil, types.NewEngineError(types.ReasonNothingToWithdraw, "no native reserve held")
	}

	_, err := e.led.Exec(withdrawBudget, func(tx *ledger.Tx) error {
		return tx.TransferNative(e.addr, e.owner, balance)
	})
	if err != nil {
		return nil, fmt.Errorf("withdraw reserve: %w", err)
	}

	WithdrawalsTotal.Inc()

	e.logger.Info("withdrawal-completed",
		zap.String("token", "native"),
		zap.String("amount", balance.String()))

	return balance, nil
}

// withdrawBudget is ample for a single transfer.
const withdrawBudget = 1_000
