// Package controller drives the scan-decide-execute loop. It owns the bot
// lifecycle: at most one loop runs at a time, at most one execution is in
// flight, and a stop request is honored between iterations, never by
// pre-empting an execution already submitted.
package controller

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/msandoval/flasharb/internal/engine"
	"github.com/msandoval/flasharb/internal/gas"
	"github.com/msandoval/flasharb/internal/storage"
	"github.com/msandoval/flasharb/pkg/types"
)

// State is the controller's lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateExecuting
	StateCooldown
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateExecuting:
		return "executing"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// ErrAlreadyRunning is returned by Start when a loop is active.
var ErrAlreadyRunning = errors.New("controller already running")

// OpportunitySource produces ranked opportunities on demand.
type OpportunitySource interface {
	Scan(ctx context.Context) ([]types.Opportunity, error)
}

// Submitter initiates execution attempts. Implemented by the engine.
type Submitter interface {
	RequestExecution(ctx context.Context, caller, asset common.Address,
		amount *big.Int, params *types.ArbitrageParams, opts engine.SubmitOptions,
	) (*types.ExecutionOutcome, error)
}

// ExecutionGate allows a balance monitor to veto submissions.
type ExecutionGate interface {
	IsEnabled() bool
	RecordLoan(loanSize float64)
}

// Config holds controller construction parameters.
type Config struct {
	ScanInterval     time.Duration
	CooldownInterval time.Duration
	ExecThresholdPct float64 // minimum delta required to trigger execution
	LoanFraction     float64 // fraction of the thinner venue's liquidity to borrow
	GasAdjustmentPct int64
	WorkBudget       uint64
	FeeLeg1          uint32
	FeeLeg2          uint32

	Owner             common.Address
	LoanAssetDecimals int
	AlternateVenue    string

	Scanner   OpportunitySource
	Engine    Submitter
	GasOracle gas.Oracle
	Gate      ExecutionGate // optional
	Storage   storage.Storage
	Logger    *zap.Logger

	// OnScan, when set, receives each successful scan's retained set.
	OnScan func([]types.Opportunity)
}

// Controller is the off-chain control loop.
type Controller struct {
	cfg       Config
	logger    *zap.Logger
	loanScale *big.Float

	state   atomic.Int32
	running atomic.Bool

	// lifeMu guards stop channel handoff between Start and Stop.
	lifeMu sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu        sync.RWMutex
	lastOpps  []types.Opportunity
	lastScan  time.Time
	lastError error
}

// New creates a controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Scanner == nil {
		return nil, fmt.Errorf("scanner cannot be nil")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if cfg.GasOracle == nil {
		return nil, fmt.Errorf("gas oracle cannot be nil")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.ScanInterval <= 0 {
		return nil, fmt.Errorf("scan interval must be positive")
	}
	if cfg.CooldownInterval <= 0 {
		return nil, fmt.Errorf("cooldown interval must be positive")
	}
	if cfg.LoanFraction <= 0 || cfg.LoanFraction > 1 {
		return nil, fmt.Errorf("loan fraction must be in (0, 1]")
	}
	if cfg.LoanAssetDecimals < 0 || cfg.LoanAssetDecimals > 18 {
		return nil, fmt.Errorf("loan asset decimals must be in [0, 18]")
	}

	c := &Controller{
		cfg:       cfg,
		logger:    cfg.Logger,
		loanScale: big.NewFloat(math.Pow10(cfg.LoanAssetDecimals)),
	}
	c.setState(StateIdle)

	return c, nil
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Running reports whether the loop is active.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// LastOpportunities returns the retained set from the most recent scan.
func (c *Controller) LastOpportunities() []types.Opportunity {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.Opportunity, len(c.lastOpps))
	copy(out, c.lastOpps)
	return out
}

// Start launches the control loop. Returns ErrAlreadyRunning if a loop is
// already active.
func (c *Controller) Start(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	c.stopCh = make(chan struct{})
	c.wg.Add(1)
	go c.loop(ctx, c.stopCh)

	c.logger.Info("controller-started",
		zap.Duration("scan_interval", c.cfg.ScanInterval),
		zap.Duration("cooldown_interval", c.cfg.CooldownInterval),
		zap.Float64("exec_threshold_pct", c.cfg.ExecThresholdPct))

	return nil
}

// Stop requests loop termination and waits for it. A stop arriving while an
// execution is in flight takes effect after that execution completes. Safe
// to call when not running.
func (c *Controller) Stop() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if !c.running.Load() {
		return
	}

	close(c.stopCh)
	c.wg.Wait()
	c.running.Store(false)

	c.logger.Info("controller-stopped")
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
	ControllerState.Set(float64(s))
}

// wait sleeps for d or until stop is requested. Returns false on stop.
func (c *Controller) wait(d time.Duration, stopCh <-chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-stopCh:
		return false
	case <-timer.C:
		return true
	}
}

func (c *Controller) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer c.wg.Done()
	defer c.setState(StateIdle)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		ScanIterationsTotal.Inc()
		c.setState(StateScanning)

		opps, err := c.cfg.Scanner.Scan(ctx)

		c.mu.Lock()
		c.lastOpps = opps
		c.lastScan = time.Now()
		c.lastError = err
		c.mu.Unlock()

		if err != nil {
			ScanErrorsTotal.Inc()
			c.logger.Error("scan-failed", zap.Error(err))
			if !c.cool(stopCh) {
				return
			}
			continue
		}

		if c.cfg.OnScan != nil {
			c.cfg.OnScan(opps)
		}

		best, ok := c.selectOpportunity(opps)
		if !ok {
			c.setState(StateIdle)
			if !c.wait(c.cfg.ScanInterval, stopCh) {
				return
			}
			continue
		}

		// Once execution starts it runs to completion; stop requests are
		// only honored afterwards.
		c.setState(StateExecuting)
		succeeded := c.executeBest(ctx, best)

		// A successful attempt resumes scanning at the ordinary interval;
		// any failure takes the longer cooldown.
		if succeeded {
			c.setState(StateIdle)
			if !c.wait(c.cfg.ScanInterval, stopCh) {
				return
			}
			continue
		}

		if !c.cool(stopCh) {
			return
		}
	}
}

// cool parks the loop in Cooldown for the longer interval. Returns false
// on stop.
func (c *Controller) cool(stopCh <-chan struct{}) bool {
	c.setState(StateCooldown)
	CooldownsTotal.Inc()
	return c.wait(c.cfg.CooldownInterval, stopCh)
}

// selectOpportunity picks the highest-delta retained opportunity that clears
// the execution threshold and the balance gate.
func (c *Controller) selectOpportunity(opps []types.Opportunity) (types.Opportunity, bool) {
	if len(opps) == 0 {
		return types.Opportunity{}, false
	}

	// Scan output is sorted descending by delta. The delta must strictly
	// exceed the execution threshold; equality is not enough.
	best := opps[0]
	if best.PriceDeltaPercent <= c.cfg.ExecThresholdPct {
		return types.Opportunity{}, false
	}

	if c.cfg.Gate != nil && !c.cfg.Gate.IsEnabled() {
		ExecutionsVetoedTotal.Inc()
		c.logger.Warn("execution-vetoed-by-gate",
			zap.String("token", best.TokenIn.Hex()),
			zap.Float64("delta_pct", best.PriceDeltaPercent))
		return types.Opportunity{}, false
	}

	return best, true
}

// loanAmount sizes the principal from the thinner venue's liquidity.
func (c *Controller) loanAmount(opp types.Opportunity) (*big.Int, float64) {
	minLiquidity := opp.LiquidityA
	if opp.LiquidityB < minLiquidity {
		minLiquidity = opp.LiquidityB
	}

	loanUSD := minLiquidity * c.cfg.LoanFraction

	scaled := new(big.Float).Mul(big.NewFloat(loanUSD), c.loanScale)
	amount, _ := scaled.Int(nil)

	return amount, loanUSD
}

// executeBest runs one submission and reports whether it succeeded; any
// abort or failed attempt reports false so the loop takes the cooldown.
func (c *Controller) executeBest(ctx context.Context, opp types.Opportunity) bool {
	amount, loanUSD := c.loanAmount(opp)
	if amount.Sign() <= 0 {
		c.logger.Warn("loan-amount-not-positive",
			zap.String("token", opp.TokenIn.Hex()))
		return false
	}

	gasPrice, err := c.cfg.GasOracle.SuggestGasPrice(ctx)
	if err != nil {
		c.logger.Error("gas-price-fetch-failed", zap.Error(err))
		return false
	}
	gasPrice = gas.AdjustPrice(gasPrice, c.cfg.GasAdjustmentPct)

	// The loan is taken in the quote asset; the round trip buys the
	// monitored token and sells it back. Leg two crosses to the alternate
	// venue when the spread involves it.
	params := &types.ArbitrageParams{
		TokenIn:           opp.TokenOut,
		TokenOut:          opp.TokenIn,
		AmountIn:          amount,
		FeeLeg1:           c.cfg.FeeLeg1,
		FeeLeg2:           c.cfg.FeeLeg2,
		UseAlternateVenue: opp.VenueA == c.cfg.AlternateVenue || opp.VenueB == c.cfg.AlternateVenue,
	}

	ExecutionsTriggeredTotal.Inc()

	c.logger.Info("execution-triggered",
		zap.String("token-in", params.TokenIn.Hex()),
		zap.String("token-out", params.TokenOut.Hex()),
		zap.String("venue-a", opp.VenueA),
		zap.String("venue-b", opp.VenueB),
		zap.Float64("delta_pct", opp.PriceDeltaPercent),
		zap.String("amount", amount.String()),
		zap.String("gas-price", gasPrice.String()))

	outcome, err := c.cfg.Engine.RequestExecution(ctx, c.cfg.Owner, params.TokenIn,
		amount, params, engine.SubmitOptions{
			GasPrice:   gasPrice,
			WorkBudget: c.cfg.WorkBudget,
		})

	if c.cfg.Gate != nil {
		c.cfg.Gate.RecordLoan(loanUSD)
	}

	if outcome == nil {
		c.logger.Error("execution-aborted", zap.Error(err))
		return false
	}

	if err != nil {
		c.logger.Warn("execution-attempt-failed",
			zap.String("attempt-id", outcome.ID),
			zap.String("failure-reason", string(outcome.FailureReason)),
			zap.Error(err))
	}

	if storeErr := c.cfg.Storage.StoreOutcome(ctx, outcome); storeErr != nil {
		c.logger.Error("outcome-store-failed",
			zap.String("attempt-id", outcome.ID),
			zap.Error(storeErr))
	}

	return outcome.Succeeded
}
