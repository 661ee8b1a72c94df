package circuitbreaker

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// BalanceSource answers committed balance queries. Both the ledger and
// test mocks implement this interface.
type BalanceSource interface {
	BalanceOf(token, account common.Address) *big.Int
}

// BalanceCircuitBreaker monitors the engine's loan-asset balance and gates
// execution submissions. Thresholds track recent loan sizes and use
// hysteresis to prevent rapid state changes.
type BalanceCircuitBreaker struct {
	enabled atomic.Bool // lock-free reads on the hot path

	checkInterval  time.Duration
	source         BalanceSource
	asset          common.Address
	account        common.Address
	logger         *zap.Logger
	loanMultiplier float64 // multiplier for avg loan size
	minAbsolute    float64 // absolute minimum balance
	hysteresis     float64 // re-enable at hysteresis * disable threshold
	assetScale     *big.Float

	mu               sync.RWMutex
	lastBalance      float64
	lastCheck        time.Time
	recentLoans      []float64 // rolling window of loan sizes
	disableThreshold float64
	enableThreshold  float64
}

// Config holds circuit breaker configuration.
type Config struct {
	CheckInterval  time.Duration
	LoanMultiplier float64
	MinAbsolute    float64
	Hysteresis     float64
	AssetDecimals  int
	Source         BalanceSource
	Asset          common.Address
	Account        common.Address
	Logger         *zap.Logger
}

// Status holds current circuit breaker state for HTTP endpoints.
type Status struct {
	Enabled          bool      `json:"enabled"`
	LastBalance      float64   `json:"lastBalance"`
	LastCheck        time.Time `json:"lastCheck"`
	DisableThreshold float64   `json:"disableThreshold"`
	EnableThreshold  float64   `json:"enableThreshold"`
	AvgLoanSize      float64   `json:"avgLoanSize"`
	RecentLoanCount  int       `json:"recentLoanCount"`
}

// New creates a circuit breaker with the given configuration.
func New(cfg *Config) (*BalanceCircuitBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("balance source cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.LoanMultiplier <= 0 {
		return nil, fmt.Errorf("loan multiplier must be positive")
	}
	if cfg.MinAbsolute <= 0 {
		return nil, fmt.Errorf("min absolute must be positive")
	}
	if cfg.Hysteresis < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}
	if cfg.AssetDecimals < 0 || cfg.AssetDecimals > 18 {
		return nil, fmt.Errorf("asset decimals must be in [0, 18]")
	}

	breaker := &BalanceCircuitBreaker{
		checkInterval:    cfg.CheckInterval,
		source:           cfg.Source,
		asset:            cfg.Asset,
		account:          cfg.Account,
		logger:           cfg.Logger,
		loanMultiplier:   cfg.LoanMultiplier,
		minAbsolute:      cfg.MinAbsolute,
		hysteresis:       cfg.Hysteresis,
		assetScale:       big.NewFloat(math.Pow10(cfg.AssetDecimals)),
		recentLoans:      make([]float64, 0, 20),
		disableThreshold: cfg.MinAbsolute,
		enableThreshold:  cfg.MinAbsolute * cfg.Hysteresis,
	}

	breaker.enabled.Store(true)

	BreakerEnabled.Set(1)
	BreakerDisableThreshold.Set(breaker.disableThreshold)
	BreakerEnableThreshold.Set(breaker.enableThreshold)
	BreakerAvgLoanSize.Set(0)

	return breaker, nil
}

// IsEnabled returns true if executions may be submitted.
// Lock-free, safe to call from hot paths.
func (b *BalanceCircuitBreaker) IsEnabled() bool {
	return b.enabled.Load()
}

// RecordLoan adds a loan to the rolling window and recalculates thresholds.
// Call this after each execution attempt.
func (b *BalanceCircuitBreaker) RecordLoan(loanSize float64) {
	if loanSize <= 0 {
		b.logger.Warn("invalid-loan-size",
			zap.Float64("size", loanSize))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	// Keep the last 20 loans.
	b.recentLoans = append(b.recentLoans, loanSize)
	if len(b.recentLoans) > 20 {
		b.recentLoans = b.recentLoans[1:]
	}

	sum := 0.0
	for _, size := range b.recentLoans {
		sum += size
	}
	avgLoanSize := sum / float64(len(b.recentLoans))

	b.disableThreshold = math.Max(avgLoanSize*b.loanMultiplier, b.minAbsolute)
	b.enableThreshold = b.disableThreshold * b.hysteresis

	BreakerAvgLoanSize.Set(avgLoanSize)
	BreakerDisableThreshold.Set(b.disableThreshold)
	BreakerEnableThreshold.Set(b.enableThreshold)

	b.logger.Debug("thresholds-updated",
		zap.Float64("avg_loan_size", avgLoanSize),
		zap.Int("loan_count", len(b.recentLoans)),
		zap.Float64("disable_threshold", b.disableThreshold),
		zap.Float64("enable_threshold", b.enableThreshold))
}

// CheckBalance reads the current balance and updates the enabled state.
func (b *BalanceCircuitBreaker) CheckBalance() {
	start := time.Now()
	defer func() {
		BreakerCheckDuration.Observe(time.Since(start).Seconds())
	}()

	raw := b.source.BalanceOf(b.asset, b.account)
	balanceFloat := new(big.Float).Quo(new(big.Float).SetInt(raw), b.assetScale)
	balance, _ := balanceFloat.Float64()

	b.mu.RLock()
	disableThreshold := b.disableThreshold
	enableThreshold := b.enableThreshold
	b.mu.RUnlock()

	currentlyEnabled := b.enabled.Load()

	b.mu.Lock()
	b.lastBalance = balance
	b.lastCheck = time.Now()
	b.mu.Unlock()

	BreakerBalance.Set(balance)

	// Hysteresis: disable below one threshold, re-enable above a higher one.
	shouldDisable := currentlyEnabled && balance < disableThreshold
	shouldEnable := !currentlyEnabled && balance >= enableThreshold

	if shouldDisable {
		b.enabled.Store(false)
		BreakerEnabled.Set(0)
		BreakerStateChanges.Inc()

		b.logger.Warn("circuit-breaker-disabled",
			zap.Float64("balance", balance),
			zap.Float64("disable_threshold", disableThreshold),
			zap.Float64("enable_threshold", enableThreshold))
	} else if shouldEnable {
		b.enabled.Store(true)
		BreakerEnabled.Set(1)
		BreakerStateChanges.Inc()

		b.logger.Info("circuit-breaker-enabled",
			zap.Float64("balance", balance),
			zap.Float64("disable_threshold", disableThreshold),
			zap.Float64("enable_threshold", enableThreshold))
	} else {
		b.logger.Debug("balance-checked",
			zap.Float64("balance", balance),
			zap.Bool("enabled", currentlyEnabled))
	}
}

// Start begins the background monitoring loop. Runs until the context is
// cancelled.
func (b *BalanceCircuitBreaker) Start(ctx context.Context) {
	b.logger.Info("circuit-breaker-started",
		zap.Duration("check_interval", b.checkInterval),
		zap.Float64("loan_multiplier", b.loanMultiplier),
		zap.Float64("min_absolute", b.minAbsolute),
		zap.Float64("hysteresis_ratio", b.hysteresis))

	b.CheckBalance()

	go b.monitorLoop(ctx)
}

func (b *BalanceCircuitBreaker) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(b.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("circuit-breaker-stopped")
			return
		case <-ticker.C:
			b.CheckBalance()
		}
	}
}

// GetStatus returns the current state for HTTP endpoints.
func (b *BalanceCircuitBreaker) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sum := 0.0
	for _, size := range b.recentLoans {
		sum += size
	}
	avgLoanSize := 0.0
	if len(b.recentLoans) > 0 {
		avgLoanSize = sum / float64(len(b.recentLoans))
	}

	return Status{
		Enabled:          b.enabled.Load(),
		LastBalance:      b.lastBalance,
		LastCheck:        b.lastCheck,
		DisableThreshold: b.disableThreshold,
		EnableThreshold:  b.enableThreshold,
		AvgLoanSize:      avgLoanSize,
		RecentLoanCount:  len(b.recentLoans),
	}
}
