package app

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/msandoval/flasharb/internal/controller"
	"github.com/msandoval/flasharb/internal/engine"
	"github.com/msandoval/flasharb/pkg/httpserver"
	"github.com/msandoval/flasharb/pkg/types"
)

// ErrAlreadyDeployed is returned by Deploy when an engine exists.
var ErrAlreadyDeployed = errors.New("engine already deployed")

// Deploy creates the engine at the operator's next deterministic address
// and wires the control loop around it. One engine per process.
func (a *App) Deploy(_ context.Context) (common.Address, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.eng != nil {
		return common.Address{}, ErrAlreadyDeployed
	}

	engineAddr := a.signer.EngineAddress(0)

	eng, err := engine.New(&engine.Config{
		Address:   engineAddr,
		Owner:     a.signer.Address(),
		Ledger:    a.led,
		Facility:  a.facility,
		Primary:   a.primary,
		Alternate: a.alternate,
		Settings:  a.settings,
		GasOracle: a.gasOracle,
		Logger:    a.logger,
	})
	if err != nil {
		return common.Address{}, err
	}

	ctrl, err := controller.New(controller.Config{
		ScanInterval:      a.cfg.ScanInterval,
		CooldownInterval:  a.cfg.CooldownInterval,
		ExecThresholdPct:  a.cfg.ExecThresholdPct,
		LoanFraction:      a.cfg.LoanFraction,
		GasAdjustmentPct:  a.cfg.GasAdjustmentPct,
		WorkBudget:        a.cfg.WorkBudget,
		FeeLeg1:           a.cfg.DefaultFeeLeg1,
		FeeLeg2:           a.cfg.DefaultFeeLeg2,
		Owner:             a.signer.Address(),
		LoanAssetDecimals: a.cfg.QuoteAssetDecimals,
		AlternateVenue:    a.cfg.AlternateVenue,
		Scanner:           a.scanner,
		Engine:            eng,
		GasOracle:         a.gasOracle,
		Gate:              a.breaker,
		Storage:           a.storage,
		Logger:            a.logger,
		OnScan:            a.hub.BroadcastOpportunities,
	})
	if err != nil {
		return common.Address{}, err
	}

	a.eng = eng
	a.ctrl = ctrl

	a.logger.Info("engine-deployed",
		zap.String("engine-address", engineAddr.Hex()),
		zap.String("owner", a.signer.Address().Hex()))

	return engineAddr, nil
}

// StartBot launches the control loop. The engine must be deployed first.
func (a *App) StartBot() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ctrl == nil {
		return httpserver.ErrNotDeployed
	}

	return a.ctrl.Start(a.ctx)
}

// StopBot halts the control loop. No-op when not running.
func (a *App) StopBot() {
	a.mu.Lock()
	ctrl := a.ctrl
	a.mu.Unlock()

	if ctrl != nil {
		ctrl.Stop()
	}
}

// Status reports the operator wallet, engine, and loop state.
func (a *App) Status() httpserver.BotStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	status := httpserver.BotStatus{
		WalletAddress: a.signer.Address().Hex(),
		Balance:       a.led.BalanceOf(a.cfg.QuoteAsset, a.signer.Address()).String(),
		State:         controller.StateIdle.String(),
	}

	if a.eng != nil {
		status.Deployed = true
		status.EngineAddress = a.eng.Address().Hex()
	}
	if a.ctrl != nil {
		status.Running = a.ctrl.Running()
		status.State = a.ctrl.State().String()
	}

	return status
}

// deployedEngine returns the engine or ErrNotDeployed.
func (a *App) deployedEngine() (*engine.Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.eng == nil {
		return nil, httpserver.ErrNotDeployed
	}
	return a.eng, nil
}

// Quote probes a two-leg round trip on the primary venue.
func (a *App) Quote(tokenA, tokenB common.Address, feeLeg1, feeLeg2 uint32,
	testAmount *big.Int,
) (types.OpportunityQuote, error) {
	eng, err := a.deployedEngine()
	if err != nil {
		return types.OpportunityQuote{}, err
	}

	return eng.QuoteOpportunity(tokenA, tokenB, feeLeg1, feeLeg2, testAmount), nil
}

// UpdateSettings applies new execution thresholds as the operator.
func (a *App) UpdateSettings(next types.Settings) error {
	eng, err := a.deployedEngine()
	if err != nil {
		return err
	}

	return eng.UpdateSettings(a.signer.Address(), next)
}

// Withdraw sweeps the engine's balance of token to the operator.
func (a *App) Withdraw(token common.Address) (*big.Int, error) {
	eng, err := a.deployedEngine()
	if err != nil {
		return nil, err
	}

	return eng.WithdrawProfits(a.signer.Address(), token)
}

// WithdrawReserve sweeps the engine's native reserve to the operator.
func (a *App) WithdrawReserve() (*big.Int, error) {
	eng, err := a.deployedEngine()
	if err != nil {
		return nil, err
	}

	return eng.WithdrawReserve(a.signer.Address())
}

// LastOpportunities returns the most recent scan's retained set.
func (a *App) LastOpportunities() []types.Opportunity {
	a.mu.Lock()
	ctrl := a.ctrl
	a.mu.Unlock()

	if ctrl == nil {
		return nil
	}
	return ctrl.LastOpportunities()
}
