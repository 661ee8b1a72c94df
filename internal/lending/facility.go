// Package lending provides the flash loan facility. A loan is borrowed,
// used, and repaid with premium inside one ledger transaction; if any step
// fails the whole transaction, loan included, is undone.
package lending

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/msandoval/flasharb/internal/ledger"
)

// ErrInsufficientFacilityLiquidity is returned when the facility cannot
// cover the requested principal.
var ErrInsufficientFacilityLiquidity = errors.New("facility cannot cover principal")

// Receiver is the borrowing side of a flash loan. The facility invokes
// OnLoanReceived exactly once per loan, synchronously, after transferring
// the principal; the receiver must approve repayment before returning.
type Receiver interface {
	Address() common.Address
	OnLoanReceived(tx *ledger.Tx, caller, asset common.Address,
		amount, premium *big.Int, initiator common.Address, params []byte) error
}

// Facility is an Aave-style flash loan pool.
type Facility struct {
	addr       common.Address
	premiumBPS uint64
	logger     *zap.Logger
}

// NewFacility creates a facility at addr charging premiumBPS on each loan.
// Seed its asset reserves through the ledger before lending.
func NewFacility(addr common.Address, premiumBPS uint64, logger *zap.Logger) *Facility {
	return &Facility{
		addr:       addr,
		premiumBPS: premiumBPS,
		logger:     logger,
	}
}

// Address returns the facility's account address.
func (f *Facility) Address() common.Address {
	return f.addr
}

// Premium computes the fee charged on a principal.
func (f *Facility) Premium(amount *big.Int) *big.Int {
	premium := new(big.Int).Mul(amount, new(big.Int).SetUint64(f.premiumBPS))

	return premium.Div(premium, big.NewInt(10_000))
}

// FlashLoan transfers amount of asset to the receiver, invokes its callback,
// and pulls amount+premium back against the approval the receiver granted.
// Runs entirely inside tx; the caller owns atomicity.
func (f *Facility) FlashLoan(tx *ledger.Tx, receiver Receiver, asset common.Address,
	amount *big.Int, initiator common.Address, params []byte,
) error {
	available, err := tx.BalanceOf(asset, f.addr)
	if err != nil {
		return err
	}

	if available.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s of %s, need %s",
			ErrInsufficientFacilityLiquidity, available, asset.Hex(), amount)
	}

	premium := f.Premium(amount)

	err = tx.Transfer(asset, f.addr, receiver.Address(), amount)
	if err != nil {
		return fmt.Errorf("disburse principal: %w", err)
	}

	f.logger.Debug("flash-loan-disbursed",
		zap.String("asset", asset.Hex()),
		zap.String("amount", amount.String()),
		zap.String("premium", premium.String()),
		zap.String("receiver", receiver.Address().Hex()))

	err = receiver.OnLoanReceived(tx, f.addr, asset, amount, premium, initiator, params)
	if err != nil {
		return fmt.Errorf("loan callback: %w", err)
	}

	repayment := new(big.Int).Add(amount, premium)

	err = tx.TransferFrom(asset, receiver.Address(), f.addr, f.addr, repayment)
	if err != nil {
		return fmt.Errorf("pull repayment: %w", err)
	}

	return nil
}
