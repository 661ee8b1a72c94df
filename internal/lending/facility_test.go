package lending

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap/zaptest"

	"github.com/msandoval/flasharb/internal/ledger"
)

var (
	usdc         = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	facilityAddr = common.HexToAddress("0x0000000000000000000000000000000000000f1a")
	borrowerAddr = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

const budget = 100_000

// repayingReceiver simulates a borrower realizing extra of gain and
// approving repayment, the way a well-behaved engine does.
type repayingReceiver struct {
	led  *ledger.Ledger
	gain int64
	err  error
}

func (r *repayingReceiver) Address() common.Address {
	return borrowerAddr
}

func (r *repayingReceiver) OnLoanReceived(tx *ledger.Tx, caller, asset common.Address,
	amount, premium *big.Int, _ common.Address, _ []byte,
) error {
	if r.err != nil {
		return r.err
	}

	// Mimic trading gains by pulling from a pre-seeded side pocket.
	if r.gain > 0 {
		sidePocket := common.HexToAddress("0x000000000000000000000000000000000000dead")
		err := tx.Transfer(asset, sidePocket, borrowerAddr, big.NewInt(r.gain))
		if err != nil {
			return err
		}
	}

	return tx.Approve(asset, borrowerAddr, caller, new(big.Int).Add(amount, premium))
}

func TestPremium(t *testing.T) {
	t.Parallel()

	f := NewFacility(facilityAddr, 9, zaptest.NewLogger(t))

	got := f.Premium(big.NewInt(1_000_000))
	if got.Cmp(big.NewInt(900)) != 0 {
		t.Errorf("Premium(1000000) = %s, want 900 at 9bps", got)
	}
}

func TestFlashLoanRoundTrip(t *testing.T) {
	t.Parallel()

	led := ledger.New(zaptest.NewLogger(t))
	led.Mint(usdc, facilityAddr, big.NewInt(1_000_000))
	led.Mint(usdc, common.HexToAddress("0x000000000000000000000000000000000000dead"), big.NewInt(10_000))

	f := NewFacility(facilityAddr, 9, zaptest.NewLogger(t))
	recv := &repayingReceiver{led: led, gain: 1_000}

	_, err := led.Exec(budget, func(tx *ledger.Tx) error {
		return f.FlashLoan(tx, recv, usdc, big.NewInt(100_000), borrowerAddr, nil)
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	// Facility ends with principal + 90 premium.
	if got := led.BalanceOf(usdc, facilityAddr); got.Cmp(big.NewInt(1_000_090)) != 0 {
		t.Errorf("facility balance = %s, want 1000090", got)
	}

	// Borrower keeps gain minus premium.
	if got := led.BalanceOf(usdc, borrowerAddr); got.Cmp(big.NewInt(910)) != 0 {
		t.Errorf("borrower balance = %s, want 910", got)
	}
}

func TestFlashLoanCallbackFailureUnwindsLoan(t *testing.T) {
	t.Parallel()

	led := ledger.New(zaptest.NewLogger(t))
	led.Mint(usdc, facilityAddr, big.NewInt(1_000_000))

	f := NewFacility(facilityAddr, 9, zaptest.NewLogger(t))
	boom := errors.New("trade failed")
	recv := &repayingReceiver{led: led, err: boom}

	_, err := led.Exec(budget, func(tx *ledger.Tx) error {
		return f.FlashLoan(tx, recv, usdc, big.NewInt(100_000), borrowerAddr, nil)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Exec() error = %v, want trade failure", err)
	}

	// Loan itself must be unwound.
	if got := led.BalanceOf(usdc, facilityAddr); got.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Errorf("facility balance = %s, want 1000000 after rollback", got)
	}

	if got := led.BalanceOf(usdc, borrowerAddr); got.Sign() != 0 {
		t.Errorf("borrower balance = %s, want 0 after rollback", got)
	}
}

func TestFlashLoanMissingRepaymentApproval(t *testing.T) {
	t.Parallel()

	led := ledger.New(zaptest.NewLogger(t))
	led.Mint(usdc, facilityAddr, big.NewInt(1_000_000))

	f := NewFacility(facilityAddr, 9, zaptest.NewLogger(t))

	// Receiver that neither gains nor approves: repayment pull must fail.
	recv := &silentReceiver{}

	_, err := led.Exec(budget, func(tx *ledger.Tx) error {
		return f.FlashLoan(tx, recv, usdc, big.NewInt(100_000), borrowerAddr, nil)
	})
	if !errors.Is(err, ledger.ErrInsufficientAllowance) {
		t.Fatalf("Exec() error = %v, want ErrInsufficientAllowance", err)
	}
}

func TestFlashLoanExceedsFacilityLiquidity(t *testing.T) {
	t.Parallel()

	led := ledger.New(zaptest.NewLogger(t))
	led.Mint(usdc, facilityAddr, big.NewInt(100))

	f := NewFacility(facilityAddr, 9, zaptest.NewLogger(t))
	recv := &silentReceiver{}

	_, err := led.Exec(budget, func(tx *ledger.Tx) error {
		return f.FlashLoan(tx, recv, usdc, big.NewInt(1_000), borrowerAddr, nil)
	})
	if !errors.Is(err, ErrInsufficientFacilityLiquidity) {
		t.Fatalf("Exec() error = %v, want ErrInsufficientFacilityLiquidity", err)
	}
}

type silentReceiver struct{}

func (s *silentReceiver) Address() common.Address {
	return borrowerAddr
}

func (s *silentReceiver) OnLoanReceived(*ledger.Tx, common.Address, common.Address,
	*big.Int, *big.Int, common.Address, []byte,
) error {
	return nil
}
