package ledger

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap/zaptest"
)

var (
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob    = common.HexToAddress("0x0000000000000000000000000000000000000002")
	carol  = common.HexToAddress("0x0000000000000000000000000000000000000003")
)

const testBudget = 10_000

func TestExecCommitsOnSuccess(t *testing.T) {
	t.Parallel()

	l := New(zaptest.NewLogger(t))
	l.Mint(tokenA, alice, big.NewInt(100))

	used, err := l.Exec(testBudget, func(tx *Tx) error {
		return tx.Transfer(tokenA, alice, bob, big.NewInt(40))
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	if used == 0 {
		t.Error("workUsed = 0, want > 0")
	}

	if got := l.BalanceOf(tokenA, alice); got.Cmp(big.NewInt(60)) != 0 {
		t.Errorf("alice balance = %s, want 60", got)
	}

	if got := l.BalanceOf(tokenA, bob); got.Cmp(big.NewInt(40)) != 0 {
		t.Errorf("bob balance = %s, want 40", got)
	}
}

func TestExecRollsBackOnError(t *testing.T) {
	t.Parallel()

	l := New(zaptest.NewLogger(t))
	l.Mint(tokenA, alice, big.NewInt(100))

	boom := errors.New("boom")

	_, err := l.Exec(testBudget, func(tx *Tx) error {
		err := tx.Transfer(tokenA, alice, bob, big.NewInt(40))
		if err != nil {
			return err
		}

		err = tx.Approve(tokenA, alice, carol, big.NewInt(10))
		if err != nil {
			return err
		}

		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Exec() error = %v, want boom", err)
	}

	// Every effect, transfer and approval alike, must be gone.
	if got := l.BalanceOf(tokenA, alice); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("alice balance = %s, want 100 after rollback", got)
	}

	if got := l.BalanceOf(tokenA, bob); got.Sign() != 0 {
		t.Errorf("bob balance = %s, want 0 after rollback", got)
	}

	_, err = l.Exec(testBudget, func(tx *Tx) error {
		return tx.TransferFrom(tokenA, alice, carol, carol, big.NewInt(1))
	})
	if !errors.Is(err, ErrInsufficientAllowance) {
		t.Errorf("approval survived rollback: err = %v", err)
	}
}

func TestExecRollsBackOnPanic(t *testing.T) {
	t.Parallel()

	l := New(zaptest.NewLogger(t))
	l.Mint(tokenA, alice, big.NewInt(100))

	_, err := l.Exec(testBudget, func(tx *Tx) error {
		_ = tx.Transfer(tokenA, alice, bob, big.NewInt(40))
		panic("mid-transaction fault")
	})
	if err == nil {
		t.Fatal("Exec() error = nil, want panic error")
	}

	if got := l.BalanceOf(tokenA, alice); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("alice balance = %s, want 100 after panic rollback", got)
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	t.Parallel()

	l := New(zaptest.NewLogger(t))
	l.Mint(tokenA, alice, big.NewInt(10))

	_, err := l.Exec(testBudget, func(tx *Tx) error {
		return tx.Transfer(tokenA, alice, bob, big.NewInt(11))
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("Exec() error = %v, want ErrInsufficientBalance", err)
	}
}

func TestApproveAndTransferFrom(t *testing.T) {
	t.Parallel()

	l := New(zaptest.NewLogger(t))
	l.Mint(tokenA, alice, big.NewInt(100))

	_, err := l.Exec(testBudget, func(tx *Tx) error {
		err := tx.Approve(tokenA, alice, bob, big.NewInt(30))
		if err != nil {
			return err
		}

		err = tx.TransferFrom(tokenA, alice, bob, carol, big.NewInt(20))
		if err != nil {
			return err
		}

		// Allowance must shrink with the pull.
		allowed, err := tx.Allowance(tokenA, alice, bob)
		if err != nil {
			return err
		}
		if allowed.Cmp(big.NewInt(10)) != 0 {
			t.Errorf("allowance = %s, want 10", allowed)
		}

		// Pulling more than remains must fail.
		err = tx.TransferFrom(tokenA, alice, bob, carol, big.NewInt(11))
		if !errors.Is(err, ErrInsufficientAllowance) {
			t.Errorf("TransferFrom() error = %v, want ErrInsufficientAllowance", err)
		}

		return nil
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	if got := l.BalanceOf(tokenA, carol); got.Cmp(big.NewInt(20)) != 0 {
		t.Errorf("carol balance = %s, want 20", got)
	}
}

func TestNativeTransfer(t *testing.T) {
	t.Parallel()

	l := New(zaptest.NewLogger(t))
	l.MintNative(alice, big.NewInt(1000))

	_, err := l.Exec(testBudget, func(tx *Tx) error {
		return tx.TransferNative(alice, bob, big.NewInt(250))
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	if got := l.NativeBalanceOf(bob); got.Cmp(big.NewInt(250)) != 0 {
		t.Errorf("bob native = %s, want 250", got)
	}
}

func TestWorkBudgetExhausted(t *testing.T) {
	t.Parallel()

	l := New(zaptest.NewLogger(t))
	l.Mint(tokenA, alice, big.NewInt(1_000_000))

	_, err := l.Exec(25, func(tx *Tx) error {
		for i := 0; i < 10; i++ {
			err := tx.Transfer(tokenA, alice, bob, big.NewInt(1))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if !errors.Is(err, ErrWorkBudgetExhausted) {
		t.Fatalf("Exec() error = %v, want ErrWorkBudgetExhausted", err)
	}

	// Budget overrun aborts the whole unit.
	if got := l.BalanceOf(tokenA, bob); got.Sign() != 0 {
		t.Errorf("bob balance = %s, want 0 after budget rollback", got)
	}
}
