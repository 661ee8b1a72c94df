// Package ledger provides the in-process ledger the arbitrage engine runs
// against. Token balances, native reserves, and approvals live here, and
// Exec gives the atomic composition the whole design depends on: every
// effect of a transaction is kept only if the transaction returns nil, and
// fully discarded otherwise, with no intermediate state observable.
package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the
	// sender's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned when a pull exceeds the
	// spender's approval.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrWorkBudgetExhausted is returned when a transaction exceeds its
	// unit-of-work ceiling.
	ErrWorkBudgetExhausted = errors.New("work budget exhausted")
)

// Ledger holds committed state. All mutation goes through Exec; direct
// setters exist only for genesis seeding before the system starts.
type Ledger struct {
	mu        sync.Mutex
	balances  map[common.Address]map[common.Address]*big.Int // token -> account
	reserves  map[common.Address]*big.Int                    // native balance per account
	approvals map[approvalKey]*big.Int

	logger *zap.Logger
}

type approvalKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

// New creates an empty ledger.
func New(logger *zap.Logger) *Ledger {
	return &Ledger{
		balances:  make(map[common.Address]map[common.Address]*big.Int),
		reserves:  make(map[common.Address]*big.Int),
		approvals: make(map[approvalKey]*big.Int),
		logger:    logger,
	}
}

// Mint credits an account with tokens. Genesis seeding only.
func (l *Ledger) Mint(token, account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.creditLocked(token, account, amount)
}

// MintNative credits an account's native reserve. Genesis seeding only.
func (l *Ledger) MintNative(account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, ok := l.reserves[account]
	if !ok {
		cur = new(big.Int)
		l.reserves[account] = cur
	}
	cur.Add(cur, amount)
}

// BalanceOf returns the committed token balance of an account.
func (l *Ledger) BalanceOf(token, account common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return new(big.Int).Set(l.balanceLocked(token, account))
}

// Reader is the balance view a quote consults: the committed ledger
// outside a transaction, or the Tx overlay inside one. Tx satisfies it.
type Reader interface {
	BalanceOf(token, account common.Address) (*big.Int, error)
}

// Committed returns a Reader over committed state. It takes the ledger
// mutex per read, so it must never be used from inside Exec; code running
// in a transaction reads through its Tx instead.
func (l *Ledger) Committed() Reader {
	return committedReader{l: l}
}

type committedReader struct {
	l *Ledger
}

func (r committedReader) BalanceOf(token, account common.Address) (*big.Int, error) {
	return r.l.BalanceOf(token, account), nil
}

// NativeBalanceOf returns the committed native reserve of an account.
func (l *Ledger) NativeBalanceOf(account common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.reserves[account]; ok {
		return new(big.Int).Set(cur)
	}

	return new(big.Int)
}

// Exec runs fn as one atomic transaction with the given work budget.
// Effects are committed only when fn returns nil; an error or panic inside
// fn discards every pending write. Returns the work units consumed.
func (l *Ledger) Exec(budget uint64, fn func(tx *Tx) error) (workUsed uint64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &Tx{
		ledger:    l,
		balances:  make(map[common.Address]map[common.Address]*big.Int),
		reserves:  make(map[common.Address]*big.Int),
		approvals: make(map[approvalKey]*big.Int),
		remaining: budget,
		budget:    budget,
	}

	defer func() {
		if r := recover(); r != nil {
			workUsed = tx.workUsed()
			err = fmt.Errorf("transaction panic: %v", r)
			l.logger.Error("ledger-tx-panic", zap.Any("panic", r))
		}
	}()

	err = fn(tx)
	if err != nil {
		return tx.workUsed(), err
	}

	tx.commitLocked()

	return tx.workUsed(), nil
}

func (l *Ledger) balanceLocked(token, account common.Address) *big.Int {
	accounts, ok := l.balances[token]
	if !ok {
		return new(big.Int)
	}

	bal, ok := accounts[account]
	if !ok {
		return new(big.Int)
	}

	return bal
}

func (l *Ledger) creditLocked(token, account common.Address, amount *big.Int) {
	accounts, ok := l.balances[token]
	if !ok {
		accounts = make(map[common.Address]*big.Int)
		l.balances[token] = accounts
	}

	cur, ok := accounts[account]
	if !ok {
		cur = new(big.Int)
		accounts[account] = cur
	}
	cur.Add(cur, amount)
}
