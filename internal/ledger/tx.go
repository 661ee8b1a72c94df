package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Work-unit costs per ledger operation. The submission's budget bounds the
// total a transaction may consume.
const (
	costRead     = 2
	costWrite    = 5
	costTransfer = 10
)

var _ Reader = (*Tx)(nil)

// Tx is a pending transaction view over the ledger: reads see pending writes
// first, then committed state; writes land in the overlay until commit.
// A Tx is only ever used from inside Ledger.Exec and is not safe to retain.
type Tx struct {
	ledger    *Ledger
	balances  map[common.Address]map[common.Address]*big.Int
	reserves  map[common.Address]*big.Int
	approvals map[approvalKey]*big.Int
	budget    uint64
	remaining uint64
}

func (tx *Tx) workUsed() uint64 {
	return tx.budget - tx.remaining
}

func (tx *Tx) charge(cost uint64) error {
	if tx.remaining < cost {
		tx.remaining = 0
		return ErrWorkBudgetExhausted
	}

	tx.remaining -= cost

	return nil
}

// BalanceOf returns the token balance of an account as seen by this
// transaction, pending writes included.
func (tx *Tx) BalanceOf(token, account common.Address) (*big.Int, error) {
	err := tx.charge(costRead)
	if err != nil {
		return nil, err
	}

	return new(big.Int).Set(tx.balance(token, account)), nil
}

// Transfer moves tokens between accounts within the transaction.
func (tx *Tx) Transfer(token, from, to common.Address, amount *big.Int) error {
	err := tx.charge(costTransfer)
	if err != nil {
		return err
	}

	if amount.Sign() < 0 {
		return fmt.Errorf("negative transfer amount %s", amount)
	}

	fromBal := tx.balance(token, from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s of %s, need %s",
			ErrInsufficientBalance, from.Hex(), fromBal, token.Hex(), amount)
	}

	tx.setBalance(token, from, new(big.Int).Sub(fromBal, amount))
	tx.setBalance(token, to, new(big.Int).Add(tx.balance(token, to), amount))

	return nil
}

// Approve grants spender the right to pull up to amount of owner's tokens.
func (tx *Tx) Approve(token, owner, spender common.Address, amount *big.Int) error {
	err := tx.charge(costWrite)
	if err != nil {
		return err
	}

	tx.approvals[approvalKey{token: token, owner: owner, spender: spender}] = new(big.Int).Set(amount)

	return nil
}

// Allowance returns the remaining approval for spender over owner's tokens.
func (tx *Tx) Allowance(token, owner, spender common.Address) (*big.Int, error) {
	err := tx.charge(costRead)
	if err != nil {
		return nil, err
	}

	return new(big.Int).Set(tx.allowance(token, owner, spender)), nil
}

// TransferFrom pulls tokens from owner to recipient against spender's
// approval, decrementing the allowance.
func (tx *Tx) TransferFrom(token, owner, spender, to common.Address, amount *big.Int) error {
	allowed := tx.allowance(token, owner, spender)
	if allowed.Cmp(amount) < 0 {
		return fmt.Errorf("%w: spender %s allowed %s of %s, need %s",
			ErrInsufficientAllowance, spender.Hex(), allowed, token.Hex(), amount)
	}

	err := tx.Transfer(token, owner, to, amount)
	if err != nil {
		return err
	}

	key := approvalKey{token: token, owner: owner, spender: spender}
	tx.approvals[key] = new(big.Int).Sub(allowed, amount)

	return nil
}

// NativeBalanceOf returns an account's native reserve within the transaction.
func (tx *Tx) NativeBalanceOf(account common.Address) (*big.Int, error) {
	err := tx.charge(costRead)
	if err != nil {
		return nil, err
	}

	return new(big.Int).Set(tx.nativeBalance(account)), nil
}

// TransferNative moves native reserve between accounts.
func (tx *Tx) TransferNative(from, to common.Address, amount *big.Int) error {
	err := tx.charge(costTransfer)
	if err != nil {
		return err
	}

	fromBal := tx.nativeBalance(from)
	if fromBal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has native %s, need %s",
			ErrInsufficientBalance, from.Hex(), fromBal, amount)
	}

	tx.reserves[from] = new(big.Int).Sub(fromBal, amount)
	tx.reserves[to] = new(big.Int).Add(tx.nativeBalance(to), amount)

	return nil
}

func (tx *Tx) balance(token, account common.Address) *big.Int {
	if accounts, ok := tx.balances[token]; ok {
		if bal, ok := accounts[account]; ok {
			return bal
		}
	}

	return tx.ledger.balanceLocked(token, account)
}

func (tx *Tx) setBalance(token, account common.Address, amount *big.Int) {
	accounts, ok := tx.balances[token]
	if !ok {
		accounts = make(map[common.Address]*big.Int)
		tx.balances[token] = accounts
	}
	accounts[account] = amount
}

func (tx *Tx) allowance(token, owner, spender common.Address) *big.Int {
	key := approvalKey{token: token, owner: owner, spender: spender}
	if allowed, ok := tx.approvals[key]; ok {
		return allowed
	}

	if allowed, ok := tx.ledger.approvals[key]; ok {
		return allowed
	}

	return new(big.Int)
}

func (tx *Tx) nativeBalance(account common.Address) *big.Int {
	if bal, ok := tx.reserves[account]; ok {
		return bal
	}

	if bal, ok := tx.ledger.reserves[account]; ok {
		return bal
	}

	return new(big.Int)
}

// commitLocked merges the overlay into committed state. Caller holds the
// ledger mutex.
func (tx *Tx) commitLocked() {
	for token, accounts := range tx.balances {
		committed, ok := tx.ledger.balances[token]
		if !ok {
			committed = make(map[common.Address]*big.Int)
			tx.ledger.balances[token] = committed
		}
		for account, bal := range accounts {
			committed[account] = bal
		}
	}

	for account, bal := range tx.reserves {
		tx.ledger.reserves[account] = bal
	}

	for key, allowed := range tx.approvals {
		tx.ledger.approvals[key] = allowed
	}
}
