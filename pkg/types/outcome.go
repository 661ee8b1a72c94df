package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ExecutionOutcome records the result of one execution attempt. It is
// produced exactly once per attempt and never mutated afterward.
type ExecutionOutcome struct {
	ID            string         // attempt UUID
	Succeeded     bool
	Asset         common.Address
	Amount        *big.Int // borrowed principal
	Profit        *big.Int // realized profit, only set on success
	TxRef         common.Hash    // execution reference, only set on success
	FailureReason ReasonCode     // only set on failure
	WorkUsed      uint64         // units of the submission's work budget consumed
	ExecutedAt    time.Time
}

// Quote is the result of a single venue quote call. Available distinguishes
// "the venue answered zero" from "no answer could be obtained", so callers
// can retry or exclude instead of treating silence as a zero price.
type Quote struct {
	AmountOut *big.Int
	Available bool
}

// QuoteUnavailable is the tagged zero quote used when a venue call fails.
func QuoteUnavailable() Quote {
	return Quote{AmountOut: new(big.Int), Available: false}
}

// QuoteOf wraps a successful quote amount.
func QuoteOf(amount *big.Int) Quote {
	return Quote{AmountOut: amount, Available: true}
}

// OpportunityQuote is the engine's two-leg round-trip estimate.
type OpportunityQuote struct {
	Profitable        bool
	ExpectedProfit    *big.Int // quoteBack - testAmount, may be negative
	RecommendedAmount *big.Int // suggested principal, zero when not profitable
	Available         bool     // false when either leg's quote was unavailable
}
