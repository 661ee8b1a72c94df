package types

import "math/big"

// Settings are the owner-controlled execution thresholds. They are read
// fresh at the moment of every submission, never cached by the engine.
type Settings struct {
	MinProfitBPS   uint64   // minimum acceptable profit, basis points of the probe amount
	MaxGasPrice    *big.Int // wei; submissions above this are rejected
	MaxSlippageBPS uint64   // per-leg slippage tolerance, basis points
}

// Clone returns a deep copy so callers cannot mutate stored state through
// the shared MaxGasPrice pointer.
func (s Settings) Clone() Settings {
	out := s
	if s.MaxGasPrice != nil {
		out.MaxGasPrice = new(big.Int).Set(s.MaxGasPrice)
	}

	return out
}
