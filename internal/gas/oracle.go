// Package gas provides the network gas price used to gate and price
// execution attempts.
package gas

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// Oracle reports the current network gas price.
type Oracle interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// StaticOracle returns a fixed price. Used with the simulated ledger and in
// tests.
type StaticOracle struct {
	mu    sync.RWMutex
	price *big.Int
}

// NewStaticOracle creates an oracle pinned at price wei.
func NewStaticOracle(price *big.Int) *StaticOracle {
	return &StaticOracle{price: new(big.Int).Set(price)}
}

// SuggestGasPrice returns the pinned price.
func (s *StaticOracle) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return new(big.Int).Set(s.price), nil
}

// SetPrice repins the price. Test hook.
func (s *StaticOracle) SetPrice(price *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.price = new(big.Int).Set(price)
}

// RPCOracle asks an Ethereum JSON-RPC node for the suggested gas price.
type RPCOracle struct {
	rpcURL string
	logger *zap.Logger
}

// NewRPCOracle creates an oracle backed by the node at rpcURL.
func NewRPCOracle(rpcURL string, logger *zap.Logger) (*RPCOracle, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("rpcURL cannot be empty")
	}

	return &RPCOracle{rpcURL: rpcURL, logger: logger}, nil
}

// SuggestGasPrice dials the node and returns its suggestion.
func (r *RPCOracle) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	client, err := ethclient.DialContext(ctx, r.rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	defer client.Close()

	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	r.logger.Debug("gas-price-fetched", zap.String("price-wei", price.String()))

	return price, nil
}

// AdjustPrice bumps price by adjustPct percent, never below the original.
// The controller applies this bounded adjustment before submission.
func AdjustPrice(price *big.Int, adjustPct int64) *big.Int {
	if adjustPct <= 0 {
		return new(big.Int).Set(price)
	}

	adjusted := new(big.Int).Mul(price, big.NewInt(100+adjustPct))

	return adjusted.Div(adjusted, big.NewInt(100))
}
