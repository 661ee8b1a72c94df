// Package storage persists execution outcomes.
package storage

import (
	"context"

	"github.com/msandoval/flasharb/pkg/types"
)

// Storage is the interface for recording execution outcomes.
type Storage interface {
	// StoreOutcome records one execution attempt's result.
	StoreOutcome(ctx context.Context, outcome *types.ExecutionOutcome) error

	// Close closes the storage connection.
	Close() error
}
