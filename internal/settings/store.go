// Package settings holds the owner-controlled execution thresholds.
package settings

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/msandoval/flasharb/pkg/types"
)

// Store is the single holder of current settings. Only the owner may
// mutate it; every execution attempt reads it fresh at submission time.
// No range validation is imposed on new values.
type Store struct {
	mu      sync.RWMutex
	owner   common.Address
	current types.Settings
}

// NewStore creates a store owned by owner with initial settings.
func NewStore(owner common.Address, initial types.Settings) *Store {
	return &Store{
		owner:   owner,
		current: initial.Clone(),
	}
}

// Get returns a copy of the current settings.
func (s *Store) Get() types.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current.Clone()
}

// Set unconditionally overwrites the settings. Owner only.
func (s *Store) Set(caller common.Address, next types.Settings) error {
	if caller != s.owner {
		return types.NewEngineError(types.ReasonAccessDenied,
			"caller %s is not the owner", caller.Hex())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = next.Clone()

	return nil
}

// Owner returns the owning address.
func (s *Store) Owner() common.Address {
	return s.owner
}
