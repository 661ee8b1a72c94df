package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds the operator credential that authorizes every execution
// attempt. The key is injected via configuration with process lifetime;
// it is never logged, persisted, or exposed beyond the derived address.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner parses a hex-encoded private key (with or without 0x prefix).
func NewSigner(privateKeyHex string) (*Signer, error) {
	if privateKeyHex == "" {
		return nil, errors.New("private key cannot be empty")
	}

	keyHex := strings.TrimPrefix(privateKeyHex, "0x")

	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// NewEphemeralSigner generates a throwaway key. Used for simulated ledgers
// and tests where no external credential is configured.
func NewEphemeralSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the operator's wallet address.
func (s *Signer) Address() common.Address {
	return s.address
}

// EngineAddress derives the deterministic address the engine is deployed at
// for a given deployment nonce, the same way contract creation does.
func (s *Signer) EngineAddress(nonce uint64) common.Address {
	return crypto.CreateAddress(s.address, nonce)
}
