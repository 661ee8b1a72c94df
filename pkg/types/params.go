package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ArbitrageParams describes one execution attempt, constructed fresh per
// attempt from the chosen Opportunity and current settings. It travels
// through the lending facility as an opaque ABI-encoded blob and is decoded
// again inside the loan callback.
type ArbitrageParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	FeeLeg1           uint32 // fee tier for swap leg 1 (e.g. 500, 3000, 10000)
	FeeLeg2           uint32 // fee tier for swap leg 2 on the primary venue
	UseAlternateVenue bool   // route leg 2 through the alternate venue
}

// Validate checks the parameter invariants before submission.
func (p *ArbitrageParams) Validate() error {
	if p.AmountIn == nil || p.AmountIn.Sign() <= 0 {
		return fmt.Errorf("amountIn must be positive")
	}

	if p.TokenIn == (common.Address{}) || p.TokenOut == (common.Address{}) {
		return fmt.Errorf("tokenIn and tokenOut must be set")
	}

	if p.TokenIn == p.TokenOut {
		return fmt.Errorf("tokenIn and tokenOut must differ")
	}

	return nil
}

func mustABIType(solidity string) abi.Type {
	t, err := abi.NewType(solidity, "", nil)
	if err != nil {
		panic(err)
	}

	return t
}

//nolint:gochecknoglobals // ABI schema, immutable after init
var paramsArguments = abi.Arguments{
	{Name: "tokenIn", Type: mustABIType("address")},
	{Name: "tokenOut", Type: mustABIType("address")},
	{Name: "amountIn", Type: mustABIType("uint256")},
	{Name: "feeLeg1", Type: mustABIType("uint24")},
	{Name: "feeLeg2", Type: mustABIType("uint24")},
	{Name: "useAlternateVenue", Type: mustABIType("bool")},
}

// Encode packs the params into the ABI blob passed through the loan callback.
func (p *ArbitrageParams) Encode() ([]byte, error) {
	err := p.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate params: %w", err)
	}

	packed, err := paramsArguments.Pack(
		p.TokenIn,
		p.TokenOut,
		p.AmountIn,
		big.NewInt(int64(p.FeeLeg1)),
		big.NewInt(int64(p.FeeLeg2)),
		p.UseAlternateVenue,
	)
	if err != nil {
		return nil, fmt.Errorf("pack params: %w", err)
	}

	return packed, nil
}

// DecodeArbitrageParams unpacks a blob produced by Encode.
func DecodeArbitrageParams(blob []byte) (*ArbitrageParams, error) {
	values, err := paramsArguments.Unpack(blob)
	if err != nil {
		return nil, fmt.Errorf("unpack params: %w", err)
	}

	if len(values) != 6 {
		return nil, fmt.Errorf("unexpected param count %d", len(values))
	}

	tokenIn, ok := values[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("tokenIn has unexpected type %T", values[0])
	}

	tokenOut, ok := values[1].(common.Address)
	if !ok {
		return nil, fmt.Errorf("tokenOut has unexpected type %T", values[1])
	}

	amountIn, ok := values[2].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("amountIn has unexpected type %T", values[2])
	}

	feeLeg1, ok := values[3].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("feeLeg1 has unexpected type %T", values[3])
	}

	feeLeg2, ok := values[4].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("feeLeg2 has unexpected type %T", values[4])
	}

	useAlternate, ok := values[5].(bool)
	if !ok {
		return nil, fmt.Errorf("useAlternateVenue has unexpected type %T", values[5])
	}

	params := &ArbitrageParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		FeeLeg1:           uint32(feeLeg1.Uint64()),
		FeeLeg2:           uint32(feeLeg2.Uint64()),
		UseAlternateVenue: useAlternate,
	}

	err = params.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate decoded params: %w", err)
	}

	return params, nil
}
