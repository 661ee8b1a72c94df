package gas

import (
	"context"
	"math/big"
	"testing"
)

func TestStaticOracle(t *testing.T) {
	t.Parallel()

	o := NewStaticOracle(big.NewInt(40_000_000_000))

	price, err := o.SuggestGasPrice(context.Background())
	if err != nil {
		t.Fatalf("SuggestGasPrice() error = %v", err)
	}

	if price.Cmp(big.NewInt(40_000_000_000)) != 0 {
		t.Errorf("price = %s, want 40 gwei", price)
	}

	// Returned value must be a copy, not the internal pointer.
	price.SetInt64(0)

	again, _ := o.SuggestGasPrice(context.Background())
	if again.Sign() == 0 {
		t.Error("caller mutation leaked into oracle state")
	}
}

func TestAdjustPrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		price     int64
		adjustPct int64
		want      int64
	}{
		{name: "ten-percent-bump", price: 100, adjustPct: 10, want: 110},
		{name: "zero-adjustment", price: 100, adjustPct: 0, want: 100},
		{name: "negative-ignored", price: 100, adjustPct: -5, want: 100},
		{name: "rounds-down", price: 101, adjustPct: 10, want: 111},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := AdjustPrice(big.NewInt(tt.price), tt.adjustPct)
			if got.Cmp(big.NewInt(tt.want)) != 0 {
				t.Errorf("AdjustPrice(%d, %d) = %s, want %d",
					tt.price, tt.adjustPct, got, tt.want)
			}
		})
	}
}
