package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Opportunity is a priced cross-venue discrepancy produced by one scan.
// It is ephemeral: consumed or discarded within a single control-loop
// iteration, never persisted.
type Opportunity struct {
	TokenIn           common.Address `json:"tokenIn"`
	TokenOut          common.Address `json:"tokenOut"`
	VenueA            string         `json:"venueA"`
	VenueB            string         `json:"venueB"`
	PriceA            float64        `json:"priceA"`
	PriceB            float64        `json:"priceB"`
	PriceDeltaPercent float64        `json:"priceDeltaPercent"`
	LiquidityA        float64        `json:"liquidityA"`
	LiquidityB        float64        `json:"liquidityB"`
	Volume24hA        float64        `json:"volume24hA"`
	Volume24hB        float64        `json:"volume24hB"`
	ObservedAt        time.Time      `json:"observedAt"`
}

// PriceDelta computes the relative spread between two quotes as a percentage
// of their average. Returns 0 if either price is non-positive.
func PriceDelta(priceA, priceB float64) float64 {
	if priceA <= 0 || priceB <= 0 {
		return 0
	}

	avg := (priceA + priceB) / 2
	diff := priceA - priceB
	if diff < 0 {
		diff = -diff
	}

	return diff / avg * 100
}
