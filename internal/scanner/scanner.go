package scanner

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/msandoval/flasharb/pkg/types"
)

// Config holds scanner filter thresholds.
type Config struct {
	Network         string
	MonitoredTokens []common.Address
	MinLiquidityUSD float64
	DeltaLowerPct   float64 // exclusive lower bound on retained deltas
	DeltaUpperPct   float64 // exclusive upper bound; larger deltas are feed noise
	MaxPriceRatio   float64 // reject pairs whose prices differ by more than this factor
	PriceBandMin    float64 // plausible price magnitude band
	PriceBandMax    float64
	TopK            int
	Logger          *zap.Logger
}

// Scanner produces ranked cross-venue opportunities. Scan has no side
// effects and shares no mutable state across calls.
type Scanner struct {
	feed   *FeedClient
	config Config
	logger *zap.Logger
}

// New creates a scanner.
func New(cfg Config, feed *FeedClient) (*Scanner, error) {
	if feed == nil {
		return nil, fmt.Errorf("feed client cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	return &Scanner{
		feed:   feed,
		config: cfg,
		logger: cfg.Logger,
	}, nil
}

// usablePair is a feed entry that survived field validation.
type usablePair struct {
	venue     string
	base      common.Address
	quote     common.Address
	price     float64
	liquidity float64
	volume24h float64
}

// Scan queries the feed for every monitored token and returns accepted
// opportunities sorted descending by price delta, truncated to top-K.
// Individual token fetch failures are tolerated; the scan only fails when
// no token could be fetched at all.
func (s *Scanner) Scan(ctx context.Context) ([]types.Opportunity, error) {
	start := time.Now()
	defer func() {
		ScanDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	ScansTotal.Inc()

	var (
		opportunities []types.Opportunity
		fetched       int
		fetchErr      error
	)

	for _, token := range s.config.MonitoredTokens {
		pairs, err := s.feed.FetchTokenPairs(ctx, token)
		if err != nil {
			s.logger.Warn("pair-fetch-failed",
				zap.String("token", token.Hex()),
				zap.Error(err))
			fetchErr = err
			continue
		}

		fetched++
		opportunities = append(opportunities, s.evaluateToken(token, pairs)...)
	}

	if fetched == 0 && fetchErr != nil {
		return nil, fmt.Errorf("scan fetched no tokens: %w", fetchErr)
	}

	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].PriceDeltaPercent > opportunities[j].PriceDeltaPercent
	})

	if len(opportunities) > s.config.TopK {
		opportunities = opportunities[:s.config.TopK]
	}

	OpportunitiesFoundTotal.Add(float64(len(opportunities)))

	s.logger.Debug("scan-complete",
		zap.Int("opportunities", len(opportunities)),
		zap.Duration("elapsed", time.Since(start)))

	return opportunities, nil
}

// evaluateToken compares every unordered pair of usable pairs that share a
// quote asset and collects the accepted discrepancies.
func (s *Scanner) evaluateToken(token common.Address, pairs []Pair) []types.Opportunity {
	usable := make([]usablePair, 0, len(pairs))
	for _, pair := range pairs {
		parsed, ok := s.parsePair(token, pair)
		if !ok {
			continue
		}
		usable = append(usable, parsed)
	}

	var accepted []types.Opportunity

	for i := 0; i < len(usable); i++ {
		for j := i + 1; j < len(usable); j++ {
			opp, ok := s.compare(usable[i], usable[j])
			if !ok {
				continue
			}
			accepted = append(accepted, opp)
		}
	}

	return accepted
}

// parsePair validates one feed entry. Missing or malformed fields make the
// pair unusable, never an error.
func (s *Scanner) parsePair(token common.Address, pair Pair) (usablePair, bool) {
	if pair.ChainID != s.config.Network {
		return usablePair{}, false
	}

	if pair.DexID == "" || !common.IsHexAddress(pair.BaseToken.Address) ||
		!common.IsHexAddress(pair.QuoteToken.Address) {
		PairsRejectedTotal.WithLabelValues("malformed").Inc()
		return usablePair{}, false
	}

	base := common.HexToAddress(pair.BaseToken.Address)
	if base != token {
		return usablePair{}, false
	}

	price, err := strconv.ParseFloat(pair.PriceUSD, 64)
	if err != nil {
		PairsRejectedTotal.WithLabelValues("malformed").Inc()
		return usablePair{}, false
	}

	if price <= 0 || price < s.config.PriceBandMin || price > s.config.PriceBandMax {
		PairsRejectedTotal.WithLabelValues("price_band").Inc()
		return usablePair{}, false
	}

	return usablePair{
		venue:     pair.DexID,
		base:      base,
		quote:     common.HexToAddress(pair.QuoteToken.Address),
		price:     price,
		liquidity: pair.Liquidity.USD,
		volume24h: pair.Volume.H24,
	}, true
}

// compare applies the retention filters to one unordered pair of pairs.
func (s *Scanner) compare(a, b usablePair) (types.Opportunity, bool) {
	if a.quote != b.quote || a.venue == b.venue {
		return types.Opportunity{}, false
	}

	// Prices an order of magnitude apart indicate mismatched decimal or
	// quote conventions, not an opportunity.
	ratio := a.price / b.price
	if ratio < 1 {
		ratio = 1 / ratio
	}
	if ratio > s.config.MaxPriceRatio {
		PairsRejectedTotal.WithLabelValues("price_ratio").Inc()
		return types.Opportunity{}, false
	}

	// Exactly at the floor is excluded.
	if a.liquidity <= s.config.MinLiquidityUSD || b.liquidity <= s.config.MinLiquidityUSD {
		PairsRejectedTotal.WithLabelValues("liquidity").Inc()
		return types.Opportunity{}, false
	}

	delta := types.PriceDelta(a.price, b.price)

	// Strictly inside the window: at or outside either bound is noise or
	// feed corruption, never executed.
	if delta <= s.config.DeltaLowerPct || delta >= s.config.DeltaUpperPct {
		PairsRejectedTotal.WithLabelValues("delta_window").Inc()
		return types.Opportunity{}, false
	}

	return types.Opportunity{
		TokenIn:           a.base,
		TokenOut:          a.quote,
		VenueA:            a.venue,
		VenueB:            b.venue,
		PriceA:            a.price,
		PriceB:            b.price,
		PriceDeltaPercent: delta,
		LiquidityA:        a.liquidity,
		LiquidityB:        b.liquidity,
		Volume24hA:        a.volume24h,
		Volume24hB:        b.volume24h,
		ObservedAt:        time.Now(),
	}, true
}
