// Package scanner discovers priced-asset discrepancies across venues from
// an external aggregation feed.
package scanner

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/msandoval/flasharb/pkg/cache"
)

// TokenRef identifies one side of a traded pair.
type TokenRef struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

// PairLiquidity is the pair's depth in quote currency.
type PairLiquidity struct {
	USD float64 `json:"usd"`
}

// PairVolume is the pair's trailing volume.
type PairVolume struct {
	H24 float64 `json:"h24"`
}

// Pair is one feed entry. Fields may be missing or malformed; consumers
// treat such pairs as unusable rather than failing the scan.
type Pair struct {
	ChainID    string        `json:"chainId"`
	DexID      string        `json:"dexId"`
	PriceUSD   string        `json:"priceUsd"`
	BaseToken  TokenRef      `json:"baseToken"`
	QuoteToken TokenRef      `json:"quoteToken"`
	Liquidity  PairLiquidity `json:"liquidity"`
	Volume     PairVolume    `json:"volume"`
}

type pairsResponse struct {
	Pairs []Pair `json:"pairs"`
}

// FeedClient fetches known trading pairs for a token from the price feed.
type FeedClient struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.Cache
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewFeedClient creates a feed client. cache may be nil to disable caching.
func NewFeedClient(baseURL string, timeout time.Duration, feedCache cache.Cache,
	cacheTTL time.Duration, logger *zap.Logger,
) *FeedClient {
	return &FeedClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:    feedCache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// FetchTokenPairs returns all pairs the feed knows for token.
func (c *FeedClient) FetchTokenPairs(ctx context.Context, token common.Address) ([]Pair, error) {
	cacheKey := "pairs:" + token.Hex()

	if c.cache != nil {
		if cached, found := c.cache.Get(cacheKey); found {
			if pairs, ok := cached.([]Pair); ok {
				return pairs, nil
			}
		}
	}

	requestURL := fmt.Sprintf("%s/tokens/%s", c.baseURL, token.Hex())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "flasharb/1.0")

	c.logger.Debug("fetching-pairs", zap.String("url", requestURL))

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		FeedErrorsTotal.Inc()
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	FeedRequestDurationSeconds.Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		FeedErrorsTotal.Inc()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		FeedErrorsTotal.Inc()
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var parsed pairsResponse
	err = json.Unmarshal(body, &parsed)
	if err != nil {
		FeedErrorsTotal.Inc()
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	PairsFetchedTotal.Add(float64(len(parsed.Pairs)))

	c.logger.Debug("fetched-pairs",
		zap.String("token", token.Hex()),
		zap.Int("count", len(parsed.Pairs)))

	if c.cache != nil {
		c.cache.Set(cacheKey, parsed.Pairs, c.cacheTTL)
	}

	return parsed.Pairs, nil
}
