package scanner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap/zaptest"

	"github.com/msandoval/flasharb/pkg/cache"
)

func TestFetchTokenPairs(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/tokens/" + weth.Hex()
		if r.URL.Path != wantPath {
			t.Errorf("path = %s, want %s", r.URL.Path, wantPath)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pairsResponse{Pairs: []Pair{
			pairJSON("uniswap", "100", 100_000),
		}})
	}))
	defer server.Close()

	c := NewFeedClient(server.URL, 5*time.Second, nil, 0, zaptest.NewLogger(t))

	pairs, err := c.FetchTokenPairs(context.Background(), weth)
	if err != nil {
		t.Fatalf("FetchTokenPairs() error = %v", err)
	}

	if len(pairs) != 1 || pairs[0].DexID != "uniswap" {
		t.Errorf("pairs = %+v, want one uniswap pair", pairs)
	}
}

func TestFetchTokenPairsNonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewFeedClient(server.URL, 5*time.Second, nil, 0, zaptest.NewLogger(t))

	_, err := c.FetchTokenPairs(context.Background(), weth)
	if err == nil {
		t.Fatal("FetchTokenPairs() error = nil, want status error")
	}
}

func TestFetchTokenPairsMalformedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	c := NewFeedClient(server.URL, 5*time.Second, nil, 0, zaptest.NewLogger(t))

	_, err := c.FetchTokenPairs(context.Background(), weth)
	if err == nil {
		t.Fatal("FetchTokenPairs() error = nil, want unmarshal error")
	}
}

func TestFetchTokenPairsUsesCache(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pairsResponse{Pairs: []Pair{
			pairJSON("uniswap", "100", 100_000),
		}})
	}))
	defer server.Close()

	feedCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("NewRistrettoCache() error = %v", err)
	}

	c := NewFeedClient(server.URL, 5*time.Second, feedCache, time.Minute, zaptest.NewLogger(t))

	_, err = c.FetchTokenPairs(context.Background(), weth)
	if err != nil {
		t.Fatalf("first fetch error = %v", err)
	}

	// Ristretto applies writes asynchronously
	time.Sleep(20 * time.Millisecond)

	_, err = c.FetchTokenPairs(context.Background(), weth)
	if err != nil {
		t.Fatalf("second fetch error = %v", err)
	}

	if hits.Load() != 1 {
		t.Errorf("feed hit %d times, want 1 (second read from cache)", hits.Load())
	}
}
