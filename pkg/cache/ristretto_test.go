package cache

import (
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func newTestCache(t *testing.T) Cache {
	t.Helper()

	c, err := NewRistrettoCache(&RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zaptest.NewLogger(t),
	})
	if err != nil {
		t.Fatalf("NewRistrettoCache() error = %v", err)
	}

	return c
}

func TestSetAndGet(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)

	ok := c.Set("pairs:0xabc", []string{"a", "b"}, time.Minute)
	if !ok {
		t.Fatal("Set() returned false")
	}

	// Ristretto applies writes asynchronously
	time.Sleep(20 * time.Millisecond)

	value, found := c.Get("pairs:0xabc")
	if !found {
		t.Fatal("Get() found = false, want true")
	}

	pairs, ok := value.([]string)
	if !ok || len(pairs) != 2 {
		t.Errorf("Get() value = %v, want 2-element slice", value)
	}
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)

	_, found := c.Get("missing")
	if found {
		t.Error("Get() found = true for missing key")
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	c := newTestCache(t)

	c.Set("key", 1, time.Minute)
	time.Sleep(20 * time.Millisecond)
	c.Delete("key")
	time.Sleep(20 * time.Millisecond)

	_, found := c.Get("key")
	if found {
		t.Error("Get() found deleted key")
	}
}
