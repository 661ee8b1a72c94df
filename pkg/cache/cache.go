package cache

import "time"

// Cache is a TTL cache for feed responses. A scan over many monitored assets
// frequently re-resolves the same quote token; the cache keeps those lookups
// off the wire within one TTL window.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration) bool
	Delete(key string)
	Clear()
}
