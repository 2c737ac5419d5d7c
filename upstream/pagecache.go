package upstream

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"dramastream/models"
)

// HomeCacheTTL is the freshness window for cached homepage responses.
const HomeCacheTTL = 30 * time.Second

// PageCache holds raw homepage payloads keyed by platform and page
// number. Entries are only superseded by time, never evicted by size,
// and live for the process lifetime only.
type PageCache struct {
	store *gocache.Cache
}

// NewPageCache builds a cache with the standard homepage TTL.
func NewPageCache() *PageCache {
	return NewPageCacheTTL(HomeCacheTTL)
}

// NewPageCacheTTL builds a cache with a custom TTL, used by tests.
func NewPageCacheTTL(ttl time.Duration) *PageCache {
	return &PageCache{store: gocache.New(ttl, 2*ttl)}
}

// Get returns the cached payload for the page, if still fresh.
func (c *PageCache) Get(platform models.Platform, page int) (Raw, bool) {
	v, ok := c.store.Get(pageKey(platform, page))
	if !ok {
		return nil, false
	}
	raw, ok := v.(Raw)
	return raw, ok
}

// Put stores the payload under the platform and page key.
func (c *PageCache) Put(platform models.Platform, page int, payload Raw) {
	c.store.Set(pageKey(platform, page), payload, gocache.DefaultExpiration)
}

func pageKey(platform models.Platform, page int) string {
	return fmt.Sprintf("%s:%d", platform, page)
}
