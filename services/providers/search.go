package providers

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sourcegraph/conc"

	"dramastream/models"
	"dramastream/utils/similarity"
)

const (
	searchCacheSize = 256
	searchCacheTTL  = 5 * time.Minute
)

type cachedSearch struct {
	results   []models.Drama
	expiresAt time.Time
}

// MultiSearch fans a query out to every registered adapter and merges
// the results ranked by title similarity. Results are cached in a
// bounded LRU since the same query tends to be retyped across platform
// switches.
type MultiSearch struct {
	registry *Registry

	mu    sync.Mutex
	cache *lru.Cache[string, cachedSearch]
	ttl   time.Duration
}

// NewMultiSearch builds the cross-provider search over the registry.
func NewMultiSearch(registry *Registry) *MultiSearch {
	cache, _ := lru.New[string, cachedSearch](searchCacheSize)
	return &MultiSearch{registry: registry, cache: cache, ttl: searchCacheTTL}
}

// Search queries all platforms concurrently. A failing provider
// contributes nothing; the merged list is still returned as long as any
// provider answered. The same title on two providers stays two entries.
func (s *MultiSearch) Search(ctx context.Context, query string) []models.Drama {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Drama{}
	}

	cacheKey := strings.ToLower(query)
	s.mu.Lock()
	if hit, ok := s.cache.Get(cacheKey); ok && time.Now().Before(hit.expiresAt) {
		s.mu.Unlock()
		return hit.results
	}
	s.mu.Unlock()

	var (
		resultsMu sync.Mutex
		merged    []models.Drama
		wg        conc.WaitGroup
	)

	for _, adapter := range s.registry.All() {
		adapter := adapter
		wg.Go(func() {
			results, err := adapter.Search(ctx, query)
			if err != nil {
				log.Printf("[search] %s unavailable: %v", adapter.Platform(), err)
				return
			}
			resultsMu.Lock()
			merged = append(merged, results...)
			resultsMu.Unlock()
		})
	}
	wg.Wait()

	sort.SliceStable(merged, func(i, j int) bool {
		return similarity.Score(merged[i].Title, query) > similarity.Score(merged[j].Title, query)
	})

	s.mu.Lock()
	s.cache.Add(cacheKey, cachedSearch{results: merged, expiresAt: time.Now().Add(s.ttl)})
	s.mu.Unlock()

	return merged
}
