// ABOUTME: Expiring LRU cache of search results keyed by normalized query and limit.
// ABOUTME: Spares repeated full-table scans for popular queries; the table never changes.

package cache

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jfeddern/VulnSearch/internal/engine"
	"github.com/jfeddern/VulnSearch/internal/types"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

type SearchCache struct {
	lru    *expirable.LRU[string, []types.RecordSummary]
	logger *logrus.Logger
}

// NewSearchCache creates a cache holding at most size queries for ttl each.
// A size of zero or less disables caching.
func NewSearchCache(size int, ttl time.Duration, logger *logrus.Logger) *SearchCache {
	c := &SearchCache{logger: logger}
	if size > 0 {
		c.lru = expirable.NewLRU[string, []types.RecordSummary](size, nil, ttl)
	}
	return c
}

// Key normalizes a query so that spacing and letter case do not split entries
func Key(query string, limit int) string {
	return strings.Join(engine.Tokenize(query), " ") + "|" + strconv.Itoa(limit)
}

func (c *SearchCache) Get(query string, limit int) ([]types.RecordSummary, bool) {
	if c.lru == nil {
		return nil, false
	}

	key := Key(query, limit)
	results, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}

	c.logger.WithField("key", key).Debug("Cache hit")
	return slices.Clone(results), true
}

func (c *SearchCache) Set(query string, limit int, results []types.RecordSummary) {
	if c.lru == nil {
		return
	}

	key := Key(query, limit)
	c.lru.Add(key, slices.Clone(results))

	c.logger.WithField("key", key).Debug("Cached search results")
}

// Len returns the number of live entries
func (c *SearchCache) Len() int {
	if c.lru == nil {
		return 0
	}
	return c.lru.Len()
}
