// ABOUTME: Unit tests for the search result cache.
// ABOUTME: Tests key normalization, hits and misses, expiration, and the disabled mode.

package cache

import (
	"testing"
	"time"

	"github.com/jfeddern/VulnSearch/internal/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCache(t *testing.T) {
	logger := logrus.New()
	cache := NewSearchCache(10, time.Minute, logger)

	results := []types.RecordSummary{
		{ID: "BDU:2024-00001", Name: "Nginx vuln 1", Software: "nginx"},
		{ID: "BDU:2024-00002", Name: "Nginx vuln 2", Software: "nginx"},
	}

	t.Run("cache miss", func(t *testing.T) {
		_, ok := cache.Get("nonexistent", 5)
		assert.False(t, ok)
	})

	t.Run("cache hit with normalized query", func(t *testing.T) {
		cache.Set("nginx", 5, results)

		got, ok := cache.Get("  NGINX ", 5)
		require.True(t, ok)
		assert.Equal(t, results, got)
	})

	t.Run("limit is part of the key", func(t *testing.T) {
		_, ok := cache.Get("nginx", 10)
		assert.False(t, ok)
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		got, ok := cache.Get("nginx", 5)
		require.True(t, ok)
		got[0].ID = "mutated"

		again, _ := cache.Get("nginx", 5)
		assert.Equal(t, "BDU:2024-00001", again[0].ID)
	})

	t.Run("len", func(t *testing.T) {
		assert.Equal(t, 1, cache.Len())
	})
}

func TestCacheExpiration(t *testing.T) {
	logger := logrus.New()
	cache := NewSearchCache(10, 100*time.Millisecond, logger)

	cache.Set("nginx", 5, []types.RecordSummary{{ID: "BDU:2024-00001"}})

	_, ok := cache.Get("nginx", 5)
	assert.True(t, ok, "Expected cache hit immediately after set")

	time.Sleep(150 * time.Millisecond)

	_, ok = cache.Get("nginx", 5)
	assert.False(t, ok, "Expected cache miss after expiration")
}

func TestCacheDisabled(t *testing.T) {
	cache := NewSearchCache(0, time.Minute, logrus.New())

	cache.Set("nginx", 5, []types.RecordSummary{{ID: "BDU:2024-00001"}})

	_, ok := cache.Get("nginx", 5)
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

func TestKey(t *testing.T) {
	assert.Equal(t, Key("nginx 1.5.6", 5), Key("  Nginx\t1.5.6 ", 5))
	assert.NotEqual(t, Key("nginx", 5), Key("nginx", 6))
	assert.Equal(t, "|5", Key("   ", 5))
}
