package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"query-orchestrator/internal/models"
)

const (
	searchKeyPrefix = "rag:search:"
	staleKeyPrefix  = "rag:stale:"
)

// CachedStore caches search results in Redis. Every successful search is
// also written under a long-lived stale key that is served when the backend
// fails.
type CachedStore struct {
	next     Store
	redis    *redis.Client
	ttl      time.Duration
	staleTTL time.Duration
	logger   Logger
}

func NewCachedStore(next Store, rdb *redis.Client, ttl time.Duration, log Logger) *CachedStore {
	return &CachedStore{
		next:     next,
		redis:    rdb,
		ttl:      ttl,
		staleTTL: 24 * time.Hour,
		logger:   log,
	}
}

func (c *CachedStore) Search(ctx context.Context, text, tenant string, limit int) ([]models.Document, error) {
	key := searchCacheKey(text, tenant, limit)

	if docs, ok := c.get(ctx, searchKeyPrefix+key); ok {
		return docs, nil
	}

	docs, err := c.next.Search(ctx, text, tenant, limit)
	if err != nil {
		if stale, ok := c.get(ctx, staleKeyPrefix+key); ok {
			c.logger.Warn("serving stale search results", map[string]interface{}{
				"tenant": tenant,
				"error":  err.Error(),
				"count":  len(stale),
			})
			return stale, nil
		}
		return nil, err
	}

	c.set(ctx, searchKeyPrefix+key, docs, c.ttl)
	c.set(ctx, staleKeyPrefix+key, docs, c.staleTTL)
	return docs, nil
}

// FetchByIDs is not cached; documents may change between searches.
func (c *CachedStore) FetchByIDs(ctx context.Context, ids []string, tenant string) ([]models.Document, error) {
	return c.next.FetchByIDs(ctx, ids, tenant)
}

func (c *CachedStore) get(ctx context.Context, key string) ([]models.Document, bool) {
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return nil, false
	}
	var docs []models.Document
	if err := json.Unmarshal([]byte(val), &docs); err != nil {
		return nil, false
	}
	return docs, true
}

func (c *CachedStore) set(ctx context.Context, key string, docs []models.Document, ttl time.Duration) {
	data, err := json.Marshal(docs)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

// searchCacheKey hashes the normalized query so arbitrarily long input
// still yields a short key.
func searchCacheKey(text, tenant string, limit int) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(text))))
	return tenant + ":" + strconv.Itoa(limit) + ":" + hex.EncodeToString(sum[:])
}
