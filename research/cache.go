package research

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"lexdraft-backend/fields"
	"lexdraft-backend/logger"
	"lexdraft-backend/models"
)

const defaultCachePrefix = "lexdraft:research:"

// Cache memoizes another retriever's results in Redis.
// Redis failures degrade to uncached lookups.
type Cache struct {
	next   Retriever
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger logger.Logger
}

// NewCache wraps next with a Redis cache
func NewCache(next Retriever, client *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Cache{next: next, redis: client, ttl: ttl, prefix: defaultCachePrefix, logger: log}
}

func (c *Cache) Retrieve(ctx context.Context, phrase string) ([]models.Snippet, error) {
	key := c.key(phrase)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var snippets []models.Snippet
		if err := json.Unmarshal([]byte(val), &snippets); err == nil {
			c.logger.Debug("Research cache hit", logger.Fields{"phrase": phrase})
			return snippets, nil
		}
		c.logger.Warn("Discarding unreadable cache entry", logger.Fields{"key": key})
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Research cache unavailable", logger.Fields{"error": err.Error()})
	}

	snippets, err := c.next.Retrieve(ctx, phrase)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(snippets)
	if err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to store research cache entry", logger.Fields{"error": err.Error()})
		}
	}
	return snippets, nil
}

func (c *Cache) key(phrase string) string {
	return c.prefix + strings.Join(strings.Fields(fields.Fold(phrase)), " ")
}
