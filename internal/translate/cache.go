package translate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultCacheTTL = 7 * 24 * time.Hour

// Cache keeps translations in Redis keyed by target language and a digest of the source text.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Cache) key(lang, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "tr:" + lang + ":" + hex.EncodeToString(sum[:16])
}

// Get reports a cached translation. Redis errors read as a miss.
func (c *Cache) Get(ctx context.Context, lang, text string) (string, bool) {
	v, err := c.rdb.Get(ctx, c.key(lang, text)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.Debug("translate_cache_get_failed", zap.Error(err))
		return "", false
	}
	return v, true
}

func (c *Cache) Set(ctx context.Context, lang, text, translated string) {
	if err := c.rdb.Set(ctx, c.key(lang, text), translated, c.ttl).Err(); err != nil {
		c.logger.Debug("translate_cache_set_failed", zap.Error(err))
	}
}
