// Package cache keeps inference answers in Redis keyed by image content and
// question, so re-asking the same question about the same drawing skips the
// remote call. The cache is best-effort: failures are logged by callers and
// never fail a run.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type AnswerCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(addr string, ttl time.Duration) *AnswerCache {
	return &AnswerCache{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		ttl: ttl,
	}
}

// Key derives the cache key from the raw image bytes and the question text.
func Key(image []byte, question string) string {
	h := sha256.New()
	h.Write(image)
	h.Write([]byte{0})
	h.Write([]byte(question))
	return "answer:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached answer and whether one was present.
func (c *AnswerCache) Get(ctx context.Context, key string) (string, bool, error) {
	answer, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read answer cache: %w", err)
	}
	return answer, true, nil
}

func (c *AnswerCache) Set(ctx context.Context, key, answer string) error {
	if err := c.rdb.Set(ctx, key, answer, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write answer cache: %w", err)
	}
	return nil
}

func (c *AnswerCache) Close() error {
	return c.rdb.Close()
}
