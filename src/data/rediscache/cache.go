package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ava-verify/ava/src/core/types"
)

const keyPrefix = "ava:verdict:"

// Cache stores verdicts keyed by a hash of the normalized claim, so an
// identical claim asked twice within the TTL skips the whole pipeline.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, claim string) (*types.VerificationResult, bool) {
	raw, err := c.rdb.Get(ctx, Key(claim)).Bytes()
	if err != nil {
		if err != redis.Nil {
			zap.S().Warnw("verdict cache read failed", "error", err)
		}
		return nil, false
	}

	var result types.VerificationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (c *Cache) Put(ctx context.Context, claim string, result *types.VerificationResult) {
	b, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, Key(claim), b, c.ttl).Err(); err != nil {
		zap.S().Warnw("verdict cache write failed", "error", err)
	}
}

// Key derives the cache key from the normalized claim text.
func Key(claim string) string {
	return keyPrefix + fmt.Sprintf("%016x", xxhash.ChecksumString64(Normalize(claim)))
}

// Normalize lowercases and collapses whitespace so trivial rewording
// of the same claim still hits the cache.
func Normalize(claim string) string {
	return strings.Join(strings.Fields(strings.ToLower(claim)), " ")
}
