package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a read-through copy of stored carts keyed by owner.
type Cache interface {
	Get(ctx context.Context, ownerID string) (*Cart, error)
	Set(ctx context.Context, ownerID string, cart *Cart) error
	Delete(ctx context.Context, ownerID string) error
}

var ErrCacheMiss = errors.New("cart not cached")

const (
	cacheTTL    = 15 * time.Minute
	cacheJitter = 5 * time.Minute
	keyPrefix   = "cart:"
)

type RedisCache struct {
	rdb redis.Cmdable
}

func NewRedisCache(rdb redis.Cmdable) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, ownerID string) (*Cart, error) {
	raw, err := c.rdb.Get(ctx, cacheKey(ownerID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("read cached cart %s: %w", ownerID, err)
	}

	cart := new(Cart)
	if err := json.Unmarshal(raw, cart); err != nil {
		return nil, fmt.Errorf("decode cached cart %s: %w", ownerID, err)
	}
	return cart, nil
}

// Set stores the cart for cacheTTL plus up to cacheJitter, so entries written
// in the same burst expire at different times.
func (c *RedisCache) Set(ctx context.Context, ownerID string, cart *Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart %s: %w", ownerID, err)
	}
	ttl := cacheTTL + time.Duration(rand.Int63n(int64(cacheJitter)))
	if err := c.rdb.Set(ctx, cacheKey(ownerID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache cart %s: %w", ownerID, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, ownerID string) error {
	if err := c.rdb.Del(ctx, cacheKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("evict cart %s: %w", ownerID, err)
	}
	return nil
}

func cacheKey(ownerID string) string { return keyPrefix + ownerID }
