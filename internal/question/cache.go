package question

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// SetCache defines exam-set cache behavior (implemented by the
// Redis-backed Cache).
type SetCache interface {
	Get(ctx context.Context, setID string) (*Set, error)
	Put(ctx context.Context, set Set) error
	Invalidate(ctx context.Context, setID string) error
}

// Cache keeps recently-fetched exam sets in Redis so repeated match starts
// against the same set skip the database.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ SetCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(setID string) string {
	return "examset:" + setID
}

func (c *Cache) Get(ctx context.Context, setID string) (*Set, error) {
	data, err := c.client.Get(ctx, c.key(setID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (c *Cache) Put(ctx context.Context, set Set) error {
	data, err := json.Marshal(set)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(set.ID), data, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context, setID string) error {
	return c.client.Del(ctx, c.key(setID)).Err()
}
