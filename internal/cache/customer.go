package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/vmihailenco/msgpack/v5"
)

// CustomerCacheRepository represents behavior for customer cache
type CustomerCacheRepository interface {
	FindByID(context.Context, string) (*model.Customer, error)
	Create(context.Context, *model.Customer) error
	DeleteByID(context.Context, string) error
}

// EvictionGrace is how long evicted customer can't be cached again.
// Reads which loaded customer before eviction finish within it and their writes are dropped.
const EvictionGrace = 5 * time.Second

var evictedMarker = []byte("evicted")

type redisCustomerCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCustomerCache builds redis cache for customers, entries live for ttl
func NewRedisCustomerCache(client *redis.Client, ttl time.Duration) CustomerCacheRepository {
	return &redisCustomerCache{client: client, ttl: ttl}
}

func (r *redisCustomerCache) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	res, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	if bytes.Equal(res, evictedMarker) {
		return nil, nil
	}

	var c model.Customer
	if err := msgpack.Unmarshal(res, &c); err != nil {
		return nil, fmt.Errorf("failed to decode cached customer %s - %w", id, err)
	}
	return &c, nil
}

// DeleteByID replaces cached customer with eviction marker, so Create of a stale copy is no-op for EvictionGrace
func (r *redisCustomerCache) DeleteByID(ctx context.Context, id string) error {
	return r.client.Set(ctx, r.key(id), evictedMarker, EvictionGrace).Err()
}

func (r *redisCustomerCache) Create(ctx context.Context, c *model.Customer) error {
	encoded, err := msgpack.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode customer %s - %w", c.ID, err)
	}
	return r.client.SetNX(ctx, r.key(c.ID), encoded, r.ttl).Err()
}

func (r *redisCustomerCache) key(id string) string {
	return fmt.Sprintf("customer:%s", id)
}
