package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sievelab/sieved/domain"
)

const (
	KeyPrefixSnapshot = "sieve:prefix:%s"
)

// prefixCache persists computed prefixes in Redis so a restart does not
// lose sieve work. Best-effort only; callers treat every error here as a
// cache miss or a skipped save.
type prefixCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ domain.PrefixSnapshotCache = (*prefixCache)(nil)

// NewPrefixCache creates a snapshot store with the given entry lifetime.
func NewPrefixCache(client *redis.Client, ttl time.Duration) *prefixCache {
	return &prefixCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *prefixCache) GetPrefix(ctx context.Context, domainKey string) (res domain.Prefix, err error) {
	key := fmt.Sprintf(KeyPrefixSnapshot, domainKey)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Prefix{}, domain.ErrCacheMiss
	} else if err != nil {
		return domain.Prefix{}, err
	}
	if err = json.Unmarshal(data, &res); err != nil {
		return domain.Prefix{}, err
	}
	return
}

func (c *prefixCache) SetPrefix(ctx context.Context, domainKey string, p domain.Prefix) (err error) {
	key := fmt.Sprintf(KeyPrefixSnapshot, domainKey)
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	err = c.client.Set(ctx, key, data, c.ttl).Err()
	return
}

func (c *prefixCache) DeletePrefix(ctx context.Context, domainKey string) error {
	key := fmt.Sprintf(KeyPrefixSnapshot, domainKey)
	return c.client.Del(ctx, key).Err()
}
