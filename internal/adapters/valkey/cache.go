package valkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "groupride:"

// Cache implements ports.CacheService on Valkey.
type Cache struct {
	client valkey.Client
}

// New connects to the Valkey server at addr.
func New(addr string) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress:  []string{addr},
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect %s: %w", addr, err)
	}
	return &Cache{client: client}, nil
}

func key(k string) string { return KeyPrefix + k }

// Get returns the value stored under k or ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, k string) ([]byte, error) {
	b, err := c.client.Do(ctx, c.client.B().Get().Key(key(k)).Build()).AsBytes()
	switch {
	case valkey.IsValkeyNil(err):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("get %s: %w", k, err)
	}
	return b, nil
}

// Set stores value under k. A non-positive ttlSeconds stores without expiry.
func (c *Cache) Set(ctx context.Context, k string, value []byte, ttlSeconds int) error {
	if ttlSeconds <= 0 {
		return c.client.Do(ctx, c.client.B().Set().Key(key(k)).Value(valkey.BinaryString(value)).Build()).Error()
	}
	return c.client.Do(ctx,
		c.client.B().Set().Key(key(k)).Value(valkey.BinaryString(value)).Ex(time.Duration(ttlSeconds)*time.Second).Build(),
	).Error()
}

// Delete removes k. Deleting a missing key is not an error.
func (c *Cache) Delete(ctx context.Context, k string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(key(k)).Build()).Error()
}

// Ping checks connectivity; the readiness probe uses it.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}
