package valkey

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another holder is never released by us.
var releaseScript = valkey.NewLuaScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements ports.Locker with SET NX PX.
type Locker struct {
	client valkey.Client

	mu     sync.Mutex
	tokens map[string]string
}

// NewLocker creates a Locker sharing the cache's connection.
func NewLocker(c *Cache) *Locker {
	return &Locker{client: c.client, tokens: make(map[string]string)}
}

// TryLock acquires key for ttl. It reports false when the key is already held.
func (l *Locker) TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	k := key(name)
	token := uuid.NewString()
	err := l.client.Do(ctx,
		l.client.B().Set().Key(k).Value(token).Nx().PxMilliseconds(ttl.Milliseconds()).Build(),
	).Error()
	if valkey.IsValkeyNil(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock %s: %w", name, err)
	}

	l.mu.Lock()
	l.tokens[k] = token
	l.mu.Unlock()
	return true, nil
}

// Unlock releases a key previously acquired by this Locker.
func (l *Locker) Unlock(ctx context.Context, name string) error {
	k := key(name)
	l.mu.Lock()
	token, ok := l.tokens[k]
	delete(l.tokens, k)
	l.mu.Unlock()
	if !ok {
		return nil
	}

	if err := releaseScript.Exec(ctx, l.client, []string{k}, []string{token}).Error(); err != nil {
		return fmt.Errorf("unlock %s: %w", name, err)
	}
	return nil
}
