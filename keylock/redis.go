package keylock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if it still holds our token, so an
// expired-and-reacquired lock is never released by the previous holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis implements cross-process per-key locking with SET NX PX. Locks expire
// after TTL so a crashed writer cannot wedge a key forever; pick a TTL longer
// than the slowest expected cache write.
type Redis struct {
	rdb   redis.UniversalClient
	ns    string
	ttl   time.Duration
	retry time.Duration
}

var _ Locker = (*Redis)(nil)

// NewRedis creates a Redis-backed locker. ttl <= 0 defaults to 30s, retry <= 0
// to 50ms.
func NewRedis(client redis.UniversalClient, namespace string, ttl, retry time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	return &Redis{rdb: client, ns: namespace, ttl: ttl, retry: retry}
}

func (r *Redis) key(k string) string { return "lock:" + r.ns + ":" + k }

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := newToken()
	k := r.key(key)

	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}

	release := func() {
		// Best effort: on failure the TTL reclaims the lock.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, r.rdb, []string{k}, token).Err()
	}
	return release, nil
}

func newToken() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
