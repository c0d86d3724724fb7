package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const importLockKey = keyPrefix + "import:lock"

// releaseScript deletes the lock only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisImportLock struct {
	client *redis.Client
}

func NewRedisImportLock(client *redis.Client) *RedisImportLock {
	return &RedisImportLock{client: client}
}

func (l *RedisImportLock) Acquire(ctx context.Context, ttl time.Duration) (func(context.Context), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, importLockKey, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func(releaseCtx context.Context) {
		_ = releaseScript.Run(releaseCtx, l.client, []string{importLockKey}, token).Err()
	}
	return release, true, nil
}

// LocalImportLock serializes imports inside one process. The ttl is ignored;
// the holder always releases.
type LocalImportLock struct {
	mu   sync.Mutex
	held bool
}

func NewLocalImportLock() *LocalImportLock {
	return &LocalImportLock{}
}

func (l *LocalImportLock) Acquire(_ context.Context, _ time.Duration) (func(context.Context), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, false, nil
	}
	l.held = true
	var once sync.Once
	release := func(context.Context) {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
		})
	}
	return release, true, nil
}
