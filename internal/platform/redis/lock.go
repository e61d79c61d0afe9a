package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrLocked = errors.New("resource is already locked")

// Снимаем блокировку только если она все еще наша
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Locker: блокировка на SET NX с TTL
type Locker struct {
	client RedisClient
	prefix string
}

func NewLocker(client RedisClient, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

// Acquire возвращает функцию освобождения или ErrLocked
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	fullKey := l.prefix + key
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func() {
		// контекст запроса к этому моменту может быть отменен
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = l.client.Eval(releaseCtx, releaseScript, []string{fullKey}, token).Err()
	}, nil
}
