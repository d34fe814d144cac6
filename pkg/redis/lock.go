package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/gamecatalog-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so a
// lock that expired and was taken by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a single-key mutex with expiry backed by SET NX
type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Acquire takes key for ttl. ok is false when someone else holds it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		logger.Error("Failed to acquire lock", err, map[string]interface{}{
			"key": key,
		})
		return "", false, err
	}

	logger.Debug("Lock acquire attempted", map[string]interface{}{
		"key":      key,
		"acquired": ok,
		"ttl":      ttl.String(),
	})
	return token, ok, nil
}

// Release frees key if token still owns it
func (l *Locker) Release(ctx context.Context, key, token string) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
	if err != nil {
		logger.Error("Failed to release lock", err, map[string]interface{}{
			"key": key,
		})
		return err
	}
	if deleted == 0 {
		logger.Warn("Lock was no longer held at release", map[string]interface{}{
			"key": key,
		})
	}
	return nil
}
