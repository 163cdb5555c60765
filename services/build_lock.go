package services

import (
	"context"
	"errors"
	"time"

	"viola-chatbot/internal/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes index construction. Acquire blocks until the lock is
// held or ctx is done.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// BuildLock is a Redis SET NX lock shared by every process that writes the
// embeddings artifact.
type BuildLock struct {
	rdb   *redis.Client
	key   string
	ttl   time.Duration
	retry time.Duration
}

func NewBuildLock(rdb *redis.Client, artifactPath string) *BuildLock {
	return &BuildLock{
		rdb:   rdb,
		key:   "viola:index-build:" + artifactPath,
		ttl:   30 * time.Minute,
		retry: 500 * time.Millisecond,
	}
}

func (l *BuildLock) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			logger.Debug("Index build lock acquired", "key", l.key)
			return func() {
				// The build context may already be cancelled; releasing must still happen.
				relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := releaseScript.Run(relCtx, l.rdb, []string{l.key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
					logger.Warn("Failed to release index build lock", "key", l.key, "error", err)
				}
			}, nil
		}

		logger.Info("Waiting for another process to finish building the index", "key", l.key)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}
