package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/stockpulse/stockpulse-backend/pkg/config"
	"github.com/stockpulse/stockpulse-backend/pkg/errors"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

// Locker serializes pipeline task runs across service instances using
// Redis-backed locks. Every scheduled or manually triggered task obtains
// its lock before touching the database, so two instances never run the
// same task concurrently.
type Locker struct {
	client *redis.Client
	locker *redislock.Client
	ttl    time.Duration
	logger *logger.Logger
}

// New creates a Redis connection and lock client
func New(cfg config.RedisConfig, log *logger.Logger) (*Locker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Msg("Connected to Redis")

	return &Locker{
		client: client,
		locker: redislock.New(client),
		ttl:    cfg.LockTTL,
		logger: log,
	}, nil
}

// Acquire obtains the lock for a task and returns a release function.
// When another instance holds the lock it returns a RunInProgress error;
// callers treat that as a skipped run, not a failure.
func (l *Locker) Acquire(ctx context.Context, task string) (func(), error) {
	lock, err := l.locker.Obtain(ctx, "stockpulse:run:"+task, l.ttl, nil)
	if err == redislock.ErrNotObtained {
		return nil, errors.RunInProgress(task)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock for task %s: %w", task, err)
	}

	release := func() {
		// Release with a fresh context so shutdown cancellation does not
		// leave the lock held until the TTL expires.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && err != redislock.ErrLockNotHeld {
			l.logger.Warn().Err(err).Str("task", task).Msg("Failed to release task lock")
		}
	}
	return release, nil
}

// Health checks Redis connectivity
func (l *Locker) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if err := l.client.Ping(ctx).Err(); err != nil {
		return map[string]string{
			"status": "down",
			"error":  err.Error(),
		}
	}
	return map[string]string{"status": "up"}
}

// Close closes the Redis connection
func (l *Locker) Close() error {
	return l.client.Close()
}
