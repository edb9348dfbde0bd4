package config

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Redis wraps the cache client and the lock client. A nil *Redis is valid and
// turns every call into a no-op, so callers never need to check for it.
type Redis struct {
	client *redis.Client
	locker *redislock.Client
}

// ConnectRedisWithRetry tries to reach Redis a bounded number of times.
// Redis is optional: on failure it returns nil and the caller runs without cache and locks.
func ConnectRedisWithRetry(ctx context.Context, addr string, maxAttempts int) *Redis {
	if addr == "" {
		log.Printf("REDIS_ADDRESS not set; running without redis")
		return nil
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: "",
			DB:       0, // use default DB
			PoolSize: 20,
		})
		err := rdb.Ping(ctx).Err()
		if err == nil {
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, addr)
			return &Redis{client: rdb, locker: redislock.New(rdb)}
		}
		_ = rdb.Close()

		sleep := time.Second * time.Duration(1<<min(attempt, 4))
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, addr, err, sleep)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sleep):
		}
	}
	log.Printf("giving up on redis after %d attempts; running without redis", maxAttempts)
	return nil
}

// Client exposes the raw client; nil when Redis is not configured.
func (r *Redis) Client() *redis.Client {
	if r == nil {
		return nil
	}
	return r.client
}

func (r *Redis) Ready() bool {
	return r != nil && r.client != nil
}

func (r *Redis) GetObject(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !r.Ready() {
		return false, nil
	}
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) SetObject(ctx context.Context, key string, obj interface{}, exp time.Duration) error {
	if !r.Ready() {
		return nil
	}
	objInByte, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, objInByte, exp).Err()
}

// store key in a set for faster adding & retrieving
func (r *Redis) AddSetMember(ctx context.Context, setKey string, member string) error {
	if !r.Ready() {
		return nil
	}
	return r.client.SAdd(ctx, setKey, member).Err()
}

// DeleteSetMembers removes every key listed in setKey, then the set itself.
func (r *Redis) DeleteSetMembers(ctx context.Context, setKey string) error {
	if !r.Ready() {
		return nil
	}
	members, err := r.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return err
	}
	keys := append(members, setKey)
	return r.client.Del(ctx, keys...).Err()
}

// Obtain takes a best-effort lock, retrying for up to wait. ok is false when
// the lock is held elsewhere or Redis is down; release is always safe to call.
func (r *Redis) Obtain(ctx context.Context, key string, ttl, wait time.Duration) (release func(), ok bool, err error) {
	noop := func() {}
	if !r.Ready() || r.locker == nil {
		return noop, false, nil
	}
	opts := &redislock.Options{}
	if wait > 0 {
		opts.RetryStrategy = redislock.LinearBackoff(50 * time.Millisecond)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}
	lock, err := r.locker.Obtain(ctx, key, ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
		return noop, false, nil
	}
	if err != nil {
		return noop, false, err
	}
	return func() {
		_ = lock.Release(context.Background())
	}, true, nil
}

func (r *Redis) Close() error {
	if !r.Ready() {
		return nil
	}
	return r.client.Close()
}
