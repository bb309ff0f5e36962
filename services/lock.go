package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when the lock could not be taken within
// the retry budget. The whole mutate-and-save operation is safe to retry.
var ErrLockNotAcquired = errors.New("game lock not acquired")

// Locker is a per-game mutual exclusion primitive honored across all
// server processes. Acquire blocks up to the implementation's wait
// budget and returns a release func that must always be called.
type Locker interface {
	Acquire(ctx context.Context, gameID string) (release func(), err error)
}

// RedisLock implements Locker with SET NX PX. The lock value is a random
// token so a holder never deletes a lock it lost to expiry.
type RedisLock struct {
	client     *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
	maxRetries int
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{
		client:     client,
		ttl:        5 * time.Second,
		retryDelay: 50 * time.Millisecond,
		maxRetries: 20,
	}
}

// releaseScript deletes the lock key only while we still own it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func (l *RedisLock) Acquire(ctx context.Context, gameID string) (func(), error) {
	key := "game:lock:" + gameID
	token := randomToken()

	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock %s: %w", gameID, err)
		}
		if ok {
			return func() {
				if err := releaseScript.Run(context.Background(), l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
					log.Printf("Failed to release lock for game %s: %v", gameID, err)
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryDelay):
		}
	}
	return nil, fmt.Errorf("game %s: %w", gameID, ErrLockNotAcquired)
}

// LocalLocker implements Locker with in-process mutexes, for tests and
// single-instance deployments.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) Acquire(ctx context.Context, gameID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[gameID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[gameID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

func randomToken() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
