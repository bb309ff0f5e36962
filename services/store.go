package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"quizlive/models"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrGameNotFound means the document is missing or past its TTL.
	ErrGameNotFound = errors.New("game not found")
	// ErrParticipantNotFound means the id is neither host nor player.
	ErrParticipantNotFound = errors.New("participant not found")
)

// KV is the small key-value surface the store needs. Implemented by
// Redis in production and by an in-memory map in tests.
type KV interface {
	Get(ctx context.Context, key string) (string, error) // ErrGameNotFound when missing
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// RedisKV adapts a redis client to the KV surface.
type RedisKV struct {
	client *redis.Client
}

func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrGameNotFound
	}
	return val, err
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// GameStore persists game documents as JSON records and serializes every
// mutation behind the distributed lock. Unlocked reads are stale-tolerant
// and must only feed non-mutating views.
type GameStore struct {
	kv     KV
	locker Locker
	ttl    time.Duration
}

func NewGameStore(kv KV, locker Locker, ttl time.Duration) *GameStore {
	return &GameStore{kv: kv, locker: locker, ttl: ttl}
}

func docKey(gameID string) string { return "game:doc:" + gameID }
func pinKey(pin string) string    { return "game:pin:" + strings.ToLower(pin) }

// Find loads the document without taking the lock.
func (s *GameStore) Find(ctx context.Context, gameID string) (*models.GameDocument, error) {
	data, err := s.kv.Get(ctx, docKey(gameID))
	if err != nil {
		return nil, err
	}
	var doc models.GameDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", gameID, err)
	}
	return &doc, nil
}

// FindByPin resolves a join code to a live document. Expired documents
// fall out of the pin index together with the doc via matching TTLs.
func (s *GameStore) FindByPin(ctx context.Context, pin string) (*models.GameDocument, error) {
	gameID, err := s.kv.Get(ctx, pinKey(pin))
	if err != nil {
		return nil, err
	}
	return s.Find(ctx, gameID)
}

// Save writes the document and its pin index. Intended for the create
// path; everything after creation goes through FindAndSaveWithLock.
func (s *GameStore) Save(ctx context.Context, doc *models.GameDocument) error {
	doc.Updated = time.Now().UTC()
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", doc.ID, err)
	}
	if err := s.kv.Set(ctx, docKey(doc.ID), string(data), s.ttl); err != nil {
		return fmt.Errorf("store game %s: %w", doc.ID, err)
	}
	if doc.PIN != "" {
		if err := s.kv.Set(ctx, pinKey(doc.PIN), doc.ID, s.ttl); err != nil {
			return fmt.Errorf("store pin index for game %s: %w", doc.ID, err)
		}
	}
	return nil
}

// FindAndSaveWithLock loads the latest persisted document under the
// game's distributed lock, applies mutate, persists the result, and
// returns it. No two invocations for the same game id run their mutate
// concurrently anywhere in the fleet. An error from mutate aborts the
// write and propagates; the lock is released on every path.
func (s *GameStore) FindAndSaveWithLock(ctx context.Context, gameID string, mutate func(*models.GameDocument) error) (*models.GameDocument, error) {
	release, err := s.locker.Acquire(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer release()

	doc, err := s.Find(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := mutate(doc); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the document and its pin index (background sweep).
func (s *GameStore) Delete(ctx context.Context, doc *models.GameDocument) error {
	return s.kv.Del(ctx, docKey(doc.ID), pinKey(doc.PIN))
}
