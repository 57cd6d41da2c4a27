package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	IdempotencyTTL           = 15 * time.Minute
	IdempotencySweepInterval = 5 * time.Minute
	IdempotencyHeader        = "Idempotency-Key"
)

// IdempotencyStore keeps serialized responses for replay. Implementations
// must be safe for concurrent use; last write wins.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, body []byte) error
}

// ExtractIdempotencyKey picks the dedup key for a join request: a
// client-supplied UUID, else the normalized email, else a random key that
// deduplicates nothing.
func ExtractIdempotencyKey(header, email string) (string, error) {
	if header = strings.TrimSpace(header); header != "" {
		if len(header) != 36 {
			return "", NewValidationError("Idempotency-Key must be a valid UUID")
		}
		if _, err := uuid.Parse(header); err != nil {
			return "", NewValidationError("Idempotency-Key must be a valid UUID")
		}
		return strings.ToLower(header), nil
	}
	if email = canonicalEmail(email); email != "" {
		return "email:" + email, nil
	}
	return "random:" + uuid.NewString(), nil
}

// IdempotencyGuard wraps the join operation. Store failures degrade to a
// cache miss rather than failing the request.
type IdempotencyGuard struct {
	Store IdempotencyStore
	log   *logrus.Entry
}

func NewIdempotencyGuard(store IdempotencyStore) *IdempotencyGuard {
	return &IdempotencyGuard{Store: store, log: componentLogger("idempotency")}
}

func (g *IdempotencyGuard) Check(ctx context.Context, key string) ([]byte, bool) {
	body, ok, err := g.Store.Get(ctx, key)
	if err != nil {
		g.log.WithError(err).Warn("idempotency lookup failed, treating as miss")
		return nil, false
	}
	return body, ok
}

func (g *IdempotencyGuard) Remember(ctx context.Context, key string, body []byte) {
	if err := g.Store.Put(ctx, key, body); err != nil {
		g.log.WithError(err).Warn("failed to store idempotent response")
	}
}

type idempotencyRecord struct {
	body     []byte
	storedAt time.Time
}

// MemoryIdempotencyStore is an in-process store with lazy expiry on read
// and a Sweep for periodic purging.
type MemoryIdempotencyStore struct {
	TTL time.Duration
	Now Clock

	mu      sync.Mutex
	records map[string]idempotencyRecord
}

func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{TTL: ttl, records: make(map[string]idempotencyRecord)}
}

func (m *MemoryIdempotencyStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[key]
	if !ok {
		return nil, false, nil
	}
	if m.expired(rec) {
		delete(m.records, key)
		return nil, false, nil
	}
	return append([]byte(nil), rec.body...), true, nil
}

func (m *MemoryIdempotencyStore) Put(_ context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = idempotencyRecord{body: append([]byte(nil), body...), storedAt: m.Now.now()}
	return nil
}

// Sweep drops expired records and reports how many were removed.
func (m *MemoryIdempotencyStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, rec := range m.records {
		if m.expired(rec) {
			delete(m.records, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of records held, expired or not.
func (m *MemoryIdempotencyStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MemoryIdempotencyStore) expired(rec idempotencyRecord) bool {
	return m.Now.now().Sub(rec.storedAt) > m.TTL
}

// RedisIdempotencyStore shares replay records across instances; expiry is
// delegated to Redis key TTLs.
type RedisIdempotencyStore struct {
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{Client: client, TTL: ttl, Prefix: "waitlist:idem:"}
}

func (r *RedisIdempotencyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := r.Client.Get(ctx, r.Prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return body, true, nil
}

func (r *RedisIdempotencyStore) Put(ctx context.Context, key string, body []byte) error {
	if err := r.Client.Set(ctx, r.Prefix+key, body, r.TTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// NewIdempotencyStoreFromURL returns a Redis-backed store when redisURL is
// set, otherwise an in-memory one.
func NewIdempotencyStoreFromURL(redisURL string) (IdempotencyStore, error) {
	if redisURL == "" {
		return NewMemoryIdempotencyStore(IdempotencyTTL), nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return NewRedisIdempotencyStore(redis.NewClient(opts), IdempotencyTTL), nil
}
