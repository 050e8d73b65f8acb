package destination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ecodrop-backend/internal/models"
)

// ErrExpired is returned when saving a destination that is already older
// than the validity window.
var ErrExpired = errors.New("destination already expired")

// Repository is the server-side copy of a user's active destination. It is
// advisory: confirmation never reads it.
type Repository interface {
	Save(ctx context.Context, userID string, d models.ActiveDestination) error
	// Get returns nil, nil when the user has no live destination.
	Get(ctx context.Context, userID string) (*models.ActiveDestination, error)
	Delete(ctx context.Context, userID string) error
}

const destinationKeyPrefix = "ecodrop:destination:"

func destinationKey(userID string) string {
	return destinationKeyPrefix + userID
}

// remaining returns how long d stays valid after now.
func remaining(d models.ActiveDestination, now time.Time, maxAge time.Duration) time.Duration {
	return d.StartedTime().Add(maxAge).Sub(now)
}

type RedisRepository struct {
	client *redis.Client
	maxAge time.Duration
	now    func() time.Time
}

func NewRedisRepository(redisURL string) (*RedisRepository, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisRepository{client: client, maxAge: DefaultMaxAge, now: time.Now}, nil
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// Save stores d with a TTL that ends exactly when the destination goes stale.
func (r *RedisRepository) Save(ctx context.Context, userID string, d models.ActiveDestination) error {
	ttl := remaining(d, r.now(), r.maxAge)
	if ttl <= 0 {
		return ErrExpired
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal destination: %w", err)
	}

	if err := r.client.Set(ctx, destinationKey(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save destination: %w", err)
	}
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, userID string) (*models.ActiveDestination, error) {
	data, err := r.client.Get(ctx, destinationKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get destination: %w", err)
	}

	var d models.ActiveDestination
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal destination: %w", err)
	}
	return &d, nil
}

func (r *RedisRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, destinationKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete destination: %w", err)
	}
	return nil
}

// MemoryRepository is used when no Redis is configured. Expiry is lazy.
type MemoryRepository struct {
	mu     sync.Mutex
	items  map[string]models.ActiveDestination
	maxAge time.Duration
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items:  make(map[string]models.ActiveDestination),
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
}

func (r *MemoryRepository) Save(ctx context.Context, userID string, d models.ActiveDestination) error {
	if remaining(d, r.now(), r.maxAge) <= 0 {
		return ErrExpired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[userID] = d
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, userID string) (*models.ActiveDestination, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.items[userID]
	if !ok {
		return nil, nil
	}
	if remaining(d, r.now(), r.maxAge) <= 0 {
		delete(r.items, userID)
		return nil, nil
	}
	return &d, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, userID)
	return nil
}
