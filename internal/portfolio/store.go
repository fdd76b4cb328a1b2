package portfolio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/aegis/pit/internal/contracts"
	"github.com/wonny/aegis/pit/pkg/redis"
)

// PriorStore persists the last executed weights between scheduled rebalances
type PriorStore interface {
	LoadPrior(ctx context.Context, strategy string) (contracts.WeightVector, error)
	SavePrior(ctx context.Context, strategy string, date time.Time, weights contracts.WeightVector) error
	// LastRebalance returns the date of the stored weights (zero when none)
	LastRebalance(ctx context.Context, strategy string) (time.Time, error)
}

// MemoryStore keeps prior weights in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	weights map[string]contracts.WeightVector
	dates   map[string]time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		weights: make(map[string]contracts.WeightVector),
		dates:   make(map[string]time.Time),
	}
}

// LoadPrior returns a copy of the stored weights (empty when none)
func (s *MemoryStore) LoadPrior(_ context.Context, strategy string) (contracts.WeightVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weights[strategy].Clone(), nil
}

// SavePrior replaces the stored weights
func (s *MemoryStore) SavePrior(_ context.Context, strategy string, date time.Time, weights contracts.WeightVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights[strategy] = weights.Clone()
	s.dates[strategy] = contracts.Day(date)
	return nil
}

// LastRebalance returns the date passed to the last SavePrior
func (s *MemoryStore) LastRebalance(_ context.Context, strategy string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dates[strategy], nil
}

// RedisStore keeps prior weights in redis
type RedisStore struct {
	cache *redis.Cache
}

type storedWeights struct {
	Date    time.Time              `json:"date"`
	Weights contracts.WeightVector `json:"weights"`
}

// NewRedisStore creates a redis-backed store
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{cache: redis.NewCache(client, "pit")}
}

// LoadPrior returns the stored weights (empty when none)
func (s *RedisStore) LoadPrior(ctx context.Context, strategy string) (contracts.WeightVector, error) {
	stored, err := s.load(ctx, strategy)
	if err != nil {
		return nil, err
	}
	if stored.Weights == nil {
		return contracts.WeightVector{}, nil
	}
	return stored.Weights, nil
}

// LastRebalance returns the date stored with the weights
func (s *RedisStore) LastRebalance(ctx context.Context, strategy string) (time.Time, error) {
	stored, err := s.load(ctx, strategy)
	if err != nil {
		return time.Time{}, err
	}
	return stored.Date, nil
}

func (s *RedisStore) load(ctx context.Context, strategy string) (storedWeights, error) {
	var stored storedWeights
	if _, err := s.cache.Get(ctx, redis.PriorWeightsKey(strategy), &stored); err != nil {
		return storedWeights{}, fmt.Errorf("failed to load prior weights: %w", err)
	}
	return stored, nil
}

// SavePrior stores the weights without expiry
func (s *RedisStore) SavePrior(ctx context.Context, strategy string, date time.Time, weights contracts.WeightVector) error {
	if err := s.cache.Set(ctx, redis.PriorWeightsKey(strategy), storedWeights{Date: date, Weights: weights}, 0); err != nil {
		return fmt.Errorf("failed to save prior weights: %w", err)
	}
	return nil
}
