package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"partscatalog/sitemap/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix = "sitemap:"

	runTTL = 30 * 24 * time.Hour
)

// StateManager keeps the progress of sitemap runs.
type StateManager interface {
	SaveRun(ctx context.Context, report *domain.RunReport) error
	GetRun(ctx context.Context, id string) (*domain.RunReport, error)
	LastRun(ctx context.Context) (*domain.RunReport, error)
}

type redisStateManager struct {
	redisClient *redis.Client
	keyPrefix   string
}

func NewRedisStateManager(redisClient *redis.Client, keyPrefix string) StateManager {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &redisStateManager{
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
	}
}

func (s *redisStateManager) runKey(id string) string {
	return s.keyPrefix + "run:" + id
}

func (s *redisStateManager) lastKey() string {
	return s.keyPrefix + "run:last"
}

func (s *redisStateManager) SaveRun(ctx context.Context, report *domain.RunReport) error {
	value, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize run %s: %w", report.ID, err)
	}

	pipe := s.redisClient.TxPipeline()
	pipe.Set(ctx, s.runKey(report.ID), value, runTTL)
	pipe.Set(ctx, s.lastKey(), report.ID, 0) // No expiration
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run %s: %w", report.ID, err)
	}
	return nil
}

func (s *redisStateManager) GetRun(ctx context.Context, id string) (*domain.RunReport, error) {
	val, err := s.redisClient.Get(ctx, s.runKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}

	var report domain.RunReport
	if err := json.Unmarshal(val, &report); err != nil {
		return nil, fmt.Errorf("failed to parse run %s: %w", id, err)
	}
	return &report, nil
}

func (s *redisStateManager) LastRun(ctx context.Context) (*domain.RunReport, error) {
	id, err := s.redisClient.Get(ctx, s.lastKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("no run recorded yet: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}
	return s.GetRun(ctx, id)
}

type memoryStateManager struct {
	mu   sync.RWMutex
	runs map[string]domain.RunReport
	last string
}

// NewMemoryStateManager keeps run reports in process. It is used when redis
// is disabled, so reports only live as long as the process.
func NewMemoryStateManager() StateManager {
	return &memoryStateManager{runs: make(map[string]domain.RunReport)}
}

func (s *memoryStateManager) SaveRun(ctx context.Context, report *domain.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *report
	r.Shards = append([]string(nil), report.Shards...)
	s.runs[r.ID] = r
	s.last = r.ID
	return nil
}

func (s *memoryStateManager) GetRun(ctx context.Context, id string) (*domain.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	return &r, nil
}

func (s *memoryStateManager) LastRun(ctx context.Context) (*domain.RunReport, error) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	if last == "" {
		return nil, fmt.Errorf("no run recorded yet: %w", domain.ErrNotFound)
	}
	return s.GetRun(ctx, last)
}
