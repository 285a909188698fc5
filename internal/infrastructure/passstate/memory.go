package passstate

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/predictor-league/internal/platform/cache"
)

// MemoryStore is the single instance variant used when redis is not configured.
type MemoryStore struct {
	previouslyLive atomic.Bool
	seen           *cache.Store[struct{}]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: cache.NewStore[struct{}](0).WithMaxEntries(50_000)}
}

func (s *MemoryStore) PreviouslyLive(context.Context) (bool, error) {
	return s.previouslyLive.Load(), nil
}

func (s *MemoryStore) SetPreviouslyLive(_ context.Context, live bool) error {
	s.previouslyLive.Store(live)
	return nil
}

func (s *MemoryStore) MarkSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.seen.SetIfAbsent(ctx, key, struct{}{}, ttl), nil
}

func (s *MemoryStore) Reset(context.Context) error {
	s.previouslyLive.Store(false)
	s.seen.Reset()
	return nil
}
