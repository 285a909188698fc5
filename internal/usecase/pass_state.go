package usecase

import (
	"context"
	"time"
)

// PassState is the scheduler state shared between passes and instances.
type PassState interface {
	PreviouslyLive(ctx context.Context) (bool, error)
	SetPreviouslyLive(ctx context.Context, live bool) error
	// MarkSeen records key for ttl and reports whether it was not seen before.
	MarkSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Reset(ctx context.Context) error
}
