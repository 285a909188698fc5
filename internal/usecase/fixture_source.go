package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
)

var ErrFixtureNotFound = errors.New("fixture not found")

// FixtureSource is the external feed of match status, scores and odds.
// Every failure is advisory: callers log it and leave match state untouched.
type FixtureSource interface {
	ListInProgress(ctx context.Context) ([]match.Snapshot, error)
	GetByID(ctx context.Context, externalID int64) (match.Snapshot, error)
	GetOdds(ctx context.Context, externalID int64) (payout.Multipliers, error)
}

type boundedFixtureSource struct {
	next    FixtureSource
	timeout time.Duration
}

// WithCallTimeout bounds every call on src by timeout.
func WithCallTimeout(src FixtureSource, timeout time.Duration) FixtureSource {
	if src == nil || timeout <= 0 {
		return src
	}
	if bounded, ok := src.(boundedFixtureSource); ok {
		src = bounded.next
	}
	return boundedFixtureSource{next: src, timeout: timeout}
}

func (b boundedFixtureSource) ListInProgress(ctx context.Context) ([]match.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.ListInProgress(ctx)
}

func (b boundedFixtureSource) GetByID(ctx context.Context, externalID int64) (match.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.GetByID(ctx, externalID)
}

func (b boundedFixtureSource) GetOdds(ctx context.Context, externalID int64) (payout.Multipliers, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.GetOdds(ctx, externalID)
}

type noopFixtureSource struct{}

func (noopFixtureSource) ListInProgress(context.Context) ([]match.Snapshot, error) {
	return nil, nil
}

func (noopFixtureSource) GetByID(context.Context, int64) (match.Snapshot, error) {
	return match.Snapshot{}, ErrFixtureNotFound
}

func (noopFixtureSource) GetOdds(context.Context, int64) (payout.Multipliers, error) {
	return payout.NeutralMultipliers(), nil
}

// NewNoopFixtureSource reports nothing in progress; used when no provider is configured.
func NewNoopFixtureSource() FixtureSource {
	return noopFixtureSource{}
}

func isTerminalSnapshot(status match.Status) bool {
	return status == match.StatusFinished || status.IsVoid()
}
