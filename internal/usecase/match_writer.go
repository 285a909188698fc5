package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
)

const (
	sourceProvider = "provider"
	sourceManual   = "manual"
)

// matchWriter persists state machine results guarded by the version they were computed from.
type matchWriter struct {
	matches   match.Repository
	publisher EventPublisher
	metrics   Metrics
	logger    *logging.Logger
}

// commit writes m when change mutated it. committed is false when nothing changed
// or another writer stored a newer version first.
func (w matchWriter) commit(ctx context.Context, m *match.Match, expected match.Version, change match.Change, source string) (bool, error) {
	if !change.Mutated() {
		return false, nil
	}
	// updated_at must move forward at storage precision or the next guard cannot tell
	// the two versions apart.
	if floor := expected.UpdatedAt.Add(time.Microsecond); m.UpdatedAt.Before(floor) {
		m.UpdatedAt = floor
	}

	ok, err := w.matches.UpdateIfUnchanged(ctx, *m, expected)
	if err != nil {
		return false, fmt.Errorf("update match=%s: %w", m.ID, err)
	}
	if !ok {
		w.logger.InfoContext(ctx, "match changed concurrently, skipping write",
			"match_id", m.ID,
			"expected_status", expected.Status,
			"source", source,
		)
		return false, nil
	}

	if !change.StatusChanged {
		return true, nil
	}
	w.metrics.AddTransition(string(change.From), string(change.To), source)

	event := TransitionEvent{
		MatchID:    m.ID,
		ExternalID: m.ExternalID,
		From:       string(change.From),
		To:         string(change.To),
		Source:     source,
	}
	if m.Result != nil {
		home, away := m.Result.HomeScore, m.Result.AwayScore
		event.HomeScore = &home
		event.AwayScore = &away
	}
	if err := w.publisher.Publish(ctx, Event{
		Type:       EventMatchTransitioned,
		Key:        m.ID,
		OccurredAt: m.UpdatedAt.UTC(),
		Payload:    event,
	}); err != nil {
		w.logger.WarnContext(ctx, "publish match transition failed", "match_id", m.ID, "error", err)
	}
	return true, nil
}

func (w matchWriter) reportConflict(ctx context.Context, m match.Match, change match.Change) {
	if change.Conflict == "" {
		return
	}
	w.metrics.AddConflict()
	w.logger.WarnContext(ctx, "fixture source disagrees with local match state",
		"match_id", m.ID,
		"external_id", m.ExternalID,
		"local_status", m.Status,
		"conflict", change.Conflict,
	)
}
