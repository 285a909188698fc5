package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
	"github.com/riskibarqy/predictor-league/internal/domain/wager"
	"github.com/riskibarqy/predictor-league/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
	"github.com/shopspring/decimal"
)

var demoOdds = payout.Multipliers{
	Home: decimal.RequireFromString("1.85"),
	Draw: decimal.RequireFromString("3.40"),
	Away: decimal.RequireFromString("4.10"),
}

type sequentialIDs struct {
	prefix string
	next   atomic.Int64
}

func (g *sequentialIDs) NewID() (string, error) {
	return fmt.Sprintf("%s-%d", g.prefix, g.next.Add(1)), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, events ...Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, event := range p.events {
		if event.Type == eventType {
			n++
		}
	}
	return n
}

// testEnv is the seeded in-memory store plus a settlement service over it.
type testEnv struct {
	now        time.Time
	matches    *memory.MatchRepository
	groups     *memory.GroupRepository
	wagers     *memory.WagerRepository
	ledger     *memory.LedgerRepository
	runs       *memory.JobRunRepository
	events     *recordingPublisher
	settlement *SettlementService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	now := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)
	db := memory.NewDatabase()
	if err := memory.Seed(context.Background(), db, now); err != nil {
		t.Fatalf("seed memory db: %v", err)
	}

	env := &testEnv{
		now:     now,
		matches: memory.NewMatchRepository(db),
		groups:  memory.NewGroupRepository(db),
		wagers:  memory.NewWagerRepository(db),
		ledger:  memory.NewLedgerRepository(db),
		runs:    memory.NewJobRunRepository(db),
		events:  &recordingPublisher{},
	}
	env.settlement = NewSettlementService(
		env.matches,
		env.wagers,
		env.groups,
		env.ledger,
		&sequentialIDs{prefix: "led"},
		env.events,
		nil,
		SettlementConfig{MaxConcurrency: 4},
		logging.NewNop(),
	)
	env.settlement.now = func() time.Time { return now }
	return env
}

func (e *testEnv) reconciliation(source FixtureSource, passState PassState, cfg ReconciliationConfig) *ReconciliationService {
	return NewReconciliationService(
		e.matches,
		e.wagers,
		source,
		e.settlement,
		passState,
		e.runs,
		&sequentialIDs{prefix: "run"},
		e.events,
		nil,
		cfg,
		logging.NewNop(),
	)
}

// addMatch stores m and links it to the credit demo group with odds and, when
// flat is set, to the flat demo group.
func (e *testEnv) addMatch(t *testing.T, m match.Match, flat bool) match.Match {
	t.Helper()

	ctx := context.Background()
	if m.Groups == nil {
		m.Groups = map[string]struct{}{}
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = e.now
		m.UpdatedAt = e.now
	}
	if err := e.matches.Create(ctx, m); err != nil {
		t.Fatalf("create match %s: %v", m.ID, err)
	}
	odds := demoOdds
	if err := e.matches.LinkGroup(ctx, m.ID, memory.GroupIDCreditDemo, &odds); err != nil {
		t.Fatalf("link credit group: %v", err)
	}
	if flat {
		if err := e.matches.LinkGroup(ctx, m.ID, memory.GroupIDFlatDemo, nil); err != nil {
			t.Fatalf("link flat group: %v", err)
		}
	}
	stored, _, err := e.matches.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("reload match %s: %v", m.ID, err)
	}
	return stored
}

// addWager writes an open wager directly, bypassing the kickoff check.
func (e *testEnv) addWager(t *testing.T, id, userID, matchID, groupID string, prediction payout.Outcome, stake *int64) {
	t.Helper()

	_, err := e.wagers.Upsert(context.Background(), wager.Wager{
		ID:         id,
		UserID:     userID,
		MatchID:    matchID,
		GroupID:    groupID,
		Prediction: prediction,
		Stake:      stake,
		CreatedAt:  e.now,
		UpdatedAt:  e.now,
	})
	if err != nil {
		t.Fatalf("upsert wager %s: %v", id, err)
	}
}

func (e *testEnv) balance(t *testing.T, groupID, userID string) int64 {
	t.Helper()

	g, exists, err := e.groups.GetByID(context.Background(), groupID)
	if err != nil || !exists {
		t.Fatalf("get group %s: exists=%v err=%v", groupID, exists, err)
	}
	return g.Members[userID].Points
}

func (e *testEnv) mustMatch(t *testing.T, id string) match.Match {
	t.Helper()

	m, exists, err := e.matches.GetByID(context.Background(), id)
	if err != nil || !exists {
		t.Fatalf("get match %s: exists=%v err=%v", id, exists, err)
	}
	return m
}

func finishedResult(home, away int) *match.Result {
	outcome := payout.OutcomeFromScores(home, away)
	return &match.Result{HomeScore: home, AwayScore: away, Outcome: &outcome}
}

func scorePtr(v int) *int {
	return &v
}

func stakePtr(v int64) *int64 {
	return &v
}
