package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
	"github.com/riskibarqy/predictor-league/internal/infrastructure/repository/memory"
	matchmock "github.com/riskibarqy/predictor-league/internal/mocks/domain/match"
	"github.com/stretchr/testify/mock"
)

func TestSettlementService_Settle_AwardsEachWagerOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.addMatch(t, match.Match{
		ID:         "mat-final",
		ExternalID: 4001,
		HomeTeam:   "Arema",
		AwayTeam:   "Persebaya",
		KickoffAt:  env.now.Add(-2 * time.Hour),
		Status:     match.StatusFinished,
		Result:     finishedResult(2, 1),
	}, true)
	env.addWager(t, "wgr-1", memory.DemoOwnerUserID, "mat-final", memory.GroupIDFlatDemo, payout.OutcomeHome, nil)
	env.addWager(t, "wgr-2", memory.DemoMemberUserID, "mat-final", memory.GroupIDFlatDemo, payout.OutcomeAway, nil)
	env.addWager(t, "wgr-3", memory.DemoMemberUserID, "mat-final", memory.GroupIDCreditDemo, payout.OutcomeHome, stakePtr(100))

	first, err := env.settlement.Settle(ctx, "mat-final")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if first.Outcome != string(payout.OutcomeHome) {
		t.Fatalf("unexpected outcome: got=%s want=%s", first.Outcome, payout.OutcomeHome)
	}
	if first.Unsettled != 3 || first.Applied != 3 || first.Failed != 0 {
		t.Fatalf("unexpected first report: %+v", first)
	}
	if first.PointsAwarded != 186 {
		t.Fatalf("unexpected points awarded: got=%d want=%d", first.PointsAwarded, 186)
	}

	second, err := env.settlement.Settle(ctx, "mat-final")
	if err != nil {
		t.Fatalf("settle again: %v", err)
	}
	if second.Unsettled != 0 || second.Applied != 0 {
		t.Fatalf("second settle must be a no-op: %+v", second)
	}

	if got := env.balance(t, memory.GroupIDFlatDemo, memory.DemoOwnerUserID); got != 1 {
		t.Fatalf("unexpected flat owner balance: got=%d want=%d", got, 1)
	}
	if got := env.balance(t, memory.GroupIDFlatDemo, memory.DemoMemberUserID); got != 0 {
		t.Fatalf("unexpected flat member balance: got=%d want=%d", got, 0)
	}
	if got := env.balance(t, memory.GroupIDCreditDemo, memory.DemoMemberUserID); got != 1185 {
		t.Fatalf("unexpected credit member balance: got=%d want=%d", got, 1185)
	}
	if got := env.events.count(EventWagerSettled); got != 3 {
		t.Fatalf("unexpected settled events: got=%d want=%d", got, 3)
	}

	history, err := env.ledger.ListByMember(ctx, memory.GroupIDCreditDemo, memory.DemoMemberUserID)
	if err != nil {
		t.Fatalf("list ledger: %v", err)
	}
	if len(history) != 1 || history[0].Points != 185 {
		t.Fatalf("unexpected ledger history: %+v", history)
	}
}

func TestSettlementService_Settle_ConcurrentCallersAwardOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addMatch(t, match.Match{
		ID:        "mat-race",
		HomeTeam:  "Kantor Utara",
		AwayTeam:  "Kantor Selatan",
		KickoffAt: env.now.Add(-3 * time.Hour),
		Status:    match.StatusFinished,
		Result:    finishedResult(0, 0),
	}, false)
	env.addWager(t, "wgr-race", memory.DemoOwnerUserID, "mat-race", memory.GroupIDCreditDemo, payout.OutcomeDraw, stakePtr(50))

	const callers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
		points  int64
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := env.settlement.Settle(context.Background(), "mat-race")
			if err != nil {
				t.Errorf("settle: %v", err)
				return
			}
			mu.Lock()
			applied += report.Applied
			points += report.PointsAwarded
			mu.Unlock()
		}()
	}
	wg.Wait()

	if applied != 1 {
		t.Fatalf("wager must be applied exactly once: got=%d", applied)
	}
	// floor(50 x 3.40)
	if points != 170 {
		t.Fatalf("unexpected points: got=%d want=%d", points, 170)
	}
	if got := env.balance(t, memory.GroupIDCreditDemo, memory.DemoOwnerUserID); got != 1170 {
		t.Fatalf("unexpected balance: got=%d want=%d", got, 1170)
	}
}

func TestSettlementService_Settle_UsesNeutralMultipliersWithoutOdds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	m := match.Match{
		ID:        "mat-no-odds",
		HomeTeam:  "Tim Merah",
		AwayTeam:  "Tim Biru",
		KickoffAt: env.now.Add(-4 * time.Hour),
		Status:    match.StatusFinished,
		Result:    finishedResult(1, 3),
		Groups:    map[string]struct{}{},
		CreatedAt: env.now,
		UpdatedAt: env.now,
	}
	if err := env.matches.Create(ctx, m); err != nil {
		t.Fatalf("create match: %v", err)
	}
	if err := env.matches.LinkGroup(ctx, m.ID, memory.GroupIDCreditDemo, nil); err != nil {
		t.Fatalf("link group: %v", err)
	}
	env.addWager(t, "wgr-neutral", memory.DemoMemberUserID, m.ID, memory.GroupIDCreditDemo, payout.OutcomeAway, stakePtr(120))

	report, err := env.settlement.Settle(ctx, m.ID)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if report.PointsAwarded != 120 {
		t.Fatalf("unexpected points: got=%d want=%d", report.PointsAwarded, 120)
	}
}

func TestSettlementService_Settle_UnfinishedMatchIsNoop(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addWager(t, "wgr-open", memory.DemoMemberUserID, "mat-demo-1", memory.GroupIDFlatDemo, payout.OutcomeHome, nil)

	report, err := env.settlement.Settle(context.Background(), "mat-demo-1")
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if report.Status != string(match.StatusScheduled) || report.Unsettled != 0 || report.Applied != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestSettlementService_Settle_InputErrors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	if _, err := env.settlement.Settle(context.Background(), " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := env.settlement.Settle(context.Background(), "mat-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSettlementService_Settle_MatchLookupFailureUsingMockery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	matchRepo := matchmock.NewRepository(t)
	lookupErr := errors.New("connection reset")
	matchRepo.
		On("GetByID", mock.MatchedBy(func(v context.Context) bool { return v != nil }), "mat-1").
		Return(match.Match{}, false, lookupErr).
		Once()

	service := NewSettlementService(matchRepo, nil, nil, nil, &sequentialIDs{prefix: "led"}, nil, nil, SettlementConfig{}, nil)
	_, err := service.Settle(ctx, "mat-1")
	if !errors.Is(err, lookupErr) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}
