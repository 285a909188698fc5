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
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
)

type staticIdentity struct {
	exists bool
	err    error
}

func (s staticIdentity) AccountExists(context.Context, string) (bool, error) {
	return s.exists, s.err
}

func newTestWagerService(env *testEnv, identity IdentityProvider) *WagerService {
	service := NewWagerService(env.wagers, env.matches, env.groups, identity, &sequentialIDs{prefix: "wgr"}, logging.NewNop())
	service.now = func() time.Time { return env.now }
	return service
}

func TestWagerService_PlaceWager_CreditStakeMovesBalance(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	service := newTestWagerService(env, staticIdentity{exists: true})

	first, err := service.PlaceWager(ctx, PlaceWagerInput{
		UserID:     memory.DemoMemberUserID,
		GroupID:    memory.GroupIDCreditDemo,
		MatchID:    "mat-demo-1",
		Prediction: "home",
		Stake:      stakePtr(300),
	})
	if err != nil {
		t.Fatalf("place wager: %v", err)
	}
	if first.Prediction != payout.OutcomeHome {
		t.Fatalf("unexpected prediction: got=%s want=%s", first.Prediction, payout.OutcomeHome)
	}
	if got := env.balance(t, memory.GroupIDCreditDemo, memory.DemoMemberUserID); got != 700 {
		t.Fatalf("unexpected balance after stake: got=%d want=%d", got, 700)
	}

	second, err := service.PlaceWager(ctx, PlaceWagerInput{
		UserID:     memory.DemoMemberUserID,
		GroupID:    memory.GroupIDCreditDemo,
		MatchID:    "mat-demo-1",
		Prediction: "DRAW",
		Stake:      stakePtr(100),
	})
	if err != nil {
		t.Fatalf("overwrite wager: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("overwrite must keep the wager id: got=%s want=%s", second.ID, first.ID)
	}
	if got := env.balance(t, memory.GroupIDCreditDemo, memory.DemoMemberUserID); got != 900 {
		t.Fatalf("unexpected balance after lowering stake: got=%d want=%d", got, 900)
	}

	summary, err := service.ListMemberWagers(ctx, memory.GroupIDCreditDemo, memory.DemoMemberUserID)
	if err != nil {
		t.Fatalf("list member wagers: %v", err)
	}
	if len(summary.Wagers) != 1 || summary.Stats.Pending != 1 || summary.Balance != 900 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestWagerService_PlaceWager_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    PlaceWagerInput
		identity IdentityProvider
		wantErr  error
	}{
		{
			name:    "unknown prediction",
			input:   PlaceWagerInput{UserID: memory.DemoMemberUserID, GroupID: memory.GroupIDFlatDemo, MatchID: "mat-demo-1", Prediction: "WIN"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "stake in flat group",
			input:   PlaceWagerInput{UserID: memory.DemoMemberUserID, GroupID: memory.GroupIDFlatDemo, MatchID: "mat-demo-1", Prediction: "HOME", Stake: stakePtr(10)},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "missing stake in credit group",
			input:   PlaceWagerInput{UserID: memory.DemoMemberUserID, GroupID: memory.GroupIDCreditDemo, MatchID: "mat-demo-1", Prediction: "HOME"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "stake above balance",
			input:   PlaceWagerInput{UserID: memory.DemoMemberUserID, GroupID: memory.GroupIDCreditDemo, MatchID: "mat-demo-1", Prediction: "HOME", Stake: stakePtr(1001)},
			wantErr: ErrInsufficientBalance,
		},
		{
			name:    "not a member",
			input:   PlaceWagerInput{UserID: "user-outsider", GroupID: memory.GroupIDFlatDemo, MatchID: "mat-demo-1", Prediction: "HOME"},
			wantErr: ErrForbidden,
		},
		{
			name:    "match not in group",
			input:   PlaceWagerInput{UserID: memory.DemoMemberUserID, GroupID: memory.GroupIDFlatDemo, MatchID: "mat-demo-3", Prediction: "HOME"},
			wantErr: ErrNotFound,
		},
		{
			name:     "account missing",
			input:    PlaceWagerInput{UserID: memory.DemoMemberUserID, GroupID: memory.GroupIDFlatDemo, MatchID: "mat-demo-1", Prediction: "HOME"},
			identity: staticIdentity{exists: false},
			wantErr:  ErrUnauthorized,
		},
		{
			name:     "identity provider down",
			input:    PlaceWagerInput{UserID: memory.DemoMemberUserID, GroupID: memory.GroupIDFlatDemo, MatchID: "mat-demo-1", Prediction: "HOME"},
			identity: staticIdentity{err: errors.New("dial tcp: i/o timeout")},
			wantErr:  ErrDependencyUnavailable,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			identity := tc.identity
			if identity == nil {
				identity = staticIdentity{exists: true}
			}
			_, err := newTestWagerService(env, identity).PlaceWager(context.Background(), tc.input)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("unexpected error: got=%v want=%v", err, tc.wantErr)
			}
			if got := env.balance(t, memory.GroupIDCreditDemo, memory.DemoMemberUserID); got != 1000 {
				t.Fatalf("rejected wager must not move the balance: got=%d", got)
			}
		})
	}
}

func TestWagerService_PlaceWager_ClosedAfterKickoff(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.addMatch(t, match.Match{
		ID:         "mat-started",
		ExternalID: 7001,
		HomeTeam:   "Persija Jakarta",
		AwayTeam:   "Persebaya",
		KickoffAt:  env.now.Add(-time.Minute),
		Status:     match.StatusScheduled,
	}, true)

	_, err := newTestWagerService(env, nil).PlaceWager(context.Background(), PlaceWagerInput{
		UserID:     memory.DemoMemberUserID,
		GroupID:    memory.GroupIDFlatDemo,
		MatchID:    "mat-started",
		Prediction: "AWAY",
	})
	if !errors.Is(err, ErrWagerClosed) {
		t.Fatalf("expected ErrWagerClosed, got %v", err)
	}
}

func TestWagerService_MemberStats_CountsSettledAndVoid(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	env.addMatch(t, match.Match{
		ID:        "mat-won",
		HomeTeam:  "A",
		AwayTeam:  "B",
		KickoffAt: env.now.Add(-3 * time.Hour),
		Status:    match.StatusFinished,
		Result:    finishedResult(3, 0),
	}, true)
	env.addMatch(t, match.Match{
		ID:        "mat-lost",
		HomeTeam:  "C",
		AwayTeam:  "D",
		KickoffAt: env.now.Add(-4 * time.Hour),
		Status:    match.StatusFinished,
		Result:    finishedResult(0, 0),
	}, true)
	env.addMatch(t, match.Match{
		ID:        "mat-void",
		HomeTeam:  "E",
		AwayTeam:  "F",
		KickoffAt: env.now.Add(-5 * time.Hour),
		Status:    match.StatusCancelled,
	}, true)
	env.addWager(t, "wgr-won", memory.DemoMemberUserID, "mat-won", memory.GroupIDFlatDemo, payout.OutcomeHome, nil)
	env.addWager(t, "wgr-lost", memory.DemoMemberUserID, "mat-lost", memory.GroupIDFlatDemo, payout.OutcomeAway, nil)
	env.addWager(t, "wgr-void", memory.DemoMemberUserID, "mat-void", memory.GroupIDFlatDemo, payout.OutcomeHome, nil)
	for _, id := range []string{"mat-won", "mat-lost"} {
		if _, err := env.settlement.Settle(ctx, id); err != nil {
			t.Fatalf("settle %s: %v", id, err)
		}
	}

	stats, err := newTestWagerService(env, nil).MemberStats(ctx, memory.GroupIDFlatDemo, memory.DemoMemberUserID)
	if err != nil {
		t.Fatalf("member stats: %v", err)
	}
	if stats.Won != 1 || stats.Lost != 1 || stats.Void != 1 || stats.Pending != 0 || stats.Points != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestWagerService_PlaceWager_ConcurrentEditsDebitOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	service := newTestWagerService(env, staticIdentity{exists: true})
	place := func(stake int64) error {
		_, err := service.PlaceWager(ctx, PlaceWagerInput{
			UserID:     memory.DemoMemberUserID,
			GroupID:    memory.GroupIDCreditDemo,
			MatchID:    "mat-demo-2",
			Prediction: "HOME",
			Stake:      stakePtr(stake),
		})
		return err
	}
	if err := place(100); err != nil {
		t.Fatalf("first stake: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(stake int64) {
			defer wg.Done()
			if err := place(stake); err != nil {
				t.Errorf("edit stake=%d: %v", stake, err)
			}
		}(int64(200 + 100*(i%2)))
	}
	wg.Wait()

	stored, _, err := env.wagers.GetByKey(ctx, memory.DemoMemberUserID, "mat-demo-2", memory.GroupIDCreditDemo)
	if err != nil {
		t.Fatalf("get wager: %v", err)
	}
	if got, want := env.balance(t, memory.GroupIDCreditDemo, memory.DemoMemberUserID), 1000-stored.StakeAmount(); got != want {
		t.Fatalf("balance drifted from the final stake: got=%d want=%d stake=%d", got, want, stored.StakeAmount())
	}
}

func TestWagerService_PlaceThenSettle_BalanceFollowsOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		prediction  string
		wantBalance int64
	}{
		// 1000 - 100 + floor(100 x 1.85)
		{name: "win", prediction: "HOME", wantBalance: 1085},
		{name: "loss", prediction: "AWAY", wantBalance: 900},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			ctx := context.Background()
			if _, err := newTestWagerService(env, staticIdentity{exists: true}).PlaceWager(ctx, PlaceWagerInput{
				UserID:     memory.DemoMemberUserID,
				GroupID:    memory.GroupIDCreditDemo,
				MatchID:    "mat-demo-3",
				Prediction: tc.prediction,
				Stake:      stakePtr(100),
			}); err != nil {
				t.Fatalf("place wager: %v", err)
			}
			if got := env.balance(t, memory.GroupIDCreditDemo, memory.DemoMemberUserID); got != 900 {
				t.Fatalf("stake must leave the balance on placement: got=%d want=%d", got, 900)
			}

			finished, err := newTestMatchAdmin(env).MarkFinished(ctx, ManualActionInput{
				ActorUserID: memory.DemoOwnerUserID,
				MatchID:     "mat-demo-3",
				GroupID:     memory.GroupIDCreditDemo,
				Score:       &match.Score{Home: 2, Away: 0},
			})
			if err != nil {
				t.Fatalf("mark finished: %v", err)
			}
			if finished.Settlement == nil || finished.Settlement.Applied != 1 {
				t.Fatalf("unexpected settlement: %+v", finished.Settlement)
			}
			if got := env.balance(t, memory.GroupIDCreditDemo, memory.DemoMemberUserID); got != tc.wantBalance {
				t.Fatalf("unexpected balance after settlement: got=%d want=%d", got, tc.wantBalance)
			}

			if _, err := env.settlement.Settle(ctx, "mat-demo-3"); err != nil {
				t.Fatalf("repeat settle: %v", err)
			}
			if got := env.balance(t, memory.GroupIDCreditDemo, memory.DemoMemberUserID); got != tc.wantBalance {
				t.Fatalf("repeat settlement moved the balance: got=%d want=%d", got, tc.wantBalance)
			}
		})
	}
}
