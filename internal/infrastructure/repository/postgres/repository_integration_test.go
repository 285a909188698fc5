//go:build integration

package postgres

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/predictor-league/internal/domain/group"
	"github.com/riskibarqy/predictor-league/internal/domain/ledger"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
	"github.com/riskibarqy/predictor-league/internal/domain/wager"
	"github.com/riskibarqy/predictor-league/internal/infrastructure/repository/memory"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16.3-alpine",
		tcpostgres.WithDatabase("predictor"),
		tcpostgres.WithUsername("predictor"),
		tcpostgres.WithPassword("secret"),
		tcpostgres.WithInitScripts(filepath.Join("..", "..", "..", "..", "db", "migrations", "1792195200_create_predictor_schema.up.sql")),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	now := time.Now().UTC()
	require.NoError(t, BootstrapSeed(ctx, db, now))
	return db
}

func TestPostgres_SettlementAndBalances(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	groups := NewGroupRepository(db)
	matches := NewMatchRepository(db)
	wagers := NewWagerRepository(db)
	entries := NewLedgerRepository(db)

	m, ok, err := matches.GetByID(ctx, "mat-demo-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, m.InGroup(memory.GroupIDCreditDemo))
	require.True(t, m.InGroup(memory.GroupIDFlatDemo))
	require.Equal(t, "1.85", m.MultipliersFor(memory.GroupIDCreditDemo).Home.StringFixed(2))

	stake := int64(100)
	balance, err := groups.AdjustBalance(ctx, memory.GroupIDCreditDemo, memory.DemoMemberUserID, -stake)
	require.NoError(t, err)
	require.Equal(t, int64(900), balance)

	_, err = groups.AdjustBalance(ctx, memory.GroupIDCreditDemo, memory.DemoMemberUserID, -901)
	require.ErrorIs(t, err, group.ErrInsufficientBalance)
	_, err = groups.AdjustBalance(ctx, memory.GroupIDCreditDemo, "ghost", 10)
	require.ErrorIs(t, err, group.ErrMemberNotFound)

	saved, err := wagers.Upsert(ctx, wager.Wager{
		ID:         "wgr-int-1",
		UserID:     memory.DemoMemberUserID,
		MatchID:    m.ID,
		GroupID:    memory.GroupIDCreditDemo,
		Prediction: payout.OutcomeHome,
		Stake:      &stake,
	})
	require.NoError(t, err)
	require.False(t, saved.Settled)

	entry := ledger.Entry{ID: "led-int-1", WagerID: saved.ID, Points: 185, CreatedAt: time.Now().UTC()}
	applied, err := entries.ApplySettlement(ctx, entry)
	require.NoError(t, err)
	require.True(t, applied)

	entry.ID = "led-int-2"
	applied, err = entries.ApplySettlement(ctx, entry)
	require.NoError(t, err)
	require.False(t, applied)

	g, _, err := groups.GetByID(ctx, memory.GroupIDCreditDemo)
	require.NoError(t, err)
	require.Equal(t, int64(1085), g.Members[memory.DemoMemberUserID].Points)

	history, err := entries.ListByMember(ctx, memory.GroupIDCreditDemo, memory.DemoMemberUserID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	_, err = wagers.Upsert(ctx, wager.Wager{
		ID:         "wgr-int-2",
		UserID:     memory.DemoMemberUserID,
		MatchID:    m.ID,
		GroupID:    memory.GroupIDCreditDemo,
		Prediction: payout.OutcomeAway,
		Stake:      &stake,
	})
	require.ErrorIs(t, err, wager.ErrAlreadySettled)
}

func TestPostgres_PlaceSerializesStakeEdits(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	wagers := NewWagerRepository(db)
	groups := NewGroupRepository(db)

	place := func(stake int64) error {
		_, err := wagers.Place(ctx, wager.Wager{
			ID:         "wgr-int-edit",
			UserID:     memory.DemoMemberUserID,
			MatchID:    "mat-demo-1",
			GroupID:    memory.GroupIDCreditDemo,
			Prediction: payout.OutcomeHome,
			Stake:      &stake,
		})
		return err
	}
	require.NoError(t, place(100))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(stake int64) {
			defer wg.Done()
			if err := place(stake); err != nil {
				t.Errorf("edit stake=%d: %v", stake, err)
			}
		}(int64(200 + 100*(i%2)))
	}
	wg.Wait()

	stored, ok, err := wagers.GetByKey(ctx, memory.DemoMemberUserID, "mat-demo-1", memory.GroupIDCreditDemo)
	require.NoError(t, err)
	require.True(t, ok)
	g, _, err := groups.GetByID(ctx, memory.GroupIDCreditDemo)
	require.NoError(t, err)
	require.Equal(t, 1000-stored.StakeAmount(), g.Members[memory.DemoMemberUserID].Points)

	require.ErrorIs(t, place(5000), group.ErrInsufficientBalance)
}

func TestPostgres_ConcurrentAdjustBalance(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	groups := NewGroupRepository(db)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := groups.AdjustBalance(ctx, memory.GroupIDCreditDemo, memory.DemoOwnerUserID, 5); err != nil {
				t.Errorf("adjust balance: %v", err)
			}
		}()
	}
	wg.Wait()

	g, _, err := groups.GetByID(ctx, memory.GroupIDCreditDemo)
	require.NoError(t, err)
	require.Equal(t, int64(1200), g.Members[memory.DemoOwnerUserID].Points)
}

func TestPostgres_UpdateIfUnchangedAndList(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	matches := NewMatchRepository(db)

	m, _, err := matches.GetByID(ctx, "mat-demo-1")
	require.NoError(t, err)

	live := m
	live.Status = match.StatusLive
	live.Result = &match.Result{HomeScore: 1, AwayScore: 0}
	live.Telemetry = match.Telemetry{Elapsed: 12, ProviderStatusCode: 2}
	live.UpdatedAt = m.UpdatedAt.Add(time.Second)
	ok, err := matches.UpdateIfUnchanged(ctx, live, m.Version())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = matches.UpdateIfUnchanged(ctx, live, m.Version())
	require.NoError(t, err)
	require.False(t, ok)

	got, _, err := matches.GetByID(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, match.StatusLive, got.Status)
	require.Equal(t, 12, got.Telemetry.Elapsed)
	require.Len(t, got.Groups, 2)

	listed, err := matches.List(ctx, match.Filter{Statuses: []match.Status{match.StatusLive}, ExternalOnly: true})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	byExternal, ok, err := matches.GetByExternalID(ctx, 19135002)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "mat-demo-2", byExternal.ID)

	err = matches.Create(ctx, match.Match{ID: "mat-dup", ExternalID: 19135002, HomeTeam: "A", AwayTeam: "B", KickoffAt: time.Now(), Status: match.StatusScheduled})
	require.Error(t, err)
}
