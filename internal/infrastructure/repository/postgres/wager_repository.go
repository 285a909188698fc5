package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/predictor-league/internal/domain/group"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
	"github.com/riskibarqy/predictor-league/internal/domain/wager"
	qb "github.com/riskibarqy/predictor-league/internal/platform/querybuilder"
)

type WagerRepository struct {
	db *sqlx.DB
}

func NewWagerRepository(db *sqlx.DB) *WagerRepository {
	return &WagerRepository{db: db}
}

var _ wager.Repository = (*WagerRepository)(nil)

func (r *WagerRepository) GetByKey(ctx context.Context, userID, matchID, groupID string) (wager.Wager, bool, error) {
	query, args, err := qb.Select(wagerColumns...).
		From("wagers").
		Where(qb.Eq("user_id", userID), qb.Eq("match_id", matchID), qb.Eq("group_id", groupID)).
		ToSQL()
	if err != nil {
		return wager.Wager{}, false, fmt.Errorf("build get wager query: %w", err)
	}

	var row wagerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return wager.Wager{}, false, nil
		}
		return wager.Wager{}, false, fmt.Errorf("get wager user=%s match=%s group=%s: %w", userID, matchID, groupID, err)
	}
	return wagerFromRow(row), true, nil
}

// Upsert never touches a settled wager: the conflict update is guarded on settled = FALSE
// and returns no row in that case.
func (r *WagerRepository) Upsert(ctx context.Context, w wager.Wager) (wager.Wager, error) {
	return upsertWager(ctx, r.db, w)
}

// Place locks the member row first so every stake change of one member in one group
// is serialized, then reads the previous stake, debits the difference and upserts.
func (r *WagerRepository) Place(ctx context.Context, w wager.Wager) (wager.Wager, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return wager.Wager{}, fmt.Errorf("begin place wager tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := qb.Select("points").
		From("group_members").
		Where(qb.Eq("group_id", w.GroupID), qb.Eq("user_id", w.UserID)).
		ForUpdate().
		ToSQL()
	if err != nil {
		return wager.Wager{}, fmt.Errorf("build lock member query: %w", err)
	}
	var balance int64
	if err := tx.GetContext(ctx, &balance, query, args...); err != nil {
		if isNotFound(err) {
			return wager.Wager{}, fmt.Errorf("%w: group=%s user=%s", group.ErrMemberNotFound, w.GroupID, w.UserID)
		}
		return wager.Wager{}, fmt.Errorf("lock member group=%s user=%s: %w", w.GroupID, w.UserID, err)
	}

	query, args, err = qb.Select("stake", "settled").
		From("wagers").
		Where(qb.Eq("user_id", w.UserID), qb.Eq("match_id", w.MatchID), qb.Eq("group_id", w.GroupID)).
		ForUpdate().
		ToSQL()
	if err != nil {
		return wager.Wager{}, fmt.Errorf("build previous stake query: %w", err)
	}
	var previous struct {
		Stake   *int64 `db:"stake"`
		Settled bool   `db:"settled"`
	}
	if err := tx.GetContext(ctx, &previous, query, args...); err != nil && !isNotFound(err) {
		return wager.Wager{}, fmt.Errorf("read previous stake user=%s match=%s group=%s: %w", w.UserID, w.MatchID, w.GroupID, err)
	}
	if previous.Settled {
		return wager.Wager{}, fmt.Errorf("%w: user=%s match=%s group=%s", wager.ErrAlreadySettled, w.UserID, w.MatchID, w.GroupID)
	}

	delta := wager.Wager{Stake: previous.Stake}.StakeAmount() - w.StakeAmount()
	if delta != 0 {
		if balance+delta < 0 {
			return wager.Wager{}, group.ErrInsufficientBalance
		}
		query, args, err = qb.Update("group_members").
			SetExpr("points", "points + ?", delta).
			Set("updated_at", time.Now().UTC()).
			Where(qb.Eq("group_id", w.GroupID), qb.Eq("user_id", w.UserID)).
			ToSQL()
		if err != nil {
			return wager.Wager{}, fmt.Errorf("build stake debit query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if isCheckViolation(err) {
				return wager.Wager{}, group.ErrInsufficientBalance
			}
			return wager.Wager{}, fmt.Errorf("debit stake group=%s user=%s: %w", w.GroupID, w.UserID, err)
		}
	}

	saved, err := upsertWager(ctx, tx, w)
	if err != nil {
		return wager.Wager{}, err
	}
	if err := tx.Commit(); err != nil {
		return wager.Wager{}, fmt.Errorf("commit place wager tx: %w", err)
	}
	return saved, nil
}

func upsertWager(ctx context.Context, q sqlx.QueryerContext, w wager.Wager) (wager.Wager, error) {
	now := time.Now().UTC()
	row := wagerInsertModel{
		ID:         w.ID,
		UserID:     w.UserID,
		MatchID:    w.MatchID,
		GroupID:    w.GroupID,
		Prediction: string(w.Prediction),
		Stake:      w.Stake,
		CreatedAt:  w.CreatedAt.UTC(),
		UpdatedAt:  w.UpdatedAt.UTC(),
	}
	if w.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if w.UpdatedAt.IsZero() {
		row.UpdatedAt = now
	}

	query, args, err := qb.InsertModel("wagers", row, `ON CONFLICT (user_id, match_id, group_id)
DO UPDATE SET
    prediction = EXCLUDED.prediction,
    stake = EXCLUDED.stake,
    updated_at = EXCLUDED.updated_at
WHERE wagers.settled = FALSE
RETURNING `+strings.Join(wagerColumns, ", "))
	if err != nil {
		return wager.Wager{}, fmt.Errorf("build upsert wager query: %w", err)
	}

	var saved wagerTableModel
	if err := sqlx.GetContext(ctx, q, &saved, query, args...); err != nil {
		if isNotFound(err) {
			return wager.Wager{}, fmt.Errorf("%w: user=%s match=%s group=%s", wager.ErrAlreadySettled, w.UserID, w.MatchID, w.GroupID)
		}
		return wager.Wager{}, fmt.Errorf("upsert wager user=%s match=%s group=%s: %w", w.UserID, w.MatchID, w.GroupID, err)
	}
	return wagerFromRow(saved), nil
}

func (r *WagerRepository) ListUnsettledByMatch(ctx context.Context, matchID string) ([]wager.Wager, error) {
	return r.list(ctx, "list unsettled wagers by match", qb.Eq("match_id", matchID), qb.Eq("settled", false))
}

func (r *WagerRepository) ListByMember(ctx context.Context, groupID, userID string) ([]wager.Wager, error) {
	return r.list(ctx, "list member wagers", qb.Eq("group_id", groupID), qb.Eq("user_id", userID))
}

func (r *WagerRepository) ListUnsettledMatchIDs(ctx context.Context, since time.Time) ([]string, error) {
	query, args, err := qb.Select("DISTINCT w.match_id").
		From("wagers w").
		Join("JOIN matches m ON m.id = w.match_id").
		Where(
			qb.Eq("w.settled", false),
			qb.Eq("m.status", string(match.StatusFinished)),
			qb.Gte("m.kickoff_at", since.UTC()),
		).
		OrderBy("w.match_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list unsettled match ids query: %w", err)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("list unsettled match ids: %w", err)
	}
	return ids, nil
}

func (r *WagerRepository) list(ctx context.Context, op string, conditions ...qb.Condition) ([]wager.Wager, error) {
	query, args, err := qb.Select(wagerColumns...).
		From("wagers").
		Where(conditions...).
		OrderBy("created_at ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}

	var rows []wagerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := make([]wager.Wager, 0, len(rows))
	for _, row := range rows {
		out = append(out, wagerFromRow(row))
	}
	return out, nil
}

func wagerFromRow(row wagerTableModel) wager.Wager {
	prediction, _ := payout.ParseOutcome(row.Prediction)
	return wager.Wager{
		ID:         row.ID,
		UserID:     row.UserID,
		MatchID:    row.MatchID,
		GroupID:    row.GroupID,
		Prediction: prediction,
		Stake:      row.Stake,
		Points:     row.Points,
		Settled:    row.Settled,
		SettledAt:  row.SettledAt,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}
