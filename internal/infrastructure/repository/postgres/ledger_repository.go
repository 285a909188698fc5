package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/predictor-league/internal/domain/group"
	"github.com/riskibarqy/predictor-league/internal/domain/ledger"
	qb "github.com/riskibarqy/predictor-league/internal/platform/querybuilder"
)

type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

var _ ledger.Repository = (*LedgerRepository)(nil)

// ApplySettlement runs the wager flip, the member credit and the entry insert in one
// transaction. The flip is guarded on settled = FALSE so a replay is a no-op.
func (r *LedgerRepository) ApplySettlement(ctx context.Context, entry ledger.Entry) (bool, error) {
	settledAt := entry.CreatedAt.UTC()
	if entry.CreatedAt.IsZero() {
		settledAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin settlement tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := qb.Update("wagers").
		Set("points", entry.Points).
		Set("settled", true).
		Set("settled_at", settledAt).
		Set("updated_at", settledAt).
		Where(qb.Eq("id", entry.WagerID), qb.Eq("settled", false)).
		Suffix("RETURNING group_id, user_id, match_id").
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build settle wager query: %w", err)
	}

	var owner struct {
		GroupID string `db:"group_id"`
		UserID  string `db:"user_id"`
		MatchID string `db:"match_id"`
	}
	if err := tx.GetContext(ctx, &owner, query, args...); err != nil {
		if !isNotFound(err) {
			return false, fmt.Errorf("settle wager id=%s: %w", entry.WagerID, err)
		}
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM wagers WHERE id = $1)`, entry.WagerID); err != nil {
			return false, fmt.Errorf("check wager id=%s: %w", entry.WagerID, err)
		}
		if !exists {
			return false, fmt.Errorf("wager %s not found", entry.WagerID)
		}
		return false, nil
	}

	if err := creditMember(ctx, tx, owner.GroupID, owner.UserID, entry.Points); err != nil {
		return false, err
	}

	row := ledgerEntryTableModel{
		ID:        entry.ID,
		WagerID:   entry.WagerID,
		MatchID:   owner.MatchID,
		GroupID:   owner.GroupID,
		UserID:    owner.UserID,
		Points:    entry.Points,
		CreatedAt: settledAt,
	}
	query, args, err = qb.InsertModel("ledger_entries", row, "")
	if err != nil {
		return false, fmt.Errorf("build insert ledger entry query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return false, fmt.Errorf("insert ledger entry wager=%s: %w", entry.WagerID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit settlement tx wager=%s: %w", entry.WagerID, err)
	}
	return true, nil
}

func creditMember(ctx context.Context, tx *sqlx.Tx, groupID, userID string, points int64) error {
	if points == 0 {
		return nil
	}
	query, args, err := qb.Update("group_members").
		SetExpr("points", "points + ?", points).
		Set("updated_at", time.Now().UTC()).
		Where(qb.Eq("group_id", groupID), qb.Eq("user_id", userID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build credit member query: %w", err)
	}
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("credit group=%s user=%s: %w", groupID, userID, group.ErrInsufficientBalance)
		}
		return fmt.Errorf("credit group=%s user=%s: %w", groupID, userID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read credit result group=%s user=%s: %w", groupID, userID, err)
	}
	if affected != 1 {
		return fmt.Errorf("%w: group=%s user=%s", group.ErrMemberNotFound, groupID, userID)
	}
	return nil
}

func (r *LedgerRepository) ListByMember(ctx context.Context, groupID, userID string) ([]ledger.Entry, error) {
	query, args, err := qb.Select("id", "wager_id", "match_id", "group_id", "user_id", "points", "created_at").
		From("ledger_entries").
		Where(qb.Eq("group_id", groupID), qb.Eq("user_id", userID)).
		OrderBy("created_at ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list ledger entries query: %w", err)
	}

	var rows []ledgerEntryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list ledger entries group=%s user=%s: %w", groupID, userID, err)
	}
	out := make([]ledger.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, ledger.Entry{
			ID:        row.ID,
			WagerID:   row.WagerID,
			MatchID:   row.MatchID,
			GroupID:   row.GroupID,
			UserID:    row.UserID,
			Points:    row.Points,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return out, nil
}
