package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/predictor-league/internal/domain/group"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
	qb "github.com/riskibarqy/predictor-league/internal/platform/querybuilder"
)

type GroupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

var _ group.Repository = (*GroupRepository)(nil)

func (r *GroupRepository) GetByID(ctx context.Context, groupID string) (group.Group, bool, error) {
	query, args, err := qb.Select("id", "name", "owner_user_id", "scheme", "match_mode", "starting_credits", "created_at", "updated_at").
		From("groups").
		Where(qb.Eq("id", groupID)).
		ToSQL()
	if err != nil {
		return group.Group{}, false, fmt.Errorf("build get group query: %w", err)
	}

	var row groupTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return group.Group{}, false, nil
		}
		return group.Group{}, false, fmt.Errorf("get group id=%s: %w", groupID, err)
	}

	query, args, err = qb.Select("group_id", "user_id", "points", "joined_at").
		From("group_members").
		Where(qb.Eq("group_id", groupID)).
		ToSQL()
	if err != nil {
		return group.Group{}, false, fmt.Errorf("build list group members query: %w", err)
	}
	var members []groupMemberTableModel
	if err := r.db.SelectContext(ctx, &members, query, args...); err != nil {
		return group.Group{}, false, fmt.Errorf("list group members id=%s: %w", groupID, err)
	}

	return groupFromRows(row, members), true, nil
}

func (r *GroupRepository) Create(ctx context.Context, g group.Group) error {
	now := time.Now().UTC()
	row := groupTableModel{
		ID:              g.ID,
		Name:            g.Name,
		OwnerUserID:     g.OwnerUserID,
		Scheme:          string(g.Scheme),
		MatchMode:       string(g.MatchMode),
		StartingCredits: g.StartingCredits,
		CreatedAt:       g.CreatedAt.UTC(),
		UpdatedAt:       g.UpdatedAt.UTC(),
	}
	if row.MatchMode == "" {
		row.MatchMode = string(group.MatchModeAutomatic)
	}
	if g.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	if g.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create group tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := qb.InsertModel("groups", row, "")
	if err != nil {
		return fmt.Errorf("build insert group query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert group id=%s: %w", g.ID, err)
	}
	for _, member := range g.Members {
		if err := addMember(ctx, tx, g.ID, member.UserID, member.Points, member.JoinedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create group tx: %w", err)
	}
	return nil
}

func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID string, points int64, joinedAt time.Time) error {
	return addMember(ctx, r.db, groupID, userID, points, joinedAt)
}

func addMember(ctx context.Context, exec sqlx.ExecerContext, groupID, userID string, points int64, joinedAt time.Time) error {
	if joinedAt.IsZero() {
		joinedAt = time.Now()
	}
	row := groupMemberTableModel{GroupID: groupID, UserID: userID, Points: points, JoinedAt: joinedAt.UTC()}
	query, args, err := qb.InsertModel("group_members", row, "ON CONFLICT (group_id, user_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert group member query: %w", err)
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert group member group=%s user=%s: %w", groupID, userID, err)
	}
	return nil
}

func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`, groupID, userID); err != nil {
		return false, fmt.Errorf("check group member group=%s user=%s: %w", groupID, userID, err)
	}
	return exists, nil
}

// AdjustBalance is a single guarded UPDATE; concurrent adjustments never lose increments
// and never drive the balance below zero.
func (r *GroupRepository) AdjustBalance(ctx context.Context, groupID, userID string, delta int64) (int64, error) {
	query, args, err := qb.Update("group_members").
		SetExpr("points", "points + ?", delta).
		Set("updated_at", time.Now().UTC()).
		Where(
			qb.Eq("group_id", groupID),
			qb.Eq("user_id", userID),
			qb.Expr("points + ? >= 0", delta),
		).
		Suffix("RETURNING points").
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build adjust balance query: %w", err)
	}

	var points int64
	if err := r.db.GetContext(ctx, &points, query, args...); err != nil {
		if !isNotFound(err) {
			return 0, fmt.Errorf("adjust balance group=%s user=%s: %w", groupID, userID, err)
		}
		var current int64
		if err := r.db.GetContext(ctx, &current, `SELECT points FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID); err != nil {
			if isNotFound(err) {
				return 0, fmt.Errorf("%w: group=%s user=%s", group.ErrMemberNotFound, groupID, userID)
			}
			return 0, fmt.Errorf("read balance group=%s user=%s: %w", groupID, userID, err)
		}
		return current, group.ErrInsufficientBalance
	}
	return points, nil
}

func groupFromRows(row groupTableModel, members []groupMemberTableModel) group.Group {
	scheme, ok := payout.ParseKind(row.Scheme)
	if !ok {
		scheme = payout.KindFlat
	}
	g := group.Group{
		ID:              row.ID,
		Name:            row.Name,
		OwnerUserID:     row.OwnerUserID,
		Scheme:          scheme,
		MatchMode:       group.MatchMode(row.MatchMode),
		StartingCredits: row.StartingCredits,
		Members:         make(map[string]group.Member, len(members)),
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	for _, member := range members {
		g.Members[member.UserID] = group.Member{
			UserID:   member.UserID,
			Points:   member.Points,
			JoinedAt: member.JoinedAt.UTC(),
		}
	}
	return g
}
