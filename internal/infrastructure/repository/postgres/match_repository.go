package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
	qb "github.com/riskibarqy/predictor-league/internal/platform/querybuilder"
	"github.com/shopspring/decimal"
)

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

var _ match.Repository = (*MatchRepository)(nil)

func (r *MatchRepository) GetByID(ctx context.Context, id string) (match.Match, bool, error) {
	query, args, err := qb.Select(matchColumns...).From("matches").Where(qb.Eq("id", id)).ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build get match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isPoolerStatementError(err) {
			return r.getByIDLiteral(ctx, id)
		}
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match id=%s: %w", id, err)
	}
	return r.hydrateOne(ctx, row)
}

func (r *MatchRepository) getByIDLiteral(ctx context.Context, id string) (match.Match, bool, error) {
	query, args, err := qb.Select(matchColumns...).From("matches").Where(qb.EqLiteral("id", id)).ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build get match literal fallback query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match literal fallback id=%s: %w", id, err)
	}
	return r.hydrateOne(ctx, row)
}

func (r *MatchRepository) GetByExternalID(ctx context.Context, externalID int64) (match.Match, bool, error) {
	if externalID <= 0 {
		return match.Match{}, false, nil
	}
	query, args, err := qb.Select(matchColumns...).From("matches").Where(qb.Eq("external_id", externalID)).ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build get match by external id query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match external_id=%d: %w", externalID, err)
	}
	return r.hydrateOne(ctx, row)
}

func (r *MatchRepository) List(ctx context.Context, filter match.Filter) ([]match.Match, error) {
	builder := qb.Select(matchColumns...).From("matches").OrderBy("kickoff_at ASC", "id ASC").Limit(filter.Limit)
	if filter.IDs != nil {
		builder.Where(qb.InStrings("id", filter.IDs))
	}
	if filter.ExternalIDs != nil {
		externalIDs := make([]any, 0, len(filter.ExternalIDs))
		for _, id := range filter.ExternalIDs {
			externalIDs = append(externalIDs, id)
		}
		builder.Where(qb.In("external_id", externalIDs))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		builder.Where(qb.InStrings("status", statuses))
	}
	if filter.ExternalOnly {
		builder.Where(qb.IsNotNull("external_id"))
	}
	if !filter.KickoffFrom.IsZero() {
		builder.Where(qb.Gte("kickoff_at", filter.KickoffFrom.UTC()))
	}
	if !filter.KickoffTo.IsZero() {
		builder.Where(qb.Lte("kickoff_at", filter.KickoffTo.UTC()))
	}

	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches query: %w", err)
	}

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return r.hydrate(ctx, rows)
}

func (r *MatchRepository) Create(ctx context.Context, m match.Match) error {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	row := matchToRow(m)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create match tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query, args, err := qb.InsertModel("matches", row, "")
	if err != nil {
		return fmt.Errorf("build insert match query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("match %s or external id %d already exists: %w", m.ID, m.ExternalID, err)
		}
		return fmt.Errorf("insert match id=%s: %w", m.ID, err)
	}

	for groupID := range m.Groups {
		var multipliers *payout.Multipliers
		if value, ok := m.RelativePoints[groupID]; ok {
			multipliers = &value
		}
		if err := linkGroup(ctx, tx, m.ID, groupID, multipliers); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create match tx: %w", err)
	}
	return nil
}

// UpdateIfUnchanged rewrites the match row guarded by the stored status and updated_at.
// Group links are left untouched.
func (r *MatchRepository) UpdateIfUnchanged(ctx context.Context, m match.Match, expected match.Version) (bool, error) {
	row := matchToRow(m)
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}

	query, args, err := qb.Update("matches").
		Set("external_id", row.ExternalID).
		Set("home_team", row.HomeTeam).
		Set("away_team", row.AwayTeam).
		Set("kickoff_at", row.KickoffAt).
		Set("status", row.Status).
		Set("home_score", row.HomeScore).
		Set("away_score", row.AwayScore).
		Set("outcome", row.Outcome).
		Set("elapsed_minutes", row.ElapsedMinutes).
		Set("extra_minutes", row.ExtraMinutes).
		Set("provider_status_code", row.ProviderStatusCode).
		Set("manual_override", row.ManualOverride).
		Set("finished_at", row.FinishedAt).
		Set("updated_at", row.UpdatedAt).
		Where(
			qb.Eq("id", m.ID),
			qb.Eq("status", string(expected.Status)),
			qb.Eq("updated_at", expected.UpdatedAt.UTC()),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build update match query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update match id=%s: %w", m.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("read update match result id=%s: %w", m.ID, err)
	}
	return affected == 1, nil
}

func (r *MatchRepository) LinkGroup(ctx context.Context, matchID, groupID string, multipliers *payout.Multipliers) error {
	return linkGroup(ctx, r.db, matchID, groupID, multipliers)
}

func linkGroup(ctx context.Context, exec sqlx.ExecerContext, matchID, groupID string, multipliers *payout.Multipliers) error {
	row := matchGroupTableModel{MatchID: matchID, GroupID: groupID}
	if multipliers != nil {
		row.HomeMultiplier = decimal.NewNullDecimal(multipliers.Home)
		row.DrawMultiplier = decimal.NewNullDecimal(multipliers.Draw)
		row.AwayMultiplier = decimal.NewNullDecimal(multipliers.Away)
	}

	query, args, err := qb.InsertModel("match_groups", row, `ON CONFLICT (match_id, group_id)
DO UPDATE SET
    home_multiplier = COALESCE(EXCLUDED.home_multiplier, match_groups.home_multiplier),
    draw_multiplier = COALESCE(EXCLUDED.draw_multiplier, match_groups.draw_multiplier),
    away_multiplier = COALESCE(EXCLUDED.away_multiplier, match_groups.away_multiplier)`)
	if err != nil {
		return fmt.Errorf("build link match group query: %w", err)
	}
	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("link match=%s group=%s: %w", matchID, groupID, err)
	}
	return nil
}

func (r *MatchRepository) hydrateOne(ctx context.Context, row matchTableModel) (match.Match, bool, error) {
	items, err := r.hydrate(ctx, []matchTableModel{row})
	if err != nil {
		return match.Match{}, false, err
	}
	return items[0], true, nil
}

// hydrate attaches group links to rows with one extra query.
func (r *MatchRepository) hydrate(ctx context.Context, rows []matchTableModel) ([]match.Match, error) {
	out := make([]match.Match, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	query, args, err := qb.Select("match_id", "group_id", "home_multiplier", "draw_multiplier", "away_multiplier").
		From("match_groups").
		Where(qb.InStrings("match_id", ids)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list match groups query: %w", err)
	}
	var links []matchGroupTableModel
	if err := r.db.SelectContext(ctx, &links, query, args...); err != nil {
		return nil, fmt.Errorf("list match groups: %w", err)
	}
	byMatch := make(map[string][]matchGroupTableModel, len(rows))
	for _, link := range links {
		byMatch[link.MatchID] = append(byMatch[link.MatchID], link)
	}

	for _, row := range rows {
		out = append(out, matchFromRow(row, byMatch[row.ID]))
	}
	return out, nil
}

func matchToRow(m match.Match) matchTableModel {
	row := matchTableModel{
		ID:                 m.ID,
		HomeTeam:           m.HomeTeam,
		AwayTeam:           m.AwayTeam,
		KickoffAt:          m.KickoffAt.UTC(),
		Status:             string(m.Status),
		ElapsedMinutes:     m.Telemetry.Elapsed,
		ExtraMinutes:       m.Telemetry.ExtraTime,
		ProviderStatusCode: m.Telemetry.ProviderStatusCode,
		ManualOverride:     m.ManualOverride,
		FinishedAt:         m.FinishedAt,
		CreatedAt:          m.CreatedAt.UTC(),
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
	if m.ExternalID > 0 {
		row.ExternalID = sql.NullInt64{Int64: m.ExternalID, Valid: true}
	}
	if m.Result != nil {
		home, away := m.Result.HomeScore, m.Result.AwayScore
		row.HomeScore = &home
		row.AwayScore = &away
		if m.Result.Outcome != nil {
			outcome := string(*m.Result.Outcome)
			row.Outcome = &outcome
		}
	}
	return row
}

func matchFromRow(row matchTableModel, links []matchGroupTableModel) match.Match {
	m := match.Match{
		ID:        row.ID,
		HomeTeam:  row.HomeTeam,
		AwayTeam:  row.AwayTeam,
		KickoffAt: row.KickoffAt.UTC(),
		Status:    match.NormalizeStatus(row.Status),
		Telemetry: match.Telemetry{
			Elapsed:            row.ElapsedMinutes,
			ExtraTime:          row.ExtraMinutes,
			ProviderStatusCode: row.ProviderStatusCode,
		},
		Groups:         make(map[string]struct{}, len(links)),
		RelativePoints: make(map[string]payout.Multipliers, len(links)),
		ManualOverride: row.ManualOverride,
		FinishedAt:     row.FinishedAt,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
	if row.ExternalID.Valid {
		m.ExternalID = row.ExternalID.Int64
	}
	if row.HomeScore != nil && row.AwayScore != nil {
		m.Result = &match.Result{HomeScore: *row.HomeScore, AwayScore: *row.AwayScore}
		if row.Outcome != nil {
			if outcome, ok := payout.ParseOutcome(*row.Outcome); ok {
				m.Result.Outcome = &outcome
			}
		}
	}
	for _, link := range links {
		m.Groups[link.GroupID] = struct{}{}
		if link.HomeMultiplier.Valid || link.DrawMultiplier.Valid || link.AwayMultiplier.Valid {
			m.RelativePoints[link.GroupID] = payout.Multipliers{
				Home: link.HomeMultiplier.Decimal,
				Draw: link.DrawMultiplier.Decimal,
				Away: link.AwayMultiplier.Decimal,
			}
		}
	}
	return m
}
