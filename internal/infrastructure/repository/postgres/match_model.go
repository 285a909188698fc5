package postgres

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type matchTableModel struct {
	ID                 string        `db:"id"`
	ExternalID         sql.NullInt64 `db:"external_id"`
	HomeTeam           string        `db:"home_team"`
	AwayTeam           string        `db:"away_team"`
	KickoffAt          time.Time     `db:"kickoff_at"`
	Status             string        `db:"status"`
	HomeScore          *int          `db:"home_score"`
	AwayScore          *int          `db:"away_score"`
	Outcome            *string       `db:"outcome"`
	ElapsedMinutes     int           `db:"elapsed_minutes"`
	ExtraMinutes       int           `db:"extra_minutes"`
	ProviderStatusCode int           `db:"provider_status_code"`
	ManualOverride     bool          `db:"manual_override"`
	FinishedAt         *time.Time    `db:"finished_at"`
	CreatedAt          time.Time     `db:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at"`
}

type matchGroupTableModel struct {
	MatchID        string              `db:"match_id"`
	GroupID        string              `db:"group_id"`
	HomeMultiplier decimal.NullDecimal `db:"home_multiplier"`
	DrawMultiplier decimal.NullDecimal `db:"draw_multiplier"`
	AwayMultiplier decimal.NullDecimal `db:"away_multiplier"`
}

var matchColumns = []string{
	"id",
	"external_id",
	"home_team",
	"away_team",
	"kickoff_at",
	"status",
	"home_score",
	"away_score",
	"outcome",
	"elapsed_minutes",
	"extra_minutes",
	"provider_status_code",
	"manual_override",
	"finished_at",
	"created_at",
	"updated_at",
}
