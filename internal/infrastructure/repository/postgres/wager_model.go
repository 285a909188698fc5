package postgres

import "time"

type wagerTableModel struct {
	ID         string     `db:"id"`
	UserID     string     `db:"user_id"`
	MatchID    string     `db:"match_id"`
	GroupID    string     `db:"group_id"`
	Prediction string     `db:"prediction"`
	Stake      *int64     `db:"stake"`
	Points     *int64     `db:"points"`
	Settled    bool       `db:"settled"`
	SettledAt  *time.Time `db:"settled_at"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

type wagerInsertModel struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	MatchID    string    `db:"match_id"`
	GroupID    string    `db:"group_id"`
	Prediction string    `db:"prediction"`
	Stake      *int64    `db:"stake"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type ledgerEntryTableModel struct {
	ID        string    `db:"id"`
	WagerID   string    `db:"wager_id"`
	MatchID   string    `db:"match_id"`
	GroupID   string    `db:"group_id"`
	UserID    string    `db:"user_id"`
	Points    int64     `db:"points"`
	CreatedAt time.Time `db:"created_at"`
}

var wagerColumns = []string{
	"id",
	"user_id",
	"match_id",
	"group_id",
	"prediction",
	"stake",
	"points",
	"settled",
	"settled_at",
	"created_at",
	"updated_at",
}
