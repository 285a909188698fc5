package postgres

import "time"

type groupTableModel struct {
	ID              string    `db:"id"`
	Name            string    `db:"name"`
	OwnerUserID     string    `db:"owner_user_id"`
	Scheme          string    `db:"scheme"`
	MatchMode       string    `db:"match_mode"`
	StartingCredits int64     `db:"starting_credits"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type groupMemberTableModel struct {
	GroupID  string    `db:"group_id"`
	UserID   string    `db:"user_id"`
	Points   int64     `db:"points"`
	JoinedAt time.Time `db:"joined_at"`
}
