package ledger

import (
	"context"
	"time"
)

// Entry is one settlement award: the wager's points and the member balance delta.
type Entry struct {
	ID        string
	WagerID   string
	MatchID   string
	GroupID   string
	UserID    string
	Points    int64
	CreatedAt time.Time
}

type Repository interface {
	// ApplySettlement marks the wager settled with its points, credits the member and
	// appends the entry in one unit. applied is false when the wager was already settled.
	ApplySettlement(ctx context.Context, entry Entry) (applied bool, err error)
	ListByMember(ctx context.Context, groupID, userID string) ([]Entry, error)
}
