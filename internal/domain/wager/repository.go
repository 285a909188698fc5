package wager

import (
	"context"
	"errors"
	"time"
)

var ErrAlreadySettled = errors.New("wager already settled")

type Repository interface {
	GetByKey(ctx context.Context, userID, matchID, groupID string) (Wager, bool, error)
	// Upsert inserts or overwrites the unsettled wager for (user, match, group) without
	// touching member balances.
	Upsert(ctx context.Context, w Wager) (Wager, error)
	// Place writes w like Upsert and moves the stake difference against the member
	// balance in the same unit: the previous stake is read under the lock that guards
	// the debit, so concurrent edits of one wager never double-debit. It returns
	// group.ErrInsufficientBalance when the new stake does not fit the balance.
	Place(ctx context.Context, w Wager) (Wager, error)
	ListUnsettledByMatch(ctx context.Context, matchID string) ([]Wager, error)
	ListByMember(ctx context.Context, groupID, userID string) ([]Wager, error)
	// ListUnsettledMatchIDs returns finished matches kicked off at or after since that
	// still hold unsettled wagers.
	ListUnsettledMatchIDs(ctx context.Context, since time.Time) ([]string, error)
}
