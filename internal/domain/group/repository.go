package group

import (
	"context"
	"time"
)

type Repository interface {
	GetByID(ctx context.Context, groupID string) (Group, bool, error)
	Create(ctx context.Context, g Group) error
	AddMember(ctx context.Context, groupID, userID string, points int64, joinedAt time.Time) error
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	// AdjustBalance atomically adds delta to one member's points and rejects results below zero.
	AdjustBalance(ctx context.Context, groupID, userID string, delta int64) (int64, error)
}
