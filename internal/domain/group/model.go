package group

import (
	"errors"
	"sort"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/payout"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrMemberNotFound      = errors.New("group member not found")
)

type MatchMode string

const (
	MatchModeAutomatic MatchMode = "automatic"
	MatchModeManual    MatchMode = "manual"
)

type Group struct {
	ID              string
	Name            string
	OwnerUserID     string
	Scheme          payout.Kind
	MatchMode       MatchMode
	StartingCredits int64
	Members         map[string]Member
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Member struct {
	UserID   string
	Points   int64
	JoinedAt time.Time
}

func (g Group) IsMember(userID string) bool {
	_, ok := g.Members[userID]
	return ok
}

func (g Group) IsOwner(userID string) bool {
	return userID != "" && g.OwnerUserID == userID
}

func (g Group) IsAutomatic() bool {
	return g.MatchMode != MatchModeManual
}

func (g Group) UsesCredits() bool {
	return g.Scheme == payout.KindCredit
}

// Standings returns members ordered by points, earliest joiner first on ties.
func (g Group) Standings() []Member {
	out := make([]Member, 0, len(g.Members))
	for _, member := range g.Members {
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
