package match

import (
	"context"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/payout"
)

// Filter narrows List; zero fields do not constrain.
type Filter struct {
	IDs          []string
	ExternalIDs  []int64
	Statuses     []Status
	KickoffFrom  time.Time
	KickoffTo    time.Time
	ExternalOnly bool
	Limit        int
}

type Repository interface {
	GetByID(ctx context.Context, id string) (Match, bool, error)
	GetByExternalID(ctx context.Context, externalID int64) (Match, bool, error)
	List(ctx context.Context, filter Filter) ([]Match, error)
	Create(ctx context.Context, m Match) error
	// UpdateIfUnchanged persists m only while the stored status and updated_at still
	// equal expected, so a write computed from a stale read is dropped.
	UpdateIfUnchanged(ctx context.Context, m Match, expected Version) (bool, error)
	// LinkGroup adds the match to a group; nil multipliers leave relative points unset.
	LinkGroup(ctx context.Context, matchID, groupID string, multipliers *payout.Multipliers) error
}
