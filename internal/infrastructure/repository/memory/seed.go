package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/riskibarqy/predictor-league/internal/domain/group"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/payout"
	"github.com/shopspring/decimal"
)

const (
	GroupIDFlatDemo   = "grp-flat-demo"
	GroupIDCreditDemo = "grp-credit-demo"
	DemoOwnerUserID   = "user-demo-owner"
	DemoMemberUserID  = "user-demo-member"
)

// Seed fills db with two demo groups and three fixtures around now.
func Seed(ctx context.Context, db *Database, now time.Time) error {
	return SeedWith(ctx, NewGroupRepository(db), NewMatchRepository(db), now)
}

// SeedWith writes the demo data through any repository pair, so the postgres bootstrap
// shares it.
func SeedWith(ctx context.Context, groups group.Repository, matches match.Repository, now time.Time) error {
	now = now.UTC()

	for _, g := range []group.Group{
		{
			ID:          GroupIDFlatDemo,
			Name:        "Office Predictor",
			OwnerUserID: DemoOwnerUserID,
			Scheme:      payout.KindFlat,
			MatchMode:   group.MatchModeAutomatic,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			ID:              GroupIDCreditDemo,
			Name:            "Sunday League Credits",
			OwnerUserID:     DemoOwnerUserID,
			Scheme:          payout.KindCredit,
			MatchMode:       group.MatchModeManual,
			StartingCredits: 1000,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	} {
		if err := groups.Create(ctx, g); err != nil {
			return fmt.Errorf("seed group %s: %w", g.ID, err)
		}
		for _, userID := range []string{DemoOwnerUserID, DemoMemberUserID} {
			if err := groups.AddMember(ctx, g.ID, userID, g.StartingCredits, now); err != nil {
				return fmt.Errorf("seed member %s: %w", userID, err)
			}
		}
	}

	fixtures := []match.Match{
		{ID: "mat-demo-1", ExternalID: 19135001, HomeTeam: "Persija Jakarta", AwayTeam: "Persib Bandung", KickoffAt: now.Add(2 * time.Hour)},
		{ID: "mat-demo-2", ExternalID: 19135002, HomeTeam: "Bali United", AwayTeam: "PSM Makassar", KickoffAt: now.Add(26 * time.Hour)},
		{ID: "mat-demo-3", HomeTeam: "Kantor Timur", AwayTeam: "Kantor Barat", KickoffAt: now.Add(3 * time.Hour)},
	}
	odds := payout.Multipliers{
		Home: decimal.RequireFromString("1.85"),
		Draw: decimal.RequireFromString("3.40"),
		Away: decimal.RequireFromString("4.10"),
	}
	for _, item := range fixtures {
		item.Status = match.StatusScheduled
		item.Groups = map[string]struct{}{}
		item.CreatedAt = now
		item.UpdatedAt = now
		if err := matches.Create(ctx, item); err != nil {
			return fmt.Errorf("seed match %s: %w", item.ID, err)
		}
		if item.HasExternalSource() {
			if err := matches.LinkGroup(ctx, item.ID, GroupIDFlatDemo, nil); err != nil {
				return err
			}
		}
		if err := matches.LinkGroup(ctx, item.ID, GroupIDCreditDemo, &odds); err != nil {
			return err
		}
	}
	return nil
}
