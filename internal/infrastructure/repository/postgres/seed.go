package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/predictor-league/internal/infrastructure/repository/memory"
)

// BootstrapSeed writes the demo groups and fixtures into an empty database.
func BootstrapSeed(ctx context.Context, db *sqlx.DB, now time.Time) error {
	var count int
	if err := db.GetContext(ctx, &count, `SELECT COUNT(1) FROM groups`); err != nil {
		return fmt.Errorf("count groups for bootstrap seed: %w", err)
	}
	if count > 0 {
		return nil
	}

	if err := memory.SeedWith(ctx, NewGroupRepository(db), NewMatchRepository(db), now); err != nil {
		return fmt.Errorf("bootstrap seed: %w", err)
	}
	return nil
}
