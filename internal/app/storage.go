package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/riskibarqy/predictor-league/internal/config"
	"github.com/riskibarqy/predictor-league/internal/domain/group"
	"github.com/riskibarqy/predictor-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/predictor-league/internal/domain/ledger"
	"github.com/riskibarqy/predictor-league/internal/domain/match"
	"github.com/riskibarqy/predictor-league/internal/domain/wager"
	"github.com/riskibarqy/predictor-league/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/predictor-league/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/predictor-league/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

type repositories struct {
	matches match.Repository
	groups  group.Repository
	wagers  wager.Repository
	ledger  ledger.Repository
	runs    jobscheduler.Repository
	close   func() error
}

func openStorage(ctx context.Context, cfg config.Config, logger *logging.Logger) (repositories, error) {
	var repos repositories
	switch cfg.StorageDriver {
	case config.StorageMemory:
		db := memory.NewDatabase()
		if err := memory.Seed(ctx, db, time.Now()); err != nil {
			return repositories{}, fmt.Errorf("seed memory storage: %w", err)
		}
		repos = repositories{
			matches: memory.NewMatchRepository(db),
			groups:  memory.NewGroupRepository(db),
			wagers:  memory.NewWagerRepository(db),
			ledger:  memory.NewLedgerRepository(db),
			runs:    memory.NewJobRunRepository(db),
			close:   func() error { return nil },
		}
		logger.Info("storage ready", "driver", config.StorageMemory)
	case config.StoragePostgres:
		db, err := openPostgres(ctx, cfg)
		if err != nil {
			return repositories{}, err
		}
		if err := postgres.BootstrapSeed(ctx, db, time.Now()); err != nil {
			_ = db.Close()
			return repositories{}, err
		}
		repos = repositories{
			matches: postgres.NewMatchRepository(db),
			groups:  postgres.NewGroupRepository(db),
			wagers:  postgres.NewWagerRepository(db),
			ledger:  postgres.NewLedgerRepository(db),
			runs:    postgres.NewJobRunRepository(db),
			close:   db.Close,
		}
		logger.Info("storage ready", "driver", config.StoragePostgres, "db_name", dbNameFromURL(cfg.DBURL))
	default:
		return repositories{}, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if !cfg.CacheEnabled {
		return repos, nil
	}
	groups := cache.NewGroupRepository(repos.groups, cfg.CacheTTL)
	repos.groups = groups
	repos.matches = cache.NewMatchRepository(repos.matches, cfg.CacheTTL)
	repos.ledger = cache.NewLedgerRepository(repos.ledger, groups)
	repos.wagers = cache.NewWagerRepository(repos.wagers, groups)
	logger.Info("repository cache enabled", "ttl", cfg.CacheTTL.String())
	return repos, nil
}

func openPostgres(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dsn := normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary)
	db, err := otelsqlx.Open("postgres", dsn,
		otelsql.WithDBName(dbNameFromURL(dsn)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
