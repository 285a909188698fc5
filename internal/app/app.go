package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/riskibarqy/predictor-league/internal/config"
	"github.com/riskibarqy/predictor-league/internal/domain/jobscheduler"
	"github.com/riskibarqy/predictor-league/internal/interfaces/httpapi"
	"github.com/riskibarqy/predictor-league/internal/observability"
	idgen "github.com/riskibarqy/predictor-league/internal/platform/id"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
	"github.com/riskibarqy/predictor-league/internal/usecase"
)

// Container holds the wired services shared by the HTTP server and the
// reconciler commands.
type Container struct {
	Config          config.Config
	Settlement      *usecase.SettlementService
	Reconciliation  *usecase.ReconciliationService
	Scheduler       *usecase.Scheduler
	JobOrchestrator *usecase.JobOrchestratorService
	Wagers          *usecase.WagerService
	Groups          *usecase.GroupService
	Matches         *usecase.MatchService
	MatchAdmin      *usecase.MatchAdminService
	JobRuns         jobscheduler.Repository
	Metrics         *observability.Metrics

	handler  *httpapi.Handler
	verifier httpapi.TokenVerifier
	logger   *logging.Logger
	closers  []func() error
}

func NewContainer(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Container, error) {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Container{Config: cfg, logger: logger}

	repos, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, repos.close)

	var metrics usecase.Metrics = usecase.NewNoopMetrics()
	if cfg.MetricsEnabled {
		c.Metrics = observability.NewMetrics()
		metrics = c.Metrics
	}

	passState, closePassState, err := newPassState(ctx, cfg, logger)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connect pass state: %w", err)
	}
	c.closers = append(c.closers, closePassState)

	publisher, closePublisher := newEventPublisher(cfg, logger)
	c.closers = append(c.closers, closePublisher)

	queue, err := newJobQueue(cfg, logger)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("build job queue: %w", err)
	}

	source := newFixtureSource(cfg, logger)
	identity := newIdentityClient(cfg, logger)
	c.verifier = identity

	c.Settlement = usecase.NewSettlementService(
		repos.matches,
		repos.wagers,
		repos.groups,
		repos.ledger,
		idgen.NewUUIDGenerator("led"),
		publisher,
		metrics,
		usecase.SettlementConfig{MaxConcurrency: cfg.SettlementMaxConcurrency},
		logger.Named("settlement"),
	)

	reconCfg := usecase.DefaultReconciliationConfig()
	reconCfg.KickoffWindow = cfg.SchedulerKickoffWindow
	reconCfg.SweepLookback = cfg.SchedulerSweepLookback
	reconCfg.MaxMatchDuration = cfg.SchedulerMaxMatchDuration
	reconCfg.ProviderTimeout = cfg.SchedulerProviderTimeout
	reconCfg.SweepWorkers = cfg.SchedulerSweepWorkers
	reconCfg.ReminderLead = cfg.SchedulerReminderLead

	c.Reconciliation = usecase.NewReconciliationService(
		repos.matches,
		repos.wagers,
		source,
		c.Settlement,
		passState,
		repos.runs,
		idgen.NewUUIDGenerator("run"),
		publisher,
		metrics,
		reconCfg,
		logger.Named("reconciliation"),
	)
	c.Scheduler = usecase.NewScheduler(c.Reconciliation, passState, usecase.SchedulerConfig{
		PollInterval:       cfg.SchedulerPollInterval,
		SweepInterval:      cfg.SchedulerSweepInterval,
		StateResetInterval: cfg.SchedulerStateResetInterval,
	}, logger.Named("scheduler"))
	c.JobOrchestrator = usecase.NewJobOrchestratorService(c.Reconciliation, queue, repos.runs, usecase.JobOrchestratorConfig{
		PollInterval:  cfg.SchedulerPollInterval,
		SweepInterval: cfg.SchedulerSweepInterval,
	}, logger.Named("jobs"))

	c.Wagers = usecase.NewWagerService(repos.wagers, repos.matches, repos.groups, identity, idgen.NewUUIDGenerator("wgr"), logger.Named("wagers"))
	c.Groups = usecase.NewGroupService(repos.groups, repos.ledger)
	c.Matches = usecase.NewMatchService(repos.matches, repos.groups, source, idgen.NewUUIDGenerator("mat"), cfg.SchedulerProviderTimeout, logger.Named("matches"))
	c.MatchAdmin = usecase.NewMatchAdminService(repos.matches, repos.groups, c.Settlement, publisher, metrics, logger.Named("match_admin"))
	c.JobRuns = repos.runs

	c.handler = httpapi.NewHandler(
		c.Wagers,
		c.Groups,
		c.Matches,
		c.MatchAdmin,
		c.JobOrchestrator,
		c.JobRuns,
		logger,
	)
	return c, nil
}

func (c *Container) NewHTTPServer() (*http.Server, error) {
	if c.Config.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	var metricsHandler http.Handler
	if c.Metrics != nil {
		metricsHandler = c.Metrics.Handler()
	}
	router := httpapi.NewRouter(
		c.handler,
		c.verifier,
		c.logger,
		c.Config.SwaggerEnabled,
		c.Config.CORSAllowedOrigins,
		c.Config.InternalJobToken,
		metricsHandler,
	)

	return &http.Server{
		Addr:         c.Config.HTTPAddr,
		Handler:      router,
		ReadTimeout:  c.Config.ReadTimeout,
		WriteTimeout: c.Config.WriteTimeout,
	}, nil
}

// Close releases storage, pass state and broker connections in reverse order.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if c.closers[i] == nil {
			continue
		}
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
