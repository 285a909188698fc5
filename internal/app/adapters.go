package app

import (
	"context"
	"net/http"

	"github.com/riskibarqy/predictor-league/external/anubis"
	"github.com/riskibarqy/predictor-league/external/jobqueue"
	"github.com/riskibarqy/predictor-league/external/sportmonks"
	"github.com/riskibarqy/predictor-league/internal/config"
	"github.com/riskibarqy/predictor-league/internal/infrastructure/eventbus"
	"github.com/riskibarqy/predictor-league/internal/infrastructure/passstate"
	"github.com/riskibarqy/predictor-league/internal/platform/logging"
	"github.com/riskibarqy/predictor-league/internal/platform/resilience"
	"github.com/riskibarqy/predictor-league/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func newFixtureSource(cfg config.Config, logger *logging.Logger) usecase.FixtureSource {
	if !cfg.SportMonksEnabled {
		logger.Info("fixture source disabled", "reason", "SPORTMONKS_ENABLED=false")
		return usecase.NewNoopFixtureSource()
	}
	return sportmonks.NewClient(sportmonks.ClientConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.SportMonksTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		BaseURL:     cfg.SportMonksBaseURL,
		Token:       cfg.SportMonksToken,
		Timeout:     cfg.SportMonksTimeout,
		MaxRetries:  cfg.SportMonksMaxRetries,
		RateLimit:   cfg.SportMonksRateLimit,
		BookmakerID: cfg.SportMonksBookmakerID,
		Logger:      logger.Named("sportmonks"),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.SportMonksCircuitEnabled,
			FailureThreshold: cfg.SportMonksCircuitFailureCount,
			OpenTimeout:      cfg.SportMonksCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.SportMonksCircuitHalfOpenMaxReq,
		},
	})
}

func newIdentityClient(cfg config.Config, logger *logging.Logger) *anubis.Client {
	return anubis.NewClient(
		&http.Client{
			Timeout:   cfg.AnubisTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cfg.AnubisBaseURL,
		cfg.AnubisIntrospectURL,
		cfg.AnubisAdminKey,
		anubis.CircuitBreakerConfig{
			Enabled:          cfg.AnubisCircuitEnabled,
			FailureThreshold: cfg.AnubisCircuitFailureCount,
			OpenTimeout:      cfg.AnubisCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.AnubisCircuitHalfOpenMaxReq,
		},
		logger.Named("anubis"),
	)
}

func newPassState(ctx context.Context, cfg config.Config, logger *logging.Logger) (usecase.PassState, func() error, error) {
	if !cfg.RedisEnabled {
		logger.Info("pass state in memory", "reason", "REDIS_ENABLED=false")
		return passstate.NewMemoryStore(), func() error { return nil }, nil
	}
	client, err := passstate.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("pass state in redis", "addr", cfg.RedisAddr, "prefix", cfg.RedisKeyPrefix)
	return passstate.NewRedisStore(client, cfg.RedisKeyPrefix), client.Close, nil
}

func newEventPublisher(cfg config.Config, logger *logging.Logger) (usecase.EventPublisher, func() error) {
	if !cfg.KafkaEnabled {
		logger.Info("event publishing disabled", "reason", "KAFKA_ENABLED=false")
		return usecase.NewNoopEventPublisher(), func() error { return nil }
	}
	publisher := eventbus.NewKafkaPublisher(eventbus.NewKafkaWriter(cfg.KafkaBrokers), cfg.KafkaTopicPrefix, logger.Named("kafka"))
	logger.Info("event publishing to kafka", "brokers", cfg.KafkaBrokers, "topic_prefix", cfg.KafkaTopicPrefix)
	return publisher, publisher.Close
}

func newJobQueue(cfg config.Config, logger *logging.Logger) (usecase.JobQueue, error) {
	if !cfg.QStashEnabled {
		return usecase.NewNoopJobQueue(), nil
	}
	return jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
		BaseURL:          cfg.QStashBaseURL,
		Token:            cfg.QStashToken,
		TargetBaseURL:    cfg.QStashTargetBaseURL,
		Retries:          cfg.QStashRetries,
		InternalJobToken: cfg.InternalJobToken,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.QStashCircuitEnabled,
			FailureThreshold: cfg.QStashCircuitFailureCount,
			OpenTimeout:      cfg.QStashCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.QStashCircuitHalfOpenMaxReq,
		},
	}, logger.Named("qstash"))
}
