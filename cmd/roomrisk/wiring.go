package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/gocql/gocql"

	"roomrisk/internal/app/commands"
	availabilityapp "roomrisk/internal/app/handlers/availability"
	"roomrisk/internal/app/handlers/reservations"
	"roomrisk/internal/app/middleware"
	appoutbox "roomrisk/internal/app/outbox"
	"roomrisk/internal/app/policies"
	"roomrisk/internal/app/queries"
	engine "roomrisk/internal/app/services/availability"
	"roomrisk/internal/domain/inventory"
	"roomrisk/internal/domain/overbooking"
	"roomrisk/internal/domain/reservation"
	"roomrisk/internal/infra/broker/kafka"
	"roomrisk/internal/infra/config"
	mongostore "roomrisk/internal/infra/db/mongo"
	ginserver "roomrisk/internal/infra/http/gin"
	"roomrisk/internal/infra/inbox"
	redislock "roomrisk/internal/infra/lock/redis"
	"roomrisk/internal/infra/obs"
	infraoutbox "roomrisk/internal/infra/outbox"
	"roomrisk/internal/infra/resilience"
	"roomrisk/internal/infra/storage/memory"
	"roomrisk/internal/infra/storage/s3"
	"roomrisk/internal/infra/storage/scylla"
)

type outboxStore interface {
	appoutbox.Outbox
	infraoutbox.Store
}

type policyCatalog interface {
	Set(ctx context.Context, id inventory.PropertyID, p overbooking.Policy) error
}

type application struct {
	handlers ginserver.Handlers
	queries  queries.Bus
	checks   map[string]obs.Check
	sweeper  *availabilityapp.ConflictSweeper
	outbox   outboxStore
	inbox    inbox.Deduper

	properties   interface{ Save(context.Context, inventory.Inventory) error }
	policyStore  policyCatalog
	reservations reservation.Writer

	closers []func(context.Context) error
	wg      sync.WaitGroup
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{checks: map[string]obs.Check{}}
	if err := app.buildStores(ctx, cfg, logger); err != nil {
		app.close(logger)
		return nil, err
	}
	return app, nil
}

// buildStores is split from buildApplication so every opened client is
// registered for closing before a later step can fail.
func (a *application) buildStores(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	var mongoClient *mongostore.Client
	if cfg.ReservationStore == config.StoreMongo || cfg.CatalogStore == config.StoreMongo {
		c, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
		mongoClient = c
		a.closers = append(a.closers, c.Close)
		a.checks["mongo"] = c.Ping
	}

	breakerCfg := resilience.BreakerConfig{MaxFailures: cfg.BreakerMaxFailures, OpenTimeout: cfg.BreakerOpenTimeout, Logger: logger}

	var (
		repo   reservation.Repository
		writer reservation.Writer
	)
	switch cfg.ReservationStore {
	case config.StoreMongo:
		r := mongostore.NewReservationRepository(mongoClient.DB)
		if err := r.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo reservations: %w", err)
		}
		repo, writer = r, r
	case config.StoreScylla:
		session, err := scylla.NewSession(ctx, scylla.SessionConfig{
			Hosts:       cfg.ScyllaHosts,
			Keyspace:    cfg.ScyllaKeyspace,
			Consistency: cfg.ScyllaConsistency,
			Timeout:     cfg.ScyllaTimeout,
		}, logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func(context.Context) error { session.Close(); return nil })
		a.checks["scylla"] = scyllaCheck(session)
		r := scylla.NewReservationRepository(session)
		repo, writer = r, r
	default:
		r := memory.NewReservationRepository()
		repo, writer = r, r
	}
	reservationBreaker := resilience.NewBreaker("reservations", breakerCfg)
	repo = resilience.Reservations{Repo: repo, Breaker: reservationBreaker}
	writer = resilience.ReservationWriter{Writer: writer, Breaker: reservationBreaker}
	a.reservations = writer

	var (
		props    inventory.Provider
		policyPr overbooking.PolicyProvider
	)
	if cfg.CatalogStore == config.StoreMongo {
		p := mongostore.NewPropertyRepository(mongoClient.DB)
		pol := mongostore.NewPolicyRepository(mongoClient.DB, cfg.Policy)
		props, policyPr = p, pol
		a.properties, a.policyStore = p, pol
	} else {
		p := memory.NewPropertyRepository()
		pol := memory.NewPolicyRepository(cfg.Policy)
		props, policyPr = p, pol
		a.properties, a.policyStore = p, pol
	}
	props = resilience.Inventory{Provider: props, Breaker: resilience.NewBreaker("inventory", breakerCfg)}
	policyPr = resilience.Policies{Provider: policyPr, Breaker: resilience.NewBreaker("policies", breakerCfg)}

	if cfg.S3Bucket != "" {
		cal, err := s3.NewClient(s3.ClientConfig{
			Endpoint:  cfg.S3Endpoint,
			UseSSL:    cfg.S3UseSSL,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			Key:       cfg.SeasonalKey,
		}, logger)
		if err != nil {
			return err
		}
		seasonal := &s3.SeasonalPolicies{Base: policyPr, Source: cal, Refresh: cfg.SeasonalRefresh, Logger: logger}
		if err := seasonal.Reload(ctx); err != nil {
			logger.Warn("seasonal calendar unavailable at startup", "error", err)
		}
		a.checks["s3"] = cal.Ping
		policyPr = seasonal
	}

	var idem middleware.IdempotencyStore
	if mongoClient != nil {
		ob := mongostore.NewOutboxStore(mongoClient.DB)
		if err := ob.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("mongo outbox: %w", err)
		}
		a.outbox = ob
		store, err := mongostore.NewIdempotencyStore(ctx, mongoClient.DB, cfg.IdempotencyTTL)
		if err != nil {
			return fmt.Errorf("mongo idempotency: %w", err)
		}
		idem = store
		dedup, err := inbox.NewStore(ctx, mongoClient.DB, cfg.KafkaGroupID, cfg.IdempotencyTTL)
		if err != nil {
			return fmt.Errorf("mongo inbox: %w", err)
		}
		a.inbox = dedup
	} else {
		a.outbox = memory.NewOutbox()
		idem = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		a.inbox = inbox.NewMemory(0)
	}

	var locker policies.Locker
	if cfg.RedisAddr != "" {
		client := redislock.NewClient(redislock.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		l := redislock.NewLocker(client)
		a.checks["redis"] = l.Ping
		locker = l
	} else {
		logger.Warn("REDIS_ADDR not set, holds are serialised in-process only")
		locker = memory.NewLocker()
	}

	counting := overbooking.CountUnits
	if cfg.CountBookings {
		counting = overbooking.CountBookings
	}
	svc := &engine.Service{
		Reservations: repo,
		Inventory:    props,
		Policies:     policyPr,
		Logger:       logger.With("component", "availability"),
		Counting:     counting,
	}
	encoder := appoutbox.JSONEventEncoder{Source: "roomrisk"}

	queryBus := queries.NewInMemoryBus()
	availabilityapp.RegisterQueries(queryBus, svc)
	validator := middleware.NewStructValidator()
	a.queries = middleware.ChainQueries(queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryTimeout(cfg.RequestTimeout),
		middleware.QueryValidation(validator),
	)

	commandBus := commands.NewInMemoryBus()
	commands.Register[reservations.HoldUnitsCommand, *reservations.HoldUnitsResult](commandBus, reservations.HoldUnitsKey, &reservations.HoldUnitsHandler{
		Engine:       svc,
		Reservations: writer,
		Locker:       locker,
		Outbox:       a.outbox,
		Encoder:      encoder,
		Logger:       logger.With("component", "holds"),
		LockTTL:      cfg.LockTTL,
		LockWait:     cfg.LockWait,
	})
	commandBusWithMiddleware := middleware.ChainCommands(commandBus,
		middleware.Logging(logger),
		middleware.Timeout(cfg.RequestTimeout),
		middleware.Validation(validator),
		middleware.Idempotency(idem, nil),
		middleware.OutboxFlush(a.outbox),
	)

	a.sweeper = &availabilityapp.ConflictSweeper{
		Engine:        svc,
		Outbox:        a.outbox,
		Encoder:       encoder,
		Logger:        logger.With("component", "sweeper"),
		CheckCapacity: true,
	}
	a.handlers = ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{Queries: a.queries},
		Holds:        ginserver.HoldHandler{Commands: commandBusWithMiddleware},
	}
	return nil
}

// startBackground launches the outbox relay and the sweep consumer when a
// Kafka cluster is configured.
func (a *application) startBackground(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("KAFKA_BROKERS not set, outbox relay and sweep consumer disabled")
		return
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, sarama.NewConfig(), logger)
	if err != nil {
		logger.Error("kafka producer unavailable, events stay in the outbox", "error", err)
	} else {
		a.closers = append(a.closers, func(context.Context) error { return producer.Close() })
		worker := &infraoutbox.Worker{
			Store:       a.outbox,
			Producer:    producer,
			Logger:      logger.With("component", "outbox"),
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
		a.goBackground(ctx, logger, "outbox relay", worker.Run)
	}

	if len(cfg.KafkaSweepTopics) == 0 {
		return
	}
	handler := &kafka.SweepHandler{Sweeper: a.sweeper, Inbox: a.inbox, Logger: logger.With("component", "sweep-consumer")}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, sarama.NewConfig(), handler, logger)
	if err != nil {
		logger.Error("kafka consumer unavailable", "error", err)
		return
	}
	a.closers = append(a.closers, func(context.Context) error { return consumer.Close() })
	a.goBackground(ctx, logger, "sweep consumer", func(ctx context.Context) error {
		return consumer.Run(ctx, cfg.KafkaSweepTopics)
	})
}

func (a *application) goBackground(ctx context.Context, logger *slog.Logger, name string, run func(context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Info("background task starting", "task", name)
		if err := run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("background task stopped", "task", name, "error", err)
		}
	}()
}

func (a *application) wait() {
	a.wg.Wait()
}

func (a *application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func scyllaCheck(session *gocql.Session) obs.Check {
	return func(ctx context.Context) error {
		return session.Query("SELECT release_version FROM system.local").WithContext(ctx).Exec()
	}
}
