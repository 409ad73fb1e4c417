package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"staydesk/internal/app/commands"
	"staydesk/internal/app/dto"
	availabilityapp "staydesk/internal/app/handlers/availability"
	bookingapp "staydesk/internal/app/handlers/booking"
	pricingapp "staydesk/internal/app/handlers/pricing"
	"staydesk/internal/app/middleware"
	"staydesk/internal/app/outbox"
	"staydesk/internal/app/policies"
	"staydesk/internal/app/queries"
	"staydesk/internal/app/uow"
	"staydesk/internal/domain/availability"
	amqpbroker "staydesk/internal/infra/broker/amqp"
	kafkabroker "staydesk/internal/infra/broker/kafka"
	"staydesk/internal/infra/cache"
	"staydesk/internal/infra/config"
	mongostore "staydesk/internal/infra/db/mongo"
	mysqlstore "staydesk/internal/infra/db/mysql"
	ginserver "staydesk/internal/infra/http/gin"
	"staydesk/internal/infra/inbox"
	"staydesk/internal/infra/lock"
	"staydesk/internal/infra/notify"
	"staydesk/internal/infra/obs"
	infraoutbox "staydesk/internal/infra/outbox"
	"staydesk/internal/infra/storage/memory"
)

const inboxRetention = 7 * 24 * time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, app.health, app.handlers)

	var wg sync.WaitGroup
	app.startBackground(ctx, &wg, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "catalog", cfg.CatalogDriver, "lock", cfg.LockDriver, "cache", cfg.CacheDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
	}
	wg.Wait()
	logger.Info("HTTP server stopped")
}

type background struct {
	name string
	run  func(ctx context.Context) error
}

type application struct {
	handlers   ginserver.Handlers
	health     obs.HealthHandlers
	background []background
	closers    []func() error
}

func (a *application) addCheck(name string, probe func(ctx context.Context) error) {
	a.health.Checks = append(a.health.Checks, obs.Check{Name: name, Probe: probe})
}

func (a *application) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *application) startBackground(ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger) {
	for _, bg := range a.background {
		wg.Add(1)
		go func(bg background) {
			defer wg.Done()
			logger.Info("background worker started", "worker", bg.name)
			if err := bg.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background worker stopped", "worker", bg.name, "error", err)
			}
		}(bg)
	}
}

// close releases resources in reverse order of acquisition.
func (a *application) close(logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

// storage is the booking persistence chosen by STORAGE_DRIVER.
type storage struct {
	factory     uow.UoWFactory
	idempotency middleware.IdempotencyStore
	source      infraoutbox.Source
	inbox       kafkabroker.Inbox
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{}
	fail := func(err error) (*application, error) {
		app.close(logger)
		return nil, err
	}

	catalog, err := buildCatalog(cfg, app)
	if err != nil {
		return fail(err)
	}
	store, err := buildStorage(cfg, app)
	if err != nil {
		return fail(err)
	}

	var redisClient *redis.Client
	if cfg.LockDriver == "redis" || cfg.CacheDriver == "redis" {
		if redisClient, err = config.NewRedisClient(ctx, cfg.Redis); err != nil {
			return fail(err)
		}
		app.onClose(redisClient.Close)
		app.addCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	var locker policies.Locker = lock.NewLocal()
	if cfg.LockDriver == "redis" {
		locker = lock.NewRedis(redisClient, cfg.Redis.Prefix, cfg.Booking.LockTTL)
	}

	var availCache policies.AvailabilityCache
	switch cfg.CacheDriver {
	case "memory":
		availCache = cache.NewMemory(cfg.Booking.CacheTTL)
	case "redis":
		availCache = cache.NewRedis(redisClient, cfg.Redis.Prefix, cfg.Booking.CacheTTL)
	}

	var notifier policies.Notifier = notify.LogNotifier{Logger: logger}
	if cfg.NotifyDriver == "amqp" {
		n, err := amqpbroker.Dial(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return fail(fmt.Errorf("amqp: %w", err))
		}
		app.onClose(n.Close)
		notifier = n
	}

	quoter := pricingapp.Quoter{Catalog: catalog, Settings: policies.StaticSettings(cfg.EngineSettings())}
	checker := availability.NewChecker(cfg.Booking.PendingExpiry, cfg.Booking.ForbidSameDayTurnover, nil)
	effects := bookingapp.Effects{Cache: availCache, Notifier: notifier, Logger: logger, Timeout: cfg.Booking.EffectsTimeout}
	encoder := outbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler[bookingapp.CreateBookingCommand, *bookingapp.CreateBookingResult](commandBus, bookingapp.CreateBookingKey, &bookingapp.CreateBookingHandler{
		UoWFactory:  store.factory,
		Catalog:     catalog,
		Pricing:     quoter,
		Checker:     checker,
		Locker:      locker,
		LockTimeout: cfg.Booking.LockTimeout,
		Encoder:     encoder,
		Effects:     effects,
		Logger:      logger,
	})
	commands.RegisterHandler[bookingapp.ChangeStatusCommand, *bookingapp.ChangeStatusResult](commandBus, bookingapp.ChangeStatusKey, &bookingapp.LifecycleHandler{
		UoWFactory:  store.factory,
		Catalog:     catalog,
		Checker:     checker,
		Locker:      locker,
		LockTimeout: cfg.Booking.LockTimeout,
		Encoder:     encoder,
		Effects:     effects,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[availabilityapp.CheckAvailabilityQuery, dto.Availability](queryBus, availabilityapp.CheckAvailabilityKey, &availabilityapp.CheckAvailabilityHandler{
		UoWFactory: store.factory,
		Catalog:    catalog,
		Checker:    checker,
		Cache:      availCache,
		Logger:     logger,
	})
	queries.RegisterHandler[pricingapp.QuoteQuery, dto.Quote](queryBus, pricingapp.QuoteKey, &pricingapp.QuoteHandler{Pricing: quoter})
	bookingQueries := &bookingapp.GetBookingHandler{UoWFactory: store.factory}
	queries.RegisterHandler[bookingapp.GetBookingQuery, dto.BookingRecord](queryBus, bookingapp.GetBookingKey, bookingQueries)
	queries.RegisterHandler[bookingapp.LookupBookingQuery, dto.BookingRecord](queryBus, bookingapp.LookupBookingKey,
		queries.HandlerFunc[bookingapp.LookupBookingQuery, dto.BookingRecord](bookingQueries.Lookup))

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Logging(logger),
		middleware.Validation(),
		middleware.OperatorAuthorization(cfg.OperatorAPIKey),
		middleware.Idempotency(store.idempotency),
	)
	queryBusWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryLogging(logger),
		middleware.QueryValidation(),
	)
	if cfg.OperatorAPIKey == "" {
		logger.Warn("OPERATOR_API_KEY is empty, status changes are not protected")
	}

	if err := wireEventStream(cfg, app, store, availCache, logger); err != nil {
		return fail(err)
	}

	app.handlers = ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{Queries: queryBusWithMiddleware},
		Pricing:      ginserver.PricingHandler{Queries: queryBusWithMiddleware},
		Booking:      ginserver.BookingHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware},
	}
	return app, nil
}

func buildCatalog(cfg config.Config, app *application) (policies.Catalog, error) {
	if cfg.CatalogDriver == "mysql" {
		db, err := mysqlstore.Open(mysqlstore.Options{
			User:     cfg.MySQL.User,
			Password: cfg.MySQL.Password,
			Host:     cfg.MySQL.Host,
			Port:     cfg.MySQL.Port,
			Name:     cfg.MySQL.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("mysql: %w", err)
		}
		app.onClose(db.Close)
		app.addCheck("mysql", pingSQL(db))
		return mysqlstore.NewCatalog(db), nil
	}
	catalog, err := memory.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", cfg.CatalogFile, err)
	}
	return catalog, nil
}

func buildStorage(cfg config.Config, app *application) (storage, error) {
	if cfg.StorageDriver == "mongo" {
		client, err := mongostore.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return storage{}, fmt.Errorf("mongo: %w", err)
		}
		app.onClose(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Close(ctx)
		})
		app.addCheck("mongo", client.Ping)
		events := infraoutbox.NewStore(client.DB)
		return storage{
			factory: mongostore.Factory{
				DB:          client.DB,
				BookingRepo: mongostore.NewBookingRepository(client.DB),
				Outbox:      events,
			},
			idempotency: mongostore.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL),
			source:      events,
			inbox:       inbox.NewStore(client.DB, cfg.KafkaGroupID, inboxRetention),
		}, nil
	}
	events := memory.NewOutbox()
	return storage{
		factory:     memory.Factory{Bookings: memory.NewBookingStore(), Outbox: events},
		idempotency: memory.NewIdempotencyStore(),
		source:      events,
		inbox:       memory.NewInbox(),
	}, nil
}

// wireEventStream relays the outbox to Kafka and, when a cache is configured,
// consumes booking events to invalidate cache entries written by other instances.
func wireEventStream(cfg config.Config, app *application, store storage, availCache policies.AvailabilityCache, logger *slog.Logger) error {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("KAFKA_BROKERS not set, outbox relay disabled")
		return nil
	}
	producer, err := kafkabroker.NewProducer(cfg.KafkaBrokers, kafkabroker.NewConfig("staydesk-outbox"))
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	app.onClose(producer.Close)
	worker := &infraoutbox.Worker{
		Store:       store.source,
		Producer:    producer,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}
	app.background = append(app.background, background{name: "outbox", run: worker.Run})

	if availCache == nil {
		return nil
	}
	handler := &kafkabroker.BookingEventsHandler{Inbox: store.inbox, Cache: availCache, Logger: logger}
	consumer, err := kafkabroker.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupID, kafkabroker.NewConfig("staydesk-cache"), handler, logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.Backoff = cfg.RetryBackoff
	app.onClose(consumer.Close)
	topics := []string{cfg.KafkaTopicPrefix + "booking.events.v1"}
	app.background = append(app.background, background{name: "cache-invalidation", run: func(ctx context.Context) error {
		return consumer.Run(ctx, topics)
	}})
	return nil
}

func pingSQL(db *sql.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}
