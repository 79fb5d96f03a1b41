package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"trainingcenter/internal/certificate/handler"
	certmetrics "trainingcenter/internal/certificate/metrics"
	"trainingcenter/internal/certificate/notify"
	"trainingcenter/internal/certificate/service"
	"trainingcenter/internal/certificate/store"
	"trainingcenter/internal/certificate/store/watch"
	"trainingcenter/internal/directory"
	jwttoken "trainingcenter/internal/jwt_token"
	"trainingcenter/internal/platform/config"
	"trainingcenter/internal/platform/database"
	"trainingcenter/internal/platform/kafka"
	"trainingcenter/internal/platform/lock"
	"trainingcenter/internal/platform/metrics"
	platformredis "trainingcenter/internal/platform/redis"
	"trainingcenter/internal/platform/tracing"
	rlmetrics "trainingcenter/internal/ratelimit/metrics"
	rlmw "trainingcenter/internal/ratelimit/middleware"
	rlmodels "trainingcenter/internal/ratelimit/models"
	"trainingcenter/internal/ratelimit/store/bucket"
	audit "trainingcenter/pkg/platform/audit"
	"trainingcenter/pkg/platform/audit/publisher"
	auditmemory "trainingcenter/pkg/platform/audit/store/memory"
	"trainingcenter/pkg/platform/audit/store/sqlstore"
	"trainingcenter/pkg/platform/circuit"
)

// directoryStore is a directory backend that can also be seeded.
type directoryStore interface {
	directory.Reader
	directory.Writer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// app holds the assembled router and the resources to release on shutdown.
type app struct {
	router  http.Handler
	closers []closer
}

func (a *app) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// close releases resources in reverse order of acquisition.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	return errors.Join(errs...)
}

// build wires every component from cfg. On failure, anything already opened
// is released before returning.
func build(ctx context.Context, cfg config.Server, log *slog.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	a.onClose("tracing", tracing.Setup(cfg.Tracing, log))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	certMetrics := certmetrics.New(registry)
	httpMetrics := metrics.New(registry)

	var checks []healthCheck
	stores, err := openStores(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if stores.db != nil {
		a.onClose("database", func(context.Context) error { return stores.db.Close() })
		checks = append(checks, healthCheck{name: "database", fn: stores.db.PingContext})
	}
	if cfg.Seed {
		if err := directory.SeedDemo(ctx, stores.directory); err != nil {
			return nil, err
		}
		log.Info("directory seeded with demo students and courses")
	}
	reader := directory.NewCached(stores.directory, cfg.Store.DirectoryCacheTTL)

	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	var (
		feed    watch.Feed
		locker  service.Locker
		buckets rlmw.BucketStore
	)
	if rdb != nil {
		a.onClose("redis", func(context.Context) error { return rdb.Close() })
		checks = append(checks, healthCheck{name: "redis", fn: rdb.Health})
		feed = watch.NewRedisFeed(rdb.Client, watch.WithFeedLogger(log))
		locker = lock.NewRedisLocker(rdb.Client, cfg.Lock.TTL, lock.WithLogger(log))
		buckets = bucket.NewRedisBucketStore(rdb.Client)
	} else {
		feed = watch.NewLocalFeed()
		locker = lock.NewKeyedMutex()
		mem := bucket.NewInMemoryBucketStore()
		sweepCtx, stopSweep := context.WithCancel(context.Background())
		go mem.RunSweeper(sweepCtx, time.Minute)
		a.onClose("rate limit sweeper", func(context.Context) error {
			stopSweep()
			return nil
		})
		buckets = mem
	}
	limiter := rlmw.New(buckets, log,
		rlmw.WithDisabled(cfg.RateLimit.Disabled),
		rlmw.WithMetrics(rlmetrics.New(registry)),
		rlmw.WithLimit(rlmodels.ClassLookup, rlmodels.Limit{
			Requests: cfg.RateLimit.LookupRequests,
			Window:   cfg.RateLimit.LookupWindow,
		}),
		rlmw.WithLimit(rlmodels.ClassAdmin, rlmodels.Limit{
			Requests: cfg.RateLimit.AdminRequests,
			Window:   cfg.RateLimit.AdminWindow,
		}),
	)

	certs := watch.New(stores.certificates, feed, watch.WithLogger(log))
	a.onClose("certificate feed", func(context.Context) error { return certs.Close() })

	events, err := newPublisher(ctx, cfg, log, a)
	if err != nil {
		return nil, err
	}
	notifier := notify.NewAsync(events,
		notify.WithFallback(notify.NewLogPublisher(log)),
		notify.WithBreaker(circuit.New("certificate-events",
			circuit.WithFailureThreshold(cfg.Notify.FailureThreshold),
			circuit.WithCooldown(cfg.Notify.Cooldown),
		)),
		notify.WithBuffer(cfg.Notify.Buffer),
		notify.WithLogger(log),
		notify.WithMetrics(certMetrics),
	)
	a.onClose("notifier", notifier.Close)

	auditor := publisher.New(stores.audit,
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(registry)),
	)
	composer := service.NewComposer(certs, reader, reader,
		service.WithLogger(log),
		service.WithMetrics(certMetrics),
		service.WithNotifier(notifier),
		service.WithLocker(locker),
		service.WithAuditor(auditor),
	)
	resolver := service.NewResolver(certs, reader, reader,
		service.WithLogger(log),
		service.WithMetrics(certMetrics),
	)
	lister := service.NewLister(certs, certs,
		service.WithLogger(log),
		service.WithMetrics(certMetrics),
	)

	jwtService := jwttoken.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, jwttoken.WithLeeway(cfg.Auth.Leeway))
	a.router = newRouter(routerDeps{
		logger:    log,
		handler:   handler.New(composer, resolver, lister, log, handler.WithAuditTrail(stores.audit)),
		validator: jwttoken.NewJWTServiceAdapter(jwtService),
		limiter:   limiter,
		metrics:   httpMetrics,
		registry:  registry,
		expose:    cfg.Metrics,
		checks:    checks,
	})
	return a, nil
}

// backends are the persistence components for one store driver. db is nil
// for the in-memory driver.
type backends struct {
	certificates watch.Base
	directory    directoryStore
	audit        audit.Store
	db           *sql.DB
}

func openStores(ctx context.Context, cfg config.StoreConfig) (*backends, error) {
	if cfg.Driver == config.StoreMemory {
		return &backends{
			certificates: store.NewInMemory(),
			directory:    directory.NewInMemory(),
			audit:        auditmemory.NewInMemoryStore(),
		}, nil
	}
	db, dialect, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db, schema(dialect)...); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &backends{
		certificates: store.NewSQL(db, dialect),
		directory:    directory.NewSQL(db, dialect),
		audit:        sqlstore.New(db, dialect),
		db:           db,
	}, nil
}

func openDatabase(ctx context.Context, cfg config.StoreConfig) (*sql.DB, database.Dialect, error) {
	dialect, err := database.DialectFor(cfg.Driver)
	if err != nil {
		return nil, "", err
	}
	dsn := cfg.DatabaseURL
	if dialect == database.DialectSQLite {
		dsn = cfg.SQLitePath
	}
	db, err := database.Open(ctx, dialect.Driver(), dsn, database.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return nil, "", err
	}
	return db, dialect, nil
}

func schema(dialect database.Dialect) []string {
	stmts := append(directory.Schema(dialect), store.Schema(dialect)...)
	return append(stmts, sqlstore.Schema(dialect)...)
}

// newPublisher returns the Kafka publisher when brokers are configured and
// the log publisher otherwise.
func newPublisher(ctx context.Context, cfg config.Server, log *slog.Logger, a *app) (notify.Publisher, error) {
	producer, err := kafka.NewProducer(ctx, cfg.Kafka)
	if err != nil {
		return nil, err
	}
	if producer == nil {
		return notify.NewLogPublisher(log), nil
	}
	a.onClose("kafka", func(context.Context) error {
		producer.Close()
		return nil
	})
	if cfg.Kafka.EnsureTopic {
		if err := kafka.EnsureTopic(ctx, producer, cfg.Kafka.Topic, cfg.Kafka.Partitions, cfg.Kafka.Replication); err != nil {
			return nil, err
		}
	}
	return notify.NewKafkaPublisher(producer, cfg.Kafka.Topic), nil
}
