package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"examguard/internal/integrity/handler"
	integritymetrics "examguard/internal/integrity/metrics"
	"examguard/internal/integrity/service"
	"examguard/internal/integrity/store"
	"examguard/internal/integrity/stream"
	"examguard/internal/platform/config"
	"examguard/internal/platform/database"
	"examguard/internal/platform/health"
	"examguard/internal/platform/kafka"
	"examguard/internal/platform/kafka/producer"
	"examguard/internal/platform/logger"
	"examguard/internal/platform/metrics"
	"examguard/internal/platform/redis"
	"examguard/internal/platform/tracer"
	"examguard/internal/proctoring/credentials"
	httptransport "examguard/internal/transport/http"
	"examguard/migrations"
)

// main wires dependencies and runs the HTTP server until SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	im := integritymetrics.New(reg)
	probes := health.New(cfg.Environment)

	g, ctx := errgroup.WithContext(ctx)

	eventStore, closeStore, err := openStore(ctx, cfg, reg, probes, g, log)
	if err != nil {
		return err
	}
	defer closeStore()

	publisher, err := openStream(cfg, probes, log)
	if err != nil {
		return err
	}
	defer func() { _ = publisher.Close() }()

	opts := []service.Option{
		service.WithStream(publisher),
		service.WithLogger(log),
		service.WithMetrics(im),
		service.WithTracer(tracer.NewOTel()),
		service.WithRecentWindow(cfg.Integrity.RecentWindow),
		service.WithRecentLimit(cfg.Integrity.RecentLimit),
	}
	if path := cfg.Integrity.DirectoryPath; path != "" {
		dir, err := service.LoadDirectory(path)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithDirectory(dir))
	}
	svc := service.New(eventStore, opts...)

	issuer, err := credentials.NewIssuer(cfg.Media.APIKey, cfg.Media.APISecret, cfg.Media.ServerURL,
		credentials.WithTTL(cfg.Media.TokenTTL))
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(log,
		httptransport.Options{
			Observer: metrics.NewHTTP(reg).Middleware,
			Metrics:  metrics.Handler(reg),
		},
		handler.New(svc, log),
		credentials.NewHandler(issuer, log, im, credentials.WithStaffToken(cfg.Media.StaffToken)),
		probes,
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore selects the event store: PostgreSQL, then SQLite, then Redis,
// falling back to memory.
func openStore(ctx context.Context, cfg config.Server, reg prometheus.Registerer, probes *health.Handler, g *errgroup.Group, log *slog.Logger) (service.Store, func(), error) {
	switch {
	case cfg.Database.URL != "":
		db, err := database.OpenPostgres(ctx, cfg.Database, database.DefaultPoolConfig())
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, db, migrations.FS, database.Postgres); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		probes.RegisterCheck("postgres", database.HealthCheck(db))
		log.Info("event_store_selected", "backend", "postgres")
		return store.NewPostgres(db), closeDB(db), nil

	case cfg.SQLite.Path != "":
		db, err := database.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		schema, err := fs.Sub(migrations.SQLiteFS, "sqlite")
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if err := database.Migrate(ctx, db, schema, database.SQLite); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		probes.RegisterCheck("sqlite", database.HealthCheck(db))
		log.Info("event_store_selected", "backend", "sqlite", "path", cfg.SQLite.Path)
		return store.NewSQLite(db), closeDB(db), nil

	case cfg.Redis.URL != "":
		client, err := redis.New(cfg.Redis, reg)
		if err != nil {
			return nil, nil, err
		}
		probes.RegisterCheck("redis", client.Health)
		g.Go(func() error { return client.RunPoolStats(ctx, 15*time.Second) })
		log.Info("event_store_selected", "backend", "redis")
		return store.NewRedis(client.Client, store.WithRedisTTL(cfg.Redis.EventTTL)),
			func() { _ = client.Close() }, nil
	}

	log.Warn("event_store_selected", "backend", "memory", "note", "events are lost on restart")
	return store.NewMemory(), func() {}, nil
}

func closeDB(db *sql.DB) func() {
	return func() { _ = db.Close() }
}

type publisher interface {
	service.Stream
	Close() error
}

func openStream(cfg config.Server, probes *health.Handler, log *slog.Logger) (publisher, error) {
	if cfg.Kafka.Brokers == "" {
		return stream.Noop{}, nil
	}
	prod, err := producer.New(kafka.ProducerConfigFrom(cfg.Kafka), log)
	if err != nil {
		return nil, err
	}
	probes.RegisterCheck("kafka", kafka.NewHealthChecker(cfg.Kafka.Brokers).Check)
	log.Info("integrity_stream_enabled", "topic", cfg.Kafka.Topic)
	return stream.NewKafka(prod, stream.WithTopic(cfg.Kafka.Topic)), nil
}
