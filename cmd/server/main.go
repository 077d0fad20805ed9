package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"hatch/internal/accounts"
	"hatch/internal/bus"
	"hatch/internal/credentials"
	"hatch/internal/credentials/migrations"
	"hatch/internal/email"
	"hatch/internal/guard"
	"hatch/internal/moderation"
	"hatch/internal/objects"
	"hatch/internal/platform/config"
	"hatch/internal/platform/httpserver"
	"hatch/internal/platform/logger"
	"hatch/internal/platform/metrics"
	"hatch/internal/platform/middleware"
	"hatch/internal/platform/postgres"
	"hatch/internal/platform/redis"
	httptransport "hatch/internal/transport/http"
	"hatch/internal/webhook"
	"hatch/pkg/domain"
	"hatch/pkg/platform/tasks"
)

const (
	shutdownTimeout = 10 * time.Second
	// drainTimeout bounds how long shutdown waits for background deliveries.
	// Deletions still inside their grace period are abandoned.
	drainTimeout = 15 * time.Second
)

// credentialStore is satisfied by both the in-memory and postgres stores.
type credentialStore interface {
	httptransport.Store
	DeleteUser(ctx context.Context, id domain.UserID) error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "hatch:", err)
		os.Exit(1)
	}
}

// run wires high-level dependencies and owns the process lifecycle. Business
// logic lives in the internal packages.
func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewWithRegistry(reg)

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	broker, limiter, closeBroker, err := openBroker(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBroker()

	group := tasks.New(log, tasks.WithFailures(m.TaskFailures))
	eventBus := bus.New(broker, group, log, bus.WithMetrics(m))
	publisher := moderation.NewPublisher(eventBus, bus.NewScheduler(eventBus))

	var remover accounts.ObjectRemover
	if cfg.Objects.Enabled() {
		objs, err := objects.New(ctx, cfg.Objects, log)
		if err != nil {
			return err
		}
		remover = objs
	}
	purger := accounts.NewPurger(store, remover, log)

	auditOpts := []moderation.Option{
		moderation.WithFrontendURL(cfg.FrontendURL),
		moderation.WithPurger(purger),
	}
	if cfg.Webhooks.Logging != "" {
		auditOpts = append(auditOpts, moderation.WithNotifier(
			webhook.New("logging", cfg.Webhooks.Logging, log, webhook.WithMetrics(m))))
	}
	reportOpts := []moderation.Option{moderation.WithFrontendURL(cfg.FrontendURL)}
	if cfg.Webhooks.Reports != "" {
		reportOpts = append(reportOpts, moderation.WithNotifier(
			webhook.New("reports", cfg.Webhooks.Reports, log, webhook.WithMetrics(m))))
	}

	consumers := bus.NewRouter(log, nil)
	consumers.Register(bus.ChannelAudits, moderation.NewAuditDispatcher(store, log, auditOpts...))
	consumers.Register(bus.ChannelReports, moderation.NewReportDispatcher(store, log, reportOpts...))

	mailer := newDeliverer(cfg, group, log, m)

	handler := httptransport.New(store, publisher, mailer, limiter, httptransport.Config{
		AdminKey:             cfg.AdminKey,
		BaseURL:              cfg.BaseURL,
		FrontendURL:          cfg.FrontendURL,
		Mods:                 cfg.Mods,
		AuthTokenTTL:         cfg.AuthTokenTTL,
		EmailTokenTTL:        cfg.EmailTokenTTL,
		AccountDeletionGrace: cfg.AccountDeletionGrace,
		BanFailClosed:        cfg.BanFailClosed,
	}, log, m)

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	handler.Register(r)
	srv := httpserver.New(cfg.Addr, r, log)

	g, gctx := errgroup.WithContext(ctx)
	for _, channel := range consumers.Channels() {
		g.Go(func() error {
			err := eventBus.SubscribeAndRun(gctx, channel, consumers)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		log.Info("starting hatch", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		drainCtx, cancelDrain := context.WithTimeout(context.Background(), drainTimeout)
		defer cancelDrain()
		if err := group.Drain(drainCtx); err != nil {
			log.Warn("background tasks still running at exit", "error", err)
		}
		return nil
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Server, log *slog.Logger) (credentialStore, func(), error) {
	if cfg.Database.URL == "" {
		log.Warn("DATABASE_URL not set, using in-memory credential store")
		return credentials.NewMemoryStore(), func() {}, nil
	}
	db, err := postgres.Open(ctx, cfg.Database.URL, migrations.FS)
	if err != nil {
		return nil, nil, err
	}
	return credentials.NewPostgresStore(db), func() { _ = db.Close() }, nil
}

// openBroker selects redis pub/sub and a shared rate-limit window when
// REDIS_URL is set, and in-process equivalents otherwise.
func openBroker(ctx context.Context, cfg config.Server, log *slog.Logger) (bus.Broker, guard.Limiter, func(), error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, nil, err
	}
	if client == nil {
		log.Warn("REDIS_URL not set, using in-process broker")
		broker := bus.NewMemoryBroker()
		return broker, guard.NewSlidingWindow(), func() { _ = broker.Close() }, nil
	}
	return bus.NewRedisBroker(client.Client), guard.NewRedisSlidingWindow(client.Client), func() { _ = client.Close() }, nil
}

func newDeliverer(cfg config.Server, group *tasks.Group, log *slog.Logger, m *metrics.Metrics) *email.Deliverer {
	httpClient := &http.Client{Timeout: 15 * time.Second}

	var primary email.Primary
	if cfg.Email.PostalURL != "" {
		primary = email.NewPostalClient(cfg.Email.PostalURL, cfg.Email.PostalKey, httpClient)
	}
	opts := []email.Option{
		email.WithFrom(cfg.Email.From),
		email.WithStatusDelay(cfg.Email.StatusDelay),
		email.WithTokenTTL(cfg.EmailTokenTTL),
		email.WithMetrics(m),
	}
	if cfg.Email.ResendKey != "" {
		opts = append(opts, email.WithFallback(email.NewResendClient(cfg.Email.ResendKey, httpClient)))
	}
	if cfg.Webhooks.Ops != "" {
		opts = append(opts, email.WithNotifier(webhook.New("ops", cfg.Webhooks.Ops, log, webhook.WithMetrics(m))))
	}
	if primary == nil {
		log.Warn("POSTAL_URL not set, verification email goes straight to the fallback provider")
	}
	return email.NewDeliverer(primary, group, log, opts...)
}
