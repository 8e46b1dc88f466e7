// Command server wires the decisioning backend: postgres-backed stores, the
// vendor waterfall, the workflow service, the HTTP surface, and the outbox
// worker that publishes billing events to Kafka and webhook tasks to Redis.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"vouch/internal/outbox"
	"vouch/internal/platform/config"
	"vouch/internal/platform/httpserver"
	"vouch/internal/platform/logger"
	"vouch/internal/platform/metrics"
	platformredis "vouch/internal/platform/redis"
	risksignal "vouch/internal/signal"
	"vouch/internal/tenant"
	httptransport "vouch/internal/transport/http"
	"vouch/internal/vendor"
	"vouch/internal/waterfall"
	"vouch/internal/workflow"
	workflowhandler "vouch/internal/workflow/handler"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Error("ping postgres", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient == nil {
		log.Error("redis not configured; the webhook queue requires it")
		os.Exit(1)
	}
	defer redisClient.Close()

	kafkaClient, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.KafkaBrokers...),
		kgo.DefaultProduceTopic(cfg.BillingTopic),
	)
	if err != nil {
		log.Error("connect kafka", "error", err)
		os.Exit(1)
	}
	defer kafkaClient.Close()

	m := metrics.New()

	clients := []vendor.Client{
		vendor.NewSandboxClient(vendor.KindIdology),
		vendor.NewSandboxClient(vendor.KindExperian),
		vendor.NewSandboxClient(vendor.KindIncode),
		vendor.NewSandboxClient(vendor.KindMiddesk),
		vendor.NewSandboxClient(vendor.KindComply),
	}

	attempts := waterfall.NewPostgresAttemptStore(db)
	orchestrator := waterfall.New(attempts, clients,
		waterfall.WithLogger(log),
		waterfall.WithMetrics(m),
		waterfall.WithTimeout(cfg.VendorCallTimeout),
	)

	signals := risksignal.NewPostgresStore(db)
	outboxStore := outbox.NewPostgresStore(db)
	workflows := workflow.NewPostgresStore(db)
	configs := tenant.NewPostgresStore(db)

	svc := workflow.NewService(workflows, signals, outboxStore, orchestrator,
		workflow.WithLogger(log),
		workflow.WithMetrics(m),
	)

	wfHandler := workflowhandler.New(svc, workflows, configs, signals, log)
	router := httptransport.NewRouter(wfHandler, map[string]httptransport.HealthCheck{
		"postgres": func(ctx context.Context) error { return db.PingContext(ctx) },
		"redis":    redisClient.Health,
	})
	srv := httpserver.New(cfg.Addr, router)

	worker := outbox.NewWorker(outboxStore, kafkaClient, redisClient,
		cfg.BillingTopic, cfg.WebhookQueueKey, cfg.OutboxPollPeriod,
		outbox.WithWorkerLogger(log),
		outbox.WithWorkerMetrics(m),
	)

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting outbox worker", "period", cfg.OutboxPollPeriod.String())
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
