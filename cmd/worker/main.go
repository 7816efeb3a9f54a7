// Command worker runs the Temporal worker for the scheduler workflows.
// Exactly one worker instance should poll the scheduler queue: that
// exclusivity is what keeps rollover single-writer across nodes.
package main

import (
	"context"
	"log"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/replyhive/replyhive-go/internal/admission"
	"github.com/replyhive/replyhive-go/internal/config"
	"github.com/replyhive/replyhive-go/internal/dispatch"
	"github.com/replyhive/replyhive-go/internal/ledger"
	ledgerredis "github.com/replyhive/replyhive-go/internal/ledger/redis"
	"github.com/replyhive/replyhive-go/internal/observability"
	"github.com/replyhive/replyhive-go/internal/queue"
	queuepostgres "github.com/replyhive/replyhive-go/internal/queue/postgres"
	"github.com/replyhive/replyhive-go/internal/rollover"
	"github.com/replyhive/replyhive-go/internal/subscription"
	"github.com/replyhive/replyhive-go/internal/temporal/activities"
	"github.com/replyhive/replyhive-go/internal/temporal/versioning"
	"github.com/replyhive/replyhive-go/internal/temporal/workflows"
	"github.com/replyhive/replyhive-go/internal/testutil"
	"github.com/replyhive/replyhive-go/internal/vendor"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := observability.InitLogger(cfg.LogLevel)

	ctx := context.Background()

	var (
		ledgerStore  ledger.Store
		queueStore   queue.Store
		vendorClient dispatch.VendorClient
	)

	switch cfg.Mode {
	case config.ModeProduction:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		ledgerStore = ledgerredis.New(rdb, cfg.AppLimit)

		pool, err := queuepostgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		pg := queuepostgres.New(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Fatalf("postgres schema: %v", err)
		}
		queueStore = pg

		vendorClient = vendor.New(cfg.VendorBaseURL, cfg.VendorToken)

	default: // stub mode
		ledgerStore = ledger.NewMemoryStore(cfg.AppLimit)
		queueStore = queue.NewMemoryStore()
		vendorClient = testutil.NewStubVendor()
	}

	subs, err := subscription.ParsePlans(cfg.TenantPlans)
	if err != nil {
		log.Fatalf("tenant plans: %v", err)
	}

	var metrics *observability.Metrics
	if cfg.OTelEnabled {
		metrics, err = observability.NewMetrics()
		if err != nil {
			log.Fatalf("metrics: %v", err)
		}
	}

	ctrl := admission.New(ledgerStore, queueStore, subs, admission.Config{
		AppLimit:       cfg.AppLimit,
		AccountCeiling: cfg.AccountCeiling,
		MaxAttempts:    cfg.MaxAttempts,
		PerItemLatency: cfg.PerItemLatency,
	}, admission.WithMetrics(metrics))

	disp := dispatch.New(vendorClient, dispatch.NewEndpointLimiter(dispatch.DefaultEndpointRates()),
		dispatch.WithMetrics(metrics))

	proc := rollover.New(ctrl, queueStore, disp,
		rollover.WithBatchSize(cfg.RolloverBatchSize),
		rollover.WithMetrics(metrics))

	c, err := client.Dial(client.Options{
		Logger: observability.NewTemporalSlogAdapter(logger),
	})
	if err != nil {
		log.Fatalf("unable to create Temporal client: %v", err)
	}
	defer c.Close()

	acts := &activities.Activities{
		Processor: proc,
		Queue:     queueStore,
		Retention: cfg.Retention,
	}

	w := worker.New(c, versioning.QueueScheduler, worker.Options{
		// One pass at a time; the processor's guard is the backstop,
		// not the mechanism.
		MaxConcurrentActivityExecutionSize: 1,
	})
	w.RegisterWorkflow(workflows.RolloverWorkflow)
	w.RegisterWorkflow(workflows.PurgeWorkflow)
	w.RegisterActivity(acts)

	slog.Info("starting worker", "queue", versioning.QueueScheduler, "mode", cfg.Mode)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
}
