// Command api runs the HTTP API server for admission requests and
// scheduler state.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/replyhive/replyhive-go/internal/admission"
	"github.com/replyhive/replyhive-go/internal/api"
	"github.com/replyhive/replyhive-go/internal/config"
	"github.com/replyhive/replyhive-go/internal/dispatch"
	"github.com/replyhive/replyhive-go/internal/ledger"
	ledgerredis "github.com/replyhive/replyhive-go/internal/ledger/redis"
	"github.com/replyhive/replyhive-go/internal/observability"
	"github.com/replyhive/replyhive-go/internal/queue"
	queuepostgres "github.com/replyhive/replyhive-go/internal/queue/postgres"
	"github.com/replyhive/replyhive-go/internal/rollover"
	"github.com/replyhive/replyhive-go/internal/subscription"
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

	if cfg.OTelEnabled {
		shutdown, err := observability.InitTracer(ctx, "replyhive-api")
		if err != nil {
			logger.Error("otel init failed", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

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

	oidcCfg := api.OIDCConfig{
		IssuerURL: cfg.OIDCIssuer,
		Audience:  cfg.OIDCAudience,
		Enabled:   cfg.OIDCEnabled(),
	}
	srv, err := api.New(ctrl, ledgerStore, queueStore, proc, subs, cfg.CORSOrigins, oidcCfg)
	if err != nil {
		log.Fatalf("api: %v", err)
	}

	var handler http.Handler = srv
	if cfg.OTelEnabled {
		handler = otelhttp.NewHandler(handler, "replyhive-api")
	}

	addr := ":" + cfg.APIPort
	slog.Info("starting API server", "addr", addr, "mode", cfg.Mode, "oidc_enabled", oidcCfg.Enabled)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
