// Command mcp runs the MCP tool server for scheduler operations.
// Uses stdio transport for integration with AI assistants.
package main

import (
	"context"
	"log"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/replyhive/replyhive-go/internal/admission"
	"github.com/replyhive/replyhive-go/internal/config"
	"github.com/replyhive/replyhive-go/internal/dispatch"
	"github.com/replyhive/replyhive-go/internal/ledger"
	ledgerredis "github.com/replyhive/replyhive-go/internal/ledger/redis"
	"github.com/replyhive/replyhive-go/internal/mcpserver"
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
	observability.InitLogger(cfg.LogLevel)

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
		queueStore = queuepostgres.New(pool)

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

	ctrl := admission.New(ledgerStore, queueStore, subs, admission.Config{
		AppLimit:       cfg.AppLimit,
		AccountCeiling: cfg.AccountCeiling,
		MaxAttempts:    cfg.MaxAttempts,
		PerItemLatency: cfg.PerItemLatency,
	})
	disp := dispatch.New(vendorClient, dispatch.NewEndpointLimiter(dispatch.DefaultEndpointRates()))
	proc := rollover.New(ctrl, queueStore, disp, rollover.WithBatchSize(cfg.RolloverBatchSize))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "replyhive",
		Version: "v1.0.0",
	}, nil)
	mcpserver.RegisterTools(server, mcpserver.Deps{
		Ctrl:   ctrl,
		Ledger: ledgerStore,
		Queue:  queueStore,
		Proc:   proc,
	})

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}
