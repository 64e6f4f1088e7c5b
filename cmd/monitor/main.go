// Package main runs the copy-trade wallet monitor:
// - Feed (continuous): WebSocket account-trade stream for tracked wallets
// - Relay (continuous): Redis pub/sub for settings, wallets and prices
// - Orchestration: per-trade copy decision, execution and logging
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"copytrade-monitor/internal/domain"
	"copytrade-monitor/internal/events"
	"copytrade-monitor/internal/execution"
	"copytrade-monitor/internal/feed"
	"copytrade-monitor/internal/monitor"
	"copytrade-monitor/internal/observability"
	"copytrade-monitor/internal/pricing"
	"copytrade-monitor/internal/relay"
	"copytrade-monitor/internal/solana"
	"copytrade-monitor/internal/storage"
	"copytrade-monitor/internal/storage/memory"
	"copytrade-monitor/internal/storage/migrations"
	pgstore "copytrade-monitor/internal/storage/postgres"
)

// stores holds the storage implementations behind the monitor.
type stores struct {
	wallets  storage.WalletStore
	settings storage.SettingsStore
	txLogs   storage.TransactionLogStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	feedEndpoint := flag.String("feed-endpoint", os.Getenv("FEED_WS_ENDPOINT"), "Trade feed WebSocket endpoint")
	redisAddr := flag.String("redis-addr", envOr("REDIS_ADDR", "localhost:6379"), "Redis address for the relay")
	redisPassword := flag.String("redis-password", os.Getenv("REDIS_PASSWORD"), "Redis password")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	walletServiceURL := flag.String("wallet-service-url", os.Getenv("WALLET_SERVICE_URL"), "Wallet service base URL")
	userID := flag.String("user-id", os.Getenv("MONITOR_USER_ID"), "User id stamped on transaction logs")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint (price tracking)")
	pools := flag.String("pools", os.Getenv("TRACKED_POOLS"), "Comma-separated pools to price, token:pool:baseVault:quoteVault")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[copytrade] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if *feedEndpoint == "" {
		logger.Fatal("--feed-endpoint is required")
	}
	if *walletServiceURL == "" {
		logger.Fatal("--wallet-service-url is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores
	st, cleanup, err := createStores(ctx, *postgresDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Event bus and connection status tracking
	bus := events.NewBus(0)
	connStatus := monitor.NewConnectionMonitor(bus)

	// Redis relay: the monitor subscribes; publishing happens on the
	// gateway side of the relay.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     *redisAddr,
		Password: *redisPassword,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatalf("Failed to connect to redis: %v", err)
	}
	connStatus.Report(domain.ConnRedis, domain.StatusConnected, "")

	subscriber := relay.NewSubscriber(redisClient, bus,
		relay.WithSubscriberLogger(log.New(os.Stdout, "[relay] ", log.LstdFlags)))

	// Wallet service and executor
	wallet := execution.NewHTTPWalletClient(*walletServiceURL)
	executor := execution.NewDryRunExecutor(logger)
	rules := execution.NewRules(log.New(os.Stdout, "[rules] ", log.LstdFlags))

	// Feed connection
	conn := feed.NewConn(*feedEndpoint,
		feed.WithLogger(log.New(os.Stdout, "[feed] ", log.LstdFlags)))

	// Orchestrator and pipeline. The settings source is the monitor
	// itself, which does not exist yet; a deferred handle breaks the
	// construction cycle.
	settingsSource := &deferredSettings{}
	orch := monitor.NewOrchestrator(monitor.OrchestratorOptions{
		Settings: settingsSource,
		Wallet:   wallet,
		Decider:  rules,
		Executor: executor,
		Bus:      bus,
		Logger:   logger,
		UserID:   *userID,
	})
	pipeline := monitor.NewPipeline(orch,
		monitor.WithPipelineLogger(log.New(os.Stdout, "[pipeline] ", log.LstdFlags)))

	m, err := monitor.New(ctx, monitor.Options{
		Conn:       conn,
		Pipeline:   pipeline,
		Bus:        bus,
		ConnStatus: connStatus,
		Wallets:    st.wallets,
		Settings:   st.settings,
		Logger:     log.New(os.Stdout, "[monitor] ", log.LstdFlags),
	})
	if err != nil {
		logger.Fatalf("Failed to create monitor: %v", err)
	}
	settingsSource.set(m)

	// Relay subscriber and keep-alive
	go func() {
		if err := subscriber.Run(ctx); err != nil && ctx.Err() == nil {
			connStatus.Report(domain.ConnRedis, domain.StatusError, err.Error())
			logger.Printf("Relay subscriber stopped: %v", err)
		}
	}()
	go subscriber.RunKeepAlive(ctx)

	// Transaction log persistence and metrics recording off the bus
	go recordEvents(ctx, bus, st.txLogs, logger)

	// Optional pool price tracking. Publishing uses its own redis
	// connection, independent from the subscriber's.
	poolConfigs, err := parsePools(*pools)
	if err != nil {
		logger.Fatalf("Invalid --pools value: %v", err)
	}
	if len(poolConfigs) > 0 {
		if *rpcEndpoint == "" {
			logger.Fatal("--rpc-endpoint is required when --pools is set")
		}
		publishClient := redis.NewClient(&redis.Options{
			Addr:     *redisAddr,
			Password: *redisPassword,
		})
		defer publishClient.Close()

		rpc := solana.NewHTTPClient(*rpcEndpoint)
		priceLogger := log.New(os.Stdout, "[pricing] ", log.LstdFlags)
		publisher := relay.NewPublisher(publishClient, relay.WithPublisherLogger(priceLogger))
		tracker := pricing.NewTracker(rpc, pricing.NewCalculator(rpc, priceLogger),
			publisher, bus, poolConfigs, pricing.WithTrackerLogger(priceLogger))
		go tracker.Run(ctx)
		logger.Printf("Price tracking enabled for %d pools", len(poolConfigs))
	}

	// HTTP server for health and metrics
	go startHTTPServer(*metricsAddr, logger)

	// Monitoring session
	m.Start(ctx)
	logger.Println("Monitor started")

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

	cancel()
	m.Stop()
	logger.Println("Shutdown complete")
}

// deferredSettings delegates to the monitor once it exists.
type deferredSettings struct {
	m *monitor.WalletMonitor
}

func (d *deferredSettings) set(m *monitor.WalletMonitor) { d.m = m }

func (d *deferredSettings) SettingsSnapshot() []domain.CopyTradeSettings {
	if d.m == nil {
		return nil
	}
	return d.m.SettingsSnapshot()
}

// createStores creates the storage implementations, running migrations
// when backed by PostgreSQL.
func createStores(ctx context.Context, postgresDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		st := &stores{
			wallets:  memory.NewWalletStore(),
			settings: memory.NewSettingsStore(),
			txLogs:   memory.NewTransactionLogStore(),
		}
		return st, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := migrations.RunPostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	st := &stores{
		wallets:  pgstore.NewWalletStore(pool),
		settings: pgstore.NewSettingsStore(pool),
		txLogs:   pgstore.NewTransactionLogStore(pool),
	}
	return st, pool.Close, nil
}

// recordEvents persists transaction logs and feeds the metrics counters
// from the bus.
func recordEvents(ctx context.Context, bus *events.Bus, txLogs storage.TransactionLogStore, logger *log.Logger) {
	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.C():
			switch ev.Kind {
			case events.KindTransactionLogged:
				observability.RecordTradeProcessed()
				record := ev.TransactionLog.Data
				if err := txLogs.Insert(ctx, &record); err != nil {
					logger.Printf("Failed to persist transaction log %s: %v", record.Signature, err)
				}
			case events.KindCopyTradeExecuted:
				observability.RecordCopyTradeExecuted()
			case events.KindConnectionStatusChanged:
				change := ev.ConnectionStatus.Data
				observability.SetConnectionUp(string(change.ConnectionType),
					change.Status == domain.StatusConnected)
			}
		}
	}
}

// startHTTPServer serves health and Prometheus metrics.
func startHTTPServer(addr string, logger *log.Logger) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}

// parsePools parses the --pools flag, one token:pool:baseVault:quoteVault
// tuple per entry.
func parsePools(value string) ([]pricing.PoolConfig, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	var configs []pricing.PoolConfig
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("pool %q: want token:pool:baseVault:quoteVault", entry)
		}
		configs = append(configs, pricing.PoolConfig{
			TokenAddress: parts[0],
			PoolAddress:  parts[1],
			BaseVault:    parts[2],
			QuoteVault:   parts[3],
		})
	}
	return configs, nil
}

// envOr returns the environment value or a default.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
