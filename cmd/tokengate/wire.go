package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"solana-token-gate/internal/config"
	"solana-token-gate/internal/dexscreener"
	"solana-token-gate/internal/discovery"
	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/execution"
	"solana-token-gate/internal/filter"
	"solana-token-gate/internal/logger"
	"solana-token-gate/internal/notify"
	"solana-token-gate/internal/observability"
	"solana-token-gate/internal/pipeline"
	"solana-token-gate/internal/risk"
	"solana-token-gate/internal/solana"
	"solana-token-gate/internal/storage"
	chstore "solana-token-gate/internal/storage/clickhouse"
	"solana-token-gate/internal/storage/memory"
	"solana-token-gate/internal/storage/migrations"
	pgstore "solana-token-gate/internal/storage/postgres"
	"solana-token-gate/internal/throttle"
)

// app holds every wired component.
type app struct {
	cfg *config.Config
	log *logger.Logger

	rpc       *solana.HTTPClient
	ws        *solana.WSClientImpl
	evaluator *risk.Evaluator
	trader    *execution.Trader
	pipeline  *pipeline.Pipeline

	executions storage.ExecutionStore
	runStats   storage.RunStatsStore

	closers []func()
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override with flags if set
	if c.IsSet("rpc-url") {
		cfg.RPCURL = c.String("rpc-url")
	}
	if c.IsSet("chain-id") {
		cfg.ChainID = c.String("chain-id")
	}
	if c.IsSet("dry-run") {
		cfg.DryRun = c.Bool("dry-run")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	if c.IsSet("poll-interval") {
		cfg.PollInterval = c.Duration("poll-interval")
	}
	if c.IsSet("http-addr") {
		cfg.HTTPAddr = c.String("http-addr")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp wires the components. withStores connects the configured
// databases and runs their migrations.
func newApp(ctx context.Context, c *cli.Context, withStores bool) (*app, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}

	observeWait := throttle.WithWaitObserver(func(d time.Duration) {
		observability.RecordThrottleWait(d.Seconds())
	})
	rpcThrottle := throttle.New(cfg.RateLimit, observeWait)
	feedThrottle := throttle.New(cfg.RateLimit, observeWait)

	a.rpc = solana.NewHTTPClient(cfg.RPCURL,
		solana.WithCommitment(cfg.Commitment),
		solana.WithThrottle(rpcThrottle))

	feed := dexscreener.NewClient(cfg.DexScreenerAPI, cfg.TokenAddressAPI,
		dexscreener.WithThrottle(feedThrottle))

	a.evaluator = risk.NewEvaluator(a.rpc, cfg.RaydiumProgramAMM,
		risk.WithConcurrency(cfg.Concurrency),
		risk.WithLogger(log.Named("risk")))

	if withStores {
		if err := a.openStores(ctx); err != nil {
			a.Close()
			return nil, err
		}
	} else {
		a.executions = memory.NewExecutionStore()
		a.runStats = memory.NewRunStatsStore()
	}

	confirmer, err := a.newConfirmer(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	guard := execution.NewGuard(a.rpc,
		execution.WithConfirmer(confirmer),
		execution.WithGuardLogger(log.Named("guard")))

	a.trader = execution.NewTrader(guard, execution.TraderConfig{
		Wallet:      cfg.WalletAddress,
		AmountSOL:   decimal.NewFromFloat(cfg.TradeAmountSOL),
		SlippagePct: decimal.NewFromFloat(cfg.Slippage),
		Budget: domain.TransactionBudget{
			MaxFeeSOL: decimal.NewFromFloat(cfg.MaxTxCost),
			Timeout:   cfg.APITimeout,
		},
		DryRun: cfg.DryRun,
	},
		execution.WithBalanceReader(a.rpc),
		execution.WithJournal(a.executions),
		execution.WithTraderLogger(log.Named("trader")))

	notifier, err := newNotifier(cfg, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	source := discovery.NewSource(feed, discovery.Options{
		ChainID:     cfg.ChainID,
		Concurrency: cfg.Concurrency,
		Logger:      log.Named("discovery"),
	})

	a.pipeline = pipeline.New(pipeline.Options{
		Source: source,
		Criteria: filter.Criteria{
			MinLiquidity:   cfg.MinLiquidity,
			MinMarketCap:   cfg.MinMarketCap,
			MaxPriceChange: cfg.MaxPriceChange,
			MinBuys:        cfg.MinBuys,
			MinSells:       cfg.MinSells,
		},
		Risk:     a.evaluator,
		Trader:   a.trader,
		Notifier: notifier,
		RunStats: a.runStats,
		Logger:   log.Named("pipeline"),
	})

	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	if a.cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, a.cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("postgres migrations: %w", err)
		}
		a.executions = pgstore.NewExecutionStore(pool)
		a.log.Info("execution journal: postgres")
	} else {
		a.executions = memory.NewExecutionStore()
		a.log.Info("execution journal: memory")
	}

	if a.cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, a.cfg.ClickHouseDSN)
		if err != nil {
			return fmt.Errorf("clickhouse migrations: %w", err)
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		a.runStats = chstore.NewRunStatsStore(conn)
		a.log.Info("run stats: clickhouse")
	} else {
		a.runStats = memory.NewRunStatsStore()
		a.log.Info("run stats: memory")
	}
	return nil
}

// newConfirmer prefers a websocket subscription and falls back to polling.
func (a *app) newConfirmer(ctx context.Context) (execution.Confirmer, error) {
	if a.cfg.WSURL == "" {
		return execution.NewPollingConfirmer(a.rpc, a.cfg.Commitment, execution.DefaultPollInterval), nil
	}

	wsCfg := solana.DefaultWSConfig()
	wsCfg.Commitment = a.cfg.Commitment
	wsCfg.Logger = a.log.Zap()
	ws, err := solana.NewWSClient(ctx, a.cfg.WSURL, &wsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect websocket: %w", err)
	}
	a.ws = ws
	a.closers = append(a.closers, func() { _ = ws.Close() })
	return execution.NewSubscriptionConfirmer(ws), nil
}

func newNotifier(cfg *config.Config, log *logger.Logger) (notify.Notifier, error) {
	if !cfg.TelegramEnabled() {
		return notify.Nop{}, nil
	}
	tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, log.Named("telegram"))
	if err != nil {
		return nil, err
	}
	return tg, nil
}

// Close releases connections in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.log.Sync()
}
