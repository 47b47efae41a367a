package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/amm"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/cache"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/config"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/engine"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/executor"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/filters"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/lists"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/metrics"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/notify"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/rpc"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/server"
	sig "github.com/aman-zulfiqar/solana-pool-sniper/internal/signal"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/stream"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/tokeninfo"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/txbuilder"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/wallet"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		if err := godotenv.Load(); err != nil {
			logger.Warn("no .env file found, using system environment variables")
			return
		}
		envPath = ".env"
	}
	logger.Infof("loaded .env from %s", envPath)
}

func main() {
	startedAt := time.Now()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logger.WithField("level", cfg.LogLevel).Warn("unknown LOG_LEVEL, keeping info")
	} else {
		logger.SetLevel(lvl)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	m := metrics.New()

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCEndpoint,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		RateLimit:    cfg.RPCRateLimit,
		Logger:       logger,
	})

	w, err := wallet.NewWallet(wallet.WalletConfig{
		RPC:        rpcClient,
		PrivateKey: cfg.PrivateKey,
		Commitment: cfg.CommitmentLevel,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to load wallet")
	}

	// Optional Redis: operator lists and event fan-out
	var (
		rclient   *redis.Client
		listStore *lists.Store
		notifiers = notify.Multi{notify.NewLog(logger)}
		checks    = make(map[string]server.Pinger)
	)
	recent := notify.NewRecent(constants.MaxRecentEvents)
	notifiers = append(notifiers, recent)
	if cfg.RedisAddr != "" {
		rclient, err = cache.NewRedisClient(ctx, cache.RedisConfig{Addr: cfg.RedisAddr})
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}
		defer rclient.Close()

		listStore, err = lists.NewStore(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create list store")
		}
		events := cache.NewPubSubManager(rclient, logger)
		notifiers = append(notifiers, notify.NewPubSub(events, 2*time.Second, logger))
		checks["redis"] = events
	}

	// Optional ClickHouse trade journal
	var journal engine.TradeJournal
	if cfg.ClickHouseAddr != "" {
		store, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("trade journal disabled")
		} else {
			defer store.Close()
			journal = store
			checks["clickhouse"] = store
		}
	}

	// Lists
	var wg sync.WaitGroup
	watch := func(name lists.Name, file string, every time.Duration) *lists.Watcher {
		lw := lists.NewWatcher(lists.WatcherConfig{
			Name:     name,
			File:     file,
			Store:    listStore,
			Interval: every,
			Logger:   logger,
		})
		if err := lw.Refresh(ctx); err != nil {
			logger.WithError(err).WithField("list", name).Fatal("failed to load list")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			lw.Run(ctx)
		}()
		return lw
	}
	blacklist := watch(lists.Blacklist, cfg.BlacklistFile, cfg.BlacklistRefreshInterval)

	// Execution
	execKind, err := executor.ParseKind(cfg.TransactionExecutor)
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	execCfg := executor.DefaultConfig()
	execCfg.Kind = execKind
	execCfg.RPC = rpcClient
	execCfg.Commitment = cfg.CommitmentLevel
	execCfg.ComputeUnitLimit = cfg.ComputeUnitLimit
	execCfg.ComputeUnitPrice = cfg.ComputeUnitPrice
	execCfg.Fee = cfg.CustomFee
	execCfg.Logger = logger
	strategy, err := executor.New(execCfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to create transaction executor")
	}

	pools := cache.NewPoolCache()
	markets := cache.NewMarketCache()
	builder, err := txbuilder.New(txbuilder.Config{
		RPC:        rpcClient,
		Signer:     w,
		Fees:       strategy,
		Markets:    markets,
		Commitment: cfg.CommitmentLevel,
		Logger:     logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create transaction builder")
	}

	// Filters and signals
	pipeline, err := filters.Build(filters.Config{
		CheckRenounced:            cfg.CheckIfMintIsRenounced,
		CheckFreezable:            cfg.CheckIfFreezable,
		CheckBurned:               cfg.CheckIfBurned,
		CheckMutable:              cfg.CheckIfMutable,
		CheckSocials:              cfg.CheckIfSocials,
		MinPoolSize:               cfg.MinPoolSize,
		MaxPoolSize:               cfg.MaxPoolSize,
		CheckHolders:              cfg.CheckHolders,
		MinHolders:                cfg.MinHolders,
		CheckDistribution:         cfg.CheckTokenDistribution,
		MaxTopHolderPct:           cfg.MaxTopHolderPercent,
		CheckAbnormalDistribution: cfg.CheckAbnormalDistribution,
		Blacklist:                 blacklist,
	}, tokeninfo.NewRPCSource(rpcClient, cfg.CommitmentLevel, cfg.HTTPTimeout, logger), logger)
	if err != nil {
		logger.WithError(err).Fatal("invalid filter configuration")
	}

	signals, err := sig.NewEngine(sig.Config{
		MACDShortPeriod:  cfg.MACDShortPeriod,
		MACDLongPeriod:   cfg.MACDLongPeriod,
		MACDSignalPeriod: cfg.MACDSignalPeriod,
		RSIPeriod:        cfg.RSIPeriod,
	})
	if err != nil {
		logger.WithError(err).Fatal("invalid signal configuration")
	}

	engCfg := engine.Config{
		QuoteMint:                 cfg.QuoteMint,
		QuoteDecimals:             cfg.QuoteDecimals,
		QuoteAmount:               cfg.QuoteAmount,
		MaxLag:                    cfg.MaxLag,
		MaxTokensAtTheTime:        cfg.MaxTokensAtTheTime,
		UseSnipeList:              cfg.UseSnipeList,
		AutoBuyDelay:              cfg.AutoBuyDelay,
		MaxBuyRetries:             cfg.MaxBuyRetries,
		MaxBuyDuration:            cfg.MaxBuyDuration,
		BuySlippage:               cfg.BuySlippage,
		AutoSell:                  cfg.AutoSell,
		AutoSellDelay:             cfg.AutoSellDelay,
		MaxSellRetries:            cfg.MaxSellRetries,
		SellSlippage:              cfg.SellSlippage,
		PriceCheckInterval:        cfg.PriceCheckInterval,
		PriceCheckDuration:        cfg.PriceCheckDuration,
		PriceCheckForceExit:       cfg.PriceCheckForceExit,
		TakeProfit:                cfg.TakeProfit,
		StopLoss:                  cfg.StopLoss,
		TrailingStopLoss:          cfg.TrailingStopLoss,
		SkipSellingIfLostMoreThan: cfg.SkipSellingIfLostMoreThan,
		AutoSellWithoutSellSignal: cfg.AutoSellWithoutSellSignal,
		UseTA:                     cfg.UseTA,
		FilterCheckInterval:       cfg.FilterCheckInterval,
		FilterCheckDuration:       cfg.FilterCheckDuration,
		ConsecutiveFilterMatches:  cfg.ConsecutiveFilterMatches,
		JournalTimeout:            5 * time.Second,
	}

	positions := cache.NewPositionCache(signals.MinSamples() * 4)
	reserves := amm.NewClient(rpcClient, cfg.CommitmentLevel)
	deps := engine.Deps{
		Positions: positions,
		Reserves:  reserves,
		Builder:   builder,
		Executor:  strategy,
		Wallet:    w,
		Filters:   pipeline,
		Signals:   signals,
		Confirmer: sig.NewBuyConfirmer(sig.ConfirmConfig{
			TimeToWait:         cfg.BuySignalTimeToWait,
			PriceInterval:      cfg.BuySignalPriceInterval,
			MinRisePct:         cfg.BuySignalFractionPctMin,
			LowVolumeThreshold: cfg.BuySignalLowVolumeThreshold,
		}),
		Journal:  journal,
		Notifier: notifiers,
		Metrics:  m,
		Logger:   logger,
	}
	if cfg.UseSnipeList {
		deps.SnipeList = watch(lists.Snipe, cfg.SnipeListFile, cfg.SnipeListRefreshInterval)
	}

	eng, err := engine.New(engCfg, deps)
	if err != nil {
		logger.WithError(err).Fatal("failed to create engine")
	}

	printDetails(ctx, logger, cfg, w, strategy, pipeline)

	if err := eng.Validate(ctx); err != nil {
		logger.WithError(err).Fatal("wallet validation failed")
	}

	if cfg.PreloadExistingMarkets {
		n, err := stream.PreloadMarkets(ctx, rpcClient, markets, cfg.QuoteMint, cfg.CommitmentLevel, logger)
		if err != nil {
			logger.WithError(err).Fatal("failed to preload markets")
		}
		logger.WithField("markets", n).Info("markets preloaded")
	}

	// Operator API
	if cfg.APIAddr != "" {
		h := &server.Handlers{
			Positions: positions,
			Pools:     pools,
			Reserves:  reserves,
			Events:    recent,
			Metrics:   m,
			Checks:    checks,
			DevMode:   cfg.DevMode,
			Logger:    logger,
		}
		if listStore != nil {
			h.Lists = listStore
		}
		srv, err := server.NewServer(server.ServerDeps{
			Handlers: h,
			Config: server.ServerConfig{
				Addr:    cfg.APIAddr,
				DevMode: cfg.DevMode,
				APIKey:  cfg.APIKey,
			},
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to create http server")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.WithField("addr", cfg.APIAddr).Info("api server starting")
			if err := srv.Run(ctx); err != nil {
				logger.WithError(err).Error("api server failed")
			}
		}()
	}

	dispatcher := stream.NewDispatcher(stream.DispatcherConfig{
		Pools:     pools,
		Markets:   markets,
		Engine:    eng,
		Wallet:    eng,
		Owner:     w.PublicKey(),
		QuoteMint: cfg.QuoteMint,
		StartedAt: startedAt,
		Metrics:   m,
		Logger:    logger,
	})
	listeners := stream.NewListeners(stream.ListenersConfig{
		Endpoint:        cfg.RPCWebsocketEndpoint,
		Commitment:      cfg.CommitmentLevel,
		QuoteMint:       cfg.QuoteMint,
		Owner:           w.PublicKey(),
		CacheNewMarkets: cfg.CacheNewMarkets,
		Timings:         stream.DefaultSubscriberConfig(),
		Metrics:         m,
		Logger:          logger,
	}, dispatcher)

	wg.Add(1)
	go func() {
		defer wg.Done()
		listeners.Run(ctx)
	}()
	logger.Info("bot is running, press Ctrl+C to stop")

	<-sigCh
	logger.Info("shutting down")
	cancel()
	wg.Wait()
}

func printDetails(ctx context.Context, logger *logrus.Logger, cfg *config.Config, w *wallet.Wallet, strategy executor.Strategy, pipeline *filters.Pipeline) {
	fields := logrus.Fields{
		"wallet":   w.Address(),
		"quote":    cfg.QuoteToken,
		"amount":   cfg.QuoteAmount.String(),
		"executor": strategy.Kind(),
		"commit":   cfg.CommitmentLevel,
		"max_lag":  cfg.MaxLag,
		"max_open": cfg.MaxTokensAtTheTime,
	}
	if sol, err := w.GetBalanceSOL(ctx); err == nil {
		fields["sol_balance"] = sol
	}
	logger.WithFields(fields).Info("general")

	logger.WithFields(logrus.Fields{
		"auto_buy_delay": cfg.AutoBuyDelay,
		"retries":        cfg.MaxBuyRetries,
		"max_duration":   cfg.MaxBuyDuration,
		"slippage":       cfg.BuySlippage.String(),
		"snipe_list":     cfg.UseSnipeList,
	}).Info("buy")

	logger.WithFields(logrus.Fields{
		"auto_sell":       cfg.AutoSell,
		"delay":           cfg.AutoSellDelay,
		"retries":         cfg.MaxSellRetries,
		"slippage":        cfg.SellSlippage.String(),
		"check_interval":  cfg.PriceCheckInterval,
		"check_duration":  cfg.PriceCheckDuration,
		"force_exit":      cfg.PriceCheckForceExit,
		"take_profit":     cfg.TakeProfit.String(),
		"stop_loss":       cfg.StopLoss.String(),
		"trailing":        cfg.TrailingStopLoss,
		"skip_loss_above": cfg.SkipSellingIfLostMoreThan.String(),
		"use_ta":          cfg.UseTA,
	}).Info("sell")

	if cfg.UseSnipeList {
		logger.WithField("refresh", cfg.SnipeListRefreshInterval).Info("snipe list replaces filters")
		return
	}
	logger.WithFields(logrus.Fields{
		"filters":     pipeline.Names(),
		"interval":    cfg.FilterCheckInterval,
		"duration":    cfg.FilterCheckDuration,
		"consecutive": cfg.ConsecutiveFilterMatches,
	}).Info("filters")
}
