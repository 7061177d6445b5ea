// cmd/scanner is the trading assistant service: it watches an NSE
// watchlist, computes RSI/VWAP/CPR snapshots from SmartAPI data, decides
// BUY/SELL/HOLD verdicts, persists trade ideas to SQLite and pushes
// alerts, on a cron schedule and over an HTTP/WebSocket API.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"trade-assistant/config"
	"trade-assistant/internal/api"
	"trade-assistant/internal/logger"
	"trade-assistant/internal/marketdata"
	"trade-assistant/internal/metrics"
	"trade-assistant/internal/notification"
	"trade-assistant/internal/scanner"
	"trade-assistant/internal/scheduler"
	"trade-assistant/internal/tradelog"
	"trade-assistant/internal/watchlist"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	logger.Init("scanner", slog.LevelInfo)
	log.Println("[scanner] starting...")

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis is optional: without it the watchlist just won't survive
	// restarts.
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("[scanner] redis unavailable at %s: %v (watchlist persistence disabled)", cfg.RedisAddr, err)
		rdb = nil
	} else {
		log.Printf("[scanner] redis connected at %s", cfg.RedisAddr)
	}

	trades, err := tradelog.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[scanner] sqlite open failed: %v", err)
	}
	defer trades.Close()

	seed, err := watchlist.LoadSeed(cfg.WatchlistSeedPath)
	if err != nil {
		log.Fatalf("[scanner] watchlist seed load failed: %v", err)
	}
	store := watchlist.NewStore(rdb, seed)
	if rdb != nil && store.Load(ctx) {
		log.Println("[scanner] watchlist restored from redis")
	}
	log.Printf("[scanner] watchlist holds %d symbols", store.Len())

	md := marketdata.New(marketdata.Config{
		APIKey:     cfg.AngelAPIKey,
		ClientCode: cfg.AngelClientCode,
		Password:   cfg.AngelPassword,
		TOTPSecret: cfg.AngelTOTPSecret,
		Exchange:   cfg.Exchange,
		Interval:   cfg.CandleInterval,
		RSIPeriod:  cfg.RSIPeriod,
	}, nil)

	notifier := buildNotifier(cfg)

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.StartLivenessChecker(ctx, rdb, trades.DB(), 30*time.Second)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	scan := scanner.New(scanner.Config{
		Watchlist:     store,
		Market:        md,
		TradeLog:      trades,
		Notifier:      notifier,
		Metrics:       m,
		SymbolTimeout: cfg.FetchTimeout,
	})

	apiSrv := api.NewServer(api.Config{
		Addr:      cfg.ListenAddr,
		Scanner:   scan,
		Watchlist: store,
		TradeLog:  trades,
		Resolver:  md,
		Health:    health,
	})
	scan.OnReport = func(r scanner.Report) {
		apiSrv.Hub().BroadcastReport(r)
		health.SetLastScanAt(time.Now())
		health.SetWatchlistSize(store.Len())
		health.SetBrokerSessionOK(md.SessionOK())
	}
	apiSrv.Start()

	sched, err := scheduler.New(scheduler.Config{
		Scanner:       scan,
		Notifier:      notifier,
		TradeLog:      trades,
		Health:        health,
		PremarketSpec: cfg.PremarketSpec,
		LiveSpec:      cfg.LiveSpec,
		EODSpec:       cfg.EODSpec,
	})
	if err != nil {
		log.Fatalf("[scanner] scheduler setup failed: %v", err)
	}
	sched.Start()

	log.Printf("[scanner] ready: api=%s metrics=%s", cfg.ListenAddr, cfg.MetricsAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[scanner] shutting down...")

	sched.Stop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	apiSrv.Stop(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	if err := md.Logout(shutdownCtx); err != nil {
		log.Printf("[scanner] broker logout failed: %v", err)
	}
	cancel()
	if rdb != nil {
		rdb.Close()
	}
	log.Println("[scanner] bye")
}

// buildNotifier fans alerts out to every configured channel; with none
// configured, alerts just go to the process log.
func buildNotifier(cfg *config.Config) notification.Notifier {
	var targets notification.Multi
	if cfg.NtfyTopic != "" {
		targets = append(targets, notification.NewNtfyNotifier(cfg.NtfyBaseURL, cfg.NtfyTopic))
		log.Printf("[scanner] ntfy alerts enabled (topic %s)", cfg.NtfyTopic)
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		targets = append(targets, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
		log.Println("[scanner] telegram alerts enabled")
	}
	if len(targets) == 0 {
		log.Println("[scanner] no alert channels configured, logging alerts only")
		return notification.NewLogNotifier()
	}
	return targets
}
