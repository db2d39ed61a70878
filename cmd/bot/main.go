package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shadiayoub/okx-bot/internal/config"
	"github.com/shadiayoub/okx-bot/internal/engine"
	"github.com/shadiayoub/okx-bot/internal/notifier"
	"github.com/shadiayoub/okx-bot/internal/okx"
	"github.com/shadiayoub/okx-bot/internal/predictor"
	"github.com/shadiayoub/okx-bot/internal/recorder"
	"github.com/shadiayoub/okx-bot/internal/risk"
	"github.com/shadiayoub/okx-bot/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] okx-bot starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}
	secrets, err := config.LoadSecrets()
	if err != nil {
		log.Fatalf("[FATAL] load credentials: %v", err)
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Exchange client + live ticker feed
	client := okx.NewClient(secrets.OKX, cfg.Exchange.Bar)
	symbols := make([]string, 0, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		if s.Enabled {
			symbols = append(symbols, s.OKXSymbol)
		}
	}
	feed := okx.NewTickerFeed(symbols)
	client.AttachFeed(feed)
	go feed.Run(ctx)
	if secrets.OKX.Simulated {
		log.Println("[WARN] simulated trading mode is on")
	}

	// Recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Telegram notifier
	tn := notifier.NewTelegramNotifier(secrets.Telegram.BotToken, secrets.Telegram.ChatID, cfg.Proxy)

	// Model registry
	models := predictor.NewRegistry()
	if err := models.LoadDir(cfg.Models.Dir); err != nil {
		log.Printf("[WARN] load models from %s: %v", cfg.Models.Dir, err)
	}
	defer models.Close()
	log.Printf("[INFO] active models: %v", models.Symbols())

	// Session + execution engine
	session := engine.NewSession(cfg.Session)
	eng := engine.New(client, session, rec, tn, engine.DefaultOptions())

	// Scheduler
	var trainer scheduler.Trainer
	if cfg.Models.TrainerURL != "" {
		trainer = scheduler.NewHTTPTrainer(cfg.Models.TrainerURL)
	}
	sched := scheduler.NewScheduler(ctx, scheduler.Deps{
		Market:    client,
		Account:   client,
		Engine:    eng,
		Sizer:     risk.NewSizer(cfg.Risk.MinBalance, cfg.Risk.MaxNotional),
		Models:    models,
		Recorder:  rec,
		Trainer:   trainer,
		Symbols:   cfg.Symbols,
		Params:    cfg.Indicators,
		Weights:   cfg.Weights,
		Threshold: cfg.Signal.Threshold,
		Lookback:  cfg.Exchange.Lookback,
	})
	interval := time.Duration(cfg.Signal.IntervalSeconds) * time.Second
	if err := sched.Register(interval, cfg.Models.RetrainCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Operator commands over Telegram
	router := &notifier.CommandRouter{Engine: eng, Account: client, Prices: feed}
	go tn.StartPolling(ctx, router.Handle)
	log.Println("[INFO] Telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, starting session now")
		if err := session.Start(); err != nil {
			log.Printf("[ERROR] start session: %v", err)
		}
	}

	log.Printf("[INFO] okx-bot is running, tick every %s. Press Ctrl+C to stop.", interval)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] okx-bot stopped")
}
