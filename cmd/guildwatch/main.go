package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-guildwatch/internal/alerts"
	"go-guildwatch/internal/baseline"
	"go-guildwatch/internal/bot"
	"go-guildwatch/internal/config"
	"go-guildwatch/internal/database"
	"go-guildwatch/internal/dispatcher"
	"go-guildwatch/internal/engine"
	"go-guildwatch/internal/ingest"
	"go-guildwatch/internal/logging"
	"go-guildwatch/internal/metrics"
	"go-guildwatch/internal/notifier"
	"go-guildwatch/internal/watchdog"
)

func main() {
	cfg := config.LoadOrDefault("config.json")

	if err := logging.Init(cfg.Logging.Level, cfg.Logging.JSON); err != nil {
		fmt.Fprintf(os.Stderr, "logging init failed: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	logging.Info("guildwatch starting")

	initializeDatabase(cfg)

	components := startComponents(cfg)

	if err := initializeBot(cfg, components.engine); err != nil {
		logging.Error("bot init failed: %v", err)
	}

	logging.Info("all components started")

	waitForShutdown()

	stopComponents(components)

	if session := bot.GetSession(); session != nil {
		session.Close()
	}
	database.Close()

	logging.Info("shutdown complete")
}

func initializeDatabase(cfg *config.Config) {
	if err := database.Initialize(cfg.Database.Path); err != nil {
		logging.Warn("database unavailable, running without persistence: %v", err)
		return
	}
	logging.Info("database ready at %s", cfg.Database.Path)
}

func initializeBot(cfg *config.Config, eng *engine.Engine) error {
	if cfg.Bot.Token == "" {
		logging.Warn("no bot token configured, gateway ingestion disabled")
		return nil
	}

	if err := bot.Initialize(cfg.Bot.Token); err != nil {
		return err
	}

	session := bot.GetSession()
	session.SetupEventHandlers(eng)

	if err := session.Connect(); err != nil {
		return err
	}

	if cfg.Notify.ChannelID != "" {
		eng.AddSink(notifier.NewDiscordSink(session.GetDiscord(), cfg.Notify.ChannelID))
	}

	return nil
}

type Components struct {
	ringBuffer *ingest.RingBuffer
	engine     *engine.Engine
	feed       *ingest.FeedReader
	webhook    *dispatcher.WebhookDispatcher
	metricsSrv *httpServerCloser
	dog        *watchdog.Watchdog
}

type httpServerCloser struct {
	shutdown func(context.Context) error
}

func startComponents(cfg *config.Config) *Components {
	ringBuffer := ingest.NewRingBuffer(cfg.Ingest.BufferSize)

	db := database.GetDB()
	var alertStore alerts.HistoryStore
	var sampleStore baseline.SampleStore
	var overrideStore engine.OverrideStore
	var overrides map[uint64]config.Thresholds
	if db != nil {
		alertStore = db
		sampleStore = db
		overrideStore = db

		loaded, err := db.LoadThresholdOverrides()
		if err != nil {
			logging.Warn("threshold override load failed: %v", err)
		} else {
			overrides = loaded
		}
	}

	eng := engine.NewEngine(engine.Options{
		Queue:            ringBuffer,
		Context:          bot.NewGuildContext(),
		AlertStore:       alertStore,
		SampleStore:      sampleStore,
		OverrideStore:    overrideStore,
		Thresholds:       cfg.Detection.Thresholds,
		Overrides:        overrides,
		SweepInterval:    time.Duration(cfg.Detection.SweepIntervalMs) * time.Millisecond,
		BaselineInterval: time.Duration(cfg.Detection.BaselineIntervalMs) * time.Millisecond,
		PinCPU:           cfg.Runtime.PinCPU,
		EngineCPU:        cfg.Runtime.EngineCPU,
	})

	eng.AddSink(notifier.NewLogSink())

	var webhook *dispatcher.WebhookDispatcher
	if cfg.Notify.WebhookURL != "" {
		webhook = dispatcher.NewWebhookDispatcher(
			cfg.Notify.WebhookURL,
			cfg.Notify.WorkerCount,
			cfg.Notify.HTTPPoolSize,
			cfg.Notify.QueueCapacity,
		)
		webhook.Start()
		eng.AddSink(webhook)
	}

	if cfg.Detection.Enabled {
		eng.Start()
	} else {
		logging.Warn("detection disabled by config, engine idle")
	}

	var feed *ingest.FeedReader
	if cfg.Ingest.FeedURL != "" {
		feed = ingest.NewFeedReader(cfg.Ingest.FeedURL, ringBuffer)
		feed.Start()
		logging.Info("event feed reader started for %s", cfg.Ingest.FeedURL)
	}

	var metricsSrv *httpServerCloser
	if cfg.Metrics.Enabled {
		srv := metrics.Serve(cfg.Metrics.ListenAddr)
		metricsSrv = &httpServerCloser{shutdown: srv.Shutdown}
		logging.Info("metrics listening on %s", cfg.Metrics.ListenAddr)
	}

	dog := watchdog.NewWatchdog(10 * time.Second)
	dog.RegisterComponent("engine", 3*time.Duration(cfg.Detection.SweepIntervalMs)*time.Millisecond)
	eng.SetHeartbeat(func() { dog.Heartbeat("engine") })
	dog.Start()

	return &Components{
		ringBuffer: ringBuffer,
		engine:     eng,
		feed:       feed,
		webhook:    webhook,
		metricsSrv: metricsSrv,
		dog:        dog,
	}
}

func waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logging.Info("shutdown signal received")
}

func stopComponents(c *Components) {
	c.dog.Stop()

	if c.feed != nil {
		c.feed.Stop()
	}

	c.engine.Stop()

	if c.webhook != nil {
		c.webhook.Stop()
	}

	if c.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.metricsSrv.shutdown(ctx); err != nil {
			logging.Warn("metrics server shutdown: %v", err)
		}
	}
}
