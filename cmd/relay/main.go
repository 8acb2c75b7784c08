package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tgwatch/relay/internal/config"
	"github.com/tgwatch/relay/internal/logger"
	"github.com/tgwatch/relay/internal/publisher"
	"github.com/tgwatch/relay/internal/relay"
	"github.com/tgwatch/relay/internal/telegram"
)

const storePurgeInterval = 24 * time.Hour

func main() {
	// 1. Load config
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		panic("invalid config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting telegram relay")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Load source rules
	rules, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.SourcesFile).Msg("failed to load source rules")
	}

	// 5. Connect to NATS
	var pub relay.EventPublisher
	if cfg.NatsURL != "" {
		p, conn, err := publisher.Connect(cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
		} else {
			defer conn.Close()
			pub = p
		}
	}

	// 6. Connect to telegram
	manager := telegram.NewManager(cfg)
	if err := manager.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start telegram client")
	}
	defer manager.Stop()

	cache := relay.NewCache()
	tr := telegram.NewClient(manager, cache)

	// 7. Resolve destination and sources
	reg, err := relay.BuildRegistry(ctx, rules, tr, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build source registry")
	}

	// 8. Media store with daily cleanup
	store, err := relay.NewStore(cfg.StorageDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create media store")
	}
	go store.RunJanitor(ctx, storePurgeInterval)

	// 9. Wire the pipeline and start consuming updates
	svc := relay.NewService(reg, tr, cache, store, pub, log)
	pipeline := relay.NewPipeline(svc, cfg.Workers, cfg.QueueSize, log)
	tr.OnNewMessage(pipeline.Enqueue)

	self := manager.Self()
	log.Info().
		Str("status", string(manager.Status())).
		Int64("account_id", self.ID).
		Str("account", self.Username).
		Int("sources", len(rules.Sources)).
		Str("destination", rules.Destination).
		Msg("relay running")

	pipeline.Run(ctx)
	log.Info().Msg("relay stopped")
}
