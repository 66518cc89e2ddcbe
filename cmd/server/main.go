package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zioncity/backend/internal/agent"
	"github.com/zioncity/backend/internal/ai"
	"github.com/zioncity/backend/internal/cache"
	"github.com/zioncity/backend/internal/config"
	"github.com/zioncity/backend/internal/db"
	httpapi "github.com/zioncity/backend/internal/http"
	"github.com/zioncity/backend/internal/search"
	"github.com/zioncity/backend/internal/service"
	"github.com/zioncity/backend/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "zion-eric").Logger()

	ctx := context.Background()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "zion-eric")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up tracing")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(c)
	}()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate db")
	}

	var replyCache cache.Cache = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, using in-memory cache")
		} else {
			replyCache = rc
			defer rc.Close()
		}
	}

	var assistant ai.Assistant
	if cfg.AssistantBaseURL == "" {
		assistant = ai.MockAssistant{ModelVersion: "mock-v1"}
		logger.Info().Msg("using mock assistant")
	} else {
		assistant = ai.OpenAICompatAssistant{
			BaseURL:   cfg.AssistantBaseURL,
			Model:     cfg.AssistantModel,
			APIKey:    cfg.AssistantAPIKey,
			MaxTokens: cfg.AssistantMaxTokens,
			Cache:     replyCache,
			CacheTTL:  cfg.AssistantCacheTTL,
		}
	}

	agentClient := &http.Client{Timeout: cfg.AgentTimeout}
	router := agent.Router{
		Local: agent.DirectoryAgent{Catalog: store, Assistant: assistant},
		Remote: func(endpoint string) agent.Agent {
			return agent.HTTPAgent{Endpoint: endpoint, Client: agentClient}
		},
	}

	gate := service.Gate{Profiles: store}
	engine := &service.Engine{
		Broadcaster: &service.Broadcaster{
			Candidates:  gate,
			Agents:      router,
			Timeout:     cfg.BroadcastTimeout,
			MaxInflight: cfg.BroadcastMaxInflight,
			MaxLimit:    cfg.BroadcastMaxLimit,
			Logger:      logger.With().Str("component", "broadcaster").Logger(),
		},
		Assistant:     assistant,
		Conversations: store,
		Logger:        logger.With().Str("component", "chat").Logger(),
	}

	if addrs := cfg.ElasticsearchAddresses(); len(addrs) > 0 {
		searcher, err := search.NewElasticSearcher(addrs, cfg.ElasticsearchIndex)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create search client")
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := searcher.Ping(pingCtx); err != nil {
			logger.Warn().Err(err).Msg("search index unreachable at startup")
		}
		cancel()
		engine.Search = searcher
	} else {
		logger.Info().Msg("search index not configured, explicit search disabled")
	}

	handler := httpapi.Router(cfg, httpapi.Deps{
		Engine:      engine,
		Settings:    store,
		Eligibility: gate,
		DB:          store,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
