package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"altenheim-avatar/internal/auth"
	"altenheim-avatar/internal/common/database"
	"altenheim-avatar/internal/common/logger"
	"altenheim-avatar/internal/common/mqtt"
	commonredis "altenheim-avatar/internal/common/redis"
	"altenheim-avatar/internal/config"
	"altenheim-avatar/internal/events"
	httpapi "altenheim-avatar/internal/http"
	"altenheim-avatar/internal/llm"
	"altenheim-avatar/internal/service"
	"altenheim-avatar/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		memory  bool
		migrate bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), memory, migrate)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "Run on in-memory storage with the demo facility")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply database migrations before serving")
	return cmd
}

func runServe(ctx context.Context, memory, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return err
	}
	defer log.Sync()

	var rp *repos
	if memory {
		log.Warn("Running on in-memory storage, data is lost on exit")
		rp, err = openMemory(ctx, log)
	} else {
		rp, err = openPostgres(ctx, &cfg.Database)
	}
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer rp.Close()
	if migrate && rp.db != nil {
		if err := database.Migrate(ctx, rp.db, log); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = commonredis.NewRedisClient(&cfg.Redis)
		if err := commonredis.Ping(ctx, redisClient); err != nil {
			log.Warn("Redis unavailable, continuing without it", zap.Error(err))
			_ = commonredis.Close(redisClient)
			redisClient = nil
		} else {
			defer commonredis.Close(redisClient)
		}
	}

	var pinIndex *service.PINIndex
	if cfg.Auth.PINIndexEnabled {
		var kv store.KV = store.NewMemoryKV()
		if redisClient != nil {
			kv = store.NewRedisKV(redisClient)
		}
		pinIndex = service.NewPINIndex(kv, cfg.PINIndexSecret(), cfg.Auth.PINIndexTTL)
	}

	publisher, closePublisher, err := newPublisher(cfg, redisClient, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	streamer, err := llm.NewAnthropicStreamer(cfg.AnthropicAPIKey, cfg.LLM.BaseURL)
	if err != nil {
		return err
	}
	bridge := llm.NewBridge(streamer, llm.ProfilesFromConfig(cfg.LLM), llm.BridgeOptions{
		Timeout:         cfg.LLM.StreamTimeout,
		HistoryLimit:    cfg.LLM.HistoryLimit,
		MaxMessageChars: cfg.LLM.MaxMessageChars,
	}, log)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.Auth.StaffTokenTTL, cfg.Auth.ResidentTokenTTL)
	gate := service.NewAccessGate(rp.residents, rp.conversations)
	matcher := service.NewCredentialMatcher(rp.tenants, rp.residents, pinIndex, log)
	chat := service.NewChatService(gate, rp.conversations, rp.biographies, publisher, service.ChatOptions{
		HistoryLimit:    cfg.LLM.HistoryLimit,
		MaxMessageChars: cfg.LLM.MaxMessageChars,
	}, log)

	router := httpapi.NewRouter(tokens, log)
	router.RegisterAuthRoutes(httpapi.NewAuthHandler(service.NewAuthService(rp.users, matcher, tokens, log), log))
	router.RegisterChatRoutes(httpapi.NewChatHandler(chat, bridge, log))
	router.RegisterConversationRoutes(httpapi.NewConversationHandler(service.NewConversationService(gate, rp.conversations, publisher, log), log))
	router.RegisterBiographyRoutes(httpapi.NewBiographyHandler(service.NewBiographyService(gate, rp.biographies, log), log))
	router.RegisterUsageRoutes(httpapi.NewUsageHandler(service.NewUsageService(rp.usage), log))
	router.RegisterOpsRoutes(httpapi.NewHealthHandler(healthChecks(rp, redisClient, llm.NewHealthChecker(cfg.LLM.BaseURL, cfg.AnthropicAPIKey, log)), log))

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("Shutdown requested", zap.String("signal", sig.String()))
	case runErr = <-errCh:
	}

	// open chat streams may run up to the model ceiling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn("HTTP shutdown failed", zap.Error(err))
	}
	return runErr
}

func newPublisher(cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (events.Publisher, func(), error) {
	switch cfg.Events.Backend {
	case "redis":
		if redisClient == nil {
			log.Warn("EVENTS_BACKEND=redis but Redis is unavailable, events are dropped")
			return events.Nop{}, func() {}, nil
		}
		return events.NewRedisStreamPublisher(redisClient, cfg.Events.Stream, cfg.Events.StreamMaxLen), func() {}, nil
	case "mqtt":
		client, err := mqtt.NewClient(&cfg.MQTT)
		if err != nil {
			return nil, nil, err
		}
		return events.NewMQTTPublisher(client, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS), client.Close, nil
	}
	return events.Nop{}, func() {}, nil
}

func healthChecks(rp *repos, redisClient *redis.Client, provider *llm.HealthChecker) []httpapi.HealthCheck {
	var checks []httpapi.HealthCheck
	if rp.db != nil {
		checks = append(checks, httpapi.HealthCheck{Name: "database", Critical: true, Check: rp.db.PingContext})
	}
	if redisClient != nil {
		checks = append(checks, httpapi.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return commonredis.Ping(ctx, redisClient)
		}})
	}
	checks = append(checks, httpapi.HealthCheck{Name: "llm", Check: provider.Check})
	return checks
}
