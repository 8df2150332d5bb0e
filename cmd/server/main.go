package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepstack/identity-core/cache"
	redisstore "github.com/prepstack/identity-core/cache/redis"
	"github.com/prepstack/identity-core/config"
	"github.com/prepstack/identity-core/internal/federation"
	"github.com/prepstack/identity-core/internal/federation/legacy"
	"github.com/prepstack/identity-core/internal/federation/primaryhttp"
	"github.com/prepstack/identity-core/internal/server"
	"github.com/prepstack/identity-core/log"
	"github.com/prepstack/identity-core/mongodb"
	"github.com/prepstack/identity-core/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
		bootLogger := zerolog.New(os.Stdout).With().Timestamp().Logger()
		bootLogger.Warn().
			Str("configured_log_level", cfg.LogLevel).
			Err(parseErr).
			Msg("Invalid LOG_LEVEL configured, defaulting to 'info'")
	}
	appLogger := log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	appLogger.Info(ctx, "Starting identity-core server...", map[string]interface{}{
		"http_port":     cfg.HTTPPort,
		"mongo_db_name": cfg.MongoDBName,
		"log_level":     logLevel.String(),
		"redis_enabled": cfg.RedisAddr != "",
	})

	if initErr := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); initErr != nil {
		appLogger.Fatal(ctx, "Failed to initialize MongoDB connection", initErr, nil)
	}
	db := mongodb.GetDB()

	profileRepo, err := mongodb.NewProfileRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize ProfileRepository", err, nil)
	}
	subscriptionRepo, err := mongodb.NewSubscriptionRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize SubscriptionRepository", err, nil)
	}
	credentialRepo, err := mongodb.NewCredentialRepository(ctx, db)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize CredentialRepository", err, nil)
	}

	// Session backing store: redis when configured, in-process otherwise.
	var sessionStore cache.SessionStore
	var redisClient *redis.Client
	var memoryStore *cache.MemorySessionStore
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if pingErr := redisClient.Ping(ctx).Err(); pingErr != nil {
			appLogger.Fatal(ctx, "Failed to connect to redis", pingErr, nil)
		}
		sessionStore = redisstore.NewSessionStore(redisClient, cfg.RedisPrefix)
	} else {
		memoryStore = cache.NewMemorySessionStore()
		sessionStore = memoryStore
	}

	primary := primaryhttp.NewClient(primaryhttp.Config{
		BaseURL:        cfg.PrimaryBaseURL,
		APIKey:         cfg.PrimaryAPIKey,
		RequestTimeout: cfg.ProviderTimeout(),
	})
	legacyProvider := legacy.NewProvider(credentialRepo, nil, appLogger, cfg.ProviderTimeout())
	markers := federation.NewMarkerStore()
	roles := federation.NewRoleResolver(cfg.OperatorEmail)

	aggregator := federation.NewAggregator(
		primary, legacyProvider, profileRepo, roles, markers, appLogger, cfg.ProviderTimeout())
	bridge := services.NewSessionBridge(
		primary, sessionStore, appLogger, cfg.TokenTemplate, cfg.ProviderTimeout(), cfg.SessionMaxTTL())
	synchronizer := services.NewProfileSynchronizer(profileRepo, appLogger, cfg.ProviderTimeout())
	gate := services.NewSubscriptionGate(subscriptionRepo, aggregator, appLogger, cfg.ProviderTimeout())

	api := server.NewAuthAPI(
		cfg, appLogger, primary, aggregator, bridge, synchronizer, gate, legacyProvider, markers, subscriptionRepo)
	httpServer := server.NewHTTPServer(cfg, appLogger, api)

	go func() {
		appLogger.Info(context.Background(), "HTTP server listening", map[string]interface{}{
			"addr": httpServer.Addr,
		})
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			appLogger.Fatal(context.Background(), "Failed to start HTTP server", serveErr, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info(ctx, "Shutting down server...", nil)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err, nil)
	}
	if memoryStore != nil {
		memoryStore.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			appLogger.Error(shutdownCtx, "Redis close error", err, nil)
		}
	}
	if err := mongodb.Disconnect(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "MongoDB disconnect error", err, nil)
	}

	appLogger.Info(shutdownCtx, "Server gracefully stopped.", nil)
}
