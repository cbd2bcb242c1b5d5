package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"repogator.app/relay/common/id"
	"repogator.app/relay/common/logger"
	"repogator.app/relay/common/otel"
	"repogator.app/relay/core/config"
	"repogator.app/relay/core/db"
	"repogator.app/relay/internal/credentials"
	"repogator.app/relay/internal/http/handler"
	"repogator.app/relay/internal/http/handler/webhook"
	"repogator.app/relay/internal/http/middleware"
	httprouter "repogator.app/relay/internal/http/router"
	"repogator.app/relay/internal/pipeline"
	"repogator.app/relay/internal/queue"
	"repogator.app/relay/internal/service"
	"repogator.app/relay/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeRelay)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "relay starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(cfg.SnowflakeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	if cfg.MigrateOnRun {
		if err := db.Migrate(ctx, cfg.DB.DSN); err != nil {
			slog.ErrorContext(ctx, "failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	stores := store.NewStores(database.Queries())
	producer := queue.NewRedisProducer(redisClient, cfg.Pipeline.RedisStream)
	resolver := credentials.NewResolver(stores.Tenants(), cfg.SharedLLM)

	services := service.NewServices(stores, service.NewTxRunner(database), producer, resolver)

	dispatchPipeline, err := pipeline.New(ctx, cfg, pipeline.Deps{
		Stores:   stores,
		Redis:    redisClient,
		Producer: producer,
		Resolver: resolver,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to build dispatch pipeline", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := map[string]handler.Check{
		"database": database.Ping,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}

	router := setupRouter(cfg, services, checks, dispatchPipeline)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Ingestion does not wait for recovery; /ready does.
	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	if err := dispatchPipeline.Start(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to start dispatch pipeline", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "relay ready", "workers", cfg.Dispatch.Workers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	httpCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(httpCtx); err != nil {
		slog.ErrorContext(httpCtx, "http server shutdown error", "error", err)
	}

	if err := dispatchPipeline.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "dispatch shutdown error", "error", err)
	}

	if telemetry != nil {
		otelCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(otelCtx); err != nil {
			slog.ErrorContext(otelCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, checks map[string]handler.Check, p *pipeline.Pipeline) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		Webhook: webhook.Config{
			LegacySecret: cfg.Webhook.LegacySecret,
			MaxBodyBytes: cfg.Webhook.MaxBodyBytes,
			TraceHeader:  cfg.Pipeline.TraceHeaderName,
		},
		TraceHeader: cfg.Pipeline.TraceHeaderName,
		AdminAPIKey: cfg.AdminAPIKey,
		Checks:      checks,
		Readiness:   p.Readiness(),
	})

	return router
}

const banner = `
██████╗ ███████╗██╗      █████╗ ██╗   ██╗    ███████╗███████╗██████╗ ██╗   ██╗███████╗██████╗ 
██╔══██╗██╔════╝██║     ██╔══██╗╚██╗ ██╔╝    ██╔════╝██╔════╝██╔══██╗██║   ██║██╔════╝██╔══██╗
██████╔╝█████╗  ██║     ███████║ ╚████╔╝     ███████╗█████╗  ██████╔╝██║   ██║█████╗  ██████╔╝
██╔══██╗██╔══╝  ██║     ██╔══██║  ╚██╔╝      ╚════██║██╔══╝  ██╔══██╗╚██╗ ██╔╝██╔══╝  ██╔══██╗
██║  ██║███████╗███████╗██║  ██║   ██║       ███████║███████╗██║  ██║ ╚████╔╝ ███████╗██║  ██║
╚═╝  ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝   ╚═╝       ╚══════╝╚══════╝╚═╝  ╚═╝  ╚═══╝  ╚══════╝╚═╝  ╚═╝
`
