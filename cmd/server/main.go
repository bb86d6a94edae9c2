package main

import (
	"context"
	"errors"
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

	"github.com/itsnaseer/slackbrix/common/id"
	"github.com/itsnaseer/slackbrix/common/logger"
	"github.com/itsnaseer/slackbrix/common/otel"
	"github.com/itsnaseer/slackbrix/core/config"
	"github.com/itsnaseer/slackbrix/core/db"
	"github.com/itsnaseer/slackbrix/internal/http/handler"
	"github.com/itsnaseer/slackbrix/internal/http/middleware"
	httprouter "github.com/itsnaseer/slackbrix/internal/http/router"
	"github.com/itsnaseer/slackbrix/internal/queue"
	"github.com/itsnaseer/slackbrix/internal/reactor"
	"github.com/itsnaseer/slackbrix/internal/service"
	"github.com/itsnaseer/slackbrix/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
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

	slog.InfoContext(ctx, "slackbrix starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(id.NodeServer); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	if cfg.AutoMigrate {
		if err := db.Migrate(cfg.DB.DSN); err != nil {
			slog.ErrorContext(ctx, "failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
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
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.RedisStream)

	producer := queue.NewRedisProducer(redisClient, queue.ProducerConfig{
		Stream: cfg.Queue.RedisStream,
		MaxLen: cfg.Queue.StreamMaxLen,
	}, slog.Default())

	stores := store.NewStores(database.Queries())
	services := service.NewServices(stores, cfg.Slack)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, httprouter.Deps{
		Services: services,
		Deduper:  queue.NewRedisDeduper(redisClient, cfg.Queue.DedupTTL),
		Reactor:  reactor.New(producer, cfg.Demo.TriggerText),
		Clients:  reactor.NewClientFactory(cfg.Slack.APIURL, nil),
		Checks: []handler.Check{
			{Name: "postgres", Ping: database.Ping},
			{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, deps httprouter.Deps) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	httprouter.SetupRoutes(router, deps, httprouter.RouterConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		InstallPath:   cfg.Slack.InstallPath,
		RedirectPath:  cfg.Slack.RedirectPath,
		SigningSecret: cfg.Slack.SigningSecret,
		TriggerText:   cfg.Demo.TriggerText,
		AdminAPIKey:   cfg.AdminAPIKey,
		IsProduction:  cfg.IsProduction(),
	})

	return router
}

const banner = `
███████╗██╗      █████╗  ██████╗██╗  ██╗██████╗ ██████╗ ██╗██╗  ██╗
██╔════╝██║     ██╔══██╗██╔════╝██║ ██╔╝██╔══██╗██╔══██╗██║╚██╗██╔╝
███████╗██║     ███████║██║     █████╔╝ ██████╔╝██████╔╝██║ ╚███╔╝
╚════██║██║     ██╔══██║██║     ██╔═██╗ ██╔══██╗██╔══██╗██║ ██╔██╗
███████║███████╗██║  ██║╚██████╗██║  ██╗██████╔╝██║  ██║██║██╔╝ ██╗
╚══════╝╚══════╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═════╝ ╚═╝  ╚═╝╚═╝╚═╝  ╚═╝
`
