package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/itsnaseer/slackbrix/common/id"
	"github.com/itsnaseer/slackbrix/common/logger"
	"github.com/itsnaseer/slackbrix/common/otel"
	"github.com/itsnaseer/slackbrix/core/config"
	"github.com/itsnaseer/slackbrix/core/db"
	"github.com/itsnaseer/slackbrix/internal/queue"
	"github.com/itsnaseer/slackbrix/internal/reactor"
	"github.com/itsnaseer/slackbrix/internal/service"
	"github.com/itsnaseer/slackbrix/internal/store"
	"github.com/itsnaseer/slackbrix/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Setup(cfg)

	slog.InfoContext(ctx, "slackbrix worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Queue.RedisGroup,
		"consumer_name", cfg.Queue.RedisConsumer)

	// Different node id than the server so run ids never collide.
	if err := id.Init(id.NodeWorker); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
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

	consumer, err := queue.NewRedisConsumer(ctx, redisClient, queue.ConsumerConfig{
		Stream:       cfg.Queue.RedisStream,
		Group:        cfg.Queue.RedisGroup,
		Consumer:     cfg.Queue.RedisConsumer,
		DLQStream:    cfg.Queue.RedisDLQStream,
		BatchSize:    4,
		Block:        5 * time.Second,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database.Queries())
	authorizer := service.NewAuthorizer(service.NewInstallationService(stores.Installations()))

	users := reactor.NewDemoUserDirectory(cfg.Demo.UserCacheSize, cfg.Demo.UserCacheTTL)
	conversation := reactor.NewConversation(users, nil)

	w := worker.New(consumer, authorizer, reactor.NewClientFactory(cfg.Slack.APIURL, nil), conversation, worker.Config{
		MaxAttempts: 3,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Queue.RedisStream,
		Group:     cfg.Queue.RedisGroup,
		Consumer:  cfg.Queue.RedisConsumer + "-reclaimer",
		MinIdle:   2 * time.Minute,
		Interval:  time.Minute,
		BatchSize: 10,
		MaxAge:    15 * time.Minute,
	}, consumer, w.Handle)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop reclaimer first (quick)
	reclaimer.Stop()

	// A conversation in flight finishes its current step before Stop returns.
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
███████╗██╗      █████╗  ██████╗██╗  ██╗██████╗ ██████╗ ██╗██╗  ██╗    ██╗    ██╗ ██████╗ ██████╗ ██╗  ██╗███████╗██████╗
██╔════╝██║     ██╔══██╗██╔════╝██║ ██╔╝██╔══██╗██╔══██╗██║╚██╗██╔╝    ██║    ██║██╔═══██╗██╔══██╗██║ ██╔╝██╔════╝██╔══██╗
███████╗██║     ███████║██║     █████╔╝ ██████╔╝██████╔╝██║ ╚███╔╝     ██║ █╗ ██║██║   ██║██████╔╝█████╔╝ █████╗  ██████╔╝
╚════██║██║     ██╔══██║██║     ██╔═██╗ ██╔══██╗██╔══██╗██║ ██╔██╗     ██║███╗██║██║   ██║██╔══██╗██╔═██╗ ██╔══╝  ██╔══██╗
███████║███████╗██║  ██║╚██████╗██║  ██╗██████╔╝██║  ██║██║██╔╝ ██╗    ╚███╔███╔╝╚██████╔╝██║  ██║██║  ██╗███████╗██║  ██║
╚══════╝╚══════╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═════╝ ╚═╝  ╚═╝╚═╝╚═╝  ╚═╝     ╚══╝╚══╝  ╚═════╝ ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`
