package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/itsnaseer/slackbrix/common/id"
	"github.com/itsnaseer/slackbrix/common/logger"
	"github.com/itsnaseer/slackbrix/internal/model"
	"github.com/itsnaseer/slackbrix/internal/queue"
	"github.com/itsnaseer/slackbrix/internal/reactor"
	"github.com/itsnaseer/slackbrix/internal/service"
)

type Config struct {
	MaxAttempts int
}

type Worker struct {
	consumer     Consumer
	authorizer   Authorizer
	clients      reactor.ClientFactory
	conversation ConversationRunner
	cfg          Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, authorizer Authorizer, clients reactor.ClientFactory, conversation ConversationRunner, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		consumer:     consumer,
		authorizer:   authorizer,
		clients:      clients,
		conversation: conversation,
		cfg:          cfg,
		stopCh:       make(chan struct{}),
		stoppedCh:    make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "slackbrix.worker"})
	slog.InfoContext(ctx, "worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "worker stopping")
			return nil
		default:
			if err := w.processOneBatch(ctx); err != nil {
				slog.ErrorContext(ctx, "batch processing error", "error", err)
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		_ = w.Handle(ctx, msg)
	}
	return nil
}

// Handle processes msg and routes a failure to requeue or the DLQ, so the
// message never stays pending. Used by both the read loop and the reclaimer.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	if err := w.processMessageSafe(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "message processing failed",
			"error", err,
			"message_id", msg.ID,
			"run_id", msg.Task.RunID)
		w.handleFailedMessage(ctx, msg, err)
	}
	return nil
}

func (w *Worker) processMessageSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in message processing",
				"panic", r,
				"message_id", msg.ID,
				"run_id", msg.Task.RunID)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.ProcessMessage(ctx, msg)
}

// ProcessMessage authorizes the task's claims, plays the conversation and
// acks. A task whose installation is gone is acked and dropped.
func (w *Worker) ProcessMessage(ctx context.Context, msg queue.Message) error {
	task := msg.Task

	sc := logger.StartSpanFromTraceID(ctx, task.TraceID, "worker.demo_conversation",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer sc.End()
	ctx = sc.Context()

	claims := model.IdentityClaims{
		EnterpriseID:        task.EnterpriseID,
		TeamID:              task.TeamID,
		IsEnterpriseInstall: task.IsEnterpriseInstall,
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		MessageID:    logger.Ptr(msg.ID),
		RunID:        logger.Ptr(task.RunID),
		ChannelID:    logger.Ptr(task.ChannelID),
		EnterpriseID: logger.Ptr(task.EnterpriseID),
		TeamID:       logger.Ptr(task.TeamID),
	})

	slog.InfoContext(ctx, "processing demo conversation",
		"attempt", task.Attempt,
		"queued_ms", time.Since(id.Time(task.RunID)).Milliseconds())

	auth, err := w.authorizer.Authorize(ctx, claims)
	if err != nil {
		if errors.Is(err, service.ErrNotAuthorized) {
			slog.WarnContext(ctx, "installation no longer exists, dropping task")
			w.ack(ctx, msg)
			return nil
		}
		sc.RecordError(err)
		return fmt.Errorf("authorizing task: %w", err)
	}

	start := time.Now()
	client := w.clients(auth.BotToken)
	if err := w.conversation.Run(ctx, client, task.ChannelID, cacheKey(claims)); err != nil {
		sc.RecordError(err)
		return fmt.Errorf("running conversation: %w", err)
	}

	w.ack(ctx, msg)
	slog.InfoContext(ctx, "demo conversation completed",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) ack(ctx context.Context, msg queue.Message) {
	if err := w.consumer.Ack(ctx, msg); err != nil {
		// the reclaimer will pick it up again
		slog.WarnContext(ctx, "failed to ACK message",
			"error", err,
			"message_id", msg.ID)
	}
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if msg.Task.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"run_id", msg.Task.RunID,
			"attempts", msg.Task.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"run_id", msg.Task.RunID,
		"attempt", msg.Task.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}

// cacheKey scopes demo user lookups to the installation the task runs under.
func cacheKey(claims model.IdentityClaims) string {
	if key, err := model.InstallationKey(claims.IsEnterpriseInstall, claims.EnterpriseID, claims.TeamID); err == nil {
		return key
	}
	return model.TeamKey(claims.TeamID)
}
