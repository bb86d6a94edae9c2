package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/itsnaseer/slackbrix/common/logger"
	"github.com/itsnaseer/slackbrix/internal/queue"
)

const (
	defaultReclaimMaxAge = 15 * time.Minute
	expiredReason        = "demo request expired before it could be replayed"
)

var errBadStreamID = errors.New("malformed stream id")

type RedisReclaimerConfig struct {
	Stream    string
	Group     string
	Consumer  string
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
	// MaxAge bounds how late a demo may still be played. Older tasks are
	// dead-lettered instead of posting a conversation nobody is waiting for.
	MaxAge time.Duration
}

// RedisReclaimer takes over demo tasks left pending by a worker that died
// between XREADGROUP and XACK, using XAUTOCLAIM, and hands them to processor.
type RedisReclaimer struct {
	client    *redis.Client
	cfg       RedisReclaimerConfig
	consumer  Consumer
	processor queue.MessageProcessor
	now       func() time.Time

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewRedisReclaimer(client *redis.Client, cfg RedisReclaimerConfig, consumer Consumer, processor queue.MessageProcessor) *RedisReclaimer {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultReclaimMaxAge
	}
	return &RedisReclaimer{
		client:    client,
		cfg:       cfg,
		consumer:  consumer,
		processor: processor,
		now:       time.Now,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks until Stop is called or ctx is done.
func (r *RedisReclaimer) Run(ctx context.Context) {
	defer close(r.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "slackbrix.worker.reclaimer"})
	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle,
		"max_age", r.cfg.MaxAge)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			claimed, err := r.sweep(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "reclaim sweep failed", "error", err)
			} else if claimed > 0 {
				slog.InfoContext(ctx, "reclaim sweep finished", "claimed", claimed)
			}
		}
	}
}

func (r *RedisReclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// sweep walks the pending entries list once, claiming at most BatchSize
// entries per XAUTOCLAIM call, until the cursor wraps to 0-0.
func (r *RedisReclaimer) sweep(ctx context.Context) (int, error) {
	claimed := 0
	cursor := "0-0"
	for {
		messages, next, err := r.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   r.cfg.Stream,
			Group:    r.cfg.Group,
			Consumer: r.cfg.Consumer,
			MinIdle:  r.cfg.MinIdle,
			Start:    cursor,
			Count:    r.cfg.BatchSize,
		}).Result()
		if err != nil {
			return claimed, fmt.Errorf("xautoclaim: %w", err)
		}

		for _, raw := range messages {
			claimed++
			r.replay(ctx, raw)
		}

		if next == "0-0" || next == "" || len(messages) == 0 {
			return claimed, nil
		}
		cursor = next
	}
}

func (r *RedisReclaimer) replay(ctx context.Context, raw redis.XMessage) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: logger.Ptr(raw.ID)})

	msg, err := queue.ParseMessage(raw)
	if err != nil {
		// an unparseable entry would be claimed forever
		slog.ErrorContext(ctx, "dropping unparseable reclaimed task", "error", err)
		if ackErr := r.consumer.Ack(ctx, queue.Message{ID: raw.ID, Raw: raw}); ackErr != nil {
			slog.WarnContext(ctx, "failed to ack unparseable task", "error", ackErr)
		}
		return
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		RunID:     logger.Ptr(msg.Task.RunID),
		ChannelID: logger.Ptr(msg.Task.ChannelID),
	})

	age, err := entryAge(raw.ID, r.now())
	if err == nil && age > r.cfg.MaxAge {
		slog.WarnContext(ctx, "reclaimed demo task expired", "age", age)
		if dlqErr := r.consumer.SendDLQ(ctx, msg, expiredReason); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to dead-letter expired task", "error", dlqErr)
		}
		return
	}

	start := time.Now()
	if err := r.processor(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "reclaimed task failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "reclaimed task replayed", "duration_ms", time.Since(start).Milliseconds())
}

// entryAge reads the millisecond timestamp Redis encodes in a stream id
// ("<ms>-<seq>") and returns how long ago the entry was added.
func entryAge(streamID string, now time.Time) (time.Duration, error) {
	msPart, _, ok := strings.Cut(streamID, "-")
	if !ok {
		return 0, fmt.Errorf("%w: %q", errBadStreamID, streamID)
	}
	ms, err := strconv.ParseInt(msPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errBadStreamID, streamID)
	}
	return now.Sub(time.UnixMilli(ms)), nil
}
