package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type Producer interface {
	Enqueue(ctx context.Context, task DemoTask) error
}

type ProducerConfig struct {
	Stream string
	// MaxLen trims the stream to roughly this many entries on every add.
	// A pending entry trimmed away can no longer be reclaimed.
	MaxLen int64
}

type redisProducer struct {
	client redis.Cmdable
	cfg    ProducerConfig
	logger *slog.Logger
}

// NewRedisProducer does not take ownership of client; the caller closes it.
func NewRedisProducer(client redis.Cmdable, cfg ProducerConfig, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{client: client, cfg: cfg, logger: logger}
}

func (p *redisProducer) Enqueue(ctx context.Context, task DemoTask) error {
	task.Attempt = max(task.Attempt, 1)

	args := &redis.XAddArgs{
		Stream: p.cfg.Stream,
		Values: taskValues(task),
	}
	if p.cfg.MaxLen > 0 {
		args.MaxLen = p.cfg.MaxLen
		args.Approx = true
	}

	streamID, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("enqueue demo run %d on %s: %w", task.RunID, p.cfg.Stream, err)
	}

	p.logger.InfoContext(ctx, "enqueued demo conversation",
		"run_id", task.RunID,
		"channel_id", task.ChannelID,
		"stream_id", streamID,
		"attempt", task.Attempt)
	return nil
}
