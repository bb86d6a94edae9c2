package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/itsnaseer/slackbrix/common/logger"
	"github.com/redis/go-redis/v9"
)

type ConsumerConfig struct {
	Stream       string        // Redis stream name
	Group        string        // Redis consumer group name
	Consumer     string        // Redis consumer name
	DLQStream    string        // dead letter stream for failed tasks
	BatchSize    int64         // messages per XREADGROUP
	Block        time.Duration // how long to block waiting for new messages
	RequeueDelay time.Duration // how long a failed task waits before its retry
	DelayedSet   string        // sorted set holding retries until due; defaults to Stream+":delayed"
}

const promoteBatch = 100

type Message struct {
	ID       string
	TaskType TaskType
	Task     DemoTask
	Raw      redis.XMessage
}

// MessageProcessor processes a queue message.
type MessageProcessor func(ctx context.Context, msg Message) error

type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig
}

func NewRedisConsumer(ctx context.Context, client *redis.Client, cfg ConsumerConfig) (*RedisConsumer, error) {
	if cfg.DelayedSet == "" {
		cfg.DelayedSet = cfg.Stream + ":delayed"
	}
	consumer := &RedisConsumer{
		client: client,
		cfg:    cfg,
	}

	if err := consumer.ensureGroup(ctx); err != nil {
		return nil, err
	}

	return consumer, nil
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// "0" so a recreated group still sees tasks already in the stream.
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err == nil || strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil
	}
	return fmt.Errorf("creating consumer group %s on %s: %w", c.cfg.Group, c.cfg.Stream, err)
}

// Read moves retries that are due back onto the stream, then returns the
// next batch of demo tasks delivered to this consumer. Entries that do not decode are acked and dropped so they never block the group.
func (c *RedisConsumer) Read(ctx context.Context) ([]Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "slackbrix.queue.consumer"})

	// A retry lags its delay by at most one Block.
	if moved, err := c.promoteDue(ctx); err != nil {
		slog.WarnContext(ctx, "failed to promote due retries", "error", err)
	} else if moved > 0 {
		slog.DebugContext(ctx, "promoted due retries", "count", moved)
	}

	// ">" reads only undelivered entries; stale pending ones belong to the reclaimer.
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("xreadgroup %s: %w", c.cfg.Stream, err)
	}

	messages := make([]Message, 0, c.cfg.BatchSize)
	var dropped []string
	for _, stream := range streams {
		for _, entry := range stream.Messages {
			msg, parseErr := ParseMessage(entry)
			if parseErr != nil {
				slog.ErrorContext(ctx, "dropping undecodable demo task",
					"error", parseErr,
					"stream_id", entry.ID)
				dropped = append(dropped, entry.ID)
				continue
			}
			messages = append(messages, msg)
		}
	}

	if len(dropped) > 0 {
		if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, dropped...).Err(); err != nil {
			slog.WarnContext(ctx, "failed to ack dropped demo tasks", "error", err, "count", len(dropped))
		}
	}

	return messages, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack %s on %s: %w", msg.ID, c.cfg.Stream, err)
	}
	return nil
}

// Requeue schedules the task for another attempt RequeueDelay from now. The
// retry waits in the delayed set, so the caller never sleeps. Adding it there
// and acking the original happen in one MULTI.
func (c *RedisConsumer) Requeue(ctx context.Context, msg Message, errMsg string) error {
	task := msg.Task
	task.Attempt = max(task.Attempt, 1) + 1

	values := taskValues(task)
	values["source_id"] = msg.ID
	if errMsg != "" {
		values["last_error"] = errMsg
	}
	member, err := delayedMember(values)
	if err != nil {
		return fmt.Errorf("requeue run %d: %w", task.RunID, err)
	}

	due := time.Now().Add(c.cfg.RequeueDelay)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, c.cfg.DelayedSet, redis.Z{Score: float64(due.UnixMilli()), Member: member})
		pipe.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("requeue run %d: zadd %s + xack %s: %w", task.RunID, c.cfg.DelayedSet, msg.ID, err)
	}

	slog.InfoContext(ctx, "demo task scheduled for retry",
		"next_attempt", task.Attempt,
		"retry_in_ms", c.cfg.RequeueDelay.Milliseconds(),
		"reason", errMsg)
	return nil
}

// promoteDueScript moves due members of the delayed set (KEYS[1]) back onto
// the stream (KEYS[2]). ZREM decides the winner when several workers race.
var promoteDueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
local moved = 0
for _, member in ipairs(due) do
	if redis.call('ZREM', KEYS[1], member) == 1 then
		local fields = cjson.decode(member)
		local args = {}
		for k, v in pairs(fields) do
			table.insert(args, k)
			table.insert(args, v)
		end
		redis.call('XADD', KEYS[2], '*', unpack(args))
		moved = moved + 1
	end
end
return moved
`)

func (c *RedisConsumer) promoteDue(ctx context.Context) (int, error) {
	moved, err := promoteDueScript.Run(ctx, c.client,
		[]string{c.cfg.DelayedSet, c.cfg.Stream},
		time.Now().UnixMilli(), promoteBatch).Int()
	if err != nil {
		return 0, fmt.Errorf("promoting due retries from %s: %w", c.cfg.DelayedSet, err)
	}
	return moved, nil
}

// delayedMember encodes stream fields as a JSON object of strings. Strings
// keep int64 run ids exact through Lua, whose numbers are doubles.
func delayedMember(values map[string]any) (string, error) {
	fields := make(map[string]string, len(values))
	for k, v := range values {
		fields[k] = fmt.Sprint(v)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encoding delayed task: %w", err)
	}
	return string(raw), nil
}

// SendDLQ parks the task on the dead letter stream with the final error.
func (c *RedisConsumer) SendDLQ(ctx context.Context, msg Message, errMsg string) error {
	values := taskValues(msg.Task)
	values["error"] = errMsg
	values["source_id"] = msg.ID

	if err := c.moveTo(ctx, c.cfg.DLQStream, msg.ID, values); err != nil {
		return fmt.Errorf("dead-letter run %d: %w", msg.Task.RunID, err)
	}

	slog.ErrorContext(ctx, "demo task dead-lettered",
		"final_error", errMsg,
		"dlq_stream", c.cfg.DLQStream)
	return nil
}

func (c *RedisConsumer) moveTo(ctx context.Context, stream, ackID string, values map[string]any) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values})
		pipe.XAck(ctx, c.cfg.Stream, c.cfg.Group, ackID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("xadd %s + xack %s: %w", stream, ackID, err)
	}
	return nil
}

func ParseMessage(msg redis.XMessage) (Message, error) {
	taskType := TaskType(parseOptionalString(msg.Values, "task_type"))
	if taskType == "" {
		return Message{}, fmt.Errorf("missing task_type")
	}
	if taskType != TaskTypeDemoConversation {
		return Message{}, fmt.Errorf("unknown task_type %q", taskType)
	}

	runID, err := parseInt64(msg.Values, "run_id")
	if err != nil {
		return Message{}, err
	}
	channelID := parseOptionalString(msg.Values, "channel_id")
	if channelID == "" {
		return Message{}, fmt.Errorf("missing channel_id")
	}

	isEnterpriseInstall, err := parseOptionalBool(msg.Values, "is_enterprise_install")
	if err != nil {
		return Message{}, err
	}
	task := DemoTask{
		RunID:               runID,
		ChannelID:           channelID,
		TriggerTS:           parseOptionalString(msg.Values, "trigger_ts"),
		EnterpriseID:        parseOptionalString(msg.Values, "enterprise_id"),
		TeamID:              parseOptionalString(msg.Values, "team_id"),
		IsEnterpriseInstall: isEnterpriseInstall,
		TraceID:             parseOptionalString(msg.Values, "trace_id"),
	}
	if task.EnterpriseID == "" && task.TeamID == "" {
		return Message{}, fmt.Errorf("missing enterprise_id and team_id")
	}

	task.Attempt, err = parseOptionalInt(msg.Values, "attempt")
	if err != nil {
		return Message{}, err
	}
	if task.Attempt == 0 {
		task.Attempt = 1
	}

	return Message{
		ID:       msg.ID,
		TaskType: taskType,
		Task:     task,
		Raw:      msg,
	}, nil
}

func taskValues(task DemoTask) map[string]any {
	values := map[string]any{
		"task_type":             string(TaskTypeDemoConversation),
		"run_id":                task.RunID,
		"channel_id":            task.ChannelID,
		"is_enterprise_install": strconv.FormatBool(task.IsEnterpriseInstall),
		"attempt":               max(task.Attempt, 1),
	}
	if task.TriggerTS != "" {
		values["trigger_ts"] = task.TriggerTS
	}
	if task.EnterpriseID != "" {
		values["enterprise_id"] = task.EnterpriseID
	}
	if task.TeamID != "" {
		values["team_id"] = task.TeamID
	}
	if task.TraceID != "" {
		values["trace_id"] = task.TraceID
	}
	return values
}

func parseInt64(values map[string]any, key string) (int64, error) {
	raw, ok := values[key]
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	num, err := strconv.ParseInt(fmt.Sprint(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalBool(values map[string]any, key string) (bool, error) {
	raw, ok := values[key]
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(fmt.Sprint(raw))
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}
