package reactor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack/slackevents"

	"github.com/itsnaseer/slackbrix/common/id"
	"github.com/itsnaseer/slackbrix/common/logger"
	"github.com/itsnaseer/slackbrix/internal/model"
	"github.com/itsnaseer/slackbrix/internal/queue"
)

// Reactor handles authorized Slack events inside the webhook request.
// Anything slow is handed to the worker through the queue.
type Reactor struct {
	producer    queue.Producer
	triggerText string
}

func New(producer queue.Producer, triggerText string) *Reactor {
	return &Reactor{producer: producer, triggerText: triggerText}
}

// IsHelpRequest reports whether a message should start the demo conversation.
// Edits, joins, bot posts and our own messages never do.
func (r *Reactor) IsHelpRequest(ev *slackevents.MessageEvent) bool {
	if ev == nil || ev.SubType != "" || ev.BotID != "" {
		return false
	}
	return strings.Contains(ev.Text, r.triggerText)
}

func (r *Reactor) OnChannelCreated(ctx context.Context, client SlackClient, ev *slackevents.ChannelCreatedEvent) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{ChannelID: logger.Ptr(ev.Channel.ID)})

	if err := JoinChannel(ctx, client, ev.Channel.ID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "joined new channel", "channel_name", ev.Channel.Name)
	return nil
}

// OnHelpRequested enqueues a demo conversation run for the message's channel.
func (r *Reactor) OnHelpRequested(ctx context.Context, claims model.IdentityClaims, ev *slackevents.MessageEvent) error {
	task := queue.DemoTask{
		RunID:               id.New(),
		ChannelID:           ev.Channel,
		TriggerTS:           ev.TimeStamp,
		EnterpriseID:        claims.EnterpriseID,
		TeamID:              claims.TeamID,
		IsEnterpriseInstall: claims.IsEnterpriseInstall,
		TraceID:             logger.TraceIDFromContext(ctx),
		Attempt:             1,
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ChannelID: logger.Ptr(ev.Channel),
		RunID:     logger.Ptr(task.RunID),
	})

	if err := r.producer.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("scheduling demo conversation: %w", err)
	}
	return nil
}
