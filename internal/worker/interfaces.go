package worker

import (
	"context"

	"github.com/itsnaseer/slackbrix/internal/model"
	"github.com/itsnaseer/slackbrix/internal/queue"
	"github.com/itsnaseer/slackbrix/internal/reactor"
)

// Consumer abstracts the message queue for testability.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

// Authorizer mirrors service.Authorizer.
type Authorizer interface {
	Authorize(ctx context.Context, claims model.IdentityClaims) (*model.Authorization, error)
}

// ConversationRunner plays the demo script into one channel.
type ConversationRunner interface {
	Run(ctx context.Context, client reactor.SlackClient, channelID, cacheKey string) error
}
