package reactor

import (
	"context"
	"net/http"

	"github.com/slack-go/slack"
)

// SlackClient is the subset of *slack.Client the reactor calls.
type SlackClient interface {
	JoinConversationContext(ctx context.Context, channelID string) (*slack.Channel, string, []string, error)
	InviteUsersToConversationContext(ctx context.Context, channelID string, users ...string) (*slack.Channel, error)
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) ([]slack.User, error)
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// ClientFactory builds a client bound to one installation's bot token.
type ClientFactory func(token string) SlackClient

// NewClientFactory returns a factory for slack-go clients. An empty apiURL
// keeps the slack-go default endpoint.
func NewClientFactory(apiURL string, httpClient *http.Client) ClientFactory {
	return func(token string) SlackClient {
		opts := []slack.Option{}
		if httpClient != nil {
			opts = append(opts, slack.OptionHTTPClient(httpClient))
		}
		if apiURL != "" {
			opts = append(opts, slack.OptionAPIURL(apiURL))
		}
		return slack.New(token, opts...)
	}
}
