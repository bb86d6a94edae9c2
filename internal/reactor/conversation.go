package reactor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slack-go/slack"
)

// Demo workspace members the conversation is played as.
const (
	UserJenniferHynes = "jennifer_hynes"
	UserAlyssaBuron   = "alyssa_buron"
	UserAmiraValant   = "amira_valant"
)

var DemoUsernames = []string{UserJenniferHynes, UserAlyssaBuron, UserAmiraValant}

// ScriptLine is one scripted post. InThreadOf names the earlier line whose
// message this one replies to.
type ScriptLine struct {
	Key        string
	Delay      time.Duration
	As         string // demo username supplying the avatar
	Username   string // display name on the post
	Text       string
	InThreadOf string
}

// Script is the fixed demo conversation.
var Script = []ScriptLine{
	{
		Key:      "case",
		Delay:    time.Second,
		As:       UserAmiraValant,
		Username: "Amira Valant",
		Text:     "Applicant has a shut-off notice for today, meets income, but the Lease Agreement is has a missing signature from the landlord. Policy says 'Landlord Agreement required.' Can a Senior Reviewer/Supervisor approve an override with the lease, given the crisis, or do we need to contact the utility company for a hold first?",
	},
	{
		Key:      "question",
		Delay:    2 * time.Second,
		As:       UserAlyssaBuron,
		Username: "Alyssa Buron",
		Text:     "Can a Senior Reviewer/Supervisor approve an override with the lease, given the crisis, or do we need to contact the utility company for a hold first?",
	},
	{
		Key:        "answer",
		Delay:      time.Second,
		As:         UserAmiraValant,
		Username:   "Amira Valant",
		Text:       "Yes, per Sec. 3.4.1 Exception, approve with the lease and a follow-up task to get the agreement by next week. Action must be taken now. I'll flag the utility company for a 2-hour hold.",
		InThreadOf: "question",
	},
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Conversation plays Script into a channel.
type Conversation struct {
	users *DemoUserDirectory
	sleep Sleeper
}

func NewConversation(users *DemoUserDirectory, sleep Sleeper) *Conversation {
	if sleep == nil {
		sleep = sleepContext
	}
	return &Conversation{users: users, sleep: sleep}
}

// Run joins the channel, invites the demo users and posts the script.
// cacheKey scopes the demo user lookup to one installation. Any
// non-benign Slack error stops the remaining steps.
func (c *Conversation) Run(ctx context.Context, client SlackClient, channelID, cacheKey string) error {
	if err := JoinChannel(ctx, client, channelID); err != nil {
		return err
	}

	users, err := c.users.Lookup(ctx, client, cacheKey, DemoUsernames)
	if err != nil {
		return fmt.Errorf("resolving demo users: %w", err)
	}

	ids := make([]string, 0, len(users))
	for _, name := range DemoUsernames {
		if u, ok := users[name]; ok {
			ids = append(ids, u.ID)
		} else {
			slog.WarnContext(ctx, "demo user not found in workspace", "username", name)
		}
	}
	if err := InviteUsers(ctx, client, channelID, ids); err != nil {
		return err
	}

	posted := make(map[string]string, len(Script))
	for _, line := range Script {
		if err := c.sleep(ctx, line.Delay); err != nil {
			return err
		}

		opts := []slack.MsgOption{
			slack.MsgOptionText(line.Text, false),
			slack.MsgOptionUsername(line.Username),
		}
		if icon := users[line.As].Image512; icon != "" {
			opts = append(opts, slack.MsgOptionIconURL(icon))
		}
		if line.InThreadOf != "" {
			opts = append(opts, slack.MsgOptionTS(posted[line.InThreadOf]))
		}

		_, ts, err := client.PostMessageContext(ctx, channelID, opts...)
		if err != nil {
			return fmt.Errorf("posting %q line: %w", line.Key, err)
		}
		posted[line.Key] = ts
	}

	slog.InfoContext(ctx, "demo conversation posted", "messages", len(Script))
	return nil
}
