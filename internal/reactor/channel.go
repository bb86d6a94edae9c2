package reactor

import (
	"context"
	"fmt"
	"log/slog"
)

// JoinChannel adds the bot to channelID. Already being a member, or a channel
// type that cannot be joined, counts as success.
func JoinChannel(ctx context.Context, client SlackClient, channelID string) error {
	_, _, _, err := client.JoinConversationContext(ctx, channelID)
	if err == nil {
		return nil
	}
	if IsBenign(err, joinBenignCodes...) {
		slog.DebugContext(ctx, "join skipped", "channel_id", channelID, "code", ErrorCode(err))
		return nil
	}
	return fmt.Errorf("joining channel %s: %w", channelID, err)
}

// InviteUsers invites each user separately so one benign refusal does not
// stop the rest. A non-benign error aborts.
func InviteUsers(ctx context.Context, client SlackClient, channelID string, userIDs []string) error {
	for _, userID := range userIDs {
		_, err := client.InviteUsersToConversationContext(ctx, channelID, userID)
		if err == nil {
			continue
		}
		if IsBenign(err, inviteBenignCodes...) {
			slog.InfoContext(ctx, "demo user could not be added to channel",
				"user_id", userID,
				"code", ErrorCode(err))
			continue
		}
		return fmt.Errorf("inviting %s to %s: %w", userID, channelID, err)
	}
	return nil
}
