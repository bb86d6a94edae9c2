package reactor

import (
	"errors"
	"slices"

	"github.com/slack-go/slack"
)

// Slack Web API error codes treated as success for idempotent channel actions.
const (
	CodeAlreadyInChannel   = "already_in_channel"
	CodeMethodNotSupported = "method_not_supported_for_channel_type"
	CodeCantInviteSelf     = "cant_invite_self"
)

var (
	joinBenignCodes   = []string{CodeAlreadyInChannel, CodeMethodNotSupported}
	inviteBenignCodes = []string{CodeAlreadyInChannel, CodeMethodNotSupported, CodeCantInviteSelf}
)

// ErrorCode extracts the Slack error code from err, or "" if err is not a Slack API error.
func ErrorCode(err error) string {
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return slackErr.Err
	}
	var slackErrPtr *slack.SlackErrorResponse
	if errors.As(err, &slackErrPtr) && slackErrPtr != nil {
		return slackErrPtr.Err
	}
	return ""
}

// IsBenign reports whether err is a Slack API error whose code is one of codes.
func IsBenign(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	code := ErrorCode(err)
	return code != "" && slices.Contains(codes, code)
}
