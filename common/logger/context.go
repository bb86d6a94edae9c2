package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are added to every log record written with a context carrying them.
type LogFields struct {
	InstallationID *string // derived key, "E:..." or "T:..."
	EnterpriseID   *string
	TeamID         *string
	EventID        *string // Slack event_id
	EventType      *string // inner event type, e.g. "message"
	ChannelID      *string
	MessageID      *string // Redis stream message ID
	RunID          *int64  // demo conversation run
	Component      string  // e.g. "slackbrix.worker"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, newer non-nil values win.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := mergeFields(GetLogFields(ctx), fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.InstallationID != nil {
		result.InstallationID = next.InstallationID
	}
	if next.EnterpriseID != nil {
		result.EnterpriseID = next.EnterpriseID
	}
	if next.TeamID != nil {
		result.TeamID = next.TeamID
	}
	if next.EventID != nil {
		result.EventID = next.EventID
	}
	if next.EventType != nil {
		result.EventType = next.EventType
	}
	if next.ChannelID != nil {
		result.ChannelID = next.ChannelID
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.RunID != nil {
		result.RunID = next.RunID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
func Ptr[T any](v T) *T {
	return &v
}

// Truncate cuts s to maxLen bytes and appends "...".
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
