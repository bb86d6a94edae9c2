package queue

type TaskType string

const (
	TaskTypeDemoConversation TaskType = "demo_conversation"
)

// DemoTask asks the worker to play the scripted conversation in one channel.
// The identity claims travel with the task so the worker re-authorizes it
// with whatever installation exists when the job runs.
type DemoTask struct {
	RunID               int64
	ChannelID           string
	TriggerTS           string
	EnterpriseID        string
	TeamID              string
	IsEnterpriseInstall bool
	TraceID             string
	Attempt             int
}
