package reactor_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/itsnaseer/slackbrix/internal/model"
	"github.com/itsnaseer/slackbrix/internal/reactor"
)

var _ = Describe("Reactor", func() {
	var (
		ctx      context.Context
		producer *fakeProducer
		r        *reactor.Reactor
	)

	BeforeEach(func() {
		ctx = context.Background()
		producer = &fakeProducer{}
		r = reactor.New(producer, "I need help.")
	})

	DescribeTable("IsHelpRequest",
		func(ev *slackevents.MessageEvent, want bool) {
			Expect(r.IsHelpRequest(ev)).To(Equal(want))
		},
		Entry("exact trigger", &slackevents.MessageEvent{Text: "I need help."}, true),
		Entry("trigger inside a longer message", &slackevents.MessageEvent{Text: "hey, I need help. with a case"}, true),
		Entry("different text", &slackevents.MessageEvent{Text: "I need help"}, false),
		Entry("edited message", &slackevents.MessageEvent{Text: "I need help.", SubType: "message_changed"}, false),
		Entry("bot message", &slackevents.MessageEvent{Text: "I need help.", BotID: "B1"}, false),
		Entry("nil event", nil, false),
	)

	Describe("OnHelpRequested", func() {
		It("enqueues a demo run carrying the identity claims", func() {
			claims := model.IdentityClaims{EnterpriseID: "E1", TeamID: "T1", IsEnterpriseInstall: true}
			ev := &slackevents.MessageEvent{Channel: "C1", TimeStamp: "1700000000.000100", Text: "I need help."}

			Expect(r.OnHelpRequested(ctx, claims, ev)).To(Succeed())

			Expect(producer.tasks).To(HaveLen(1))
			task := producer.tasks[0]
			Expect(task.RunID).NotTo(BeZero())
			Expect(task.ChannelID).To(Equal("C1"))
			Expect(task.TriggerTS).To(Equal("1700000000.000100"))
			Expect(task.EnterpriseID).To(Equal("E1"))
			Expect(task.TeamID).To(Equal("T1"))
			Expect(task.IsEnterpriseInstall).To(BeTrue())
			Expect(task.Attempt).To(Equal(1))
		})

		It("reports enqueue failures", func() {
			producer.err = errors.New("redis down")

			err := r.OnHelpRequested(ctx, model.IdentityClaims{TeamID: "T1"}, &slackevents.MessageEvent{Channel: "C1"})

			Expect(err).To(MatchError(ContainSubstring("redis down")))
		})
	})

	Describe("OnChannelCreated", func() {
		ev := &slackevents.ChannelCreatedEvent{Channel: slackevents.ChannelCreatedInfo{ID: "C9", Name: "new-case"}}

		It("joins the new channel", func() {
			client := &fakeSlackClient{}
			Expect(r.OnChannelCreated(ctx, client, ev)).To(Succeed())
			Expect(client.joined).To(Equal([]string{"C9"}))
		})

		It("swallows benign join refusals", func() {
			client := &fakeSlackClient{joinErr: slack.SlackErrorResponse{Err: "method_not_supported_for_channel_type"}}
			Expect(r.OnChannelCreated(ctx, client, ev)).To(Succeed())
		})

		It("returns other join errors", func() {
			client := &fakeSlackClient{joinErr: slack.SlackErrorResponse{Err: "is_archived"}}
			Expect(r.OnChannelCreated(ctx, client, ev)).NotTo(Succeed())
		})
	})
})
