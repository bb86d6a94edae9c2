package webhook_test

import (
	"context"
	"fmt"

	"github.com/slack-go/slack/slackevents"

	"github.com/itsnaseer/slackbrix/internal/model"
	"github.com/itsnaseer/slackbrix/internal/reactor"
	"github.com/itsnaseer/slackbrix/internal/service"
	"github.com/itsnaseer/slackbrix/internal/store"
)

type fakeAuthorizer struct {
	err    error
	claims []model.IdentityClaims
}

func (f *fakeAuthorizer) Authorize(_ context.Context, claims model.IdentityClaims) (*model.Authorization, error) {
	f.claims = append(f.claims, claims)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Authorization{
		BotToken:     "xoxb-test",
		BotUserID:    "UBOT",
		EnterpriseID: claims.EnterpriseID,
		TeamID:       claims.TeamID,
	}, nil
}

func notAuthorized() error {
	return fmt.Errorf("%w: %w", service.ErrNotAuthorized, store.ErrNotFound)
}

type fakeInstallations struct {
	deleted   []model.InstallationQuery
	deleteErr error
}

func (f *fakeInstallations) StoreInstallation(context.Context, *model.Installation) (*model.InstallationRecord, error) {
	return nil, nil
}

func (f *fakeInstallations) FetchInstallation(context.Context, model.InstallationQuery) (*model.InstallationRecord, error) {
	return nil, store.ErrNotFound
}

func (f *fakeInstallations) DeleteInstallation(_ context.Context, query model.InstallationQuery) error {
	f.deleted = append(f.deleted, query)
	return f.deleteErr
}

func (f *fakeInstallations) ListInstallations(context.Context, int32, int32) ([]model.InstallationRecord, error) {
	return nil, nil
}

type fakeDeduper struct {
	seen     map[string]bool
	err      error
	released []string
}

func newFakeDeduper() *fakeDeduper {
	return &fakeDeduper{seen: map[string]bool{}}
}

func (f *fakeDeduper) FirstSeen(_ context.Context, eventID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[eventID] {
		return false, nil
	}
	f.seen[eventID] = true
	return true, nil
}

func (f *fakeDeduper) Release(_ context.Context, eventID string) error {
	delete(f.seen, eventID)
	f.released = append(f.released, eventID)
	return nil
}

type fakeReactor struct {
	trigger       string
	created       []*slackevents.ChannelCreatedEvent
	createdTokens []string
	helped        []model.IdentityClaims
	helpErr       error
}

func (f *fakeReactor) IsHelpRequest(ev *slackevents.MessageEvent) bool {
	return ev.SubType == "" && ev.BotID == "" && ev.Text == f.trigger
}

func (f *fakeReactor) OnChannelCreated(_ context.Context, client reactor.SlackClient, ev *slackevents.ChannelCreatedEvent) error {
	f.created = append(f.created, ev)
	f.createdTokens = append(f.createdTokens, client.(*tokenClient).token)
	return nil
}

func (f *fakeReactor) OnHelpRequested(_ context.Context, claims model.IdentityClaims, _ *slackevents.MessageEvent) error {
	f.helped = append(f.helped, claims)
	return f.helpErr
}

// tokenClient only remembers which token it was built with.
type tokenClient struct {
	reactor.SlackClient
	token string
}

func tokenFactory(token string) reactor.SlackClient {
	return &tokenClient{token: token}
}

var _ reactor.ClientFactory = tokenFactory
