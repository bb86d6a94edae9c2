package service_test

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/slack-go/slack"

	"github.com/itsnaseer/slackbrix/core/config"
	"github.com/itsnaseer/slackbrix/internal/model"
	"github.com/itsnaseer/slackbrix/internal/service"
)

var _ = Describe("OAuthService", func() {
	var (
		ctx        context.Context
		mockStore  *mockInstallationStore
		mockClient *mockSlackOAuthClient
		cfg        config.SlackConfig
		svc        service.OAuthService
	)

	BeforeEach(func() {
		ctx = context.Background()
		mockStore = newMockInstallationStore()
		mockClient = &mockSlackOAuthClient{}
		cfg = config.SlackConfig{
			ClientID:    "123.456",
			StateSecret: "state-secret",
			Scopes:      []string{"chat:write", "users:read"},
		}
		svc = service.NewOAuthService(service.NewInstallationService(mockStore), mockClient, cfg)
	})

	Describe("InstallURL", func() {
		It("points at the slack authorize endpoint with a verifiable state", func() {
			raw, err := svc.InstallURL("https://demo.example.com/slack/oauthcallback")
			Expect(err).NotTo(HaveOccurred())

			u, err := url.Parse(raw)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Host).To(Equal("slack.com"))
			Expect(u.Path).To(Equal("/oauth/v2/authorize"))
			Expect(u.Query().Get("client_id")).To(Equal("123.456"))
			Expect(u.Query().Get("scope")).To(Equal("chat:write,users:read"))
			Expect(u.Query().Get("redirect_uri")).To(Equal("https://demo.example.com/slack/oauthcallback"))
			Expect(svc.VerifyState(u.Query().Get("state"))).To(Succeed())
		})
	})

	Describe("VerifyState", func() {
		sign := func(secret string, exp time.Time) string {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Issuer:    "slackbrix",
				ExpiresAt: jwt.NewNumericDate(exp),
			})
			s, err := token.SignedString([]byte(secret))
			Expect(err).NotTo(HaveOccurred())
			return s
		}

		It("rejects an empty state", func() {
			Expect(svc.VerifyState("")).To(MatchError(service.ErrInvalidState))
		})

		It("rejects a state signed with another secret", func() {
			err := svc.VerifyState(sign("other", time.Now().Add(time.Minute)))
			Expect(errors.Is(err, service.ErrInvalidState)).To(BeTrue())
		})

		It("rejects an expired state", func() {
			err := svc.VerifyState(sign("state-secret", time.Now().Add(-time.Minute)))
			Expect(errors.Is(err, service.ErrInvalidState)).To(BeTrue())
		})
	})

	Describe("HandleCallback", func() {
		It("stores the exchanged installation with the bot id from auth.test", func() {
			var gotCode, gotRedirect string
			mockClient.exchangeFn = func(_ context.Context, code, redirectURI string) (*slack.OAuthV2Response, error) {
				gotCode, gotRedirect = code, redirectURI
				return &slack.OAuthV2Response{
					AccessToken: "xoxb-new",
					TokenType:   "bot",
					Scope:       "chat:write,users:read",
					BotUserID:   "UBOT",
					AppID:       "A1",
					Team:        slack.OAuthV2ResponseTeam{ID: "T1"},
					AuthedUser:  slack.OAuthV2ResponseAuthedUser{ID: "U1"},
				}, nil
			}
			mockClient.authTestFn = func(_ context.Context, token string) (*slack.AuthTestResponse, error) {
				Expect(token).To(Equal("xoxb-new"))
				return &slack.AuthTestResponse{BotID: "B1"}, nil
			}

			rec, err := svc.HandleCallback(ctx, "code-1", "https://cb")

			Expect(err).NotTo(HaveOccurred())
			Expect(gotCode).To(Equal("code-1"))
			Expect(gotRedirect).To(Equal("https://cb"))
			Expect(rec.ID).To(Equal("T:T1"))
			Expect(*rec.BotID).To(Equal("B1"))
			Expect(*rec.InstallerUser).To(Equal("U1"))
			Expect(rec.Scopes).To(Equal([]string{"chat:write", "users:read"}))
			Expect(mockStore.rows).To(HaveKey("T:T1"))
		})

		It("stores an enterprise install under the enterprise key", func() {
			mockClient.exchangeFn = func(context.Context, string, string) (*slack.OAuthV2Response, error) {
				return &slack.OAuthV2Response{
					AccessToken:         "xoxb-org",
					IsEnterpriseInstall: true,
					Enterprise:          slack.OAuthV2ResponseEnterprise{ID: "E1"},
				}, nil
			}

			rec, err := svc.HandleCallback(ctx, "code", "")

			Expect(err).NotTo(HaveOccurred())
			Expect(rec.ID).To(Equal("E:E1"))
		})

		It("still stores the installation when auth.test fails", func() {
			mockClient.exchangeFn = func(context.Context, string, string) (*slack.OAuthV2Response, error) {
				return &slack.OAuthV2Response{AccessToken: "xoxb", Team: slack.OAuthV2ResponseTeam{ID: "T1"}}, nil
			}
			mockClient.authTestFn = func(context.Context, string) (*slack.AuthTestResponse, error) {
				return nil, errors.New("invalid_auth")
			}

			rec, err := svc.HandleCallback(ctx, "code", "")

			Expect(err).NotTo(HaveOccurred())
			Expect(rec.BotID).To(BeNil())
		})

		It("fails when the exchange fails", func() {
			mockClient.exchangeFn = func(context.Context, string, string) (*slack.OAuthV2Response, error) {
				return nil, errors.New("invalid_code")
			}

			_, err := svc.HandleCallback(ctx, "bad", "")

			Expect(errors.Is(err, service.ErrInvalidCode)).To(BeTrue())
			Expect(mockStore.upsertCalls).To(BeZero())
		})

		It("fails without a bot token and stores nothing", func() {
			mockClient.exchangeFn = func(context.Context, string, string) (*slack.OAuthV2Response, error) {
				return &slack.OAuthV2Response{Team: slack.OAuthV2ResponseTeam{ID: "T1"}}, nil
			}

			_, err := svc.HandleCallback(ctx, "code", "")

			Expect(err).To(MatchError(model.ErrMissingToken))
			Expect(mockStore.upsertCalls).To(BeZero())
		})

		It("rejects an empty code", func() {
			_, err := svc.HandleCallback(ctx, "", "")
			Expect(err).To(MatchError(service.ErrInvalidCode))
		})
	})
})
