package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/slack-go/slack"

	"github.com/itsnaseer/slackbrix/core/config"
	"github.com/itsnaseer/slackbrix/internal/model"
)

const (
	slackAuthorizeURL = "https://slack.com/oauth/v2/authorize"
	stateIssuer       = "slackbrix"
	stateTTL          = 10 * time.Minute
)

var (
	ErrInvalidState = errors.New("invalid oauth state")
	ErrInvalidCode  = errors.New("invalid authorization code")
)

// SlackOAuthClient is the part of the Slack Web API the install flow calls.
type SlackOAuthClient interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (*slack.OAuthV2Response, error)
	AuthTest(ctx context.Context, token string) (*slack.AuthTestResponse, error)
}

type OAuthService interface {
	InstallURL(redirectURI string) (string, error)
	VerifyState(state string) error
	HandleCallback(ctx context.Context, code, redirectURI string) (*model.InstallationRecord, error)
}

type oauthService struct {
	installations InstallationService
	client        SlackOAuthClient
	cfg           config.SlackConfig
	now           func() time.Time
}

func NewOAuthService(installations InstallationService, client SlackOAuthClient, cfg config.SlackConfig) OAuthService {
	return &oauthService{
		installations: installations,
		client:        client,
		cfg:           cfg,
		now:           time.Now,
	}
}

// InstallURL builds the Slack authorize URL with a freshly signed state.
func (s *oauthService) InstallURL(redirectURI string) (string, error) {
	state, err := s.newState()
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("client_id", s.cfg.ClientID)
	q.Set("scope", strings.Join(s.cfg.Scopes, ","))
	q.Set("state", state)
	if redirectURI != "" {
		q.Set("redirect_uri", redirectURI)
	}
	return slackAuthorizeURL + "?" + q.Encode(), nil
}

func (s *oauthService) newState() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating state nonce: %w", err)
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		ID:        hex.EncodeToString(nonce),
		Issuer:    stateIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.StateSecret))
	if err != nil {
		return "", fmt.Errorf("signing state: %w", err)
	}
	return signed, nil
}

func (s *oauthService) VerifyState(state string) error {
	if state == "" {
		return ErrInvalidState
	}

	_, err := jwt.ParseWithClaims(state, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return []byte(s.cfg.StateSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return nil
}

// HandleCallback exchanges the code, resolves the bot id and stores the installation.
func (s *oauthService) HandleCallback(ctx context.Context, code, redirectURI string) (*model.InstallationRecord, error) {
	if code == "" {
		return nil, ErrInvalidCode
	}

	resp, err := s.client.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		slog.ErrorContext(ctx, "slack oauth exchange failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidCode, err)
	}

	inst := installationFromOAuth(resp)

	if inst.Bot.Token != "" {
		auth, err := s.client.AuthTest(ctx, inst.Bot.Token)
		if err != nil {
			// bot id is optional in the record
			slog.WarnContext(ctx, "auth.test failed after install", "error", err)
		} else {
			inst.Bot.ID = auth.BotID
		}
	}

	return s.installations.StoreInstallation(ctx, inst)
}

func installationFromOAuth(resp *slack.OAuthV2Response) *model.Installation {
	return &model.Installation{
		IsEnterpriseInstall: resp.IsEnterpriseInstall,
		EnterpriseID:        resp.Enterprise.ID,
		TeamID:              resp.Team.ID,
		AppID:               resp.AppID,
		TokenType:           resp.TokenType,
		InstallerUserID:     resp.AuthedUser.ID,
		Bot: model.InstallationBot{
			Token:  resp.AccessToken,
			UserID: resp.BotUserID,
			Scopes: config.ParseScopes(resp.Scope),
		},
	}
}

type slackOAuthClient struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	apiURL       string
}

// NewSlackOAuthClient returns the slack-go backed SlackOAuthClient.
func NewSlackOAuthClient(cfg config.SlackConfig) SlackOAuthClient {
	return &slackOAuthClient{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		apiURL:       cfg.APIURL,
	}
}

func (c *slackOAuthClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*slack.OAuthV2Response, error) {
	doer := &apiURLDoer{client: c.httpClient, apiURL: c.apiURL}
	return slack.GetOAuthV2ResponseContext(ctx, doer, c.clientID, c.clientSecret, code, redirectURI)
}

// apiURLDoer points slack-go's package-level OAuth calls, which always target
// slack.APIURL, at the configured SLACK_API_URL instead.
type apiURLDoer struct {
	client *http.Client
	apiURL string
}

func (d *apiURLDoer) Do(req *http.Request) (*http.Response, error) {
	if d.apiURL == "" {
		return d.client.Do(req)
	}
	method, ok := strings.CutPrefix(req.URL.String(), slack.APIURL)
	if !ok {
		return d.client.Do(req)
	}
	target, err := url.Parse(strings.TrimSuffix(d.apiURL, "/") + "/" + method)
	if err != nil {
		return nil, fmt.Errorf("rewriting slack api url: %w", err)
	}
	req.URL = target
	req.Host = target.Host
	return d.client.Do(req)
}

func (c *slackOAuthClient) AuthTest(ctx context.Context, token string) (*slack.AuthTestResponse, error) {
	opts := []slack.Option{slack.OptionHTTPClient(c.httpClient)}
	if c.apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(c.apiURL))
	}
	return slack.New(token, opts...).AuthTestContext(ctx)
}
