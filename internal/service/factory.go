package service

import (
	"github.com/itsnaseer/slackbrix/core/config"
	"github.com/itsnaseer/slackbrix/internal/store"
)

type Services struct {
	stores      *store.Stores
	slackCfg    config.SlackConfig
	oauthClient SlackOAuthClient
}

func NewServices(stores *store.Stores, slackCfg config.SlackConfig) *Services {
	return &Services{
		stores:      stores,
		slackCfg:    slackCfg,
		oauthClient: NewSlackOAuthClient(slackCfg),
	}
}

func (s *Services) Installations() InstallationService {
	return NewInstallationService(s.stores.Installations())
}

func (s *Services) Authorizer() Authorizer {
	return NewAuthorizer(s.Installations())
}

func (s *Services) OAuth() OAuthService {
	return NewOAuthService(s.Installations(), s.oauthClient, s.slackCfg)
}
