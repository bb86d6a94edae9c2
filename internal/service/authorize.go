package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/itsnaseer/slackbrix/internal/model"
	"github.com/itsnaseer/slackbrix/internal/store"
)

// ErrNotAuthorized wraps store.ErrNotFound when no installation matches an event.
var ErrNotAuthorized = errors.New("no installation for event")

type Authorizer interface {
	Authorize(ctx context.Context, claims model.IdentityClaims) (*model.Authorization, error)
}

type authorizer struct {
	installations InstallationService
}

func NewAuthorizer(installations InstallationService) Authorizer {
	return &authorizer{installations: installations}
}

func (a *authorizer) Authorize(ctx context.Context, claims model.IdentityClaims) (*model.Authorization, error) {
	rec, err := a.installations.FetchInstallation(ctx, claims)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotAuthorized, err)
		}
		return nil, fmt.Errorf("authorizing event: %w", err)
	}

	return &model.Authorization{
		BotToken:     rec.BotToken,
		BotID:        deref(rec.BotID),
		BotUserID:    deref(rec.BotUserID),
		EnterpriseID: deref(rec.EnterpriseID),
		TeamID:       deref(rec.TeamID),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
