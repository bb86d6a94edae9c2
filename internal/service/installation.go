package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/itsnaseer/slackbrix/internal/model"
	"github.com/itsnaseer/slackbrix/internal/store"
)

type InstallationService interface {
	StoreInstallation(ctx context.Context, inst *model.Installation) (*model.InstallationRecord, error)
	FetchInstallation(ctx context.Context, query model.InstallationQuery) (*model.InstallationRecord, error)
	DeleteInstallation(ctx context.Context, query model.InstallationQuery) error
	ListInstallations(ctx context.Context, limit, offset int32) ([]model.InstallationRecord, error)
}

type installationService struct {
	installations store.InstallationStore
}

func NewInstallationService(installations store.InstallationStore) InstallationService {
	return &installationService{installations: installations}
}

// StoreInstallation validates the payload and upserts it under its derived key.
// Nothing is written when validation fails.
func (s *installationService) StoreInstallation(ctx context.Context, inst *model.Installation) (*model.InstallationRecord, error) {
	if inst == nil {
		return nil, model.ErrMissingToken
	}

	rec, err := inst.Record()
	if err != nil {
		return nil, err
	}

	if err := s.installations.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("storing installation %s: %w", rec.ID, err)
	}

	slog.InfoContext(ctx, "installation stored",
		"installation_id", rec.ID,
		"enterprise_install", rec.IsEnterpriseInstall(),
		"scopes", len(rec.Scopes))

	return rec, nil
}

// FetchInstallation looks up the enterprise key first when the query is an
// enterprise install, then the team key. store.ErrNotFound is returned when
// neither key applies or no row exists.
func (s *installationService) FetchInstallation(ctx context.Context, query model.InstallationQuery) (*model.InstallationRecord, error) {
	for _, key := range fetchKeys(query) {
		rec, err := s.installations.GetByID(ctx, key)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("fetching installation %s: %w", key, err)
		}
	}
	return nil, store.ErrNotFound
}

// DeleteInstallation removes the enterprise row when an enterprise id is given,
// otherwise the team row. A query with neither is a no-op.
func (s *installationService) DeleteInstallation(ctx context.Context, query model.InstallationQuery) error {
	var key string
	switch {
	case query.EnterpriseID != "":
		key = model.EnterpriseKey(query.EnterpriseID)
	case query.TeamID != "":
		key = model.TeamKey(query.TeamID)
	default:
		return nil
	}

	if err := s.installations.Delete(ctx, key); err != nil {
		return fmt.Errorf("deleting installation %s: %w", key, err)
	}

	slog.InfoContext(ctx, "installation deleted", "installation_id", key)
	return nil
}

func (s *installationService) ListInstallations(ctx context.Context, limit, offset int32) ([]model.InstallationRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.installations.List(ctx, limit, offset)
}

func fetchKeys(query model.InstallationQuery) []string {
	keys := make([]string, 0, 2)
	if query.IsEnterpriseInstall && query.EnterpriseID != "" {
		keys = append(keys, model.EnterpriseKey(query.EnterpriseID))
	}
	if query.TeamID != "" {
		keys = append(keys, model.TeamKey(query.TeamID))
	}
	return keys
}
