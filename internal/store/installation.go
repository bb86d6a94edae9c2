package store

import (
	"context"
	"errors"
	"time"

	"github.com/itsnaseer/slackbrix/core/db/sqlc"
	"github.com/itsnaseer/slackbrix/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type installationStore struct {
	queries *sqlc.Queries
}

func newInstallationStore(queries *sqlc.Queries) InstallationStore {
	return &installationStore{queries: queries}
}

func (s *installationStore) GetByID(ctx context.Context, id string) (*model.InstallationRecord, error) {
	row, err := s.queries.GetInstallation(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toInstallationModel(row), nil
}

func (s *installationStore) Upsert(ctx context.Context, rec *model.InstallationRecord) error {
	row, err := s.queries.UpsertInstallation(ctx, toUpsertParams(rec))
	if err != nil {
		return err
	}
	*rec = *toInstallationModel(row)
	return nil
}

func (s *installationStore) Delete(ctx context.Context, id string) error {
	return s.queries.DeleteInstallation(ctx, id)
}

func (s *installationStore) List(ctx context.Context, limit, offset int32) ([]model.InstallationRecord, error) {
	rows, err := s.queries.ListInstallations(ctx, sqlc.ListInstallationsParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}

	result := make([]model.InstallationRecord, len(rows))
	for i, row := range rows {
		result[i] = *toInstallationModel(row)
	}
	return result, nil
}

func toUpsertParams(rec *model.InstallationRecord) sqlc.UpsertInstallationParams {
	tokenType := rec.TokenType
	if tokenType == "" {
		tokenType = model.DefaultTokenType
	}
	return sqlc.UpsertInstallationParams{
		ID:            rec.ID,
		EnterpriseID:  rec.EnterpriseID,
		TeamID:        rec.TeamID,
		BotToken:      rec.BotToken,
		BotID:         rec.BotID,
		BotUserID:     rec.BotUserID,
		InstallerUser: rec.InstallerUser,
		Scope:         model.JoinScopes(rec.Scopes),
		AppID:         rec.AppID,
		TokenType:     tokenType,
	}
}

func toInstallationModel(row sqlc.Installation) *model.InstallationRecord {
	return &model.InstallationRecord{
		ID:            row.ID,
		EnterpriseID:  row.EnterpriseID,
		TeamID:        row.TeamID,
		BotToken:      row.BotToken,
		BotID:         row.BotID,
		BotUserID:     row.BotUserID,
		InstallerUser: row.InstallerUser,
		Scopes:        model.SplitScopes(row.Scope),
		AppID:         row.AppID,
		TokenType:     row.TokenType,
		CreatedAt:     fromTimestamptz(row.CreatedAt),
		UpdatedAt:     fromTimestamptz(row.UpdatedAt),
	}
}

func fromTimestamptz(ts pgtype.Timestamptz) time.Time {
	if !ts.Valid {
		return time.Time{}
	}
	return ts.Time
}
