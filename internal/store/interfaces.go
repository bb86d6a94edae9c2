package store

import (
	"context"
	"errors"

	"github.com/itsnaseer/slackbrix/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// InstallationStore defines the contract for installation data access.
// Records are addressed by their derived key ("E:<enterprise>" or "T:<team>").
type InstallationStore interface {
	GetByID(ctx context.Context, id string) (*model.InstallationRecord, error)
	Upsert(ctx context.Context, rec *model.InstallationRecord) error
	Delete(ctx context.Context, id string) error // no-op when absent
	List(ctx context.Context, limit, offset int32) ([]model.InstallationRecord, error)
}
