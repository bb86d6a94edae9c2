package store

import (
	"github.com/itsnaseer/slackbrix/core/db/sqlc"
)

type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Installations() InstallationStore {
	return newInstallationStore(s.queries)
}
