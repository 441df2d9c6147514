package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/everkeep/internal/dbx"
	"github.com/dmitrijs2005/everkeep/internal/server/repositories/backups"
	"github.com/dmitrijs2005/everkeep/internal/server/repositories/ratelimits"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Backups(db dbx.DBTX) backups.Repository
	RateLimits(db dbx.DBTX) ratelimits.Repository
}
