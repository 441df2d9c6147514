// Package backups persists one snapshot row per owner key.
package backups

import (
	"context"

	"github.com/dmitrijs2005/everkeep/internal/server/models"
)

type Repository interface {
	// Get returns common.ErrNotFound when no row exists for ownerKey.
	Get(ctx context.Context, ownerKey string) (*models.Backup, error)
	// Save inserts or replaces the row for b.OwnerKey unless the stored
	// client_updated_at is newer, in which case it returns
	// common.ErrVersionConflict and leaves the row untouched.
	Save(ctx context.Context, b *models.Backup) error
	Ping(ctx context.Context) error
}
