// Package services holds the server's business logic on top of the
// repositories.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/common"
	"github.com/dmitrijs2005/everkeep/internal/dbx"
	"github.com/dmitrijs2005/everkeep/internal/server/models"
	"github.com/dmitrijs2005/everkeep/internal/server/repositories/repomanager"
)

const (
	StatusSaved   = "saved"
	StatusIgnored = "ignored"
)

// BackupResult reports the outcome of a backup. ServerClientUpdatedAt is
// set only when the write was ignored as stale.
type BackupResult struct {
	Status                string
	ClientUpdatedAt       int64
	ServerClientUpdatedAt int64
}

// RestoreResult holds the stored snapshot. State is nil when the owner key
// has never been backed up.
type RestoreResult struct {
	State           json.RawMessage
	ClientUpdatedAt int64
	ServerUpdatedAt time.Time
}

type BackupService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time

	schemaMu    sync.Mutex
	schemaReady bool
}

func NewBackupService(db *sql.DB, repomanager repomanager.RepositoryManager) *BackupService {
	return &BackupService{
		db:          db,
		repomanager: repomanager,
		now:         time.Now,
	}
}

func storageErr(err error) error {
	return fmt.Errorf("%w: %w", common.ErrStorageUnavailable, err)
}

// EnsureSchema applies the migrations. Until one attempt succeeds every
// request retries it, so a database that was down at startup is migrated
// once it comes back.
func (s *BackupService) EnsureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if s.schemaReady {
		return nil
	}
	if err := s.repomanager.RunMigrations(ctx, s.db); err != nil {
		return storageErr(err)
	}
	s.schemaReady = true
	return nil
}

// Ping verifies the database is reachable.
func (s *BackupService) Ping(ctx context.Context) error {
	if err := s.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := s.repomanager.Backups(s.db).Ping(ctx); err != nil {
		return storageErr(err)
	}
	return nil
}

// Backup sanitizes state and stores it unless the stored snapshot carries a
// newer clientUpdatedAt. A non-positive clientUpdatedAt means "now".
func (s *BackupService) Backup(ctx context.Context, ownerKey string, state json.RawMessage, clientUpdatedAt int64) (*BackupResult, error) {
	if ownerKey == "" {
		return nil, common.ErrMissingOwnerKey
	}

	clean, err := SanitizeState(state)
	if err != nil {
		return nil, err
	}

	if clientUpdatedAt <= 0 {
		clientUpdatedAt = s.now().UnixMilli()
	}

	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	res := &BackupResult{}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Backups(tx)

		err := repo.Save(ctx, &models.Backup{
			OwnerKey:        ownerKey,
			State:           clean,
			ClientUpdatedAt: clientUpdatedAt,
		})
		if err == nil {
			res.Status = StatusSaved
			res.ClientUpdatedAt = clientUpdatedAt
			return nil
		}
		if !errors.Is(err, common.ErrVersionConflict) {
			return err
		}

		existing, err := repo.Get(ctx, ownerKey)
		if err != nil {
			return err
		}
		res.Status = StatusIgnored
		res.ServerClientUpdatedAt = existing.ClientUpdatedAt
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}

	return res, nil
}

// Restore returns the stored snapshot for ownerKey.
func (s *BackupService) Restore(ctx context.Context, ownerKey string) (*RestoreResult, error) {
	if ownerKey == "" {
		return nil, common.ErrMissingOwnerKey
	}

	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	b, err := s.repomanager.Backups(s.db).Get(ctx, ownerKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return &RestoreResult{}, nil
		}
		return nil, storageErr(err)
	}

	return &RestoreResult{
		State:           b.State,
		ClientUpdatedAt: b.ClientUpdatedAt,
		ServerUpdatedAt: b.UpdatedAt,
	}, nil
}
