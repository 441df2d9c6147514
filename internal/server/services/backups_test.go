package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/everkeep/internal/common"
	"github.com/dmitrijs2005/everkeep/internal/dbx"
	"github.com/dmitrijs2005/everkeep/internal/server/models"
	"github.com/dmitrijs2005/everkeep/internal/server/repositories/backups"
	"github.com/dmitrijs2005/everkeep/internal/server/repositories/ratelimits"
	"github.com/dmitrijs2005/everkeep/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------- test fakes --------

// fakeBackupsRepo mimics the conditional upsert of the Postgres repository.
type fakeBackupsRepo struct {
	backups.Repository
	rows    map[string]*models.Backup
	saveErr error
	getErr  error
	pingErr error
}

func (f *fakeBackupsRepo) Save(ctx context.Context, b *models.Backup) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if cur, ok := f.rows[b.OwnerKey]; ok && cur.ClientUpdatedAt > b.ClientUpdatedAt {
		return common.ErrVersionConflict
	}
	cp := *b
	cp.UpdatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	f.rows[b.OwnerKey] = &cp
	return nil
}

func (f *fakeBackupsRepo) Get(ctx context.Context, ownerKey string) (*models.Backup, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.rows[ownerKey]
	if !ok {
		return nil, common.ErrNotFound
	}
	return b, nil
}

func (f *fakeBackupsRepo) Ping(ctx context.Context) error { return f.pingErr }

type fakeRepoManager struct {
	repomanager.RepositoryManager
	b *fakeBackupsRepo

	migrateErrs []error
	migrations  int
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	m.migrations++
	if len(m.migrateErrs) > 0 {
		err := m.migrateErrs[0]
		m.migrateErrs = m.migrateErrs[1:]
		return err
	}
	return nil
}

func (m *fakeRepoManager) Backups(db dbx.DBTX) backups.Repository       { return m.b }
func (m *fakeRepoManager) RateLimits(db dbx.DBTX) ratelimits.Repository { return nil }

func newService(t *testing.T) (*BackupService, *fakeBackupsRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := &fakeBackupsRepo{rows: map[string]*models.Backup{}}
	s := NewBackupService(db, &fakeRepoManager{b: repo})
	s.now = func() time.Time { return time.UnixMilli(777) }
	return s, repo, mock
}

// -------- tests --------

func TestBackup_ConflictRule(t *testing.T) {
	s, repo, mock := newService(t)
	ctx := context.Background()

	repo.rows["owner"] = &models.Backup{OwnerKey: "owner", State: json.RawMessage(`{"old":true}`), ClientUpdatedAt: 100}

	mock.ExpectBegin()
	mock.ExpectCommit()
	res, err := s.Backup(ctx, "owner", json.RawMessage(`{"memories":[]}`), 50)
	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, res.Status)
	assert.Equal(t, int64(100), res.ServerClientUpdatedAt)
	assert.JSONEq(t, `{"old":true}`, string(repo.rows["owner"].State))

	mock.ExpectBegin()
	mock.ExpectCommit()
	res, err = s.Backup(ctx, "owner", json.RawMessage(`{"memories":[]}`), 150)
	require.NoError(t, err)
	assert.Equal(t, StatusSaved, res.Status)
	assert.Equal(t, int64(150), res.ClientUpdatedAt)
	assert.Equal(t, int64(150), repo.rows["owner"].ClientUpdatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBackup_EqualTimestampOverwrites(t *testing.T) {
	s, repo, mock := newService(t)
	repo.rows["k"] = &models.Backup{OwnerKey: "k", State: json.RawMessage(`{}`), ClientUpdatedAt: 100}

	mock.ExpectBegin()
	mock.ExpectCommit()
	res, err := s.Backup(context.Background(), "k", json.RawMessage(`{"flags":{"a":true}}`), 100)
	require.NoError(t, err)
	assert.Equal(t, StatusSaved, res.Status)
}

func TestBackup_DefaultsClientUpdatedAt(t *testing.T) {
	s, repo, mock := newService(t)

	mock.ExpectBegin()
	mock.ExpectCommit()
	res, err := s.Backup(context.Background(), "k", json.RawMessage(`{}`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(777), res.ClientUpdatedAt)
	assert.Equal(t, int64(777), repo.rows["k"].ClientUpdatedAt)
}

func TestBackup_ValidationErrors(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	_, err := s.Backup(ctx, "", json.RawMessage(`{}`), 1)
	assert.ErrorIs(t, err, common.ErrMissingOwnerKey)

	_, err = s.Backup(ctx, "k", json.RawMessage(`null`), 1)
	assert.ErrorIs(t, err, common.ErrInvalidState)
}

func TestBackup_StorageErrorRollsBack(t *testing.T) {
	s, repo, mock := newService(t)
	repo.saveErr = errors.New("db error: connection reset")

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := s.Backup(context.Background(), "k", json.RawMessage(`{}`), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBackup_BeginError(t *testing.T) {
	s, _, mock := newService(t)

	mock.ExpectBegin().WillReturnError(sql.ErrConnDone)
	_, err := s.Backup(context.Background(), "k", json.RawMessage(`{}`), 1)
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestRestore(t *testing.T) {
	s, repo, _ := newService(t)
	ctx := context.Background()

	res, err := s.Restore(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, res.State)

	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	repo.rows["k"] = &models.Backup{OwnerKey: "k", State: json.RawMessage(`{"memories":[]}`), ClientUpdatedAt: 42, UpdatedAt: ts}
	res, err = s.Restore(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"memories":[]}`, string(res.State))
	assert.Equal(t, int64(42), res.ClientUpdatedAt)
	assert.Equal(t, ts, res.ServerUpdatedAt)

	_, err = s.Restore(ctx, "")
	assert.ErrorIs(t, err, common.ErrMissingOwnerKey)

	repo.getErr = errors.New("db error: timeout")
	_, err = s.Restore(ctx, "k")
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
}

func TestPing(t *testing.T) {
	s, repo, _ := newService(t)
	require.NoError(t, s.Ping(context.Background()))

	repo.pingErr = errors.New("refused")
	assert.ErrorIs(t, s.Ping(context.Background()), common.ErrStorageUnavailable)
}

func TestEnsureSchema_RetriesUntilMigrated(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()

	rm := s.repomanager.(*fakeRepoManager)
	rm.migrateErrs = []error{errors.New("connection refused")}

	err := s.Ping(ctx)
	require.ErrorIs(t, err, common.ErrStorageUnavailable)

	_, err = s.Restore(ctx, "owner")
	require.NoError(t, err)
	require.NoError(t, s.Ping(ctx))

	assert.Equal(t, 2, rm.migrations)
}
