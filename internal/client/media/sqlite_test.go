package media

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/everkeep/internal/client/migrations"
	"github.com/dmitrijs2005/everkeep/internal/common"
	"github.com/dmitrijs2005/everkeep/internal/dbx"
	"github.com/dmitrijs2005/everkeep/internal/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "media.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, dbx.Migrate(context.Background(), db, "sqlite3", migrations.Migrations))
	return db
}

func TestSQLiteStore_PutGetDelete(t *testing.T) {
	s := NewSQLiteStore(setupDB(t))
	ctx := context.Background()

	ref, err := s.Put(ctx, []byte("jpegbytes"), journal.MediaRef{Kind: "photo", Name: "beach.jpg", Type: "image/jpeg"})
	require.NoError(t, err)
	assert.Regexp(t, `^media_[0-9a-f]{8}$`, ref.ID)
	assert.Equal(t, int64(9), ref.Size)

	blob, err := s.Get(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, ref, blob.Ref)
	assert.Equal(t, []byte("jpegbytes"), blob.Data)

	require.NoError(t, s.Delete(ctx, ref.ID))
	_, err = s.Get(ctx, ref.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "media_unknown"))
}

func TestSQLiteStore_PutKeepsGivenID(t *testing.T) {
	s := NewSQLiteStore(setupDB(t))
	ctx := context.Background()

	ref, err := s.Put(ctx, []byte("a"), journal.MediaRef{ID: "media_fixed", Kind: "audio"})
	require.NoError(t, err)
	assert.Equal(t, "media_fixed", ref.ID)

	ref, err = s.Put(ctx, []byte("abc"), journal.MediaRef{ID: "media_fixed", Kind: "audio"})
	require.NoError(t, err)

	blob, err := s.Get(ctx, "media_fixed")
	require.NoError(t, err)
	assert.Equal(t, int64(3), blob.Ref.Size)
	assert.Equal(t, []byte("abc"), blob.Data)
}
