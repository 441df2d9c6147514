package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/common"
	"github.com/dmitrijs2005/everkeep/internal/dbx"
	"github.com/dmitrijs2005/everkeep/internal/journal"
)

// SQLiteStore keeps blobs in the local database next to the document.
type SQLiteStore struct {
	db dbx.DBTX
}

func NewSQLiteStore(db dbx.DBTX) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Put(ctx context.Context, data []byte, ref journal.MediaRef) (journal.MediaRef, error) {
	ref = prepare(data, ref)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO media (id, kind, name, type, size, data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind, name = excluded.name, type = excluded.type,
			size = excluded.size, data = excluded.data
	`, ref.ID, ref.Kind, ref.Name, ref.Type, ref.Size, data, time.Now().UnixMilli())
	if err != nil {
		return journal.MediaRef{}, fmt.Errorf("failed to put media[%s]: %w", ref.ID, err)
	}
	return ref, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Blob, error) {
	b := &Blob{}
	err := s.db.QueryRowContext(ctx, `SELECT id, kind, name, type, size, data FROM media WHERE id = ?`, id).
		Scan(&b.Ref.ID, &b.Ref.Kind, &b.Ref.Name, &b.Ref.Type, &b.Ref.Size, &b.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media[%s]: %w", id, err)
	}
	return b, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete media[%s]: %w", id, err)
	}
	return nil
}
