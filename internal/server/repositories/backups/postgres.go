package backups

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/everkeep/internal/common"
	"github.com/dmitrijs2005/everkeep/internal/dbx"
	"github.com/dmitrijs2005/everkeep/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, ownerKey string) (*models.Backup, error) {
	query := `SELECT owner_key, state_json, client_updated_at, updated_at
		FROM everkeep_backups WHERE owner_key = $1`

	b := &models.Backup{}
	var state string
	err := r.db.QueryRowContext(ctx, query, ownerKey).Scan(&b.OwnerKey, &state, &b.ClientUpdatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	b.State = json.RawMessage(state)
	return b, nil
}

// Save relies on a single INSERT ... ON CONFLICT statement so the
// last-writer-wins check and the write are atomic.
func (r *PostgresRepository) Save(ctx context.Context, b *models.Backup) error {
	query := `
		INSERT INTO everkeep_backups (owner_key, state_json, client_updated_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (owner_key)
		DO UPDATE SET
			state_json = EXCLUDED.state_json,
			client_updated_at = EXCLUDED.client_updated_at,
			updated_at = NOW()
			WHERE everkeep_backups.client_updated_at <= EXCLUDED.client_updated_at;
	`
	res, err := r.db.ExecContext(ctx, query, b.OwnerKey, string(b.State), b.ClientUpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrVersionConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
