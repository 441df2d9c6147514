package ratelimits

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/everkeep/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Hit performs the read-reset-increment in one statement, so concurrent
// callers on the same key never lose an increment.
func (r *PostgresRepository) Hit(ctx context.Context, key string, now, windowSeconds int64) (int64, error) {
	query := `
		INSERT INTO everkeep_rate_limits (key, count, window_start)
		VALUES ($1, 1, $2)
		ON CONFLICT (key)
		DO UPDATE SET
			count = CASE WHEN $2 - everkeep_rate_limits.window_start >= $3 THEN 1
				ELSE everkeep_rate_limits.count + 1 END,
			window_start = CASE WHEN $2 - everkeep_rate_limits.window_start >= $3 THEN $2
				ELSE everkeep_rate_limits.window_start END
		RETURNING count;
	`
	var count int64
	if err := r.db.QueryRowContext(ctx, query, key, now, windowSeconds).Scan(&count); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}
