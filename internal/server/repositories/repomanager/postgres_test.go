package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/everkeep/internal/server/repositories/backups"
	"github.com/dmitrijs2005/everkeep/internal/server/repositories/ratelimits"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewPostgresRepositoryManager_ReturnsInterface(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m, err := NewPostgresRepositoryManager(db)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var _ RepositoryManager = m
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := &PostgresRepositoryManager{}

	if b := m.Backups(db); b == nil {
		t.Fatal("Backups() nil")
	}
	if rl := m.RateLimits(db); rl == nil {
		t.Fatal("RateLimits() nil")
	}

	var _ backups.Repository = m.Backups(db)
	var _ ratelimits.Repository = m.RateLimits(db)
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := migrate
	migrate = func(ctx context.Context, db *sql.DB, dialect string, fsys fs.FS) error {
		if dialect != "pgx" {
			return errors.New("unexpected dialect")
		}
		names, err := fs.Glob(fsys, "*.sql")
		if err != nil || len(names) == 0 {
			return errors.New("no migrations embedded")
		}
		return nil
	}
	defer func() { migrate = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := migrate
	migrate = func(ctx context.Context, db *sql.DB, dialect string, fsys fs.FS) error {
		return errors.New("boom")
	}
	defer func() { migrate = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}
