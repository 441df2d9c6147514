// Package server wires configuration, storage, rate limiting and the HTTP
// endpoint together and runs them until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/everkeep/internal/logging"
	"github.com/dmitrijs2005/everkeep/internal/server/config"
	"github.com/dmitrijs2005/everkeep/internal/server/httpapi"
	"github.com/dmitrijs2005/everkeep/internal/server/ratelimit"
	"github.com/dmitrijs2005/everkeep/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/everkeep/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	backups *services.BackupService
	limiter *ratelimit.Limiter
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, logging.Options{Format: "json", Level: c.LogLevel, File: c.LogFile})

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	backups := services.NewBackupService(db, rm)

	// an unreachable database is reported per request as database_unavailable
	// and the migrations are retried on the next request
	if err := backups.EnsureSchema(context.Background()); err != nil {
		logger.Error(context.Background(), "migrations failed", "error", err)
	}

	store, err := newRateLimitStore(c, db, rm)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		backups: backups,
		limiter: ratelimit.New(store, c.RateLimitRequests, c.RateLimitWindow, logger),
	}, nil
}

func newRateLimitStore(c *config.Config, db *sql.DB, rm repomanager.RepositoryManager) (ratelimit.Store, error) {
	if c.RateLimitStore == config.RateLimitStoreFile {
		s, err := ratelimit.NewFileStore(c.RateLimitDir)
		if err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
		return s, nil
	}
	return rm.RateLimits(db), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	h := httpapi.NewHandler(app.backups, app.limiter, app.config.AllowedOrigins, app.config.MaxBodyBytes, app.logger)
	s := httpapi.NewHTTPServer(app.config.HTTPAddr, app.config.HTTPPath, h, app.logger,
		app.config.RequestTimeout, app.config.ShutdownTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
