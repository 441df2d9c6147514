package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/client/client"
	"github.com/dmitrijs2005/everkeep/internal/client/config"
	"github.com/dmitrijs2005/everkeep/internal/client/media"
	"github.com/dmitrijs2005/everkeep/internal/client/services"
	"github.com/dmitrijs2005/everkeep/internal/client/syncer"
	"github.com/dmitrijs2005/everkeep/internal/logging"
)

// newS3Store is a test seam for media.NewS3Store.
var newS3Store = func(ctx context.Context, o media.S3Options) (media.Store, error) {
	return media.NewS3Store(ctx, o)
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	client  client.Client
	journal *services.JournalService
	syncer  *syncer.Scheduler

	out       io.Writer
	reader    *bufio.Reader
	assumeYes bool

	mu     sync.Mutex
	online bool
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stderr, logging.Options{Format: "text", Level: c.LogLevel, File: c.LogFile})

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	store, err := newMediaStore(ctx, c, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	apiClient, err := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	if err != nil {
		db.Close()
		return nil, err
	}

	js := services.NewJournalService(db, store, logger)
	if err := js.Load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	app := &App{
		config:  c,
		logger:  logger.With("module", "cli"),
		db:      db,
		client:  apiClient,
		journal: js,
		out:     os.Stdout,
		reader:  bufio.NewReader(os.Stdin),
		online:  true,
	}

	app.syncer = syncer.New(apiClient, js, &terminalNotifier{w: os.Stdout}, logger, syncer.Options{
		Debounce:  c.DebounceDelay,
		RetryBase: c.RetryBase,
		RetryMax:  c.RetryMax,
	})
	js.AttachSyncer(app.syncer)

	return app, nil
}

func newMediaStore(ctx context.Context, c *config.Config, db *sql.DB) (media.Store, error) {
	switch c.MediaBackend {
	case config.MediaBackendS3:
		s, err := newS3Store(ctx, media.S3Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("media store: %w", err)
		}
		return s, nil
	case config.MediaBackendLocal, "":
		return media.NewSQLiteStore(db), nil
	default:
		return nil, fmt.Errorf("unknown media backend %q", c.MediaBackend)
	}
}

// Close stops background sync and releases the client and the database.
func (a *App) Close() {
	if a.syncer != nil {
		a.syncer.Stop()
	}
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) setOnline(online bool) {
	a.mu.Lock()
	changed := a.online != online
	a.online = online
	a.mu.Unlock()

	if changed {
		if online {
			a.logger.Info(context.Background(), "switched to online mode")
		} else {
			a.logger.Info(context.Background(), "switched to offline mode")
		}
	}
	a.syncer.SetOnline(online)
}

// checkOnline pings the server once and records the outcome.
func (a *App) checkOnline(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := a.client.Ping(ctx)
	cancel()

	a.setOnline(err == nil)
	return err == nil
}

// StartOnlineStatusWatcher pings the server every interval until ctx is
// done. Going online schedules a sync.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// terminalNotifier prints sync problems between prompts.
type terminalNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func (n *terminalNotifier) SyncFailed(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "\n! %s\n", msg)
}

func (n *terminalNotifier) SyncRecovered(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "\n%s\n", msg)
}
