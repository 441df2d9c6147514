package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/everkeep/internal/journal"
)

const (
	StatusSaved   = "saved"
	StatusIgnored = "ignored"
)

type BackupResult struct {
	Status                string
	ClientUpdatedAt       int64
	ServerClientUpdatedAt int64
}

// RestoreResult carries the remote snapshot; State is nil when the server
// holds nothing for the owner key.
type RestoreResult struct {
	State           json.RawMessage
	ClientUpdatedAt int64
	ServerUpdatedAt time.Time
}

type Client interface {
	Close() error
	Ping(ctx context.Context) error
	Backup(ctx context.Context, ownerKey string, doc *journal.Document, clientUpdatedAt int64) (*BackupResult, error)
	Restore(ctx context.Context, ownerKey string) (*RestoreResult, error)
}
