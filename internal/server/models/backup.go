// Package models defines server-side data models persisted in the database.
package models

import (
	"encoding/json"
	"time"
)

// Backup is the single snapshot row kept per owner key.
type Backup struct {
	OwnerKey string
	// State is the sanitized document, stored verbatim as JSON.
	State json.RawMessage
	// ClientUpdatedAt is the client-declared save time in epoch millis and is
	// the only value used for conflict arbitration.
	ClientUpdatedAt int64
	// UpdatedAt is the server write time, informational only.
	UpdatedAt time.Time
}

// RateWindow is a fixed-window request counter.
type RateWindow struct {
	Key   string
	Count int64
	// Start is the window start in Unix seconds.
	Start int64
}
