// Package syncer decides when the journal talks to the backup endpoint: it
// debounces local saves into one backup, performs a restore before the
// first backup of a session and retries failures with capped exponential
// backoff.
package syncer

import "time"

type State int

const (
	Idle State = iota
	RestorePending
	Restoring
	BackupScheduled
	BackingUp
	ErrorBackoff
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case RestorePending:
		return "restore pending"
	case Restoring:
		return "restoring"
	case BackupScheduled:
		return "backup scheduled"
	case BackingUp:
		return "backing up"
	case ErrorBackoff:
		return "error backoff"
	default:
		return "unknown"
	}
}

const (
	msgBackupFailed  = "Backup failed. Retrying..."
	msgRestoreFailed = "Restore failed. Retrying..."
	msgRecovered     = "Backup restored."
	msgRejected      = "Backup was rejected by the server."
)

// Status is a point-in-time view of the scheduler.
type Status struct {
	State            State
	Label            string
	Enabled          bool
	Online           bool
	InFlight         bool
	RestoreAttempted bool
	Attempt          int
	// LastError is the user-facing message of the current failure streak
	// and Cause the error behind the latest attempt.
	LastError   string
	Cause       string
	LastSuccess time.Time
}

func label(st Status) string {
	switch {
	case !st.Enabled:
		return "Saved on this device"
	case st.State == BackingUp:
		return "Backing up..."
	case st.State == Restoring:
		return "Restoring..."
	case st.LastError != "":
		return st.LastError
	case !st.Online:
		return "Backup paused (offline)"
	default:
		return "Backed up"
	}
}
