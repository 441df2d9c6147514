// Package client contains the client side of the backup protocol.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) for the
//     backup endpoint: Ping, Backup and Restore.
//  2. A concrete HTTP implementation (see HTTPClient) speaking the JSON
//     "?action=" protocol with a per-request timeout.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Failures are classified with sentinel errors matched by errors.Is:
// ErrUnavailable (network, timeout, 5xx, malformed reply), ErrRejected (4xx
// validation) and ErrRateLimited (429). Server replies carrying an error
// code surface as *APIError, which unwraps to one of those sentinels.
package client
