// Package cli is the everkeep command-line client.
//
// It wires configuration, the local SQLite store, the media backend, the
// backup client and the sync scheduler, then either runs a single command
// or an interactive shell. The shell keeps a background connectivity watcher
// running so that backups resume as soon as the server is reachable again.
package cli
