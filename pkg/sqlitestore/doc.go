// Package sqlitestore is a snapshot.Backend on SQLite, using the cgo-free
// ncruces/go-sqlite3 driver. It suits single-node deployments, the fsmctl
// command and tests that want real SQL without a server.
package sqlitestore
