// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package db defines the archive of committed engine state. Each committed
// transaction may be stored as a Snapshot, keyed by its commit number, so the
// engine can be restored after a restart and past states can be inspected.
package db

// Archiver is the interface required of an archive driver.
type Archiver interface {
	// Store persists the snapshot. The snapshot's Commit must be greater than
	// that of every stored snapshot, else ErrStaleCommit.
	Store(snap *Snapshot) error
	// Load retrieves the snapshot with the highest commit number. An empty
	// archive is ErrNoSnapshot.
	Load() (*Snapshot, error)
	// LoadCommit retrieves the snapshot stored at a specific commit number.
	LoadCommit(commit uint64) (*Snapshot, error)
	// Commits lists the stored commit numbers in ascending order.
	Commits() ([]uint64, error)
	// Prune deletes all but the newest keep snapshots.
	Prune(keep int) (int, error)
	// Close closes the archive.
	Close() error
}
