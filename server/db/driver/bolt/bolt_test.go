// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package bolt

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/server/db"
	"decred.org/kaupa/server/escrow"
)

func newSnapshot(commit uint64) *db.Snapshot {
	return &db.Snapshot{
		Commit: commit,
		Stamp:  time.Unix(1700000000+int64(commit), 0).UTC(),
		Seq:    commit * 2,
		Ledger: escrow.NewLedger(),
	}
}

func TestArchiver(t *testing.T) {
	UseLogger(dex.StdOutLogger("BOLTTEST", dex.LevelTrace))
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sub", "kaupa.db")

	arch, err := db.Open(ctx, DriverName, map[string]string{"path": path, "keep": "3"})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	if _, err = arch.Load(); !db.IsErrNoSnapshot(err) {
		t.Fatalf("wanted ErrNoSnapshot from empty archive, got %v", err)
	}

	for c := uint64(1); c <= 5; c++ {
		if err := arch.Store(newSnapshot(c)); err != nil {
			t.Fatalf("Store %d error: %v", c, err)
		}
	}
	if err = arch.Store(newSnapshot(5)); !db.SameErrorTypes(err, db.ArchiveError{Code: db.ErrStaleCommit}) {
		t.Fatalf("wanted ErrStaleCommit, got %v", err)
	}

	commits, err := arch.Commits()
	if err != nil {
		t.Fatal(err)
	}
	if len(commits) != 3 || commits[0] != 3 || commits[2] != 5 {
		t.Fatalf("wrong retained commits %v", commits)
	}

	snap, err := arch.Load()
	if err != nil {
		t.Fatal(err)
	}
	if snap.Commit != 5 || snap.Seq != 10 {
		t.Fatalf("wrong latest snapshot %d", snap.Commit)
	}
	if snap, err = arch.LoadCommit(4); err != nil || snap.Commit != 4 {
		t.Fatalf("LoadCommit(4): %v", err)
	}
	if _, err = arch.LoadCommit(1); !db.IsErrNoSnapshot(err) {
		t.Fatalf("wanted ErrNoSnapshot for pruned commit, got %v", err)
	}

	n, err := arch.Prune(1)
	if err != nil || n != 2 {
		t.Fatalf("Prune: %d, %v", n, err)
	}
	if err := arch.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen with a typed config.
	a2, err := NewArchiver(ctx, &Config{Path: path})
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer a2.Close()
	if snap, err = a2.Load(); err != nil || snap.Commit != 5 {
		t.Fatalf("wrong snapshot after reopen: %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	drv := &Driver{}
	if _, err := drv.Open(ctx, 5); err == nil {
		t.Fatal("no error for bad config type")
	}
	if _, err := drv.Open(ctx, Config{}); err == nil {
		t.Fatal("no error for missing path")
	}
	if _, err := drv.Open(ctx, map[string]string{"path": "x", "keep": "many"}); err == nil {
		t.Fatal("no error for bad keep")
	}
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := drv.Open(canceled, &Config{Path: filepath.Join(t.TempDir(), "x.db")}); err == nil {
		t.Fatal("no error for canceled context")
	}
}
