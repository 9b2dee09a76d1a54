// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package badger

import (
	"context"
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
	UseLogger(dex.StdOutLogger("BADGERTEST", dex.LevelTrace))
	ctx := context.Background()
	dir := t.TempDir()

	arch, err := db.Open(ctx, DriverName, map[string]string{"dir": dir, "keep": "3"})
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
	a2, err := NewArchiver(ctx, &Config{Dir: dir})
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
		t.Fatal("no error for missing directory")
	}
	if _, err := drv.Open(ctx, map[string]string{"inmemory": "true", "keep": "many"}); err == nil {
		t.Fatal("no error for bad keep")
	}
	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := drv.Open(canceled, &Config{InMemory: true}); err == nil {
		t.Fatal("no error for canceled context")
	}
}

func TestInMemory(t *testing.T) {
	a, err := NewArchiver(context.Background(), &Config{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	for c := uint64(10); c < 13; c++ {
		if err := a.Store(newSnapshot(c)); err != nil {
			t.Fatal(err)
		}
	}
	snap, err := a.Load()
	if err != nil || snap.Commit != 12 {
		t.Fatalf("wrong latest snapshot: %v", err)
	}
	commits, _ := a.Commits()
	if len(commits) != 3 {
		t.Fatalf("wrong commits %v", commits)
	}
}
