// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package badger is a badger archive driver. Snapshots are stored under a
// prefix followed by the big-endian commit number, so iteration is in commit
// order.
package badger

import (
	"context"
	"errors"
	"fmt"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/config"
	"decred.org/kaupa/dex/encode"
	"decred.org/kaupa/server/db"
	"github.com/dgraph-io/badger/v4"
)

// DriverName is the name registered with the db package.
const DriverName = "badger"

var (
	snapshotPrefix = []byte("snap:")
	// seekLast sorts after every snapshot key.
	seekLast = append(append([]byte{}, snapshotPrefix...), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
)

func snapshotKey(commit uint64) []byte {
	return append(append([]byte{}, snapshotPrefix...), encode.Uint64Bytes(commit)...)
}

func keyCommit(k []byte) (uint64, error) {
	return encode.BytesToUint64(k[len(snapshotPrefix):])
}

// Config is the badger driver configuration. The same fields may be supplied
// as INI options.
type Config struct {
	// Dir is the database directory. It is ignored for InMemory.
	Dir      string `ini:"dir"`
	InMemory bool   `ini:"inmemory"`
	// Keep is the number of snapshots retained after each Store. Zero keeps
	// every snapshot.
	Keep int `ini:"keep"`
}

// Driver implements db.Driver.
type Driver struct{}

// Open creates the archive. cfg may be a *Config, a Config or a
// map[string]string of options.
func (d *Driver) Open(ctx context.Context, cfg any) (db.Archiver, error) {
	switch c := cfg.(type) {
	case *Config:
		return NewArchiver(ctx, c)
	case Config:
		return NewArchiver(ctx, &c)
	case map[string]string:
		var bc Config
		if err := config.Map(c, &bc); err != nil {
			return nil, fmt.Errorf("error parsing badger options: %w", err)
		}
		return NewArchiver(ctx, &bc)
	default:
		return nil, fmt.Errorf("invalid config type %T", cfg)
	}
}

// UseLogger sets the package logger.
func (d *Driver) UseLogger(logger dex.Logger) {
	UseLogger(logger)
}

func init() {
	db.Register(DriverName, &Driver{})
}

// Archiver is a badger-based snapshot archive.
type Archiver struct {
	*badger.DB
	keep int
}

var _ db.Archiver = (*Archiver)(nil)

// NewArchiver opens the database.
func NewArchiver(ctx context.Context, cfg *Config) (*Archiver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Keep < 0 {
		return nil, fmt.Errorf("invalid keep %d", cfg.Keep)
	}
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Dir != "":
		opts = badger.DefaultOptions(cfg.Dir)
	default:
		return nil, errors.New("no badger directory")
	}
	opts = opts.WithLogger(&badgerLoggerWrapper{log})
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	log.Infof("Opened badger archive (in memory = %t)", cfg.InMemory)
	return &Archiver{
		DB:   bdb,
		keep: cfg.Keep,
	}, nil
}

// lastKey finds the newest snapshot key, or nil.
func lastKey(txn *badger.Txn) []byte {
	it := txn.NewIterator(badger.IteratorOptions{
		Reverse: true,
		Prefix:  snapshotPrefix,
	})
	defer it.Close()
	it.Seek(seekLast)
	if !it.Valid() {
		return nil
	}
	return it.Item().KeyCopy(nil)
}

// Store stores the snapshot, then prunes to the configured retention.
func (a *Archiver) Store(snap *db.Snapshot) error {
	b, err := snap.Encode()
	if err != nil {
		return err
	}
	return a.Update(func(txn *badger.Txn) error {
		if k := lastKey(txn); k != nil {
			last, err := keyCommit(k)
			if err != nil {
				return err
			}
			if snap.Commit <= last {
				return db.ArchiveError{Code: db.ErrStaleCommit, Detail: fmt.Sprintf("commit %d <= stored %d", snap.Commit, last)}
			}
		}
		if err := txn.Set(snapshotKey(snap.Commit), b); err != nil {
			return err
		}
		log.Debugf("Stored snapshot %d (%d bytes)", snap.Commit, len(b))
		if a.keep > 0 {
			_, err := prune(txn, a.keep)
			return err
		}
		return nil
	})
}

func getSnapshot(txn *badger.Txn, k []byte) (*db.Snapshot, error) {
	item, err := txn.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, db.ArchiveError{Code: db.ErrNoSnapshot}
	}
	if err != nil {
		return nil, err
	}
	b, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	return db.DecodeSnapshot(b)
}

// Load retrieves the newest snapshot.
func (a *Archiver) Load() (snap *db.Snapshot, err error) {
	return snap, a.View(func(txn *badger.Txn) error {
		k := lastKey(txn)
		if k == nil {
			return db.ArchiveError{Code: db.ErrNoSnapshot}
		}
		snap, err = getSnapshot(txn, k)
		return err
	})
}

// LoadCommit retrieves the snapshot stored at commit.
func (a *Archiver) LoadCommit(commit uint64) (snap *db.Snapshot, err error) {
	return snap, a.View(func(txn *badger.Txn) error {
		snap, err = getSnapshot(txn, snapshotKey(commit))
		return err
	})
}

func commits(txn *badger.Txn, reverse bool) ([]uint64, error) {
	it := txn.NewIterator(badger.IteratorOptions{
		Reverse: reverse,
		Prefix:  snapshotPrefix,
	})
	defer it.Close()
	var cs []uint64
	start := snapshotPrefix
	if reverse {
		start = seekLast
	}
	for it.Seek(start); it.Valid(); it.Next() {
		c, err := keyCommit(it.Item().Key())
		if err != nil {
			return nil, err
		}
		cs = append(cs, c)
	}
	return cs, nil
}

// Commits lists the stored commit numbers, oldest first.
func (a *Archiver) Commits() (cs []uint64, err error) {
	return cs, a.View(func(txn *badger.Txn) error {
		cs, err = commits(txn, false)
		return err
	})
}

// Prune deletes all but the newest keep snapshots.
func (a *Archiver) Prune(keep int) (n int, err error) {
	if keep < 1 {
		return 0, fmt.Errorf("invalid keep %d", keep)
	}
	return n, a.Update(func(txn *badger.Txn) error {
		n, err = prune(txn, keep)
		return err
	})
}

func prune(txn *badger.Txn, keep int) (int, error) {
	cs, err := commits(txn, true)
	if err != nil {
		return 0, err
	}
	if len(cs) <= keep {
		return 0, nil
	}
	stale := cs[keep:]
	for _, c := range stale {
		if err := txn.Delete(snapshotKey(c)); err != nil {
			return 0, err
		}
	}
	log.Debugf("Pruned %d snapshots", len(stale))
	return len(stale), nil
}
