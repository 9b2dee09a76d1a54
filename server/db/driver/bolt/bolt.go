// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package bolt is a bbolt archive driver. Snapshots are kept in a single
// bucket keyed by big-endian commit number, so a cursor walks them in commit
// order.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/config"
	"decred.org/kaupa/dex/encode"
	"decred.org/kaupa/server/db"
	"go.etcd.io/bbolt"
)

// DriverName is the name registered with the db package.
const DriverName = "bolt"

const (
	defaultTimeout = time.Second
	dbVersion      = uint32(0)
)

// Short names for some commonly used imported functions.
var (
	uint64Bytes = encode.Uint64Bytes
	bCopy       = encode.CopySlice
)

var (
	metaBucket      = []byte("meta")
	snapshotsBucket = []byte("snapshots")
	versionKey      = []byte("version")
)

// Config is the bolt driver configuration. The same fields may be supplied as
// INI options.
type Config struct {
	// Path is the database file.
	Path string `ini:"path"`
	// Timeout is how long to wait for the file lock.
	Timeout time.Duration `ini:"timeout"`
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
			return nil, fmt.Errorf("error parsing bolt options: %w", err)
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

// Archiver is a bbolt-based snapshot archive. Archiver satisfies the
// db.Archiver interface.
type Archiver struct {
	*bbolt.DB
	keep int
}

// Check that Archiver satisfies the db.Archiver interface.
var _ db.Archiver = (*Archiver)(nil)

// NewArchiver opens or creates the database file.
func NewArchiver(ctx context.Context, cfg *Config) (*Archiver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, errors.New("no bolt database path")
	}
	if cfg.Keep < 0 {
		return nil, fmt.Errorf("invalid keep %d", cfg.Keep)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}
	bdb, err := bbolt.Open(cfg.Path, 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, err
	}
	a := &Archiver{
		DB:   bdb,
		keep: cfg.Keep,
	}
	if err := a.init(); err != nil {
		bdb.Close()
		return nil, err
	}
	log.Infof("Opened bolt archive at %s", cfg.Path)
	return a, nil
}

// init creates the buckets and checks the database version.
func (a *Archiver) init() error {
	return a.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return fmt.Errorf("failed to create meta bucket: %w", err)
		}
		if _, err = tx.CreateBucketIfNotExists(snapshotsBucket); err != nil {
			return fmt.Errorf("failed to create snapshots bucket: %w", err)
		}
		verB := meta.Get(versionKey)
		if verB == nil {
			return meta.Put(versionKey, encode.IntCoder.AppendUint32(nil, dbVersion))
		}
		if len(verB) != 4 {
			return fmt.Errorf("bad version bytes %x", verB)
		}
		if v := encode.IntCoder.Uint32(verB); v != dbVersion {
			return db.ArchiveError{Code: db.ErrUnsupportedVersion, Detail: fmt.Sprintf("database version %d", v)}
		}
		return nil
	})
}

func (a *Archiver) snapsUpdate(f func(*bbolt.Bucket) error) error {
	return a.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(snapshotsBucket)
		if bkt == nil {
			return fmt.Errorf("snapshots bucket not found")
		}
		return f(bkt)
	})
}

func (a *Archiver) snapsView(f func(*bbolt.Bucket) error) error {
	return a.View(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(snapshotsBucket)
		if bkt == nil {
			return fmt.Errorf("snapshots bucket not found")
		}
		return f(bkt)
	})
}

// Store stores the snapshot, then prunes to the configured retention.
func (a *Archiver) Store(snap *db.Snapshot) error {
	b, err := snap.Encode()
	if err != nil {
		return err
	}
	return a.snapsUpdate(func(snaps *bbolt.Bucket) error {
		if k, _ := snaps.Cursor().Last(); k != nil {
			last, err := encode.BytesToUint64(k)
			if err != nil {
				return err
			}
			if snap.Commit <= last {
				return db.ArchiveError{Code: db.ErrStaleCommit, Detail: fmt.Sprintf("commit %d <= stored %d", snap.Commit, last)}
			}
		}
		if err := snaps.Put(uint64Bytes(snap.Commit), b); err != nil {
			return err
		}
		log.Debugf("Stored snapshot %d (%d bytes)", snap.Commit, len(b))
		if a.keep > 0 {
			_, err := prune(snaps, a.keep)
			return err
		}
		return nil
	})
}

// Load retrieves the newest snapshot.
func (a *Archiver) Load() (*db.Snapshot, error) {
	var snap *db.Snapshot
	return snap, a.snapsView(func(snaps *bbolt.Bucket) error {
		_, v := snaps.Cursor().Last()
		if v == nil {
			return db.ArchiveError{Code: db.ErrNoSnapshot}
		}
		var err error
		snap, err = db.DecodeSnapshot(bCopy(v))
		return err
	})
}

// LoadCommit retrieves the snapshot stored at commit.
func (a *Archiver) LoadCommit(commit uint64) (*db.Snapshot, error) {
	var snap *db.Snapshot
	return snap, a.snapsView(func(snaps *bbolt.Bucket) error {
		v := snaps.Get(uint64Bytes(commit))
		if v == nil {
			return db.ArchiveError{Code: db.ErrNoSnapshot, Detail: fmt.Sprintf("commit %d", commit)}
		}
		var err error
		snap, err = db.DecodeSnapshot(bCopy(v))
		return err
	})
}

// Commits lists the stored commit numbers, oldest first.
func (a *Archiver) Commits() ([]uint64, error) {
	var commits []uint64
	return commits, a.snapsView(func(snaps *bbolt.Bucket) error {
		return snaps.ForEach(func(k, _ []byte) error {
			commit, err := encode.BytesToUint64(k)
			if err != nil {
				return err
			}
			commits = append(commits, commit)
			return nil
		})
	})
}

// Prune deletes all but the newest keep snapshots.
func (a *Archiver) Prune(keep int) (int, error) {
	if keep < 1 {
		return 0, fmt.Errorf("invalid keep %d", keep)
	}
	var n int
	return n, a.snapsUpdate(func(snaps *bbolt.Bucket) (err error) {
		n, err = prune(snaps, keep)
		return err
	})
}

func prune(snaps *bbolt.Bucket, keep int) (int, error) {
	var stale [][]byte
	c := snaps.Cursor()
	var seen int
	for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
		seen++
		if seen > keep {
			stale = append(stale, bCopy(k))
		}
	}
	for _, k := range stale {
		if err := snaps.Delete(k); err != nil {
			return 0, err
		}
	}
	if len(stale) > 0 {
		log.Debugf("Pruned %d snapshots", len(stale))
	}
	return len(stale), nil
}
