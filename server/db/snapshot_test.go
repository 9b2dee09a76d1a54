// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/server/book"
	"decred.org/kaupa/server/escrow"
	"decred.org/kaupa/server/fees"
	"github.com/davecgh/go-spew/spew"
	"github.com/shopspring/decimal"
)

func testSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	id, err := book.NewProposalID()
	if err != nil {
		t.Fatal(err)
	}
	offering, _ := bag.NewItems("nft", "x", "y")
	ledger := escrow.NewLedger()
	proceeds, _ := bag.NewFungible("b", decimal.NewFromInt(3))
	if err := ledger.Credit("maker", proceeds); err != nil {
		t.Fatal(err)
	}
	return &Snapshot{
		Commit: 7,
		Stamp:  time.Unix(1700000000, 0).UTC(),
		Seq:    3,
		Fees:   &fees.Schedule{PaymentBps: decimal.NewFromInt(25)},
		Proposals: []*book.Proposal{{
			ID:       id,
			Owner:    "maker",
			Kind:     book.Barter,
			Offering: offering,
			Asking: map[dex.AssetType]*bag.Requirement{
				"b": bag.Amount(decimal.RequireFromString("1.5")),
			},
			AllowPartial: true,
			Seq:          3,
		}},
		Ledger: ledger,
	}
}

func TestSnapshotEncoding(t *testing.T) {
	snap := testSnapshot(t)
	b, err := snap.Encode()
	if err != nil {
		t.Fatal(err)
	}
	snap2, err := DecodeSnapshot(b)
	if err != nil {
		t.Fatalf("DecodeSnapshot error: %v", err)
	}
	if snap2.Commit != 7 || snap2.Seq != 3 || !snap2.Stamp.Equal(snap.Stamp) || len(snap2.Proposals) != 1 {
		t.Fatalf("decoded snapshot differs: %s", spew.Sdump(snap2))
	}
	p := snap2.Proposals[0]
	if p.ID != snap.Proposals[0].ID || !p.Offering.Equal(snap.Proposals[0].Offering) ||
		!p.Asking["b"].Amount.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("decoded proposal differs: %s", spew.Sdump(p))
	}
	if !snap2.Ledger.Balance("maker").Equal(snap.Ledger.Balance("maker")) {
		t.Fatal("decoded ledger differs")
	}
	if !snap2.Fees.PaymentBps.Equal(decimal.NewFromInt(25)) {
		t.Fatal("decoded fees differ")
	}

	// Tampering is detected.
	bad := append([]byte(nil), b...)
	bad[len(bad)-2] ^= 0x01
	if _, err = DecodeSnapshot(bad); !SameErrorTypes(err, ArchiveError{Code: ErrCorruptSnapshot}) {
		t.Fatalf("wanted ErrCorruptSnapshot, got %v", err)
	}
	bad = append([]byte(nil), b...)
	bad[0] = SnapshotVersion + 1
	if _, err = DecodeSnapshot(bad); !SameErrorTypes(err, ArchiveError{Code: ErrUnsupportedVersion}) {
		t.Fatalf("wanted ErrUnsupportedVersion, got %v", err)
	}
	if _, err = DecodeSnapshot(nil); !SameErrorTypes(err, ArchiveError{Code: ErrCorruptSnapshot}) {
		t.Fatalf("wanted ErrCorruptSnapshot for empty record, got %v", err)
	}
}

type tDriver struct {
	opened any
}

func (d *tDriver) Open(_ context.Context, cfg any) (Archiver, error) {
	d.opened = cfg
	return nil, errors.New("test driver")
}

func (d *tDriver) UseLogger(dex.Logger) {}

func TestRegistry(t *testing.T) {
	drv := &tDriver{}
	Register("test", drv)
	if _, err := Open(context.Background(), "test", "cfg"); err == nil || drv.opened != "cfg" {
		t.Fatal("driver not opened")
	}
	if _, err := Open(context.Background(), "nope", nil); err == nil {
		t.Fatal("no error for unknown driver")
	}
	names := Drivers()
	if len(names) != 1 || names[0] != "test" {
		t.Fatalf("wrong drivers %v", names)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("no panic for duplicate registration")
		}
	}()
	Register("test", drv)
}

func TestArchiveError(t *testing.T) {
	err := ArchiveError{Code: ErrNoSnapshot, Detail: "commit 5"}
	if err.Error() != "no snapshot: commit 5" {
		t.Fatalf("wrong message %q", err.Error())
	}
	if !IsErrNoSnapshot(err) || IsErrNoSnapshot(ArchiveError{Code: ErrStaleCommit}) {
		t.Fatal("IsErrNoSnapshot wrong")
	}
}
