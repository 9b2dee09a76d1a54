// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"decred.org/kaupa/dex/encode"
	"decred.org/kaupa/server/book"
	"decred.org/kaupa/server/escrow"
	"decred.org/kaupa/server/fees"
	"github.com/decred/dcrd/crypto/blake256"
)

// SnapshotVersion is the version byte of encoded snapshots.
const SnapshotVersion = 0

// Snapshot is the committed state of an engine.
type Snapshot struct {
	Commit    uint64           `json:"commit"`
	Stamp     time.Time        `json:"stamp"`
	Seq       uint64           `json:"seq"`
	Fees      *fees.Schedule   `json:"fees,omitempty"`
	Proposals []*book.Proposal `json:"proposals"`
	Ledger    *escrow.Ledger   `json:"ledger"`
}

// Encode serializes the snapshot as a versioned blob of a blake256 checksum
// and the JSON encoding.
func (s *Snapshot) Encode() ([]byte, error) {
	js, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("error encoding snapshot %d: %w", s.Commit, err)
	}
	sum := blake256.Sum256(js)
	return encode.BuildyBytes{SnapshotVersion}.AddData(sum[:]).AddData(js), nil
}

// DecodeSnapshot decodes and verifies an encoded snapshot.
func DecodeSnapshot(b []byte) (*Snapshot, error) {
	ver, pushes, err := encode.DecodeBlob(b)
	if err != nil {
		return nil, ArchiveError{Code: ErrCorruptSnapshot, Detail: err.Error()}
	}
	if ver != SnapshotVersion {
		return nil, ArchiveError{Code: ErrUnsupportedVersion, Detail: fmt.Sprintf("version %d", ver)}
	}
	if len(pushes) != 2 {
		return nil, ArchiveError{Code: ErrCorruptSnapshot, Detail: fmt.Sprintf("expected 2 pushes, got %d", len(pushes))}
	}
	sum, js := pushes[0], pushes[1]
	if calc := blake256.Sum256(js); !bytes.Equal(calc[:], sum) {
		return nil, ArchiveError{Code: ErrCorruptSnapshot, Detail: "checksum mismatch"}
	}
	var s Snapshot
	if err := json.Unmarshal(js, &s); err != nil {
		return nil, ArchiveError{Code: ErrCorruptSnapshot, Detail: err.Error()}
	}
	if s.Ledger == nil {
		s.Ledger = escrow.NewLedger()
	}
	return &s, nil
}
