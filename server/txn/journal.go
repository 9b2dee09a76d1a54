// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package txn provides a rollback journal for all-or-nothing execution of a
// sequence of operations on caller-owned bags.
package txn

import (
	"errors"

	"decred.org/kaupa/dex/bag"
)

// ErrDone is returned when a finished Journal is used.
var ErrDone = errors.New("journal already committed or rolled back")

// Journal records how to undo each step of a multi-step process. Bags enlisted
// before the first output are restored to their contents at the time of
// enlistment on Rollback. Output bags, and bags first enlisted after an output
// was handed out, are emptied, since their contents may have come from an
// output. Undo functions run in the reverse of the order they were added.
type Journal struct {
	undo     []func()
	enlisted map[*bag.Bag]bool
	outputs  []*bag.Bag
	issued   bool
	done     bool
}

// New creates an empty Journal.
func New() *Journal {
	return &Journal{
		enlisted: make(map[*bag.Bag]bool),
	}
}

// Add schedules an undo function.
func (j *Journal) Add(undo func()) error {
	if j.done {
		return ErrDone
	}
	j.undo = append(j.undo, undo)
	return nil
}

// Enlist checkpoints the bags. A bag already enlisted keeps its first
// checkpoint. Output bags are not checkpointed, since Rollback empties them.
// Once an output has been handed out, a bag seen for the first time is
// tracked like an output.
func (j *Journal) Enlist(bs ...*bag.Bag) error {
	if j.done {
		return ErrDone
	}
	for _, b := range bs {
		if b == nil || j.enlisted[b] {
			continue
		}
		j.enlisted[b] = true
		if j.issued {
			j.outputs = append(j.outputs, b)
			continue
		}
		j.undo = append(j.undo, b.Checkpoint())
	}
	return nil
}

// Output tracks a bag handed out to the caller. It is emptied on Rollback.
func (j *Journal) Output(b *bag.Bag) *bag.Bag {
	if j.done {
		return b
	}
	j.issued = true
	if !j.enlisted[b] {
		j.enlisted[b] = true
		j.outputs = append(j.outputs, b)
	}
	return b
}

// Len is the number of undo steps recorded.
func (j *Journal) Len() int {
	return len(j.undo)
}

// Done checks whether the journal was committed or rolled back.
func (j *Journal) Done() bool {
	return j.done
}

// Commit discards the undo steps.
func (j *Journal) Commit() error {
	if j.done {
		return ErrDone
	}
	j.done = true
	j.undo, j.enlisted, j.outputs = nil, nil, nil
	return nil
}

// Rollback empties the outputs, then runs the undo steps in reverse.
func (j *Journal) Rollback() error {
	if j.done {
		return ErrDone
	}
	j.done = true
	for _, b := range j.outputs {
		b.TakeAll()
	}
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo, j.enlisted, j.outputs = nil, nil, nil
	return nil
}
