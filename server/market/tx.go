// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package market

import (
	"fmt"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/server/book"
	"decred.org/kaupa/server/escrow"
	"decred.org/kaupa/server/fees"
	"decred.org/kaupa/server/loan"
	"decred.org/kaupa/server/txn"
)

// Tx is an all-or-nothing sequence of engine operations. A Tx holds the
// engine lock and works on the engine state in place, journaling the prior
// state of every proposal and account before its first change. Bags passed to
// a Tx operation, and wallets enlisted with Begin, are restored if the Tx
// fails. Bags returned by operations are emptied if the Tx fails.
//
// Any operation error rolls the Tx back, after which every method returns
// ErrTxDone. Flash loans issued in a Tx must be repaid before Commit.
type Tx struct {
	e        *Engine
	journal  *txn.Journal
	store    *book.Store
	ledger   *escrow.Ledger
	fees     *fees.Schedule
	desk     *loan.Desk
	touched  map[book.ProposalID]bool
	accounts map[dex.TokenID]bool
	feeAcct  bool
	ops      int
	done     bool
}

// Begin starts a transaction. Begin blocks until any other transaction on the
// engine finishes. The wallets are checkpointed now, and every other bag when
// first passed to an operation. A failed Tx restores each bag to its
// checkpoint and empties every bag the Tx returned. A bag first passed to an
// operation after the Tx returned an output is treated as part of that
// output, so every wallet the caller draws on must be passed to Begin.
func (e *Engine) Begin(wallets ...*bag.Bag) *Tx {
	e.mtx.Lock()
	tx := &Tx{
		e:        e,
		journal:  txn.New(),
		store:    e.store,
		ledger:   e.ledger,
		fees:     e.fees,
		desk:     loan.NewDesk(),
		touched:  make(map[book.ProposalID]bool),
		accounts: make(map[dex.TokenID]bool),
	}
	store, seq := e.store, e.store.Seq()
	tx.journal.Add(func() { store.RewindSeq(seq) })
	tx.journal.Enlist(wallets...)
	return tx
}

// begin starts an operation, enlisting its input bags.
func (tx *Tx) begin(inputs ...*bag.Bag) error {
	if tx.done {
		return dex.ErrTxDone
	}
	tx.ops++
	return tx.journal.Enlist(inputs...)
}

// fail rolls the Tx back and returns err.
func (tx *Tx) fail(err error) error {
	if !tx.done {
		log.Debugf("Rolling back transaction after %d operations: %v", tx.ops, err)
		tx.finish(false)
	}
	return err
}

func (tx *Tx) finish(commit bool) {
	if commit {
		tx.journal.Commit()
	} else {
		tx.journal.Rollback()
	}
	tx.done = true
	tx.store, tx.ledger, tx.desk = nil, nil, nil
	tx.e.mtx.Unlock()
}

// output tracks a bag handed to the caller.
func (tx *Tx) output(b *bag.Bag) *bag.Bag {
	return tx.journal.Output(b)
}

// touch saves a proposal before its first change in the Tx.
func (tx *Tx) touch(p *book.Proposal) {
	if tx.touched[p.ID] {
		return
	}
	tx.touched[p.ID] = true
	store, saved := tx.store, p.Clone()
	tx.journal.Add(func() {
		if err := store.Restore(saved); err != nil {
			log.Errorf("Error restoring proposal %s: %v", saved.ID, err)
		}
	})
}

// inserted journals the removal of a proposal created in the Tx.
func (tx *Tx) inserted(id book.ProposalID) {
	tx.touched[id] = true
	store := tx.store
	tx.journal.Add(func() { store.Remove(id) })
}

// touchAccount saves an owner's proceeds account before its first change in
// the Tx.
func (tx *Tx) touchAccount(owner dex.TokenID) {
	if tx.accounts[owner] {
		return
	}
	tx.accounts[owner] = true
	tx.journal.Add(tx.ledger.Checkpoint(owner))
}

func (tx *Tx) touchFees() {
	if tx.feeAcct {
		return
	}
	tx.feeAcct = true
	tx.journal.Add(tx.ledger.CheckpointFees())
}

// Rollback abandons the Tx. Rollback after Commit returns ErrTxDone, so it may
// be deferred.
func (tx *Tx) Rollback() error {
	if tx.done {
		return dex.ErrTxDone
	}
	tx.finish(false)
	return nil
}

// Commit archives the Tx state and releases the engine. Outstanding flash
// loans or an archive failure roll the Tx back.
func (tx *Tx) Commit() error {
	if tx.done {
		return dex.ErrTxDone
	}
	if n := tx.desk.Len(); n > 0 {
		return tx.fail(dex.NewError(dex.ErrFlashLoanNotRepaid,
			fmt.Sprintf("%d loans outstanding: %s", n, tx.desk.Outstanding())))
	}
	e := tx.e
	commit := e.commit + 1
	if e.archive != nil {
		if err := e.archive.Store(snapshot(commit, tx.store, tx.ledger, tx.fees)); err != nil {
			return tx.fail(fmt.Errorf("error archiving commit %d: %w", commit, err))
		}
	}
	e.fees = tx.fees
	e.commit = commit
	log.Debugf("Committed transaction %d with %d operations", commit, tx.ops)
	tx.finish(true)
	return nil
}

// Lookup retrieves a copy of a proposal as seen by the Tx.
func (tx *Tx) Lookup(id book.ProposalID) (*book.Proposal, error) {
	if tx.done {
		return nil, dex.ErrTxDone
	}
	p, found := tx.store.Get(id)
	if !found {
		return nil, dex.NewError(dex.ErrProposalNotFound, id.String())
	}
	return p.Clone(), nil
}

// SetFees replaces the fee schedule.
func (tx *Tx) SetFees(admin dex.TokenID, sched *fees.Schedule) error {
	if err := tx.begin(); err != nil {
		return err
	}
	if admin != tx.e.info.Owner {
		return tx.fail(dex.NewError(dex.ErrUnauthorized, "only the admin may set fees"))
	}
	if err := sched.Validate(tx.e.assets); err != nil {
		return tx.fail(err)
	}
	tx.fees = sched.Clone()
	log.Infof("Fee schedule changed")
	return nil
}

// CollectFunds drains the owner's proceeds of the filtered asset types, or of
// every type if filter is empty. With includeFees, the owner must be the
// admin and the fee account is drained too.
func (tx *Tx) CollectFunds(owner dex.TokenID, includeFees bool, filter []dex.AssetType) (*bag.Bag, error) {
	if err := tx.begin(); err != nil {
		return nil, err
	}
	if includeFees && owner != tx.e.info.Owner {
		return nil, tx.fail(dex.NewError(dex.ErrUnauthorized, "only the admin may collect fees"))
	}
	tx.touchAccount(owner)
	out := tx.ledger.Drain(owner, filter)
	if includeFees {
		tx.touchFees()
		if err := out.Merge(tx.ledger.DrainFees(filter)); err != nil {
			return nil, tx.fail(err)
		}
	}
	log.Debugf("%s collected %s", owner, out)
	return tx.output(out), nil
}

// checkBag verifies every asset type held against the registry.
func (tx *Tx) checkBag(b *bag.Bag) error {
	if b == nil {
		return nil
	}
	for _, t := range b.Types() {
		want, err := tx.e.assets.Kind(t)
		if err != nil {
			return err
		}
		if have, _ := b.Kind(t); have != want {
			return dex.NewError(dex.ErrInvalidAssetType, fmt.Sprintf("%s held as %s, registered as %s", t, have, want))
		}
	}
	return nil
}

// change returns the remaining contents of the bags as one output bag.
func (tx *Tx) change(bs ...*bag.Bag) (*bag.Bag, error) {
	out := bag.New()
	for _, b := range bs {
		if b == nil {
			continue
		}
		if err := out.Merge(b.TakeAll()); err != nil {
			return nil, err
		}
	}
	return tx.output(out), nil
}

// settle charges the bill to feeBag and credits the fee account.
func (tx *Tx) settle(bill *fees.Bill, feeBag *bag.Bag) error {
	if bill.IsZero() {
		return nil
	}
	if feeBag == nil {
		feeBag = bag.New()
	}
	paid, err := bill.Settle(feeBag)
	if err != nil {
		return err
	}
	log.Tracef("Fees %s settled", bill)
	tx.touchFees()
	return tx.ledger.CreditFees(paid)
}
