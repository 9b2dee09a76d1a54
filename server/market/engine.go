// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package market implements the barter engine. Makers post proposals trading a
// bag of assets for a set of asset requirements, takers fill them fully or
// partially, singly or by sweeping the best priced proposals, and proceeds and
// fees accrue in escrow until collected.
//
// Every state change happens inside a Tx. A Tx serializes with all other
// transactions on the Engine and either commits as a whole or leaves the
// engine and every bag passed to it exactly as they were.
package market

import (
	"fmt"
	"sync"
	"time"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/server/book"
	"decred.org/kaupa/server/db"
	"decred.org/kaupa/server/escrow"
	"decred.org/kaupa/server/fees"
)

// Engine is a barter engine instance.
type Engine struct {
	info         Info
	assets       dex.Assets
	side1, side2 map[dex.AssetType]bool
	archive      db.Archiver

	// mtx is held for the life of a Tx.
	mtx    sync.Mutex
	fees   *fees.Schedule
	store  *book.Store
	ledger *escrow.Ledger
	commit uint64
}

// NewEngine validates the configuration and creates an Engine. If an archive
// is configured, the newest archived state is restored.
func NewEngine(cfg *Config) (*Engine, error) {
	side1, side2, err := cfg.validate()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		info: Info{
			Owner:             cfg.Owner,
			Name:              cfg.Name,
			Blurb:             cfg.Blurb,
			URL:               cfg.URL,
			Side1:             cfg.Side1,
			Side2:             cfg.Side2,
			TradingPair:       cfg.TradingPair,
			ForceAllowPartial: cfg.ForceAllowPartial,
			AllowFlashLoans:   cfg.AllowFlashLoans,
		},
		assets:  cfg.Assets,
		side1:   side1,
		side2:   side2,
		archive: cfg.Archive,
		fees:    cfg.Fees.Clone(),
		store:   book.NewStore(),
		ledger:  escrow.NewLedger(),
	}
	if e.archive == nil {
		return e, nil
	}
	snap, err := e.archive.Load()
	if db.IsErrNoSnapshot(err) {
		log.Infof("No archived state. Starting fresh.")
		return e, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error loading archived state: %w", err)
	}
	if err = e.restore(snap); err != nil {
		return nil, fmt.Errorf("error restoring commit %d: %w", snap.Commit, err)
	}
	return e, nil
}

// restore installs an archived state. A schedule in the snapshot was set by
// the admin and overrides the configured one.
func (e *Engine) restore(snap *db.Snapshot) error {
	store := book.NewStore()
	for _, p := range snap.Proposals {
		if err := store.Insert(p); err != nil {
			return err
		}
	}
	store.SetSeq(snap.Seq)
	if snap.Fees != nil {
		if err := snap.Fees.Validate(e.assets); err != nil {
			return err
		}
		e.fees = snap.Fees
	}
	e.store = store
	e.ledger = snap.Ledger
	e.commit = snap.Commit
	log.Infof("Restored commit %d from %s with %d proposals", snap.Commit, snap.Stamp.Format(time.RFC3339), store.Len())
	return nil
}

// snapshot captures the state to archive.
func snapshot(commit uint64, store *book.Store, ledger *escrow.Ledger, sched *fees.Schedule) *db.Snapshot {
	return &db.Snapshot{
		Commit:    commit,
		Stamp:     time.Now().UTC(),
		Seq:       store.Seq(),
		Fees:      sched,
		Proposals: store.Proposals(),
		Ledger:    ledger,
	}
}

// Info describes the instance.
func (e *Engine) Info() *Info {
	info := e.info
	return &info
}

// Assets is the asset registry.
func (e *Engine) Assets() dex.Assets {
	return e.assets
}

// Fees is a copy of the current fee schedule.
func (e *Engine) Fees() *fees.Schedule {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.fees.Clone()
}

// Commit is the number of transactions committed.
func (e *Engine) Commit() uint64 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.commit
}

// Lookup retrieves a copy of a live proposal.
func (e *Engine) Lookup(id book.ProposalID) (*book.Proposal, error) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	p, found := e.store.Get(id)
	if !found {
		return nil, dex.NewError(dex.ErrProposalNotFound, id.String())
	}
	return p.Clone(), nil
}

// Proposals lists copies of the live proposals in creation order.
func (e *Engine) Proposals() []*book.Proposal {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	ps := e.store.Proposals()
	for i, p := range ps {
		ps[i] = p.Clone()
	}
	return ps
}

// Book lists copies of the indexed proposals asking for ask and offering
// offer, best price first. An empty offer lists proposals offering any type.
func (e *Engine) Book(ask, offer dex.AssetType) []*book.PricedProposal {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	pps := e.store.Book(ask, offer)
	for i, pp := range pps {
		pps[i] = &book.PricedProposal{
			Proposal: pp.Proposal.Clone(),
			Price:    pp.Price,
		}
	}
	return pps
}

// Balance is a copy of the owner's uncollected proceeds.
func (e *Engine) Balance(owner dex.TokenID) *bag.Bag {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.ledger.Balance(owner)
}

// Owners lists the owners with uncollected proceeds.
func (e *Engine) Owners() []dex.TokenID {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.ledger.Owners()
}

// FeeBalance is a copy of the uncollected fees.
func (e *Engine) FeeBalance() *bag.Bag {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.ledger.FeeBalance()
}

// Holdings is a copy of everything held by the engine: every offering plus
// escrow.
func (e *Engine) Holdings() (*bag.Bag, error) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	total, err := e.ledger.Total()
	if err != nil {
		return nil, err
	}
	for _, p := range e.store.Proposals() {
		if err := total.Merge(p.Offering.Clone()); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// SetFees replaces the fee schedule. Only the admin may change it. Existing
// proposals keep the schedule they were created under.
func (e *Engine) SetFees(admin dex.TokenID, sched *fees.Schedule) error {
	tx := e.Begin()
	defer tx.Rollback()
	if err := tx.SetFees(admin, sched); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateProposal creates a proposal in a single-operation transaction.
func (e *Engine) CreateProposal(req *ProposalRequest, feeBag *bag.Bag) (book.ProposalID, *bag.Bag, error) {
	tx := e.Begin()
	defer tx.Rollback()
	id, change, err := tx.CreateProposal(req, feeBag)
	if err != nil {
		return book.ProposalID{}, nil, err
	}
	if err := tx.Commit(); err != nil {
		return book.ProposalID{}, nil, err
	}
	return id, change, nil
}

// CancelProposal cancels a proposal in a single-operation transaction.
func (e *Engine) CancelProposal(owner dex.TokenID, id book.ProposalID) (*bag.Bag, error) {
	tx := e.Begin()
	defer tx.Rollback()
	offering, err := tx.CancelProposal(owner, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return offering, nil
}

// AcceptProposal fills a proposal in a single-operation transaction.
func (e *Engine) AcceptProposal(taker dex.TokenID, id book.ProposalID, allowPartial bool, payment, feeBag *bag.Bag) (out, change *bag.Bag, err error) {
	tx := e.Begin()
	defer tx.Rollback()
	out, change, err = tx.AcceptProposal(taker, id, allowPartial, payment, feeBag)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return out, change, nil
}

// Sweep fills the best priced proposals in a single-operation transaction.
func (e *Engine) Sweep(ord *SweepOrder) (out, change *bag.Bag, err error) {
	tx := e.Begin()
	defer tx.Rollback()
	out, change, err = tx.Sweep(ord)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return out, change, nil
}

// CollectFunds collects proceeds, and fees for the admin, in a
// single-operation transaction.
func (e *Engine) CollectFunds(owner dex.TokenID, includeFees bool, filter []dex.AssetType) (*bag.Bag, error) {
	tx := e.Begin()
	defer tx.Rollback()
	out, err := tx.CollectFunds(owner, includeFees, filter)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}
