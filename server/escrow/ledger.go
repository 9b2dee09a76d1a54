// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package escrow holds the proceeds owed to makers and the fees owed to the
// instance admin until they are collected.
package escrow

import (
	"encoding/json"
	"sort"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
)

// Ledger is the set of proceeds accounts plus the admin fee account. A Ledger
// is not safe for concurrent use.
type Ledger struct {
	proceeds map[dex.TokenID]*bag.Bag
	fees     *bag.Bag
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{
		proceeds: make(map[dex.TokenID]*bag.Bag),
		fees:     bag.New(),
	}
}

// Credit moves the contents of b into the owner's proceeds account.
func (l *Ledger) Credit(owner dex.TokenID, b *bag.Bag) error {
	if b.IsEmpty() {
		return nil
	}
	acct, found := l.proceeds[owner]
	if !found {
		acct = bag.New()
	}
	if err := acct.Merge(b); err != nil {
		return err
	}
	l.proceeds[owner] = acct
	log.Tracef("Credited proceeds of %s, balance %s", owner, acct)
	return nil
}

// CreditFees moves the contents of b into the fee account.
func (l *Ledger) CreditFees(b *bag.Bag) error {
	if err := l.fees.Merge(b); err != nil {
		return err
	}
	log.Tracef("Fee account balance %s", l.fees)
	return nil
}

// Balance is a copy of the owner's proceeds.
func (l *Ledger) Balance(owner dex.TokenID) *bag.Bag {
	if acct, found := l.proceeds[owner]; found {
		return acct.Clone()
	}
	return bag.New()
}

// FeeBalance is a copy of the collected fees.
func (l *Ledger) FeeBalance() *bag.Bag {
	return l.fees.Clone()
}

// Owners lists the owners with uncollected proceeds.
func (l *Ledger) Owners() []dex.TokenID {
	owners := make([]dex.TokenID, 0, len(l.proceeds))
	for owner := range l.proceeds {
		owners = append(owners, owner)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners
}

func drain(acct *bag.Bag, filter []dex.AssetType) *bag.Bag {
	if len(filter) == 0 {
		return acct.TakeAll()
	}
	out := bag.New()
	for _, t := range filter {
		// Types are disjoint, so the merge cannot fail.
		_ = out.Merge(acct.TakeType(t))
	}
	return out
}

// Drain removes and returns the owner's proceeds of the filtered asset types,
// or everything if filter is empty.
func (l *Ledger) Drain(owner dex.TokenID, filter []dex.AssetType) *bag.Bag {
	acct, found := l.proceeds[owner]
	if !found {
		return bag.New()
	}
	out := drain(acct, filter)
	if acct.IsEmpty() {
		delete(l.proceeds, owner)
	}
	return out
}

// DrainFees removes and returns the collected fees of the filtered asset
// types, or everything if filter is empty.
func (l *Ledger) DrainFees(filter []dex.AssetType) *bag.Bag {
	return drain(l.fees, filter)
}

// Total is a copy of everything held, proceeds and fees combined.
func (l *Ledger) Total() (*bag.Bag, error) {
	total := l.fees.Clone()
	for _, acct := range l.proceeds {
		if err := total.Merge(acct.Clone()); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// Checkpoint records the owner's proceeds account and returns a function that
// restores it, deleting the account if it did not exist.
func (l *Ledger) Checkpoint(owner dex.TokenID) func() {
	acct, found := l.proceeds[owner]
	if !found {
		return func() { delete(l.proceeds, owner) }
	}
	restore := acct.Checkpoint()
	return func() {
		restore()
		l.proceeds[owner] = acct
	}
}

// CheckpointFees records the fee account and returns a function that restores
// it.
func (l *Ledger) CheckpointFees() func() {
	return l.fees.Checkpoint()
}

type ledgerJSON struct {
	Proceeds map[dex.TokenID]*bag.Bag `json:"proceeds"`
	Fees     *bag.Bag                 `json:"fees"`
}

// MarshalJSON satisfies json.Marshaler.
func (l *Ledger) MarshalJSON() ([]byte, error) {
	return json.Marshal(&ledgerJSON{
		Proceeds: l.proceeds,
		Fees:     l.fees,
	})
}

// UnmarshalJSON satisfies json.Unmarshaler.
func (l *Ledger) UnmarshalJSON(b []byte) error {
	var lj ledgerJSON
	if err := json.Unmarshal(b, &lj); err != nil {
		return err
	}
	nl := NewLedger()
	for owner, acct := range lj.Proceeds {
		if acct != nil && !acct.IsEmpty() {
			nl.proceeds[owner] = acct
		}
	}
	if lj.Fees != nil {
		nl.fees = lj.Fees
	}
	*l = *nl
	return nil
}
