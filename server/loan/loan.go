// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package loan tracks flash loans. A Receipt is issued when the offering of a
// FlashLoan proposal is lent out and must be burned by repayment before the
// transaction that issued it commits.
package loan

import (
	"fmt"
	"sort"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/server/book"
	"github.com/google/uuid"
)

// ReceiptID identifies a Receipt.
type ReceiptID uuid.UUID

// String returns the canonical string form.
func (id ReceiptID) String() string {
	return uuid.UUID(id).String()
}

// Receipt is proof of an outstanding flash loan.
type Receipt struct {
	ID         ReceiptID
	ProposalID book.ProposalID
	Borrower   dex.TokenID
	// Principal is a copy of what was lent.
	Principal *bag.Bag
}

func (r *Receipt) String() string {
	return fmt.Sprintf("loan %s of %s from %s", r.ID, r.Principal, r.ProposalID)
}

// Covers checks whether a repayment returns the principal: at least every
// fungible amount, and every lent item.
func (r *Receipt) Covers(repayment *bag.Bag) bool {
	return repayment.Covers(r.Principal)
}

// Desk keeps the outstanding receipts, at most one per proposal.
type Desk struct {
	receipts   map[ReceiptID]*Receipt
	byProposal map[book.ProposalID]ReceiptID
}

// NewDesk creates a Desk with no loans outstanding.
func NewDesk() *Desk {
	return &Desk{
		receipts:   make(map[ReceiptID]*Receipt),
		byProposal: make(map[book.ProposalID]ReceiptID),
	}
}

// Issue records a loan of principal from the proposal.
func (d *Desk) Issue(pid book.ProposalID, borrower dex.TokenID, principal *bag.Bag) (*Receipt, error) {
	if _, found := d.byProposal[pid]; found {
		return nil, dex.NewError(dex.ErrProposalAlreadyExhausted, fmt.Sprintf("proposal %s is already lent out", pid))
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("error generating receipt ID: %w", err)
	}
	r := &Receipt{
		ID:         ReceiptID(id),
		ProposalID: pid,
		Borrower:   borrower,
		Principal:  principal.Clone(),
	}
	d.receipts[r.ID] = r
	d.byProposal[pid] = r.ID
	log.Debugf("Issued %s", r)
	return r, nil
}

// Lent checks whether the proposal has a loan outstanding.
func (d *Desk) Lent(pid book.ProposalID) bool {
	_, found := d.byProposal[pid]
	return found
}

// Lookup retrieves an outstanding receipt.
func (d *Desk) Lookup(id ReceiptID) (*Receipt, bool) {
	r, found := d.receipts[id]
	return r, found
}

// Burn retires a receipt. A receipt that was never issued by this Desk, or
// was already burned, is ErrFlashLoanNotRepaid.
func (d *Desk) Burn(r *Receipt) (*Receipt, error) {
	if r == nil {
		return nil, dex.NewError(dex.ErrFlashLoanNotRepaid, "no receipt")
	}
	known, found := d.receipts[r.ID]
	if !found {
		return nil, dex.NewError(dex.ErrFlashLoanNotRepaid, fmt.Sprintf("unknown receipt %s", r.ID))
	}
	delete(d.receipts, r.ID)
	delete(d.byProposal, known.ProposalID)
	log.Debugf("Burned %s", known)
	return known, nil
}

// Outstanding lists the receipts not yet burned.
func (d *Desk) Outstanding() []*Receipt {
	rs := make([]*Receipt, 0, len(d.receipts))
	for _, r := range d.receipts {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool {
		return rs[i].ProposalID.String() < rs[j].ProposalID.String()
	})
	return rs
}

// Len is the number of outstanding loans.
func (d *Desk) Len() int {
	return len(d.receipts)
}
