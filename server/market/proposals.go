// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package market

import (
	"fmt"
	"time"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/dex/utils"
	"decred.org/kaupa/server/book"
	"decred.org/kaupa/server/fees"
	"decred.org/kaupa/server/matcher"
)

// ProposalRequest describes a new proposal.
type ProposalRequest struct {
	Maker dex.TokenID
	// Counterparty, if set, is the only taker allowed.
	Counterparty *dex.TokenID
	Kind         book.Kind
	// Offering is moved into the proposal.
	Offering *bag.Bag
	// Asking is the price. For a FlashLoan it is the per-loan fee, and may
	// be empty.
	Asking       map[dex.AssetType]*bag.Requirement
	AllowPartial bool
}

// subset checks whether every type is in the set. A nil set admits anything.
func subset(ts []dex.AssetType, set map[dex.AssetType]bool) bool {
	if set == nil {
		return true
	}
	for _, t := range ts {
		if !set[t] {
			return false
		}
	}
	return true
}

// validate checks a proposal request in order: asset registry and kinds,
// quantities, side allow-lists, trading pair shape, forced partial fills, and
// flash loan enablement.
func (tx *Tx) validate(req *ProposalRequest) error {
	if req.Kind != book.Barter && req.Kind != book.FlashLoan {
		return dex.NewError(dex.ErrWrongProposalKind, req.Kind.String())
	}
	if req.Offering == nil {
		return dex.NewError(dex.ErrArithmeticInvalid, "no offering")
	}
	if err := tx.checkBag(req.Offering); err != nil {
		return err
	}
	askTypes := utils.SortedKeys(req.Asking)
	for _, t := range askTypes {
		kind, err := tx.e.assets.Kind(t)
		if err != nil {
			return err
		}
		if err = req.Asking[t].Validate(t, kind); err != nil {
			return err
		}
	}

	if req.Offering.IsEmpty() {
		return dex.NewError(dex.ErrArithmeticInvalid, "empty offering")
	}
	if req.Kind == book.Barter && len(askTypes) == 0 {
		return dex.NewError(dex.ErrArithmeticInvalid, "zero price")
	}
	for _, t := range askTypes {
		if req.Asking[t].IsZero() {
			return dex.NewError(dex.ErrArithmeticInvalid, fmt.Sprintf("zero quantity asked of %s", t))
		}
	}

	offerTypes := req.Offering.Types()
	if !(subset(offerTypes, tx.e.side1) && subset(askTypes, tx.e.side2)) &&
		!(subset(offerTypes, tx.e.side2) && subset(askTypes, tx.e.side1)) {
		return dex.NewError(dex.ErrInvalidAssetType, fmt.Sprintf("offering %v for %v not allowed", offerTypes, askTypes))
	}

	if tx.e.info.TradingPair && (len(offerTypes) != 1 || len(askTypes) != 1) {
		return dex.NewError(dex.ErrInvalidAssetType, "trading pair proposals must offer one type for one type")
	}

	if tx.e.info.ForceAllowPartial && !req.AllowPartial {
		return dex.NewError(dex.ErrPartialFillNotAllowed, "partial fills must be allowed")
	}

	if req.Kind == book.FlashLoan && !tx.e.info.AllowFlashLoans {
		return dex.NewError(dex.ErrWrongProposalKind, "flash loans are disabled")
	}
	return nil
}

// CreateProposal validates the request, charges the maker fixed fee from
// feeBag, and moves the offering into a new proposal. The remainder of feeBag
// is returned as change. The maker fee is not refunded on cancel.
func (tx *Tx) CreateProposal(req *ProposalRequest, feeBag *bag.Bag) (book.ProposalID, *bag.Bag, error) {
	if err := tx.begin(req.Offering, feeBag); err != nil {
		return book.ProposalID{}, nil, err
	}
	if err := tx.validate(req); err != nil {
		return book.ProposalID{}, nil, tx.fail(err)
	}

	bill := fees.NewBill(tx.e.assets)
	bill.AddMakerFixed(tx.fees)
	if err := tx.settle(bill, feeBag); err != nil {
		return book.ProposalID{}, nil, tx.fail(err)
	}

	id, err := book.NewProposalID()
	if err != nil {
		return book.ProposalID{}, nil, tx.fail(err)
	}
	var counterparty *dex.TokenID
	if req.Counterparty != nil {
		cp := *req.Counterparty
		counterparty = &cp
	}
	asking := make(map[dex.AssetType]*bag.Requirement, len(req.Asking))
	for t, r := range req.Asking {
		asking[t] = r.Clone()
	}
	p := &book.Proposal{
		ID:           id,
		Owner:        req.Maker,
		Counterparty: counterparty,
		Kind:         req.Kind,
		Offering:     req.Offering.TakeAll(),
		Asking:       asking,
		AllowPartial: req.AllowPartial,
		Fees:         tx.fees.Clone(),
		Stamp:        time.Now().UTC(),
		Seq:          tx.store.NextSeq(),
	}
	if err := tx.store.Insert(p); err != nil {
		return book.ProposalID{}, nil, tx.fail(err)
	}
	tx.inserted(id)
	change, err := tx.change(feeBag)
	if err != nil {
		return book.ProposalID{}, nil, tx.fail(err)
	}
	log.Debugf("Created %s", p)
	return id, change, nil
}

// CancelProposal removes the owner's proposal and returns the remaining
// offering.
func (tx *Tx) CancelProposal(owner dex.TokenID, id book.ProposalID) (*bag.Bag, error) {
	if err := tx.begin(); err != nil {
		return nil, err
	}
	p, found := tx.store.Get(id)
	if !found {
		return nil, tx.fail(dex.NewError(dex.ErrProposalNotFound, id.String()))
	}
	if p.Owner != owner {
		return nil, tx.fail(dex.NewError(dex.ErrUnauthorized, fmt.Sprintf("%s does not own %s", owner, id)))
	}
	if p.OnLoan || tx.desk.Lent(id) {
		return nil, tx.fail(dex.NewError(dex.ErrProposalAlreadyExhausted, fmt.Sprintf("%s is lent out", id)))
	}
	tx.touch(p)
	tx.store.Remove(id)
	log.Debugf("Canceled %s", id)
	return tx.output(p.Offering.TakeAll()), nil
}

// fillProposal executes a planned fill, credits the maker, and removes or
// reindexes the proposal.
func (tx *Tx) fillProposal(p *book.Proposal, f *matcher.Fill, payment *bag.Bag) (*bag.Bag, error) {
	tx.touch(p)
	paid, released, err := f.Execute(p, payment)
	if err != nil {
		return nil, err
	}
	tx.touchAccount(p.Owner)
	if err = tx.ledger.Credit(p.Owner, paid); err != nil {
		return nil, err
	}
	if p.Exhausted() {
		tx.store.Remove(p.ID)
		log.Debugf("Proposal %s exhausted", p.ID)
	} else if err = tx.store.Reindex(p); err != nil {
		return nil, err
	}
	log.Tracef("Executed %s", f)
	return released, nil
}

// AcceptProposal fills a Barter proposal with payment, fully or, if both the
// proposal and the taker allow it, partially. The taker fixed fee, the
// per-unit fees and the payment fee are charged from feeBag. Unused payment and
// fees are returned as change.
func (tx *Tx) AcceptProposal(taker dex.TokenID, id book.ProposalID, allowPartial bool, payment, feeBag *bag.Bag) (out, change *bag.Bag, err error) {
	if err := tx.begin(payment, feeBag); err != nil {
		return nil, nil, err
	}
	p, found := tx.store.Get(id)
	if !found {
		return nil, nil, tx.fail(dex.NewError(dex.ErrProposalNotFound, id.String()))
	}
	if p.Kind != book.Barter {
		return nil, nil, tx.fail(dex.NewError(dex.ErrWrongProposalKind, fmt.Sprintf("%s is a %s proposal", id, p.Kind)))
	}
	if !p.AllowsTaker(&taker) {
		return nil, nil, tx.fail(dex.NewError(dex.ErrUnauthorized, fmt.Sprintf("%s is reserved for another counterparty", id)))
	}
	if err := tx.checkBag(payment); err != nil {
		return nil, nil, tx.fail(err)
	}
	if payment == nil {
		payment = bag.New()
	}

	f, err := matcher.Plan(p, payment, allowPartial)
	if err != nil {
		return nil, nil, tx.fail(err)
	}
	bill := fees.NewBill(tx.e.assets)
	bill.AddTakerFixed(p.Fees)
	f.Charge(bill, p.Fees)
	if err := tx.settle(bill, feeBag); err != nil {
		return nil, nil, tx.fail(err)
	}
	released, err := tx.fillProposal(p, f, payment)
	if err != nil {
		return nil, nil, tx.fail(err)
	}
	if change, err = tx.change(payment, feeBag); err != nil {
		return nil, nil, tx.fail(err)
	}
	log.Debugf("%s accepted %s at %s", taker, id, f.Ratio.RatString())
	return tx.output(released), change, nil
}
