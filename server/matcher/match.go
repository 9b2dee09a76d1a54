// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package matcher computes and executes fills of proposals. A fill takes the
// same fraction r of every remaining asking entry and every remaining offering
// entry. r is the largest ratio the payment supports that keeps every discrete
// quantity whole.
package matcher

import (
	"errors"
	"fmt"
	"math/big"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/dex/calc"
	"decred.org/kaupa/server/book"
	"decred.org/kaupa/server/fees"
	"github.com/shopspring/decimal"
)

// Fill is a planned fill of a proposal. Nothing is moved until Execute.
type Fill struct {
	ID    book.ProposalID
	Ratio *big.Rat
	// Selections are the parts of the payment consumed, one per asking type
	// with a non-zero requirement, in asking type order.
	Selections []*bag.Selection
	// Release describes what leaves the offering.
	Release *bag.Bag
}

// Full checks whether the fill consumes the entire remaining proposal.
func (f *Fill) Full() bool {
	return calc.IsOne(f.Ratio)
}

// String is a short description for logging.
func (f *Fill) String() string {
	return fmt.Sprintf("fill %s of %s releasing %s", calc.RatString(f.Ratio), f.ID, f.Release)
}

// askingRatio is the fraction of the requirement for t that the payment
// covers, capped at 1.
func askingRatio(payment *bag.Bag, t dex.AssetType, req *bag.Requirement) (*big.Rat, error) {
	if req.IsZero() {
		return calc.One(), nil
	}
	if req.Discrete {
		return calc.CountRatio(payment.Count(t), int64(req.Count()))
	}
	return calc.Ratio(payment.Amount(t), req.Amount)
}

// grid is the gcd of every non-zero discrete quantity of the proposal. A fill
// ratio must be a multiple of 1/grid.
func grid(p *book.Proposal) int64 {
	var counts []int64
	for _, req := range p.Asking {
		if req.Discrete {
			counts = append(counts, int64(len(req.Named)), int64(req.Random))
		}
	}
	for _, t := range p.Offering.Types() {
		if kind, _ := p.Offering.Kind(t); kind == dex.Discrete {
			counts = append(counts, p.Offering.Count(t))
		}
	}
	return calc.GCD(counts...)
}

// FillRatio computes the largest admissible fill ratio for the payment.
func FillRatio(p *book.Proposal, payment *bag.Bag) (*big.Rat, error) {
	r0 := calc.One()
	for _, t := range p.AskingTypes() {
		rk, err := askingRatio(payment, t, p.Asking[t])
		if err != nil {
			return nil, err
		}
		r0 = calc.MinRatio(r0, rk)
	}
	r := calc.FloorToGrid(r0, grid(p))
	if calc.IsZero(r) {
		return nil, dex.NewError(dex.ErrInsufficientPayment, fmt.Sprintf("payment %s fills nothing of %s", payment, p.ID))
	}
	return r, nil
}

// Plan computes the fill of p by payment. allowPartial is the caller's
// permission for a partial fill. The proposal must also allow it.
func Plan(p *book.Proposal, payment *bag.Bag, allowPartial bool) (*Fill, error) {
	if p.Offering.IsEmpty() {
		return nil, dex.NewError(dex.ErrProposalAlreadyExhausted, p.ID.String())
	}
	r, err := FillRatio(p, payment)
	if err != nil {
		return nil, err
	}
	partial := !calc.IsOne(r)
	if partial {
		if !p.AllowPartial {
			return nil, dex.NewError(dex.ErrPartialFillNotAllowed, fmt.Sprintf("proposal %s requires a full fill, payment covers %s", p.ID, calc.RatString(r)))
		}
		if !allowPartial {
			return nil, dex.NewError(dex.ErrPartialFillNotAllowed, fmt.Sprintf("payment covers %s of %s", calc.RatString(r), p.ID))
		}
	}

	f := &Fill{
		ID:      p.ID,
		Ratio:   r,
		Release: bag.New(),
	}
	for _, t := range p.AskingTypes() {
		req := p.Asking[t]
		if req.IsZero() {
			continue
		}
		sel, err := req.Select(payment, t, r)
		if err != nil {
			if errors.Is(err, bag.ErrInsufficientBalance) {
				return nil, dex.NewError(dex.ErrInsufficientPayment, err.Error())
			}
			return nil, err
		}
		// A partial fill may not take value from one side without giving
		// any in return.
		if partial && !req.Discrete && sel.Amount.Sign() == 0 {
			return nil, dex.NewError(dex.ErrInsufficientPayment, fmt.Sprintf("payment for %s of %s rounds to nothing", t, p.ID))
		}
		f.Selections = append(f.Selections, sel)
	}
	for _, t := range p.Offering.Types() {
		if kind, _ := p.Offering.Kind(t); kind == dex.Fungible {
			amt := calc.ScaleAmount(p.Offering.Amount(t), r)
			if amt.Sign() == 0 {
				return nil, dex.NewError(dex.ErrInsufficientPayment, fmt.Sprintf("release of %s from %s rounds to nothing", t, p.ID))
			}
			if err := f.Release.AddFungible(t, amt); err != nil {
				return nil, err
			}
			continue
		}
		n, err := calc.ScaleCount(p.Offering.Count(t), r)
		if err != nil {
			return nil, err
		}
		ids, err := p.Offering.PickAny(t, n, nil)
		if err != nil {
			return nil, err
		}
		if err := f.Release.AddItems(t, ids...); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// paymentSpec describes every selection as one bag.
func (f *Fill) paymentSpec() (*bag.Bag, error) {
	spec := bag.New()
	for _, sel := range f.Selections {
		if err := spec.Merge(sel.Spec()); err != nil {
			return nil, err
		}
	}
	return spec, nil
}

// Execute moves the selected payment out of payment and the release out of
// the proposal's offering, and reduces the asking by what was paid. The paid
// bag is destined for the maker, the released bag for the taker. On error
// nothing is moved.
func (f *Fill) Execute(p *book.Proposal, payment *bag.Bag) (paid, released *bag.Bag, err error) {
	if p.ID != f.ID {
		return nil, nil, fmt.Errorf("fill of %s executed against %s", f.ID, p.ID)
	}
	spec, err := f.paymentSpec()
	if err != nil {
		return nil, nil, err
	}
	paid, err = payment.Extract(spec)
	if err != nil {
		return nil, nil, dex.NewError(dex.ErrInsufficientPayment, err.Error())
	}
	released, err = p.Offering.Extract(f.Release)
	if err != nil {
		if mErr := payment.Merge(paid); mErr != nil {
			return nil, nil, fmt.Errorf("%w, and payment not restored: %v", err, mErr)
		}
		return nil, nil, err
	}
	for _, sel := range f.Selections {
		p.Asking[sel.Type] = p.Asking[sel.Type].Less(sel)
	}
	return paid, released, nil
}

// Units is the number of discrete items of each type moved by the fill, on
// either side.
func (f *Fill) Units() map[dex.AssetType]int64 {
	units := make(map[dex.AssetType]int64)
	for _, sel := range f.Selections {
		if n := sel.Count(); n > 0 {
			units[sel.Type] += n
		}
	}
	for _, t := range f.Release.Types() {
		if n := f.Release.Count(t); n > 0 {
			units[t] += n
		}
	}
	return units
}

// Payments is the fungible amount of each type consumed from the payment.
func (f *Fill) Payments() map[dex.AssetType]decimal.Decimal {
	pmts := make(map[dex.AssetType]decimal.Decimal)
	for _, sel := range f.Selections {
		if sel.Amount.Sign() > 0 {
			pmts[sel.Type] = pmts[sel.Type].Add(sel.Amount)
		}
	}
	return pmts
}

// Charge adds the per-unit and payment fees of the fill to the bill, using the
// proposal's fee schedule s. Fixed fees are not included.
func (f *Fill) Charge(b *fees.Bill, s *fees.Schedule) {
	for t, n := range f.Units() {
		b.AddUnits(s, t, n)
	}
	for t, amt := range f.Payments() {
		b.AddPayment(s, t, amt)
	}
}
