// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package market

import (
	"errors"
	"fmt"
	"math/big"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/dex/calc"
	"decred.org/kaupa/server/book"
	"decred.org/kaupa/server/fees"
	"decred.org/kaupa/server/matcher"
)

// SweepOrder fills the best priced proposals asking for the single asset type
// of Payment.
type SweepOrder struct {
	Trader dex.TokenID
	// PriceLimit is the highest unit price, in payment units per offered
	// unit, that will be filled. nil is unlimited.
	PriceLimit *big.Rat
	// Want restricts the offering type. In a trading pair instance it
	// defaults to the side opposite the payment.
	Want dex.AssetType
	// Payment must hold exactly one asset type.
	Payment *bag.Bag
	// Fees pays the taker fixed fee once, and the per-unit and payment fees
	// of every proposal filled.
	Fees *bag.Bag
}

// skippable errors leave a proposal untouched and move on to the next.
func skippable(err error) bool {
	return errors.Is(err, dex.ErrInsufficientPayment) || errors.Is(err, dex.ErrPartialFillNotAllowed) ||
		errors.Is(err, dex.ErrNamedItemUnavailable)
}

// oppositeSide is the other asset type of a trading pair.
func (tx *Tx) oppositeSide(t dex.AssetType) dex.AssetType {
	s1, s2 := tx.e.info.Side1[0], tx.e.info.Side2[0]
	if t == s1 {
		return s2
	}
	return s1
}

// Sweep fills proposals best price first until the payment is exhausted or
// the next price exceeds the limit. Proposals reserved for another
// counterparty, and proposals that the remaining payment cannot fill, are
// skipped. Fees are settled once for the whole sweep, and the taker fixed fee
// is charged even if nothing fills.
func (tx *Tx) Sweep(ord *SweepOrder) (out, change *bag.Bag, err error) {
	if err := tx.begin(ord.Payment, ord.Fees); err != nil {
		return nil, nil, err
	}
	if ord.Payment == nil {
		return nil, nil, tx.fail(dex.NewError(dex.ErrInvalidAssetType, "no payment"))
	}
	if err := tx.checkBag(ord.Payment); err != nil {
		return nil, nil, tx.fail(err)
	}
	payTypes := ord.Payment.Types()
	if len(payTypes) != 1 {
		return nil, nil, tx.fail(dex.NewError(dex.ErrInvalidAssetType, fmt.Sprintf("sweep payment must be one asset type, got %v", payTypes)))
	}
	ask := payTypes[0]
	want := ord.Want
	if want == "" && tx.e.info.TradingPair {
		want = tx.oppositeSide(ask)
	}

	bill := fees.NewBill(tx.e.assets)
	bill.AddTakerFixed(tx.fees)
	out = bag.New()
	var filled int
	var fillErr error
	tx.store.Walk(ask, want, func(p *book.Proposal, price *big.Rat) bool {
		if ord.Payment.IsEmpty() {
			return false
		}
		if ord.PriceLimit != nil && calc.Compare(price, ord.PriceLimit) > 0 {
			return false
		}
		if !p.AllowsTaker(&ord.Trader) {
			return true
		}
		f, err := matcher.Plan(p, ord.Payment, true)
		if err != nil {
			if skippable(err) {
				log.Tracef("Sweep skipping %s: %v", p.ID, err)
				return true
			}
			fillErr = err
			return false
		}
		fillBill := fees.NewBill(tx.e.assets)
		f.Charge(fillBill, p.Fees)
		released, err := tx.fillProposal(p, f, ord.Payment)
		if err == nil {
			err = out.Merge(released)
		}
		if err != nil {
			fillErr = err
			return false
		}
		bill.Merge(fillBill)
		filled++
		log.Tracef("Sweep filled %s of %s at %s, fees %s", calc.RatString(f.Ratio), p.ID, calc.RatString(price), fillBill)
		return true
	})
	if fillErr != nil {
		return nil, nil, tx.fail(fillErr)
	}
	if err := tx.settle(bill, ord.Fees); err != nil {
		return nil, nil, tx.fail(err)
	}
	if change, err = tx.change(ord.Payment, ord.Fees); err != nil {
		return nil, nil, tx.fail(err)
	}
	log.Debugf("%s swept %d proposals for %s", ord.Trader, filled, out)
	return tx.output(out), change, nil
}
