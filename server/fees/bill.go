// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package fees

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/dex/calc"
	"decred.org/kaupa/dex/utils"
	"github.com/shopspring/decimal"
)

// Bill accumulates the fees owed by one party for one operation. Fixed,
// per-unit and basis point components are added independently and summed, then
// settled in a single step against the payer's fee bag.
type Bill struct {
	assets dex.Assets
	// fixedItems are discrete fixed-fee requirements. Fungible fixed fees are
	// folded into owed.
	fixedItems []fixedItem
	owed       map[dex.AssetType]decimal.Decimal
	owedItems  map[dex.AssetType]int64
}

type fixedItem struct {
	t   dex.AssetType
	req *bag.Requirement
}

// NewBill creates an empty Bill. The registry is used to tell fungible fee
// currencies from discrete ones.
func NewBill(assets dex.Assets) *Bill {
	return &Bill{
		assets:    assets,
		owed:      make(map[dex.AssetType]decimal.Decimal),
		owedItems: make(map[dex.AssetType]int64),
	}
}

// AddMakerFixed adds the schedule's maker fixed fee.
func (b *Bill) AddMakerFixed(s *Schedule) {
	b.addFixed(s.makerFixed())
}

// AddTakerFixed adds the schedule's taker fixed fee.
func (b *Bill) AddTakerFixed(s *Schedule) {
	b.addFixed(s.takerFixed())
}

func (b *Bill) addFixed(reqs map[dex.AssetType]*bag.Requirement) {
	for _, t := range utils.SortedKeys(reqs) {
		req := reqs[t]
		if req.IsZero() {
			continue
		}
		if req.Discrete {
			b.fixedItems = append(b.fixedItems, fixedItem{t, req})
			continue
		}
		b.owed[t] = b.owed[t].Add(req.Amount)
	}
}

// AddUnits adds the per-unit fee for count discrete items of asset type t.
func (b *Bill) AddUnits(s *Schedule, t dex.AssetType, count int64) {
	if s == nil || count <= 0 {
		return
	}
	uf, found := s.PerUnit[t]
	if !found || uf.Rate.Sign() <= 0 {
		return
	}
	fee := uf.Rate.Mul(decimal.NewFromInt(count))
	if kind, _ := b.assets.Kind(uf.Currency); kind == dex.Discrete {
		b.owedItems[uf.Currency] += fee.IntPart()
		return
	}
	b.owed[uf.Currency] = b.owed[uf.Currency].Add(calc.Truncate(fee))
}

// AddPayment adds the basis point fee for a fungible payment of amt of asset
// type t. The fee is owed in t.
func (b *Bill) AddPayment(s *Schedule, t dex.AssetType, amt decimal.Decimal) {
	if s == nil {
		return
	}
	fee := calc.BpsFee(amt, s.PaymentBps)
	if fee.Sign() <= 0 {
		return
	}
	b.owed[t] = b.owed[t].Add(fee)
}

// Merge adds everything owed on o to b.
func (b *Bill) Merge(o *Bill) {
	b.fixedItems = append(b.fixedItems, o.fixedItems...)
	for t, amt := range o.owed {
		b.owed[t] = b.owed[t].Add(amt)
	}
	for t, n := range o.owedItems {
		b.owedItems[t] += n
	}
}

// Owed is the fungible amount of t owed, including fungible fixed fees.
func (b *Bill) Owed(t dex.AssetType) decimal.Decimal {
	return b.owed[t]
}

// OwedItems is the number of arbitrary items of t owed, excluding discrete
// fixed fees.
func (b *Bill) OwedItems(t dex.AssetType) int64 {
	return b.owedItems[t]
}

// IsZero checks whether nothing is owed.
func (b *Bill) IsZero() bool {
	if len(b.fixedItems) > 0 {
		return false
	}
	for _, amt := range b.owed {
		if amt.Sign() > 0 {
			return false
		}
	}
	for _, n := range b.owedItems {
		if n > 0 {
			return false
		}
	}
	return true
}

// Settle moves the fees owed from payer into a new bag. Either the whole bill
// is paid or payer is left untouched and ErrInsufficientFee is returned.
// Discrete fixed fees are taken first, so that their named items are not used
// up as arbitrary items.
func (b *Bill) Settle(payer *bag.Bag) (*bag.Bag, error) {
	undo := payer.Checkpoint()
	paid, err := b.settle(payer)
	if err != nil {
		undo()
		return nil, err
	}
	return paid, nil
}

func (b *Bill) settle(payer *bag.Bag) (*bag.Bag, error) {
	paid := bag.New()
	one := big.NewRat(1, 1)
	for _, fi := range b.fixedItems {
		sel, err := fi.req.Select(payer, fi.t, one)
		if err != nil {
			return nil, insufficient(err, fmt.Sprintf("fixed fee %s %s", fi.req, fi.t))
		}
		taken, err := payer.Extract(sel.Spec())
		if err != nil {
			return nil, insufficient(err, fmt.Sprintf("fixed fee %s %s", fi.req, fi.t))
		}
		if err = paid.Merge(taken); err != nil {
			return nil, err
		}
	}
	for _, t := range utils.SortedKeys(b.owedItems) {
		n := b.owedItems[t]
		if n <= 0 {
			continue
		}
		taken, err := payer.TakeAny(t, n, nil)
		if err != nil {
			return nil, insufficient(err, fmt.Sprintf("%d %s items", n, t))
		}
		if err = paid.Merge(taken); err != nil {
			return nil, err
		}
	}
	for _, t := range utils.SortedKeys(b.owed) {
		amt := b.owed[t]
		if amt.Sign() <= 0 {
			continue
		}
		taken, err := payer.TakeAmount(t, amt)
		if err != nil {
			return nil, insufficient(err, fmt.Sprintf("%s %s", amt, t))
		}
		if err = paid.Merge(taken); err != nil {
			return nil, err
		}
	}
	return paid, nil
}

func insufficient(err error, detail string) error {
	if errors.Is(err, bag.ErrInsufficientBalance) || errors.Is(err, dex.ErrNamedItemUnavailable) ||
		errors.Is(err, dex.ErrInvalidAssetType) {
		return dex.NewError(dex.ErrInsufficientFee, detail+": "+err.Error())
	}
	return err
}

// String describes the bill for logging.
func (b *Bill) String() string {
	var parts []string
	for _, fi := range b.fixedItems {
		parts = append(parts, fmt.Sprintf("%s:(%s)", fi.t, fi.req))
	}
	for _, t := range utils.SortedKeys(b.owedItems) {
		parts = append(parts, fmt.Sprintf("%s:%d items", t, b.owedItems[t]))
	}
	for _, t := range utils.SortedKeys(b.owed) {
		parts = append(parts, fmt.Sprintf("%s:%s", t, b.owed[t]))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
