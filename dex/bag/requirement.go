// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package bag

import (
	"fmt"
	"math/big"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/calc"
	"github.com/shopspring/decimal"
)

// Requirement specifies what must be supplied of one asset type. A fungible
// requirement is an amount. A discrete requirement is a set of specific named
// items plus a count of arbitrary items.
type Requirement struct {
	Discrete bool            `json:"discrete,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Named    []dex.ItemID    `json:"named,omitempty"`
	Random   uint64          `json:"random,omitempty"`
}

// Amount creates a fungible Requirement.
func Amount(amt decimal.Decimal) *Requirement {
	return &Requirement{Amount: amt}
}

// Items creates a discrete Requirement.
func Items(named []dex.ItemID, random uint64) *Requirement {
	n := make([]dex.ItemID, len(named))
	copy(n, named)
	dex.SortItemIDs(n)
	return &Requirement{
		Discrete: true,
		Named:    n,
		Random:   random,
	}
}

// Kind is the asset kind the requirement applies to.
func (q *Requirement) Kind() dex.AssetKind {
	if q.Discrete {
		return dex.Discrete
	}
	return dex.Fungible
}

// Quantity is the fungible amount, or the total item count for a discrete
// requirement.
func (q *Requirement) Quantity() decimal.Decimal {
	if q.Discrete {
		return decimal.NewFromInt(int64(q.Count()))
	}
	return q.Amount
}

// Count is the total number of items of a discrete requirement.
func (q *Requirement) Count() uint64 {
	return uint64(len(q.Named)) + q.Random
}

// IsZero checks whether nothing is required.
func (q *Requirement) IsZero() bool {
	if q.Discrete {
		return q.Count() == 0
	}
	return q.Amount.IsZero()
}

// Validate checks the requirement against the kind of asset it applies to.
// Quantities must be non-negative and within precision, and named items must
// be unique.
func (q *Requirement) Validate(t dex.AssetType, kind dex.AssetKind) error {
	if q.Kind() != kind {
		return dex.NewError(dex.ErrInvalidAssetType, fmt.Sprintf("%s requirement for %s asset %s", q.Kind(), kind, t))
	}
	if !q.Discrete {
		if err := calc.ValidAmount(q.Amount); err != nil {
			return dex.NewError(err, string(t))
		}
		return nil
	}
	seen := make(map[dex.ItemID]bool, len(q.Named))
	for _, id := range q.Named {
		if seen[id] {
			return dex.NewError(ErrDuplicateItem, fmt.Sprintf("named %s/%s twice", t, id))
		}
		seen[id] = true
	}
	return nil
}

// Clone creates a deep copy.
func (q *Requirement) Clone() *Requirement {
	c := *q
	if q.Named != nil {
		c.Named = make([]dex.ItemID, len(q.Named))
		copy(c.Named, q.Named)
	}
	return &c
}

// String is a compact description.
func (q *Requirement) String() string {
	if !q.Discrete {
		return q.Amount.String()
	}
	return fmt.Sprintf("named %v + %d random", q.Named, q.Random)
}

// Selection is the portion of a payer's bag chosen to satisfy a scaled
// Requirement.
type Selection struct {
	Type   dex.AssetType
	Amount decimal.Decimal
	Named  []dex.ItemID
	Random []dex.ItemID
}

// Count is the number of discrete items selected.
func (s *Selection) Count() int64 {
	return int64(len(s.Named) + len(s.Random))
}

// Spec builds a bag describing the selection, suitable for Extract.
func (s *Selection) Spec() *Bag {
	spec := New()
	if len(s.Named)+len(s.Random) > 0 {
		ids := make([]dex.ItemID, 0, len(s.Named)+len(s.Random))
		ids = append(ids, s.Named...)
		ids = append(ids, s.Random...)
		spec.AddItems(s.Type, ids...)
	} else if s.Amount.Sign() > 0 {
		spec.AddFungible(s.Type, s.Amount)
	}
	return spec
}

// Select chooses from payer what satisfies r times the requirement for asset
// type t, without moving anything. For a discrete requirement, exactly r times
// the named count is chosen among the named items the payer holds, lowest IDs
// first, and r times the random count is chosen among the payer's other items
// of t. r must scale both counts to whole numbers.
//
// Missing named items are ErrNamedItemUnavailable. Any other shortfall is
// ErrInsufficientBalance.
func (q *Requirement) Select(payer *Bag, t dex.AssetType, r *big.Rat) (*Selection, error) {
	sel := &Selection{Type: t}
	if !q.Discrete {
		sel.Amount = calc.ScaleAmount(q.Amount, r)
		if have := payer.Amount(t); have.LessThan(sel.Amount) {
			return nil, dex.NewError(ErrInsufficientBalance, fmt.Sprintf("need %s %s, have %s", sel.Amount, t, have))
		}
		return sel, nil
	}

	nNamed, err := calc.ScaleCount(int64(len(q.Named)), r)
	if err != nil {
		return nil, err
	}
	nRandom, err := calc.ScaleCount(int64(q.Random), r)
	if err != nil {
		return nil, err
	}

	namedSet := make(map[dex.ItemID]bool, len(q.Named))
	for _, id := range q.Named {
		namedSet[id] = true
	}
	for _, id := range q.Named {
		if int64(len(sel.Named)) == nNamed {
			break
		}
		if payer.HasItem(t, id) {
			sel.Named = append(sel.Named, id)
		}
	}
	if int64(len(sel.Named)) < nNamed {
		return nil, dex.NewError(dex.ErrNamedItemUnavailable, fmt.Sprintf("need %d of named %s items %v, found %d",
			nNamed, t, q.Named, len(sel.Named)))
	}
	sel.Random, err = payer.PickAny(t, nRandom, namedSet)
	if err != nil {
		return nil, err
	}
	return sel, nil
}

// Less returns the requirement remaining after the selection is supplied.
func (q *Requirement) Less(sel *Selection) *Requirement {
	if !q.Discrete {
		return Amount(q.Amount.Sub(sel.Amount))
	}
	taken := make(map[dex.ItemID]bool, len(sel.Named))
	for _, id := range sel.Named {
		taken[id] = true
	}
	named := make([]dex.ItemID, 0, len(q.Named)-len(sel.Named))
	for _, id := range q.Named {
		if !taken[id] {
			named = append(named, id)
		}
	}
	random := q.Random
	if n := uint64(len(sel.Random)); n < random {
		random -= n
	} else {
		random = 0
	}
	return &Requirement{
		Discrete: true,
		Named:    named,
		Random:   random,
	}
}
