// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package bag implements the Asset Bag, an exclusively owned container of
// fungible amounts and discrete items. Quantities only move between bags
// through the Take and Merge methods, so the total of every asset type across
// all bags is conserved.
package bag

import (
	"encoding/json"
	"fmt"
	"strings"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/calc"
	"github.com/shopspring/decimal"
)

const (
	// ErrInsufficientBalance is returned when a take exceeds the bag's holdings.
	ErrInsufficientBalance = dex.ErrorKind("insufficient balance")
	// ErrDuplicateItem is returned when the same discrete item would be held
	// twice.
	ErrDuplicateItem = dex.ErrorKind("duplicate item")
)

type itemSet map[dex.ItemID]struct{}

// Bag holds, for each asset type, either a fungible amount or a set of
// discrete items. The zero value is not usable; use New.
type Bag struct {
	fungible map[dex.AssetType]decimal.Decimal
	items    map[dex.AssetType]itemSet
}

// New creates an empty Bag.
func New() *Bag {
	return &Bag{
		fungible: make(map[dex.AssetType]decimal.Decimal),
		items:    make(map[dex.AssetType]itemSet),
	}
}

// NewFungible creates a Bag holding amt of asset type t.
func NewFungible(t dex.AssetType, amt decimal.Decimal) (*Bag, error) {
	b := New()
	return b, b.AddFungible(t, amt)
}

// NewItems creates a Bag holding the discrete items of asset type t.
func NewItems(t dex.AssetType, ids ...dex.ItemID) (*Bag, error) {
	b := New()
	return b, b.AddItems(t, ids...)
}

// AddFungible deposits amt of asset type t. This is how value enters the
// system, e.g. from a caller's wallet.
func (b *Bag) AddFungible(t dex.AssetType, amt decimal.Decimal) error {
	if err := calc.ValidAmount(amt); err != nil {
		return err
	}
	if _, isItems := b.items[t]; isItems {
		return dex.NewError(dex.ErrInvalidAssetType, fmt.Sprintf("%s is held as discrete items", t))
	}
	if amt.IsZero() {
		return nil
	}
	b.fungible[t] = b.fungible[t].Add(amt)
	return nil
}

// AddItems deposits discrete items of asset type t.
func (b *Bag) AddItems(t dex.AssetType, ids ...dex.ItemID) error {
	if _, isFungible := b.fungible[t]; isFungible {
		return dex.NewError(dex.ErrInvalidAssetType, fmt.Sprintf("%s is held as a fungible amount", t))
	}
	set := b.items[t]
	seen := make(itemSet, len(ids))
	for _, id := range ids {
		if _, dup := set[id]; dup {
			return dex.NewError(ErrDuplicateItem, fmt.Sprintf("%s/%s", t, id))
		}
		if _, dup := seen[id]; dup {
			return dex.NewError(ErrDuplicateItem, fmt.Sprintf("%s/%s", t, id))
		}
		seen[id] = struct{}{}
	}
	if len(ids) == 0 {
		return nil
	}
	if set == nil {
		set = make(itemSet, len(ids))
		b.items[t] = set
	}
	for id := range seen {
		set[id] = struct{}{}
	}
	return nil
}

// Kind returns the kind of holding for asset type t. found is false if the bag
// holds nothing of t.
func (b *Bag) Kind(t dex.AssetType) (kind dex.AssetKind, found bool) {
	if _, ok := b.fungible[t]; ok {
		return dex.Fungible, true
	}
	if _, ok := b.items[t]; ok {
		return dex.Discrete, true
	}
	return 0, false
}

// Amount is the fungible amount of asset type t held.
func (b *Bag) Amount(t dex.AssetType) decimal.Decimal {
	return b.fungible[t]
}

// Count is the number of discrete items of asset type t held.
func (b *Bag) Count(t dex.AssetType) int64 {
	return int64(len(b.items[t]))
}

// Quantity is the fungible amount of t, or the item count if t is discrete.
func (b *Bag) Quantity(t dex.AssetType) decimal.Decimal {
	if set, ok := b.items[t]; ok {
		return decimal.NewFromInt(int64(len(set)))
	}
	return b.fungible[t]
}

// HasItem checks whether the item is held.
func (b *Bag) HasItem(t dex.AssetType, id dex.ItemID) bool {
	_, found := b.items[t][id]
	return found
}

// ItemSet is the sorted list of item IDs of asset type t held.
func (b *Bag) ItemSet(t dex.AssetType) []dex.ItemID {
	set := b.items[t]
	ids := make([]dex.ItemID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	dex.SortItemIDs(ids)
	return ids
}

// Types is the sorted list of asset types held.
func (b *Bag) Types() []dex.AssetType {
	ts := make([]dex.AssetType, 0, len(b.fungible)+len(b.items))
	for t := range b.fungible {
		ts = append(ts, t)
	}
	for t := range b.items {
		ts = append(ts, t)
	}
	dex.SortAssetTypes(ts)
	return ts
}

// IsEmpty checks whether the bag holds nothing.
func (b *Bag) IsEmpty() bool {
	return len(b.fungible) == 0 && len(b.items) == 0
}

// TakeAmount moves amt of fungible asset type t into a new Bag.
func (b *Bag) TakeAmount(t dex.AssetType, amt decimal.Decimal) (*Bag, error) {
	if err := calc.ValidAmount(amt); err != nil {
		return nil, err
	}
	if _, isItems := b.items[t]; isItems {
		return nil, dex.NewError(dex.ErrInvalidAssetType, fmt.Sprintf("%s is held as discrete items", t))
	}
	have := b.fungible[t]
	if have.LessThan(amt) {
		return nil, dex.NewError(ErrInsufficientBalance, fmt.Sprintf("need %s %s, have %s", amt, t, have))
	}
	out := New()
	if amt.IsZero() {
		return out, nil
	}
	b.setFungible(t, have.Sub(amt))
	out.fungible[t] = amt
	return out, nil
}

// TakeItems moves the specified items of asset type t into a new Bag. All
// items must be held.
func (b *Bag) TakeItems(t dex.AssetType, ids []dex.ItemID) (*Bag, error) {
	if _, isFungible := b.fungible[t]; isFungible {
		return nil, dex.NewError(dex.ErrInvalidAssetType, fmt.Sprintf("%s is held as a fungible amount", t))
	}
	set := b.items[t]
	for _, id := range ids {
		if _, found := set[id]; !found {
			return nil, dex.NewError(ErrInsufficientBalance, fmt.Sprintf("item %s/%s not held", t, id))
		}
	}
	out := New()
	if len(ids) == 0 {
		return out, nil
	}
	taken := make(itemSet, len(ids))
	for _, id := range ids {
		delete(set, id)
		taken[id] = struct{}{}
	}
	if len(set) == 0 {
		delete(b.items, t)
	}
	out.items[t] = taken
	return out, nil
}

// PickAny selects n items of asset type t, lowest IDs first, skipping the
// excluded IDs. Nothing is moved. ErrInsufficientBalance is returned if fewer
// than n eligible items are held.
func (b *Bag) PickAny(t dex.AssetType, n int64, exclude map[dex.ItemID]bool) ([]dex.ItemID, error) {
	if n <= 0 {
		return nil, nil
	}
	picked := make([]dex.ItemID, 0, n)
	for _, id := range b.ItemSet(t) {
		if exclude[id] {
			continue
		}
		picked = append(picked, id)
		if int64(len(picked)) == n {
			return picked, nil
		}
	}
	return nil, dex.NewError(ErrInsufficientBalance, fmt.Sprintf("need %d eligible %s items, have %d", n, t, len(picked)))
}

// TakeAny moves n items of asset type t, lowest IDs first, skipping the
// excluded IDs.
func (b *Bag) TakeAny(t dex.AssetType, n int64, exclude map[dex.ItemID]bool) (*Bag, error) {
	ids, err := b.PickAny(t, n, exclude)
	if err != nil {
		return nil, err
	}
	return b.TakeItems(t, ids)
}

// TakeType moves everything of asset type t into a new Bag.
func (b *Bag) TakeType(t dex.AssetType) *Bag {
	out := New()
	if amt, found := b.fungible[t]; found {
		out.fungible[t] = amt
		delete(b.fungible, t)
	}
	if set, found := b.items[t]; found {
		out.items[t] = set
		delete(b.items, t)
	}
	return out
}

// TakeAll moves the entire contents into a new Bag.
func (b *Bag) TakeAll() *Bag {
	out := &Bag{
		fungible: b.fungible,
		items:    b.items,
	}
	b.fungible = make(map[dex.AssetType]decimal.Decimal)
	b.items = make(map[dex.AssetType]itemSet)
	return out
}

// Covers checks whether the bag holds at least the contents of spec: every
// fungible amount and every specific item.
func (b *Bag) Covers(spec *Bag) bool {
	for t, amt := range spec.fungible {
		if b.fungible[t].LessThan(amt) {
			return false
		}
	}
	for t, set := range spec.items {
		have := b.items[t]
		for id := range set {
			if _, found := have[id]; !found {
				return false
			}
		}
	}
	return true
}

// Extract moves exactly the contents described by spec into a new Bag. spec
// itself is not modified.
func (b *Bag) Extract(spec *Bag) (*Bag, error) {
	if !b.Covers(spec) {
		return nil, dex.NewError(ErrInsufficientBalance, fmt.Sprintf("%s does not cover %s", b, spec))
	}
	out := New()
	for t, amt := range spec.fungible {
		b.setFungible(t, b.fungible[t].Sub(amt))
		out.fungible[t] = amt
	}
	for t, set := range spec.items {
		have := b.items[t]
		taken := make(itemSet, len(set))
		for id := range set {
			delete(have, id)
			taken[id] = struct{}{}
		}
		if len(have) == 0 {
			delete(b.items, t)
		}
		out.items[t] = taken
	}
	return out, nil
}

// Merge moves the entire contents of other into b, leaving other empty. If
// the bags hold the same asset type as different kinds, or share a discrete
// item, nothing is moved and an error is returned.
func (b *Bag) Merge(other *Bag) error {
	if other == nil || other == b {
		return nil
	}
	for t := range other.fungible {
		if _, isItems := b.items[t]; isItems {
			return dex.NewError(dex.ErrInvalidAssetType, fmt.Sprintf("%s held as both kinds", t))
		}
	}
	for t, set := range other.items {
		if _, isFungible := b.fungible[t]; isFungible {
			return dex.NewError(dex.ErrInvalidAssetType, fmt.Sprintf("%s held as both kinds", t))
		}
		have := b.items[t]
		for id := range set {
			if _, dup := have[id]; dup {
				return dex.NewError(ErrDuplicateItem, fmt.Sprintf("%s/%s", t, id))
			}
		}
	}
	for t, amt := range other.fungible {
		b.fungible[t] = b.fungible[t].Add(amt)
	}
	for t, set := range other.items {
		have := b.items[t]
		if have == nil {
			b.items[t] = set
			continue
		}
		for id := range set {
			have[id] = struct{}{}
		}
	}
	other.fungible = make(map[dex.AssetType]decimal.Decimal)
	other.items = make(map[dex.AssetType]itemSet)
	return nil
}

// Clone creates a deep copy. Cloning does not move value; clones are for
// bookkeeping such as loan principals and snapshots.
func (b *Bag) Clone() *Bag {
	c := &Bag{
		fungible: make(map[dex.AssetType]decimal.Decimal, len(b.fungible)),
		items:    make(map[dex.AssetType]itemSet, len(b.items)),
	}
	for t, amt := range b.fungible {
		c.fungible[t] = amt
	}
	for t, set := range b.items {
		cs := make(itemSet, len(set))
		for id := range set {
			cs[id] = struct{}{}
		}
		c.items[t] = cs
	}
	return c
}

// Checkpoint records the current contents and returns a function that
// restores them.
func (b *Bag) Checkpoint() func() {
	saved := b.Clone()
	return func() {
		b.fungible = saved.fungible
		b.items = saved.items
	}
}

// Equal checks whether both bags hold exactly the same contents.
func (b *Bag) Equal(o *Bag) bool {
	if len(b.fungible) != len(o.fungible) || len(b.items) != len(o.items) {
		return false
	}
	return b.Covers(o) && o.Covers(b)
}

func (b *Bag) setFungible(t dex.AssetType, amt decimal.Decimal) {
	if amt.IsZero() {
		delete(b.fungible, t)
		return
	}
	b.fungible[t] = amt
}

// String is a compact, deterministic description of the contents.
func (b *Bag) String() string {
	if b == nil {
		return "{}"
	}
	parts := make([]string, 0, len(b.fungible)+len(b.items))
	for _, t := range b.Types() {
		if amt, found := b.fungible[t]; found {
			parts = append(parts, fmt.Sprintf("%s:%s", t, amt))
			continue
		}
		ids := b.ItemSet(t)
		strs := make([]string, len(ids))
		for i, id := range ids {
			strs[i] = string(id)
		}
		parts = append(parts, fmt.Sprintf("%s:[%s]", t, strings.Join(strs, ",")))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

type bagJSON struct {
	Fungible map[dex.AssetType]decimal.Decimal `json:"fungible,omitempty"`
	Items    map[dex.AssetType][]dex.ItemID    `json:"items,omitempty"`
}

// MarshalJSON satisfies json.Marshaler.
func (b *Bag) MarshalJSON() ([]byte, error) {
	bj := bagJSON{
		Fungible: b.fungible,
		Items:    make(map[dex.AssetType][]dex.ItemID, len(b.items)),
	}
	for t := range b.items {
		bj.Items[t] = b.ItemSet(t)
	}
	return json.Marshal(&bj)
}

// UnmarshalJSON satisfies json.Unmarshaler.
func (b *Bag) UnmarshalJSON(data []byte) error {
	var bj bagJSON
	if err := json.Unmarshal(data, &bj); err != nil {
		return err
	}
	nb := New()
	for t, amt := range bj.Fungible {
		if err := nb.AddFungible(t, amt); err != nil {
			return err
		}
	}
	for t, ids := range bj.Items {
		if err := nb.AddItems(t, ids...); err != nil {
			return err
		}
	}
	*b = *nb
	return nil
}
