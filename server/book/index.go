// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package book

import (
	"math/big"

	"decred.org/kaupa/dex"
	"github.com/huandu/skiplist"
)

// pairKey identifies one price list: proposals asking for ask and offering
// offer.
type pairKey struct {
	ask   dex.AssetType
	offer dex.AssetType
}

// priceEntry is the key and value of a price list element.
type priceEntry struct {
	id    ProposalID
	pair  pairKey
	price *big.Rat
	seq   uint64
}

// priceComparable orders entries by ascending unit price, then by ascending
// Seq so older proposals fill first at equal prices.
type priceComparable struct{}

var _ skiplist.Comparable = priceComparable{}

func (priceComparable) Compare(lhs, rhs any) int {
	l, r := lhs.(*priceEntry), rhs.(*priceEntry)
	if c := l.price.Cmp(r.price); c != 0 {
		return c
	}
	switch {
	case l.seq < r.seq:
		return -1
	case l.seq > r.seq:
		return 1
	}
	return 0
}

// CalcScore must never order two keys against Compare. The float conversion
// is monotonic, and equal scores fall back to Compare.
func (priceComparable) CalcScore(key any) float64 {
	f, _ := key.(*priceEntry).price.Float64()
	return f
}

// priceIndex is the set of price lists, one per asset pair.
type priceIndex struct {
	lists   map[pairKey]*skiplist.SkipList
	entries map[ProposalID]*priceEntry
}

func newPriceIndex() *priceIndex {
	return &priceIndex{
		lists:   make(map[pairKey]*skiplist.SkipList),
		entries: make(map[ProposalID]*priceEntry),
	}
}

func (idx *priceIndex) set(e *priceEntry) {
	idx.remove(e.id)
	list, found := idx.lists[e.pair]
	if !found {
		list = skiplist.New(priceComparable{})
		idx.lists[e.pair] = list
	}
	list.Set(e, e)
	idx.entries[e.id] = e
}

func (idx *priceIndex) remove(id ProposalID) bool {
	e, found := idx.entries[id]
	if !found {
		return false
	}
	delete(idx.entries, id)
	list := idx.lists[e.pair]
	list.Remove(e)
	if list.Len() == 0 {
		delete(idx.lists, e.pair)
	}
	return true
}

func (idx *priceIndex) len() int {
	return len(idx.entries)
}

// ordered lists the entries asking for ask, best price first. With an empty
// offer, every list asking for ask is merged.
func (idx *priceIndex) ordered(ask, offer dex.AssetType) []*priceEntry {
	var heads []*skiplist.Element
	for pair, list := range idx.lists {
		if pair.ask != ask || (offer != "" && pair.offer != offer) {
			continue
		}
		if el := list.Front(); el != nil {
			heads = append(heads, el)
		}
	}
	var cmp priceComparable
	var out []*priceEntry
	for len(heads) > 0 {
		best := 0
		for i := 1; i < len(heads); i++ {
			if cmp.Compare(heads[i].Value, heads[best].Value) < 0 {
				best = i
			}
		}
		out = append(out, heads[best].Value.(*priceEntry))
		if next := heads[best].Next(); next != nil {
			heads[best] = next
		} else {
			heads = append(heads[:best], heads[best+1:]...)
		}
	}
	return out
}
