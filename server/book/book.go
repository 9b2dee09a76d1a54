// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package book defines the proposal store used by the barter engine. Barter
// proposals trading one asset type for one other are additionally kept in a
// price index, one ordered list per asset pair, so that the best priced
// proposals can be walked in log time per step.
package book

import (
	"fmt"
	"math/big"
	"sort"

	"decred.org/kaupa/dex"
)

// Store holds the live proposals. A Store is not safe for concurrent use. The
// engine serializes access.
type Store struct {
	proposals map[ProposalID]*Proposal
	index     *priceIndex
	seq       uint64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		proposals: make(map[ProposalID]*Proposal),
		index:     newPriceIndex(),
	}
}

// NextSeq reserves the next sequence number. Sequence numbers are never
// reused, even for proposals that are later removed.
func (s *Store) NextSeq() uint64 {
	s.seq++
	return s.seq
}

// Seq is the last sequence number reserved.
func (s *Store) Seq() uint64 {
	return s.seq
}

// SetSeq raises the sequence counter to at least seq, as when restoring a
// Store from an archive.
func (s *Store) SetSeq(seq uint64) {
	if seq > s.seq {
		s.seq = seq
	}
}

// Len is the number of live proposals.
func (s *Store) Len() int {
	return len(s.proposals)
}

// IndexLen is the number of proposals in the price index.
func (s *Store) IndexLen() int {
	return s.index.len()
}

// Insert adds the proposal. An existing proposal with the same ID is an error.
func (s *Store) Insert(p *Proposal) error {
	if _, found := s.proposals[p.ID]; found {
		return fmt.Errorf("proposal %s already in store", p.ID)
	}
	if p.Seq > s.seq {
		s.seq = p.Seq
	}
	s.proposals[p.ID] = p
	if err := s.Reindex(p); err != nil {
		delete(s.proposals, p.ID)
		return err
	}
	log.Tracef("Inserted %s", p)
	return nil
}

// Get retrieves a live proposal. The returned proposal is owned by the Store.
func (s *Store) Get(id ProposalID) (*Proposal, bool) {
	p, found := s.proposals[id]
	return p, found
}

// Remove deletes the proposal and its index entry.
func (s *Store) Remove(id ProposalID) (*Proposal, bool) {
	p, found := s.proposals[id]
	if !found {
		return nil, false
	}
	delete(s.proposals, id)
	s.index.remove(id)
	log.Tracef("Removed %s", id)
	return p, true
}

// Reindex refreshes the price index entry of a proposal after its offering or
// asking changed.
func (s *Store) Reindex(p *Proposal) error {
	if !p.Indexable() || p.OnLoan {
		s.index.remove(p.ID)
		return nil
	}
	ask, offer, _ := p.Pair()
	price, err := p.UnitPrice()
	if err != nil {
		return err
	}
	s.index.set(&priceEntry{
		id:    p.ID,
		pair:  pairKey{ask: ask, offer: offer},
		price: price,
		seq:   p.Seq,
	})
	return nil
}

// Proposals lists the live proposals in creation order.
func (s *Store) Proposals() []*Proposal {
	ps := make([]*Proposal, 0, len(s.proposals))
	for _, p := range s.proposals {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool {
		return ps[i].Seq < ps[j].Seq
	})
	return ps
}

// PricedProposal is a proposal with its unit price in asking units per
// offered unit.
type PricedProposal struct {
	*Proposal
	Price *big.Rat
}

// Book lists the indexed proposals asking for ask and offering offer, best
// price first. If offer is empty, proposals offering any type are merged by
// price. The listing is a snapshot, so the caller may modify the Store while
// iterating it.
func (s *Store) Book(ask, offer dex.AssetType) []*PricedProposal {
	entries := s.index.ordered(ask, offer)
	out := make([]*PricedProposal, 0, len(entries))
	for _, e := range entries {
		out = append(out, &PricedProposal{
			Proposal: s.proposals[e.id],
			Price:    e.price,
		})
	}
	return out
}

// Walk calls fn for each indexed proposal asking for ask and offering offer,
// best price first, until fn returns false. See Book.
func (s *Store) Walk(ask, offer dex.AssetType, fn func(p *Proposal, price *big.Rat) bool) {
	for _, pp := range s.Book(ask, offer) {
		if _, live := s.proposals[pp.ID]; !live {
			continue
		}
		if !fn(pp.Proposal, pp.Price) {
			return
		}
	}
}

// Restore puts a saved copy of a proposal back in the Store, replacing any
// proposal with the same ID, and refreshes its index entry.
func (s *Store) Restore(p *Proposal) error {
	s.proposals[p.ID] = p
	if err := s.Reindex(p); err != nil {
		delete(s.proposals, p.ID)
		s.index.remove(p.ID)
		return err
	}
	log.Tracef("Restored %s", p)
	return nil
}

// RewindSeq lowers the sequence counter to seq, releasing the sequence numbers
// reserved by an abandoned transaction.
func (s *Store) RewindSeq(seq uint64) {
	if seq < s.seq {
		s.seq = seq
	}
}
