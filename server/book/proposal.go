// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package book

import (
	"fmt"
	"math/big"
	"time"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/dex/calc"
	"decred.org/kaupa/dex/utils"
	"decred.org/kaupa/server/fees"
	"github.com/google/uuid"
)

// ProposalID is the 128-bit unique identifier of a Proposal.
type ProposalID uuid.UUID

// NewProposalID generates a random (version 4) ProposalID.
func NewProposalID() (ProposalID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return ProposalID{}, fmt.Errorf("error generating proposal ID: %w", err)
	}
	return ProposalID(id), nil
}

// ParseProposalID parses the canonical string form of a ProposalID.
func ParseProposalID(s string) (ProposalID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ProposalID{}, err
	}
	return ProposalID(id), nil
}

// String returns the canonical string form.
func (id ProposalID) String() string {
	return uuid.UUID(id).String()
}

// MarshalText satisfies encoding.TextMarshaler.
func (id ProposalID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

// UnmarshalText satisfies encoding.TextUnmarshaler.
func (id *ProposalID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// Kind is the type of a Proposal.
type Kind uint8

const (
	// Barter proposals trade the offering for the asking.
	Barter Kind = iota
	// FlashLoan proposals lend the offering for the duration of one
	// transaction.
	FlashLoan
)

// String satisfies fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Barter:
		return "barter"
	case FlashLoan:
		return "flashloan"
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// MarshalText satisfies encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k != Barter && k != FlashLoan {
		return nil, fmt.Errorf("unknown proposal kind %d", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText satisfies encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "barter":
		*k = Barter
	case "flashloan":
		*k = FlashLoan
	default:
		return fmt.Errorf("unknown proposal kind %q", string(b))
	}
	return nil
}

// Proposal is a standing offer to trade the remaining Offering for the
// remaining Asking. Fills shrink both by the same ratio.
type Proposal struct {
	ID           ProposalID                         `json:"id"`
	Owner        dex.TokenID                        `json:"owner"`
	Counterparty *dex.TokenID                       `json:"counterparty,omitempty"`
	Kind         Kind                               `json:"kind"`
	Offering     *bag.Bag                           `json:"offering"`
	Asking       map[dex.AssetType]*bag.Requirement `json:"asking"`
	AllowPartial bool                               `json:"allowPartial"`
	Fees         *fees.Schedule                     `json:"fees,omitempty"`
	Stamp        time.Time                          `json:"stamp"`
	Seq          uint64                             `json:"seq"`
	// OnLoan is set while the offering of a FlashLoan proposal is lent out.
	OnLoan bool `json:"onLoan,omitempty"`
}

// Clone creates a deep copy.
func (p *Proposal) Clone() *Proposal {
	c := *p
	if p.Counterparty != nil {
		cp := *p.Counterparty
		c.Counterparty = &cp
	}
	c.Offering = p.Offering.Clone()
	c.Asking = make(map[dex.AssetType]*bag.Requirement, len(p.Asking))
	for t, req := range p.Asking {
		c.Asking[t] = req.Clone()
	}
	c.Fees = p.Fees.Clone()
	return &c
}

// AskingTypes is the sorted list of asset types asked for.
func (p *Proposal) AskingTypes() []dex.AssetType {
	return utils.SortedKeys(p.Asking)
}

// Pair returns the asking and offering asset types if the proposal asks for
// exactly one asset type and offers exactly one.
func (p *Proposal) Pair() (ask, offer dex.AssetType, ok bool) {
	if len(p.Asking) != 1 {
		return "", "", false
	}
	offered := p.Offering.Types()
	if len(offered) != 1 {
		return "", "", false
	}
	for t := range p.Asking {
		ask = t
	}
	return ask, offered[0], true
}

// UnitPrice is the asking quantity per unit of offering for a single pair
// proposal.
func (p *Proposal) UnitPrice() (*big.Rat, error) {
	ask, offer, ok := p.Pair()
	if !ok {
		return nil, dex.NewError(dex.ErrArithmeticInvalid, "unit price of multi-asset proposal")
	}
	return calc.UnitPrice(p.Asking[ask].Quantity(), p.Offering.Quantity(offer))
}

// Indexable checks whether the proposal belongs in the price index.
func (p *Proposal) Indexable() bool {
	if p.Kind != Barter {
		return false
	}
	_, _, ok := p.Pair()
	return ok
}

// AllowsTaker checks the counterparty restriction against the taker's token.
func (p *Proposal) AllowsTaker(taker *dex.TokenID) bool {
	if p.Counterparty == nil {
		return true
	}
	return taker != nil && *taker == *p.Counterparty
}

// Exhausted checks whether nothing remains on offer.
func (p *Proposal) Exhausted() bool {
	return p.Offering.IsEmpty() && !p.OnLoan
}

// String is a short description for logging.
func (p *Proposal) String() string {
	return fmt.Sprintf("%s %s by %s offering %s", p.Kind, p.ID, p.Owner, p.Offering)
}
