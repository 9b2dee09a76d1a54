// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package fees defines the fee schedule of an engine instance and the bills
// computed from it.
package fees

import (
	"fmt"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/dex/calc"
	"github.com/shopspring/decimal"
)

// MaxBps is the largest permitted payment fee, 100%.
var MaxBps = decimal.NewFromInt(10000)

// UnitFee is charged for every discrete item of one asset type moved in a
// trade, in a designated fee currency.
type UnitFee struct {
	Currency dex.AssetType   `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
}

// Schedule is the set of fees charged by an instance. Proposals keep a copy of
// the Schedule in force when they were created.
type Schedule struct {
	// MakerFixed is charged once when a proposal is created.
	MakerFixed map[dex.AssetType]*bag.Requirement `json:"makerFixed,omitempty"`
	// TakerFixed is charged once per accept, sweep or loan.
	TakerFixed map[dex.AssetType]*bag.Requirement `json:"takerFixed,omitempty"`
	// PerUnit is keyed by the discrete asset type being moved.
	PerUnit map[dex.AssetType]*UnitFee `json:"perUnit,omitempty"`
	// PaymentBps is charged on every fungible payment, in basis points, in
	// the payment's own asset type.
	PaymentBps decimal.Decimal `json:"paymentBps"`
}

// Validate checks the schedule for internal consistency against the asset
// registry.
func (s *Schedule) Validate(assets dex.Assets) error {
	if s == nil {
		return nil
	}
	if s.PaymentBps.Sign() < 0 || s.PaymentBps.GreaterThan(MaxBps) {
		return dex.NewError(dex.ErrArithmeticInvalid, fmt.Sprintf("basis point fee %s not in [0, 10000]", s.PaymentBps))
	}
	for _, fixed := range []map[dex.AssetType]*bag.Requirement{s.MakerFixed, s.TakerFixed} {
		for t, req := range fixed {
			kind, err := assets.Kind(t)
			if err != nil {
				return err
			}
			if err = req.Validate(t, kind); err != nil {
				return err
			}
		}
	}
	for t, uf := range s.PerUnit {
		kind, err := assets.Kind(t)
		if err != nil {
			return err
		}
		if kind != dex.Discrete {
			return dex.NewError(dex.ErrInvalidAssetType, fmt.Sprintf("per-unit fee on fungible asset %s", t))
		}
		curKind, err := assets.Kind(uf.Currency)
		if err != nil {
			return err
		}
		if err = calc.ValidAmount(uf.Rate); err != nil {
			return err
		}
		if curKind == dex.Discrete && !uf.Rate.IsInteger() {
			return dex.NewError(dex.ErrArithmeticInvalid, fmt.Sprintf("per-unit fee for %s in discrete %s must be whole, got %s",
				t, uf.Currency, uf.Rate))
		}
	}
	return nil
}

// Clone creates a deep copy. A nil Schedule clones to nil.
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	c := &Schedule{
		MakerFixed: cloneReqs(s.MakerFixed),
		TakerFixed: cloneReqs(s.TakerFixed),
		PaymentBps: s.PaymentBps,
	}
	if s.PerUnit != nil {
		c.PerUnit = make(map[dex.AssetType]*UnitFee, len(s.PerUnit))
		for t, uf := range s.PerUnit {
			ufc := *uf
			c.PerUnit[t] = &ufc
		}
	}
	return c
}

func cloneReqs(m map[dex.AssetType]*bag.Requirement) map[dex.AssetType]*bag.Requirement {
	if m == nil {
		return nil
	}
	c := make(map[dex.AssetType]*bag.Requirement, len(m))
	for t, req := range m {
		c[t] = req.Clone()
	}
	return c
}

func (s *Schedule) makerFixed() map[dex.AssetType]*bag.Requirement {
	if s == nil {
		return nil
	}
	return s.MakerFixed
}

func (s *Schedule) takerFixed() map[dex.AssetType]*bag.Requirement {
	if s == nil {
		return nil
	}
	return s.TakerFixed
}
