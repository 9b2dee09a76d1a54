// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package matcher

import (
	"errors"
	"testing"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/server/book"
	"decred.org/kaupa/server/fees"
	"github.com/davecgh/go-spew/spew"
	"github.com/shopspring/decimal"
)

const (
	assetA dex.AssetType = "a"
	assetB dex.AssetType = "b"
	assetF dex.AssetType = "f"
	assetN dex.AssetType = "nft"
	assetM dex.AssetType = "mech"
)

var testAssets, _ = dex.NewAssets(
	&dex.Asset{Type: assetA, Kind: dex.Fungible, Symbol: "A"},
	&dex.Asset{Type: assetB, Kind: dex.Fungible, Symbol: "B"},
	&dex.Asset{Type: assetF, Kind: dex.Fungible, Symbol: "F"},
	&dex.Asset{Type: assetN, Kind: dex.Discrete, Symbol: "N"},
	&dex.Asset{Type: assetM, Kind: dex.Discrete, Symbol: "M"},
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func fungible(t dex.AssetType, amt string) *bag.Bag {
	b, err := bag.NewFungible(t, dec(amt))
	if err != nil {
		panic(err)
	}
	return b
}

func items(t dex.AssetType, ids ...dex.ItemID) *bag.Bag {
	b, err := bag.NewItems(t, ids...)
	if err != nil {
		panic(err)
	}
	return b
}

func merge(bs ...*bag.Bag) *bag.Bag {
	out := bag.New()
	for _, b := range bs {
		if err := out.Merge(b); err != nil {
			panic(err)
		}
	}
	return out
}

func proposal(offering *bag.Bag, asking map[dex.AssetType]*bag.Requirement, allowPartial bool) *book.Proposal {
	id, _ := book.NewProposalID()
	return &book.Proposal{
		ID:           id,
		Owner:        "maker",
		Kind:         book.Barter,
		Offering:     offering,
		Asking:       asking,
		AllowPartial: allowPartial,
	}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name         string
		offering     *bag.Bag
		asking       map[dex.AssetType]*bag.Requirement
		allowPartial bool
		payment      *bag.Bag
		callerPart   bool
		wantErr      error
		wantRatio    string
		wantRelease  *bag.Bag
		wantPaid     *bag.Bag
		wantChange   *bag.Bag
	}{
		{
			name:        "full fungible",
			offering:    fungible(assetA, "10"),
			asking:      map[dex.AssetType]*bag.Requirement{assetB: bag.Amount(dec("1"))},
			payment:     fungible(assetB, "1.5"),
			wantRatio:   "1",
			wantRelease: fungible(assetA, "10"),
			wantPaid:    fungible(assetB, "1"),
			wantChange:  fungible(assetB, "0.5"),
		},
		{
			name:         "partial fungible",
			offering:     fungible(assetA, "10"),
			asking:       map[dex.AssetType]*bag.Requirement{assetB: bag.Amount(dec("4"))},
			allowPartial: true,
			callerPart:   true,
			payment:      fungible(assetB, "1"),
			wantRatio:    "1/4",
			wantRelease:  fungible(assetA, "2.5"),
			wantPaid:     fungible(assetB, "1"),
			wantChange:   bag.New(),
		},
		{
			name:         "proposal disallows partial",
			offering:     fungible(assetA, "10"),
			asking:       map[dex.AssetType]*bag.Requirement{assetB: bag.Amount(dec("4"))},
			allowPartial: false,
			callerPart:   true,
			payment:      fungible(assetB, "1"),
			wantErr:      dex.ErrPartialFillNotAllowed,
		},
		{
			name:         "caller disallows partial",
			offering:     fungible(assetA, "10"),
			asking:       map[dex.AssetType]*bag.Requirement{assetB: bag.Amount(dec("4"))},
			allowPartial: true,
			callerPart:   false,
			payment:      fungible(assetB, "1"),
			wantErr:      dex.ErrPartialFillNotAllowed,
		},
		{
			name:         "wrong asset",
			offering:     fungible(assetA, "10"),
			asking:       map[dex.AssetType]*bag.Requirement{assetB: bag.Amount(dec("4"))},
			allowPartial: true,
			callerPart:   true,
			payment:      fungible(assetF, "100"),
			wantErr:      dex.ErrInsufficientPayment,
		},
		{
			// Four items for 1 F, paid with 0.5 F.
			name:         "discrete offering half filled",
			offering:     items(assetN, "n1", "n2", "n3", "n4"),
			asking:       map[dex.AssetType]*bag.Requirement{assetF: bag.Amount(dec("1"))},
			allowPartial: true,
			callerPart:   true,
			payment:      fungible(assetF, "0.5"),
			wantRatio:    "1/2",
			wantRelease:  items(assetN, "n1", "n2"),
			wantPaid:     fungible(assetF, "0.5"),
			wantChange:   bag.New(),
		},
		{
			// Four items can only be split in quarters.
			name:         "discrete offering floored to grid",
			offering:     items(assetN, "n1", "n2", "n3", "n4"),
			asking:       map[dex.AssetType]*bag.Requirement{assetF: bag.Amount(dec("1"))},
			allowPartial: true,
			callerPart:   true,
			payment:      fungible(assetF, "0.6"),
			wantRatio:    "1/2",
			wantRelease:  items(assetN, "n1", "n2"),
			wantPaid:     fungible(assetF, "0.5"),
			wantChange:   fungible(assetF, "0.1"),
		},
		{
			name:         "below smallest grid step",
			offering:     items(assetN, "n1", "n2", "n3", "n4"),
			asking:       map[dex.AssetType]*bag.Requirement{assetF: bag.Amount(dec("1"))},
			allowPartial: true,
			callerPart:   true,
			payment:      fungible(assetF, "0.2"),
			wantErr:      dex.ErrInsufficientPayment,
		},
		{
			// Asking two named and two random items, paid one named and one
			// other item.
			name:     "named and random asking half filled",
			offering: fungible(assetF, "1"),
			asking: map[dex.AssetType]*bag.Requirement{
				assetN: bag.Items([]dex.ItemID{"x", "y"}, 2),
			},
			allowPartial: true,
			callerPart:   true,
			payment:      items(assetN, "y", "z"),
			wantRatio:    "1/2",
			wantRelease:  fungible(assetF, "0.5"),
			wantPaid:     items(assetN, "y", "z"),
			wantChange:   bag.New(),
		},
		{
			name:     "named items are mandatory",
			offering: fungible(assetF, "1"),
			asking: map[dex.AssetType]*bag.Requirement{
				assetN: bag.Items([]dex.ItemID{"x", "y"}, 2),
			},
			allowPartial: true,
			callerPart:   true,
			payment:      items(assetN, "a", "b", "c", "d"),
			wantErr:      dex.ErrNamedItemUnavailable,
		},
		{
			name:     "named items do not count as random",
			offering: fungible(assetF, "1"),
			asking: map[dex.AssetType]*bag.Requirement{
				assetN: bag.Items([]dex.ItemID{"x", "y"}, 2),
			},
			allowPartial: true,
			callerPart:   true,
			payment:      items(assetN, "x", "y"),
			wantErr:      dex.ErrInsufficientPayment,
		},
		{
			name:     "full named fill with extra items",
			offering: items(assetM, "m1"),
			asking: map[dex.AssetType]*bag.Requirement{
				assetN: bag.Items([]dex.ItemID{"x"}, 1),
			},
			payment:     items(assetN, "a", "b", "x"),
			wantRatio:   "1",
			wantRelease: items(assetM, "m1"),
			wantPaid:    items(assetN, "a", "x"),
			wantChange:  items(assetN, "b"),
		},
		{
			// The lesser of the two asking ratios limits the fill.
			name:     "multi asset asking",
			offering: merge(fungible(assetA, "9"), items(assetM, "m1", "m2", "m3")),
			asking: map[dex.AssetType]*bag.Requirement{
				assetB: bag.Amount(dec("3")),
				assetF: bag.Amount(dec("30")),
			},
			allowPartial: true,
			callerPart:   true,
			payment:      merge(fungible(assetB, "3"), fungible(assetF, "21")),
			wantRatio:    "2/3",
			wantRelease:  merge(fungible(assetA, "6"), items(assetM, "m1", "m2")),
			wantPaid:     merge(fungible(assetB, "2"), fungible(assetF, "20")),
			wantChange:   merge(fungible(assetB, "1"), fungible(assetF, "1")),
		},
		{
			name:         "truncated fungible release",
			offering:     fungible(assetA, "1"),
			asking:       map[dex.AssetType]*bag.Requirement{assetB: bag.Amount(dec("3"))},
			allowPartial: true,
			callerPart:   true,
			payment:      fungible(assetB, "1"),
			wantRatio:    "1/3",
			wantRelease:  fungible(assetA, "0.333333333333333333"),
			wantPaid:     fungible(assetB, "1"),
			wantChange:   bag.New(),
		},
		{
			name:         "release rounds to nothing",
			offering:     fungible(assetA, "0.000000000000000001"),
			asking:       map[dex.AssetType]*bag.Requirement{assetB: bag.Amount(dec("2"))},
			allowPartial: true,
			callerPart:   true,
			payment:      fungible(assetB, "1"),
			wantErr:      dex.ErrInsufficientPayment,
		},
		{
			name:     "payment rounds to nothing",
			offering: fungible(assetA, "10"),
			asking: map[dex.AssetType]*bag.Requirement{
				assetB: bag.Amount(dec("2")),
				assetF: bag.Amount(dec("0.000000000000000001")),
			},
			allowPartial: true,
			callerPart:   true,
			payment:      merge(fungible(assetB, "1"), fungible(assetF, "1")),
			wantErr:      dex.ErrInsufficientPayment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := proposal(tt.offering, tt.asking, tt.allowPartial)
			f, err := Plan(p, tt.payment, tt.callerPart)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("wanted error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Plan error: %v", err)
			}
			if f.Ratio.RatString() != tt.wantRatio {
				t.Fatalf("wanted ratio %s, got %s", tt.wantRatio, f.Ratio.RatString())
			}
			if !f.Release.Equal(tt.wantRelease) {
				t.Fatalf("wanted release %s, got %s", tt.wantRelease, f.Release)
			}
			before := merge(p.Offering.Clone(), tt.payment.Clone())
			paid, released, err := f.Execute(p, tt.payment)
			if err != nil {
				t.Fatalf("Execute error: %v", err)
			}
			if !paid.Equal(tt.wantPaid) {
				t.Fatalf("wanted paid %s, got %s", tt.wantPaid, paid)
			}
			if !released.Equal(tt.wantRelease) {
				t.Fatalf("wanted released %s, got %s", tt.wantRelease, released)
			}
			if !tt.payment.Equal(tt.wantChange) {
				t.Fatalf("wanted change %s, got %s", tt.wantChange, tt.payment)
			}
			if f.Full() != p.Offering.IsEmpty() {
				t.Fatalf("full fill %v but offering remaining %s", f.Full(), p.Offering)
			}
			// Nothing created or destroyed.
			after := merge(p.Offering.Clone(), tt.payment.Clone(), paid, released)
			if !after.Equal(before) {
				t.Fatalf("value not conserved: before %s, after %s", before, after)
			}
		})
	}
}

func execute(t *testing.T, p *book.Proposal, payment *bag.Bag, allowPartial bool) (f *Fill, paid, released *bag.Bag) {
	t.Helper()
	f, err := Plan(p, payment, allowPartial)
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if paid, released, err = f.Execute(p, payment); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	return f, paid, released
}

func TestExecuteReducesAsking(t *testing.T) {
	p := proposal(items(assetM, "m1", "m2"), map[dex.AssetType]*bag.Requirement{
		assetN: bag.Items([]dex.ItemID{"x", "y"}, 2),
		assetF: bag.Amount(dec("10")),
	}, true)
	payment := merge(items(assetN, "y", "q"), fungible(assetF, "7"))
	f, paid, released := execute(t, p, payment, true)
	if f.Ratio.RatString() != "1/2" {
		t.Fatalf("wrong ratio %s", f.Ratio.RatString())
	}
	if !released.Equal(items(assetM, "m1")) {
		t.Fatalf("wrong release %s", released)
	}
	if !paid.Equal(merge(items(assetN, "y", "q"), fungible(assetF, "5"))) {
		t.Fatalf("wrong paid %s", paid)
	}
	nReq := p.Asking[assetN]
	if len(nReq.Named) != 1 || nReq.Named[0] != "x" || nReq.Random != 1 {
		t.Fatalf("wrong remaining asking %s", spew.Sdump(nReq))
	}
	if !p.Asking[assetF].Amount.Equal(dec("5")) {
		t.Fatalf("wrong remaining fungible asking %s", p.Asking[assetF])
	}

	// The remaining half requires x.
	if _, err := Plan(p, merge(items(assetN, "y2", "q2"), fungible(assetF, "5")), true); !errors.Is(err, dex.ErrNamedItemUnavailable) {
		t.Fatalf("wanted ErrNamedItemUnavailable, got %v", err)
	}
	payment = merge(items(assetN, "x", "q2"), fungible(assetF, "5"))
	f, _, _ = execute(t, p, payment, false)
	if !f.Full() || !p.Offering.IsEmpty() {
		t.Fatal("second fill not full")
	}

	// Exhausted proposals fill nothing.
	if _, err := Plan(p, fungible(assetF, "5"), true); !errors.Is(err, dex.ErrProposalAlreadyExhausted) {
		t.Fatalf("wanted ErrProposalAlreadyExhausted, got %v", err)
	}
}

func TestCharge(t *testing.T) {
	sched := &fees.Schedule{
		PerUnit: map[dex.AssetType]*fees.UnitFee{
			assetN: {Currency: assetF, Rate: dec("0.1")},
			assetM: {Currency: assetF, Rate: dec("0.01")},
		},
		PaymentBps: dec("100"),
	}
	p := proposal(items(assetM, "m1", "m2"), map[dex.AssetType]*bag.Requirement{
		assetN: bag.Items(nil, 2),
		assetB: bag.Amount(dec("50")),
	}, true)
	f, err := Plan(p, merge(items(assetN, "n1", "n2"), fungible(assetB, "50")), false)
	if err != nil {
		t.Fatal(err)
	}
	units := f.Units()
	if units[assetN] != 2 || units[assetM] != 2 {
		t.Fatalf("wrong units %v", units)
	}
	bill := fees.NewBill(testAssets)
	f.Charge(bill, sched)
	// 2 x 0.1 + 2 x 0.01 in f, 1% of 50 in b.
	if !bill.Owed(assetF).Equal(dec("0.22")) {
		t.Fatalf("wrong per-unit fee %s", bill.Owed(assetF))
	}
	if !bill.Owed(assetB).Equal(dec("0.5")) {
		t.Fatalf("wrong payment fee %s", bill.Owed(assetB))
	}
}
