// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package loan

import (
	"errors"
	"testing"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/server/book"
	"github.com/shopspring/decimal"
)

func TestDesk(t *testing.T) {
	UseLogger(dex.StdOutLogger("LOANTEST", dex.LevelTrace))

	pid, _ := book.NewProposalID()
	principal, _ := bag.NewFungible("a", decimal.NewFromInt(100))
	d := NewDesk()
	r, err := d.Issue(pid, "borrower", principal)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Lent(pid) || d.Len() != 1 {
		t.Fatal("loan not outstanding")
	}
	if _, err = d.Issue(pid, "borrower", principal); !errors.Is(err, dex.ErrProposalAlreadyExhausted) {
		t.Fatalf("wanted ErrProposalAlreadyExhausted, got %v", err)
	}

	short, _ := bag.NewFungible("a", decimal.NewFromInt(99))
	if r.Covers(short) {
		t.Fatal("short repayment covers principal")
	}
	extra, _ := bag.NewFungible("a", decimal.NewFromInt(101))
	if !r.Covers(extra) {
		t.Fatal("repayment with extra does not cover principal")
	}

	// The principal is a copy.
	if _, err := principal.TakeAmount("a", decimal.NewFromInt(100)); err != nil {
		t.Fatal(err)
	}
	if r.Principal.IsEmpty() {
		t.Fatal("principal shares the lent bag")
	}

	forged := &Receipt{ProposalID: pid, Principal: bag.New()}
	if _, err = d.Burn(forged); !errors.Is(err, dex.ErrFlashLoanNotRepaid) {
		t.Fatalf("wanted ErrFlashLoanNotRepaid for forged receipt, got %v", err)
	}
	if _, err = d.Burn(r); err != nil {
		t.Fatal(err)
	}
	if _, err = d.Burn(r); !errors.Is(err, dex.ErrFlashLoanNotRepaid) {
		t.Fatalf("wanted ErrFlashLoanNotRepaid for burned receipt, got %v", err)
	}
	if d.Lent(pid) || len(d.Outstanding()) != 0 {
		t.Fatal("loan still outstanding")
	}
}
