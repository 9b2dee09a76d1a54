// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package market

import (
	"errors"
	"fmt"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/dex/calc"
	"decred.org/kaupa/server/book"
	"decred.org/kaupa/server/fees"
	"decred.org/kaupa/server/loan"
)

// AcceptLoan borrows the entire offering of a FlashLoan proposal. The
// proposal's asking is the loan fee and is taken from payment in full,
// credited to the maker. The taker fixed fee is charged from feeBag. The
// returned receipt must be passed to RepayLoan before the Tx commits.
func (tx *Tx) AcceptLoan(trader dex.TokenID, id book.ProposalID, payment, feeBag *bag.Bag) (loaned *bag.Bag, receipt *loan.Receipt, change *bag.Bag, err error) {
	if err := tx.begin(payment, feeBag); err != nil {
		return nil, nil, nil, err
	}
	p, found := tx.store.Get(id)
	if !found {
		return nil, nil, nil, tx.fail(dex.NewError(dex.ErrProposalNotFound, id.String()))
	}
	if p.Kind != book.FlashLoan {
		return nil, nil, nil, tx.fail(dex.NewError(dex.ErrWrongProposalKind, fmt.Sprintf("%s is a %s proposal", id, p.Kind)))
	}
	if !tx.e.info.AllowFlashLoans {
		return nil, nil, nil, tx.fail(dex.NewError(dex.ErrWrongProposalKind, "flash loans are disabled"))
	}
	if !p.AllowsTaker(&trader) {
		return nil, nil, nil, tx.fail(dex.NewError(dex.ErrUnauthorized, fmt.Sprintf("%s is reserved for another counterparty", id)))
	}
	if p.OnLoan || tx.desk.Lent(id) {
		return nil, nil, nil, tx.fail(dex.NewError(dex.ErrProposalAlreadyExhausted, fmt.Sprintf("%s is lent out", id)))
	}
	if err := tx.checkBag(payment); err != nil {
		return nil, nil, nil, tx.fail(err)
	}
	if payment == nil {
		payment = bag.New()
	}

	loanFee := bag.New()
	for _, t := range p.AskingTypes() {
		sel, err := p.Asking[t].Select(payment, t, calc.One())
		if err != nil {
			if errors.Is(err, bag.ErrInsufficientBalance) {
				err = dex.NewError(dex.ErrInsufficientPayment, err.Error())
			}
			return nil, nil, nil, tx.fail(err)
		}
		taken, err := payment.Extract(sel.Spec())
		if err != nil {
			return nil, nil, nil, tx.fail(dex.NewError(dex.ErrInsufficientPayment, err.Error()))
		}
		if err = loanFee.Merge(taken); err != nil {
			return nil, nil, nil, tx.fail(err)
		}
	}

	bill := fees.NewBill(tx.e.assets)
	bill.AddTakerFixed(p.Fees)
	if err := tx.settle(bill, feeBag); err != nil {
		return nil, nil, nil, tx.fail(err)
	}
	tx.touchAccount(p.Owner)
	if err := tx.ledger.Credit(p.Owner, loanFee); err != nil {
		return nil, nil, nil, tx.fail(err)
	}

	tx.touch(p)
	loaned = p.Offering.TakeAll()
	if receipt, err = tx.desk.Issue(id, trader, loaned); err != nil {
		return nil, nil, nil, tx.fail(err)
	}
	p.OnLoan = true
	if change, err = tx.change(payment, feeBag); err != nil {
		return nil, nil, nil, tx.fail(err)
	}
	log.Debugf("%s borrowed %s", trader, receipt)
	return tx.output(loaned), receipt, change, nil
}

// RepayLoan returns the principal of a flash loan to the proposal's offering
// and burns the receipt. The repayment must include every lent item and at
// least every lent amount. Any excess is returned as change.
func (tx *Tx) RepayLoan(receipt *loan.Receipt, repayment *bag.Bag) (*bag.Bag, error) {
	if err := tx.begin(repayment); err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, tx.fail(dex.NewError(dex.ErrFlashLoanNotRepaid, "no receipt"))
	}
	known, found := tx.desk.Lookup(receipt.ID)
	if !found {
		return nil, tx.fail(dex.NewError(dex.ErrFlashLoanNotRepaid, fmt.Sprintf("unknown receipt %s", receipt.ID)))
	}
	if repayment == nil || !known.Covers(repayment) {
		return nil, tx.fail(dex.NewError(dex.ErrFlashLoanNotRepaid, fmt.Sprintf("repayment does not cover %s", known.Principal)))
	}
	p, found := tx.store.Get(known.ProposalID)
	if !found {
		return nil, tx.fail(dex.NewError(dex.ErrProposalNotFound, known.ProposalID.String()))
	}
	principal, err := repayment.Extract(known.Principal)
	if err != nil {
		return nil, tx.fail(dex.NewError(dex.ErrFlashLoanNotRepaid, err.Error()))
	}
	tx.touch(p)
	if err = p.Offering.Merge(principal); err != nil {
		return nil, tx.fail(err)
	}
	p.OnLoan = false
	if _, err = tx.desk.Burn(known); err != nil {
		return nil, tx.fail(err)
	}
	change, err := tx.change(repayment)
	if err != nil {
		return nil, tx.fail(err)
	}
	log.Debugf("Repaid %s", known)
	return change, nil
}

// AcceptLoan borrows, calls use with the Tx and the loaned bag, and repays
// from the bag use returns, all in one transaction. use may trade on the Tx,
// but not on the Engine, which stays locked until the Tx finishes. The
// returned bag must cover the principal, and anything else in it is returned
// as change. Wallets use draws on other than the loaned bag must be passed
// as wallets so that a failed loan restores them.
func (e *Engine) AcceptLoan(trader dex.TokenID, id book.ProposalID, payment, feeBag *bag.Bag,
	use func(tx *Tx, loaned *bag.Bag) (*bag.Bag, error), wallets ...*bag.Bag) (change *bag.Bag, err error) {

	tx := e.Begin(wallets...)
	defer tx.Rollback()
	loaned, receipt, change, err := tx.AcceptLoan(trader, id, payment, feeBag)
	if err != nil {
		return nil, err
	}
	repayment, err := use(tx, loaned)
	if err != nil {
		return nil, tx.fail(err)
	}
	excess, err := tx.RepayLoan(receipt, repayment)
	if err != nil {
		return nil, err
	}
	if err = change.Merge(excess); err != nil {
		return nil, tx.fail(err)
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return change, nil
}
