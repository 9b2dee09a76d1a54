// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/server/book"
	"decred.org/kaupa/server/market"
)

func askingString(p *book.Proposal) string {
	parts := make([]string, 0, len(p.Asking))
	for _, t := range p.AskingTypes() {
		parts = append(parts, fmt.Sprintf("%s %s", t, p.Asking[t]))
	}
	return strings.Join(parts, ", ")
}

// writeReport prints the instance description, fee schedule, uncollected
// proceeds and every standing proposal, indexed books first.
func writeReport(w io.Writer, eng *market.Engine) error {
	info := eng.Info()
	fmt.Fprintf(w, "Instance %q, owner %s, commit %d\n", info.Name, info.Owner, eng.Commit())
	if info.Blurb != "" {
		fmt.Fprintln(w, info.Blurb)
	}
	if info.URL != "" {
		fmt.Fprintln(w, info.URL)
	}
	fmt.Fprintf(w, "Trading pair: %t, force partial: %t, flash loans: %t\n",
		info.TradingPair, info.ForceAllowPartial, info.AllowFlashLoans)

	assets := eng.Assets()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nASSET\tKIND\tSYMBOL")
	types := assets.Types()
	for _, t := range types {
		kind, _ := assets.Kind(t)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t, kind, assets.Symbol(t))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	sched, err := json.MarshalIndent(eng.Fees(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nFees: %s\n", sched)
	fmt.Fprintf(w, "Uncollected fees: %s\n", eng.FeeBalance())

	if owners := eng.Owners(); len(owners) > 0 {
		fmt.Fprintln(w, "\nPROCEEDS")
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, owner := range owners {
			fmt.Fprintf(tw, "%s\t%s\n", owner, eng.Balance(owner))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	indexed := make(map[book.ProposalID]bool)
	for _, ask := range types {
		for _, offer := range types {
			if ask == offer {
				continue
			}
			pps := eng.Book(ask, offer)
			if len(pps) == 0 {
				continue
			}
			fmt.Fprintf(w, "\nBOOK %s for %s\n", offer, ask)
			tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "PRICE\tOFFERING\tASKING\tOWNER\tID\t")
			for _, pp := range pps {
				indexed[pp.ID] = true
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", pp.Price.FloatString(8),
					pp.Offering, askingString(pp.Proposal), pp.Owner, pp.ID)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}
	}

	var others []*book.Proposal
	for _, p := range eng.Proposals() {
		if !indexed[p.ID] {
			others = append(others, p)
		}
	}
	if len(others) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nUNINDEXED")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tOFFERING\tASKING\tOWNER\tCOUNTERPARTY\tID")
	for _, p := range others {
		cp := dex.TokenID("-")
		if p.Counterparty != nil {
			cp = *p.Counterparty
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.Kind, p.Offering,
			askingString(p), p.Owner, cp, p.ID)
	}
	return tw.Flush()
}
