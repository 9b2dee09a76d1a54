// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"bytes"
	"strings"
	"testing"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/bag"
	"decred.org/kaupa/server/book"
	"decred.org/kaupa/server/market"
	"github.com/shopspring/decimal"
)

const tInstance = `{
	"owner": "admin",
	"name": "Test Barter",
	"blurb": "widgets for tokens",
	"assets": [
		{"type": "tok", "kind": "fungible", "symbol": "TOK"},
		{"type": "wdg", "kind": "discrete", "symbol": "WDG"}
	],
	"side1": ["tok"],
	"side2": ["wdg"],
	"allowFlashLoans": true,
	"fees": {
		"takerFixed": {"tok": {"amount": "0.1"}},
		"perUnit": {"wdg": {"currency": "tok", "rate": "0.5"}},
		"paymentBps": "25"
	}
}`

func TestLoadInstanceConf(t *testing.T) {
	cfg, err := loadInstanceConf(strings.NewReader(tInstance))
	if err != nil {
		t.Fatalf("loadInstanceConf error: %v", err)
	}
	if cfg.Owner != "admin" || cfg.Name != "Test Barter" || cfg.Blurb != "widgets for tokens" {
		t.Fatalf("wrong metadata %+v", cfg)
	}
	if kind, err := cfg.Assets.Kind("wdg"); err != nil || kind != dex.Discrete {
		t.Fatalf("wrong kind for wdg: %v, %v", kind, err)
	}
	if cfg.Assets.Symbol("tok") != "TOK" {
		t.Fatalf("wrong symbol %q", cfg.Assets.Symbol("tok"))
	}
	if !cfg.AllowFlashLoans || cfg.TradingPair {
		t.Fatal("wrong flags")
	}
	if !cfg.Fees.PaymentBps.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("wrong bps %s", cfg.Fees.PaymentBps)
	}
	if uf := cfg.Fees.PerUnit["wdg"]; uf == nil || uf.Currency != "tok" || !uf.Rate.Equal(decimal.RequireFromString("0.5")) {
		t.Fatalf("wrong per-unit fee %+v", uf)
	}
	if _, err := market.NewEngine(cfg); err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
}

func TestLoadInstanceConfErrors(t *testing.T) {
	tests := []struct {
		name string
		conf string
	}{
		{"bad json", `{"owner": `},
		{"bad kind", `{"assets": [{"type": "tok", "kind": "liquid"}]}`},
		{"duplicate asset", `{"assets": [{"type": "tok", "kind": "fungible"}, {"type": "tok", "kind": "discrete"}]}`},
		{"empty side", `{"assets": [{"type": "tok", "kind": "fungible"}], "side1": []}`},
		{"empty side2", `{"assets": [{"type": "tok", "kind": "fungible"}], "side1": ["tok"], "side2": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadInstanceConf(strings.NewReader(tt.conf)); err == nil {
				t.Fatal("no error")
			}
		})
	}
}

func TestWriteReport(t *testing.T) {
	cfg, err := loadInstanceConf(strings.NewReader(tInstance))
	if err != nil {
		t.Fatal(err)
	}
	eng, err := market.NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}
	offering := bag.New()
	if err := offering.AddItems("wdg", "w1", "w2"); err != nil {
		t.Fatal(err)
	}
	id, _, err := eng.CreateProposal(&market.ProposalRequest{
		Maker:    "maker",
		Kind:     book.Barter,
		Offering: offering,
		Asking:   map[dex.AssetType]*bag.Requirement{"tok": bag.Amount(decimal.NewFromInt(4))},
	}, nil)
	if err != nil {
		t.Fatalf("CreateProposal error: %v", err)
	}
	loanOffer := bag.New()
	if err := loanOffer.AddFungible("tok", decimal.NewFromInt(50)); err != nil {
		t.Fatal(err)
	}
	loanID, _, err := eng.CreateProposal(&market.ProposalRequest{
		Maker:    "lender",
		Kind:     book.FlashLoan,
		Offering: loanOffer,
		Asking:   map[dex.AssetType]*bag.Requirement{"wdg": bag.Items(nil, 1)},
	}, nil)
	if err != nil {
		t.Fatalf("CreateProposal error: %v", err)
	}

	sold := bag.New()
	if err := sold.AddItems("wdg", "w3"); err != nil {
		t.Fatal(err)
	}
	soldID, _, err := eng.CreateProposal(&market.ProposalRequest{
		Maker:    "seller",
		Kind:     book.Barter,
		Offering: sold,
		Asking:   map[dex.AssetType]*bag.Requirement{"tok": bag.Amount(decimal.NewFromInt(1))},
	}, nil)
	if err != nil {
		t.Fatalf("CreateProposal error: %v", err)
	}
	payment := bag.New()
	if err := payment.AddFungible("tok", decimal.NewFromInt(1)); err != nil {
		t.Fatal(err)
	}
	feeBag := bag.New()
	if err := feeBag.AddFungible("tok", decimal.NewFromInt(1)); err != nil {
		t.Fatal(err)
	}
	if _, _, err := eng.AcceptProposal("buyer", soldID, false, payment, feeBag); err != nil {
		t.Fatalf("AcceptProposal error: %v", err)
	}

	var buf bytes.Buffer
	if err := writeReport(&buf, eng); err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	report := buf.String()
	for _, want := range []string{
		`Instance "Test Barter"`,
		"BOOK wdg for tok",
		"2.00000000",
		id.String(),
		"UNINDEXED",
		loanID.String(),
		"WDG",
		"PROCEEDS",
		"seller",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}
