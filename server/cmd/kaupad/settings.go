// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/server/fees"
	"decred.org/kaupa/server/market"
)

type assetConf struct {
	Type   dex.AssetType `json:"type"`
	Kind   string        `json:"kind"`
	Symbol string        `json:"symbol"`
}

// instanceConfig is the instance.json file.
type instanceConfig struct {
	Owner             dex.TokenID     `json:"owner"`
	Name              string          `json:"name"`
	Blurb             string          `json:"blurb"`
	URL               string          `json:"url"`
	Assets            []*assetConf    `json:"assets"`
	Side1             []dex.AssetType `json:"side1"`
	Side2             []dex.AssetType `json:"side2"`
	TradingPair       bool            `json:"tradingPair"`
	ForceAllowPartial bool            `json:"forceAllowPartial"`
	AllowFlashLoans   bool            `json:"allowFlashLoans"`
	Fees              *fees.Schedule  `json:"fees"`
}

func parseKind(s string) (dex.AssetKind, error) {
	switch s {
	case "fungible":
		return dex.Fungible, nil
	case "discrete":
		return dex.Discrete, nil
	}
	return 0, fmt.Errorf("unknown asset kind %q", s)
}

func loadInstanceConfFile(path string) (*market.Config, error) {
	src, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return loadInstanceConf(src)
}

func loadInstanceConf(src io.Reader) (*market.Config, error) {
	settings, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	var conf instanceConfig
	if err = json.Unmarshal(settings, &conf); err != nil {
		return nil, err
	}

	assets := make([]*dex.Asset, 0, len(conf.Assets))
	log.Debug("-------------------- BEGIN parsed instance.json --------------------")
	log.Debugf("Instance %q owned by %s", conf.Name, conf.Owner)
	log.Debug("ASSETS")
	log.Debug("                  Type        Kind  Symbol")
	for i, ac := range conf.Assets {
		kind, err := parseKind(ac.Kind)
		if err != nil {
			return nil, fmt.Errorf("asset %d (%s): %w", i, ac.Type, err)
		}
		log.Debugf("Asset %d: % 12s  % 10s  %s", i, ac.Type, kind, ac.Symbol)
		assets = append(assets, &dex.Asset{
			Type:   ac.Type,
			Kind:   kind,
			Symbol: ac.Symbol,
		})
	}
	// A missing side list allows every asset type. An empty one would allow
	// none.
	if conf.Side1 != nil && len(conf.Side1) == 0 {
		return nil, fmt.Errorf("side1 is empty, omit it to allow every asset type")
	}
	if conf.Side2 != nil && len(conf.Side2) == 0 {
		return nil, fmt.Errorf("side2 is empty, omit it to allow every asset type")
	}
	log.Debugf("Sides: %v | %v, trading pair: %t, force partial: %t, flash loans: %t",
		conf.Side1, conf.Side2, conf.TradingPair, conf.ForceAllowPartial, conf.AllowFlashLoans)
	log.Debug("--------------------- END parsed instance.json ---------------------")

	reg, err := dex.NewAssets(assets...)
	if err != nil {
		return nil, err
	}
	return &market.Config{
		Owner:             conf.Owner,
		Name:              conf.Name,
		Blurb:             conf.Blurb,
		URL:               conf.URL,
		Assets:            reg,
		Side1:             conf.Side1,
		Side2:             conf.Side2,
		TradingPair:       conf.TradingPair,
		ForceAllowPartial: conf.ForceAllowPartial,
		AllowFlashLoans:   conf.AllowFlashLoans,
		Fees:              conf.Fees,
	}, nil
}
