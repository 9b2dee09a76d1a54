// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package market

import (
	"fmt"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/server/db"
	"decred.org/kaupa/server/fees"
)

// Config is the configuration of an Engine.
type Config struct {
	// Owner is the admin token. The admin may change the fee schedule and
	// collect fees.
	Owner dex.TokenID
	// Name, Blurb and URL describe the instance.
	Name  string
	Blurb string
	URL   string
	// Assets is the registry of every asset type the engine handles.
	Assets dex.Assets
	// Side1 and Side2 restrict what can be offered and asked for. A proposal
	// must offer only Side1 types and ask only Side2 types, or the reverse.
	// A nil side is unrestricted.
	Side1 []dex.AssetType
	Side2 []dex.AssetType
	// TradingPair instances have exactly one asset type per side. Sweeps
	// infer the wanted type from the payment.
	TradingPair bool
	// ForceAllowPartial requires every proposal to allow partial fills.
	ForceAllowPartial bool
	// AllowFlashLoans enables FlashLoan proposals.
	AllowFlashLoans bool
	// Fees is the initial fee schedule. nil charges nothing.
	Fees *fees.Schedule
	// Archive, if set, persists every commit and is used to restore state on
	// startup.
	Archive db.Archiver
}

// Info is the public description of an instance.
type Info struct {
	Owner             dex.TokenID     `json:"owner"`
	Name              string          `json:"name"`
	Blurb             string          `json:"blurb,omitempty"`
	URL               string          `json:"url,omitempty"`
	Side1             []dex.AssetType `json:"side1,omitempty"`
	Side2             []dex.AssetType `json:"side2,omitempty"`
	TradingPair       bool            `json:"tradingPair"`
	ForceAllowPartial bool            `json:"forceAllowPartial"`
	AllowFlashLoans   bool            `json:"allowFlashLoans"`
}

func invalidConfig(format string, a ...any) error {
	return dex.NewError(dex.ErrInvalidConfig, fmt.Sprintf(format, a...))
}

func sideSet(assets dex.Assets, side []dex.AssetType) (map[dex.AssetType]bool, error) {
	if side == nil {
		return nil, nil
	}
	set := make(map[dex.AssetType]bool, len(side))
	for _, t := range side {
		if _, err := assets.Kind(t); err != nil {
			return nil, err
		}
		set[t] = true
	}
	return set, nil
}

// validate checks the configuration and returns the side sets.
func (cfg *Config) validate() (side1, side2 map[dex.AssetType]bool, err error) {
	if cfg.Owner == "" {
		return nil, nil, invalidConfig("no owner")
	}
	if len(cfg.Assets) == 0 {
		return nil, nil, invalidConfig("no assets")
	}
	if side1, err = sideSet(cfg.Assets, cfg.Side1); err != nil {
		return nil, nil, err
	}
	if side2, err = sideSet(cfg.Assets, cfg.Side2); err != nil {
		return nil, nil, err
	}
	if cfg.TradingPair {
		switch {
		case len(side1) != 1 || len(side2) != 1:
			return nil, nil, invalidConfig("trading pair requires one asset type per side")
		case cfg.Side1[0] == cfg.Side2[0]:
			return nil, nil, invalidConfig("trading pair sides must differ")
		case !cfg.ForceAllowPartial:
			return nil, nil, invalidConfig("trading pair must force partial fills")
		case cfg.AllowFlashLoans:
			return nil, nil, invalidConfig("trading pair cannot allow flash loans")
		}
	}
	if err = cfg.Fees.Validate(cfg.Assets); err != nil {
		return nil, nil, err
	}
	return side1, side2, nil
}
