// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package dex

import (
	"fmt"
	"sort"
)

// Precision is the number of fractional decimal digits retained for fungible
// amounts. Computed amounts are truncated toward zero to this precision.
const Precision = 18

// AssetType identifies a kind of value tracked independently by the engine,
// either a fungible currency or a collection of discrete items.
type AssetType string

// ItemID identifies one discrete item within an asset type.
type ItemID string

// TokenID identifies a capability token. Makers, takers and the instance
// admin present a TokenID as proof of control. Verification of that proof is
// the responsibility of the caller.
type TokenID string

// AssetKind distinguishes fungible assets from discrete ones.
type AssetKind uint8

const (
	Fungible AssetKind = iota
	Discrete
)

// String satisfies fmt.Stringer.
func (k AssetKind) String() string {
	switch k {
	case Fungible:
		return "fungible"
	case Discrete:
		return "discrete"
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// Asset is the registry entry for an asset type.
type Asset struct {
	Type   AssetType `json:"type"`
	Kind   AssetKind `json:"kind"`
	Symbol string    `json:"symbol"`
}

// Assets is a registry of the asset types known to an engine instance.
type Assets map[AssetType]*Asset

// NewAssets builds a registry from the provided assets. Duplicate types are
// an error.
func NewAssets(assets ...*Asset) (Assets, error) {
	reg := make(Assets, len(assets))
	for _, a := range assets {
		if a.Type == "" {
			return nil, NewError(ErrInvalidAssetType, "empty asset type")
		}
		if a.Kind != Fungible && a.Kind != Discrete {
			return nil, NewError(ErrInvalidAssetType, fmt.Sprintf("%s has unknown kind %d", a.Type, a.Kind))
		}
		if _, dup := reg[a.Type]; dup {
			return nil, NewError(ErrInvalidAssetType, fmt.Sprintf("duplicate asset %s", a.Type))
		}
		reg[a.Type] = a
	}
	return reg, nil
}

// Kind returns the kind of the asset type, or ErrInvalidAssetType if the type
// is not registered.
func (reg Assets) Kind(t AssetType) (AssetKind, error) {
	a, found := reg[t]
	if !found {
		return 0, NewError(ErrInvalidAssetType, fmt.Sprintf("unknown asset %s", t))
	}
	return a.Kind, nil
}

// Symbol is the display symbol of the asset type, or the type itself when no
// symbol is registered.
func (reg Assets) Symbol(t AssetType) string {
	if a, found := reg[t]; found && a.Symbol != "" {
		return a.Symbol
	}
	return string(t)
}

// Types returns the registered asset types sorted lexicographically.
func (reg Assets) Types() []AssetType {
	ts := make([]AssetType, 0, len(reg))
	for t := range reg {
		ts = append(ts, t)
	}
	SortAssetTypes(ts)
	return ts
}

// SortAssetTypes sorts the slice in place.
func SortAssetTypes(ts []AssetType) {
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
}

// SortItemIDs sorts the slice in place.
func SortItemIDs(ids []ItemID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
