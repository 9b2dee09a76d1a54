// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package utils

import (
	"sort"

	"golang.org/x/exp/constraints"
)

func CopyMap[K comparable, V any](m map[K]V) map[K]V {
	r := make(map[K]V, len(m))
	for k, v := range m {
		r[k] = v
	}
	return r
}

func MapKeys[K comparable, V any](m map[K]V) []K {
	ks := make([]K, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}

// SortedKeys returns the map's keys in ascending order, for deterministic
// iteration.
func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	ks := MapKeys(m)
	sort.Slice(ks, func(i, j int) bool { return ks[i] < ks[j] })
	return ks
}

func Min[I constraints.Ordered](m I, ns ...I) I {
	min := m
	for _, n := range ns {
		if n < min {
			min = n
		}
	}
	return min
}

func Max[I constraints.Ordered](m I, ns ...I) I {
	max := m
	for _, n := range ns {
		if n > max {
			max = n
		}
	}
	return max
}
