// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package encode provides the byte encodings used for archive keys and
// records.
package encode

import (
	"encoding/binary"
	"fmt"
)

// IntCoder is the integer byte-encoding order. Keys encoded with it sort in
// numeric order.
var IntCoder = binary.BigEndian

// Uint64Bytes converts the uint64 to a length-8, big-endian encoded byte slice.
func Uint64Bytes(i uint64) []byte {
	b := make([]byte, 8)
	IntCoder.PutUint64(b, i)
	return b
}

// BytesToUint64 converts the length-8, big-endian encoded byte slice to a
// uint64.
func BytesToUint64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("expected 8 bytes, got %d", len(b))
	}
	return IntCoder.Uint64(b), nil
}

// CopySlice makes a copy of the slice.
func CopySlice(b []byte) []byte {
	newB := make([]byte, len(b))
	copy(newB, b)
	return newB
}

// BuildyBytes is a versioned blob under construction: a single version byte
// followed by length-prefixed data pushes.
//
//	b := BuildyBytes{version}.AddData(data1).AddData(data2)
//
// Decode with DecodeBlob.
type BuildyBytes []byte

// AddData appends a push of d, with a 4-byte length prefix.
func (b BuildyBytes) AddData(d []byte) BuildyBytes {
	l := make([]byte, 4, 4+len(d))
	IntCoder.PutUint32(l, uint32(len(d)))
	return append(b, append(l, d...)...)
}

// DecodeBlob splits a versioned blob into its version and pushes. Empty
// pushes are nil.
func DecodeBlob(b []byte) (byte, [][]byte, error) {
	if len(b) == 0 {
		return 0, nil, fmt.Errorf("zero length blob not allowed")
	}
	ver := b[0]
	b = b[1:]
	var pushes [][]byte
	for len(b) > 0 {
		if len(b) < 4 {
			return 0, nil, fmt.Errorf("4 bytes not available for data length")
		}
		l := int(IntCoder.Uint32(b[:4]))
		b = b[4:]
		if len(b) < l {
			return 0, nil, fmt.Errorf("data too short for pop of %d bytes", l)
		}
		if l == 0 {
			pushes = append(pushes, nil)
			continue
		}
		pushes = append(pushes, b[:l])
		b = b[l:]
	}
	return ver, pushes, nil
}
