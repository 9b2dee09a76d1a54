// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package encode

import (
	"bytes"
	"testing"
)

func TestUint64Keys(t *testing.T) {
	a, b := Uint64Bytes(255), Uint64Bytes(256)
	if bytes.Compare(a, b) >= 0 {
		t.Fatal("keys not ordered")
	}
	i, err := BytesToUint64(b)
	if err != nil {
		t.Fatal(err)
	}
	if i != 256 {
		t.Fatalf("wrong value %d", i)
	}
	if _, err = BytesToUint64(b[:7]); err == nil {
		t.Fatal("no error for short slice")
	}
}

func TestDecodeBlob(t *testing.T) {
	big := bytes.Repeat([]byte{0x01}, 70000)
	blob := BuildyBytes{3}.AddData([]byte{0xaa}).AddData(nil).AddData(big)
	ver, pushes, err := DecodeBlob(blob)
	if err != nil {
		t.Fatalf("DecodeBlob error: %v", err)
	}
	if ver != 3 {
		t.Fatalf("wrong version %d", ver)
	}
	if len(pushes) != 3 {
		t.Fatalf("wanted 3 pushes, got %d", len(pushes))
	}
	if !bytes.Equal(pushes[0], []byte{0xaa}) || pushes[1] != nil || !bytes.Equal(pushes[2], big) {
		t.Fatal("wrong pushes")
	}

	for _, bad := range [][]byte{nil, {0, 0, 0}, {0, 0, 0, 0, 5, 1}} {
		if _, _, err = DecodeBlob(bad); err == nil {
			t.Fatalf("no error for %x", bad)
		}
	}
}
