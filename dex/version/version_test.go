// Copyright (c) 2015-2022 The Decred developers
// Use of this source code is governed by an ISC license
// that can be found at https://github.com/decred/dcrd/blob/master/LICENSE.

package version

import "testing"

func TestParseSemVer(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1.2.3", want: "1.2.3"},
		{in: "0.1.0-pre", want: "0.1.0-pre"},
		{in: "0.1.0-pre.1+release.local", want: "0.1.0-pre.1+release.local"},
		{in: "1.2", wantErr: true},
		{in: "01.2.3", wantErr: true},
		{in: "1.2.3+", wantErr: true},
		{in: "v1.2.3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseSemVer(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr = %t, got %v", tt.wantErr, err)
			}
			if err == nil && v.String() != tt.want {
				t.Fatalf("wanted %s, got %s", tt.want, v)
			}
		})
	}

	v, _ := ParseSemVer("4.5.6-beta+abc")
	if v.Major != 4 || v.Minor != 5 || v.Patch != 6 || v.PreRelease != "beta" || v.BuildMetadata != "abc" {
		t.Fatalf("wrong parts %+v", v)
	}
}

func TestParseKeepsBuildMetadata(t *testing.T) {
	if got := Parse("0.1.0+release.local"); got != "0.1.0+release.local" {
		t.Fatalf("wrong version %s", got)
	}
}

func TestNormalizeString(t *testing.T) {
	if got := NormalizeString("a b_c.d-e!"); got != "abc.d-e" {
		t.Fatalf("wrong normalized string %q", got)
	}
}
