// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type driverOptions struct {
	Path     string        `ini:"path"`
	InMemory bool          `ini:"inmemory"`
	Keep     int           `ini:"keep"`
	Timeout  time.Duration `ini:"timeout"`
	Ignored  string        `ini:"-"`
}

func TestParse(t *testing.T) {
	data := []byte(`
path=/tmp/archive
[tuning]
inmemory=true
keep=12
timeout=5s
Ignored=yes
`)
	tests := []struct {
		name string
		src  func(t *testing.T) any
	}{
		{"data", func(*testing.T) any { return data }},
		{"file", func(t *testing.T) any {
			p := filepath.Join(t.TempDir(), "archive.conf")
			if err := os.WriteFile(p, data, 0600); err != nil {
				t.Fatal(err)
			}
			return p
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := driverOptions{Keep: 1, Ignored: "default"}
			if err := Parse(tt.src(t), &opts); err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if opts.Path != "/tmp/archive" || !opts.InMemory || opts.Keep != 12 || opts.Timeout != 5*time.Second {
				t.Fatalf("wrong options %+v", opts)
			}
			if opts.Ignored != "default" {
				t.Fatalf("ignored field set to %q", opts.Ignored)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	opts, err := Options([]byte("a=1\n[s]\nb=two\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 2 || opts["a"] != "1" || opts["b"] != "two" {
		t.Fatalf("wrong options %v", opts)
	}
	if _, err = Options([]byte("[unterminated\n")); err == nil {
		t.Fatal("no error for bad ini")
	}

	var d driverOptions
	if err := Map(map[string]string{"keep": "x"}, &d); err == nil {
		t.Fatal("no error for bad int")
	}
}
