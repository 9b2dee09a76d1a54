// Copyright (c) 2015-2022 The Decred developers
// Use of this source code is governed by an ISC license
// that can be found at https://github.com/decred/dcrd/blob/master/LICENSE.

// Package version parses and formats application version strings per the
// semantic versioning 2.0.0 spec (https://semver.org/).
package version

import (
	"fmt"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"

	"decred.org/kaupa/dex"
)

// semanticAlphabet defines the allowed characters for the pre-release and
// build metadata portions of a semantic version string.
const semanticAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-."

var semverRE = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
	`(?:-((?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*` +
	`[a-zA-Z-][0-9a-zA-Z-]*))*))?(?:\+([0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`)

// Version is a parsed semantic version.
type Version struct {
	dex.Semver
	PreRelease    string
	BuildMetadata string
}

// String formats the version, e.g. 1.2.3-pre+abcdef01.
func (v *Version) String() string {
	s := v.Semver.String()
	if v.PreRelease != "" {
		s += "-" + v.PreRelease
	}
	if v.BuildMetadata != "" {
		s += "+" + v.BuildMetadata
	}
	return s
}

// ParseSemVer parses a version string.
func ParseSemVer(s string) (*Version, error) {
	m := semverRE.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("malformed version string %q: does not conform to semver specification", s)
	}
	var parts [3]uint32
	for i, name := range []string{"major", "minor", "patch"} {
		n, err := strconv.ParseUint(m[i+1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("malformed semver %s: %w", name, err)
		}
		parts[i] = uint32(n)
	}
	return &Version{
		Semver:        dex.NewSemver(parts[0], parts[1], parts[2]),
		PreRelease:    m[4],
		BuildMetadata: m[5],
	}, nil
}

// vcsCommitID is the short VCS revision the binary was built from, if the
// toolchain recorded one.
func vcsCommitID() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range bi.Settings {
		if setting.Key != "vcs.revision" {
			continue
		}
		rev := NormalizeString(setting.Value)
		if len(rev) > 8 {
			rev = rev[:8]
		}
		return rev
	}
	return ""
}

// Parse returns the application version as a properly formed string. If the
// version has no build metadata, the VCS revision is used when known. Parse
// panics on a malformed version, which is a build error.
func Parse(version string) string {
	v, err := ParseSemVer(version)
	if err != nil {
		panic(err)
	}
	if v.BuildMetadata == "" {
		v.BuildMetadata = vcsCommitID()
	}
	return v.String()
}

// NormalizeString returns the passed string stripped of all characters which
// are not valid according to the semantic versioning guidelines for pre-release
// and build metadata strings.
func NormalizeString(str string) string {
	var result strings.Builder
	for _, r := range str {
		if strings.ContainsRune(semanticAlphabet, r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
