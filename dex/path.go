// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package dex

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands $VAR environment references and a leading ~ naming the
// current user's home directory, and cleans the result. Without a home
// directory, ~ expands to the working directory. ~user forms are not
// expanded. An empty path stays empty.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	path = os.ExpandEnv(path)
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return filepath.Clean(path)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, path[1:])
}
