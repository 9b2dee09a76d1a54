// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"decred.org/kaupa/dex"
)

var (
	driversMtx sync.Mutex
	drivers    = make(map[string]Driver)
)

// Driver is the interface required of all archive drivers. cfg is the
// driver-specific configuration. Drivers accept a map[string]string of INI
// options, as parsed by dex/config, and their own typed Config.
type Driver interface {
	Open(ctx context.Context, cfg any) (Archiver, error)
	UseLogger(logger dex.Logger)
}

// Register should be called by the init function of a driver's package.
func Register(name string, driver Driver) {
	driversMtx.Lock()
	defer driversMtx.Unlock()

	if driver == nil {
		panic("db: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("db: Register called twice for archive driver " + name)
	}
	drivers[name] = driver
}

// Open loads the named archive driver with the provided configuration.
func Open(ctx context.Context, name string, cfg any) (Archiver, error) {
	driversMtx.Lock()
	drv, ok := drivers[name]
	driversMtx.Unlock()
	if !ok {
		return nil, fmt.Errorf("db: unknown archive driver %q", name)
	}
	return drv.Open(ctx, cfg)
}

// Drivers lists the registered driver names.
func Drivers() []string {
	driversMtx.Lock()
	defer driversMtx.Unlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UseLogger sets the logger to use for all of the archive drivers.
func UseLogger(logger dex.Logger) {
	driversMtx.Lock()
	for _, drv := range drivers {
		drv.UseLogger(logger)
	}
	driversMtx.Unlock()
}
