// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/dex/config"
	"decred.org/kaupa/server/db"
	_ "decred.org/kaupa/server/db/driver/badger" // register badger driver
	_ "decred.org/kaupa/server/db/driver/bolt"   // register bolt driver
	"decred.org/kaupa/server/market"
)

// archiveOptions reads the driver options file and fills in the default
// location for the built-in drivers.
func archiveOptions(cfg *kaupaConf) (map[string]string, error) {
	opts := make(map[string]string)
	if cfg.DBConfPath != "" {
		var err error
		opts, err = config.Options(cfg.DBConfPath)
		if err != nil {
			return nil, fmt.Errorf("error reading archive options %q: %w", cfg.DBConfPath, err)
		}
	}
	switch cfg.DBDriver {
	case "bolt":
		if opts["path"] == "" {
			opts["path"] = filepath.Join(cfg.DataDir, "kaupa.db")
		}
	case "badger":
		if opts["dir"] == "" && opts["inmemory"] == "" {
			opts["dir"] = filepath.Join(cfg.DataDir, "badger")
		}
	}
	return opts, nil
}

func listCommits(archive db.Archiver) error {
	commits, err := archive.Commits()
	if err != nil {
		return err
	}
	if len(commits) == 0 {
		fmt.Println("No archived commits.")
		return nil
	}
	for _, c := range commits {
		fmt.Println(c)
	}
	return nil
}

func mainCore(ctx context.Context) error {
	// Parse the configuration file, and setup logger.
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Printf("Failed to load kaupad config: %s\n", err.Error())
		return err
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	log.Infof("%s version %v (Go version %s)", appName, Version, runtime.Version())

	engCfg, err := loadInstanceConfFile(cfg.InstanceConfPath)
	if err != nil {
		return fmt.Errorf("failed to load instance config %q: %w", cfg.InstanceConfPath, err)
	}
	log.Infof("Loaded instance %q with %d assets", engCfg.Name, len(engCfg.Assets))

	// Nothing outlives the report, so Success is never signaled.
	closers := dex.NewErrorCloser()
	defer closers.Done(log)

	if cfg.DBDriver != "none" {
		opts, err := archiveOptions(cfg)
		if err != nil {
			return err
		}
		archive, err := db.Open(ctx, cfg.DBDriver, opts)
		if err != nil {
			return fmt.Errorf("error opening %s archive: %w", cfg.DBDriver, err)
		}
		closers.Add(archive.Close)

		if cfg.ListCommits {
			return listCommits(archive)
		}
		if cfg.Prune > 0 {
			n, err := archive.Prune(cfg.Prune)
			if err != nil {
				return fmt.Errorf("error pruning archive: %w", err)
			}
			log.Infof("Pruned %d snapshots", n)
		}
		engCfg.Archive = archive
	} else if cfg.ListCommits || cfg.Prune > 0 {
		return fmt.Errorf("--listcommits and --prune require an archive driver")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	eng, err := market.NewEngine(engCfg)
	if err != nil {
		return err
	}
	return writeReport(os.Stdout, eng)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	killChan := make(chan os.Signal, 1)
	signal.Notify(killChan, os.Interrupt)
	go func() {
		<-killChan
		fmt.Println("Shutting down...")
		cancel()
	}()

	if err := mainCore(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}
