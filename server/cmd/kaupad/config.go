// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/server/db"
	"github.com/decred/dcrd/dcrutil/v4"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename   = "kaupad.conf"
	defaultLogFilename      = "kaupad.log"
	defaultDataDirname      = "data"
	defaultLogLevel         = "info"
	defaultLogDirname       = "logs"
	defaultInstanceFilename = "instance.json"
	defaultMaxLogZips       = 16
	defaultDBDriver         = "bolt"
)

var (
	defaultAppDataDir = dcrutil.AppDataDir("kaupad", false)
)

// kaupaConf is the data that is required to start the engine.
type kaupaConf struct {
	DataDir          string
	InstanceConfPath string
	DBDriver         string
	DBConfPath       string
	ListCommits      bool
	Prune            int
	LogMaker         *dex.LoggerMaker
}

type flagsData struct {
	// General application behavior
	AppDataDir  string `short:"A" long:"appdata" description:"Path to application home directory"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir     string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir      string `long:"logdir" description:"Directory to log output."`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	MaxLogZips  int    `long:"maxlogzips" description:"The number of zipped log files created by the log rotator to be retained. Setting to 0 will keep all."`
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`

	InstanceConfPath string `long:"instanceconfpath" description:"Path to the instance configuration JSON file."`
	DBDriver         string `long:"dbdriver" description:"Archive driver {bolt, badger}. Use none to run without an archive."`
	DBConfPath       string `long:"dbconfpath" description:"Path to an INI file of archive driver options."`
	ListCommits      bool   `long:"listcommits" description:"List the archived commits."`
	Prune            int    `long:"prune" description:"Prune the archive to the newest N snapshots before starting."`
}

// supportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func supportedSubsystems() []string {
	subsystems := make([]string, 0, len(subsystemLoggers))
	for subsysID := range subsystemLoggers {
		subsystems = append(subsystems, subsysID)
	}
	sort.Strings(subsystems)
	return subsystems
}

// parseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly. An appropriate error is returned if anything is
// invalid.
func parseAndSetDebugLevels(debugLevel string) (*dex.LoggerMaker, error) {
	lm, err := dex.NewLoggerMaker(logWriter{}, debugLevel)
	if err != nil {
		return nil, err
	}
	for subsysID := range lm.Levels {
		if _, exists := subsystemLoggers[subsysID]; !exists {
			str := "The specified subsystem [%v] is invalid -- " +
				"supported subsystems %v"
			return nil, fmt.Errorf(str, subsysID, supportedSubsystems())
		}
	}
	setLogLevels(lm)
	return lm, nil
}

// checkDriver validates the archive driver name.
func checkDriver(name string) error {
	if name == "none" {
		return nil
	}
	for _, d := range db.Drivers() {
		if d == name {
			return nil
		}
	}
	return fmt.Errorf("unknown archive driver %q, registered drivers %v", name, db.Drivers())
}

// loadConfig initializes and parses the config using a config file and command
// line options.
func loadConfig(args []string) (*kaupaConf, error) {
	loadConfigError := func(err error) (*kaupaConf, error) {
		return nil, err
	}

	// Default config
	cfg := flagsData{
		AppDataDir: defaultAppDataDir,
		// Defaults for ConfigFile, LogDir, and DataDir are set relative to
		// AppDataDir. They are not to be set here.
		MaxLogZips:       defaultMaxLogZips,
		DebugLevel:       defaultLogLevel,
		InstanceConfPath: defaultInstanceFilename,
		DBDriver:         defaultDBDriver,
	}

	// Pre-parse the command line options to see if an alternative config file
	// or the version flag was specified. Any errors aside from the help message
	// error can be ignored here since they will be caught by the final parse
	// below.
	var preCfg flagsData // zero values as defaults
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		} else if ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n",
			appName, Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Special show command to list supported subsystems and exit.
	if preCfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// If a non-default appdata folder is specified on the command line, it may
	// be necessary adjust the config file location. A config file given on the
	// command line is used regardless of the appdata directory.
	if preCfg.AppDataDir != "" {
		cfg.AppDataDir, err = filepath.Abs(dex.ExpandPath(preCfg.AppDataDir))
		if err != nil {
			return loadConfigError(fmt.Errorf("unable to determine working directory: %w", err))
		}
	}
	isDefaultConfigFile := preCfg.ConfigFile == ""
	if isDefaultConfigFile {
		preCfg.ConfigFile = filepath.Join(cfg.AppDataDir, defaultConfigFilename)
	} else if !filepath.IsAbs(preCfg.ConfigFile) {
		preCfg.ConfigFile = filepath.Join(cfg.AppDataDir, preCfg.ConfigFile)
	}

	// Config file name for logging.
	configFile := "NONE (defaults)"

	// Load additional config from file.
	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := os.Stat(preCfg.ConfigFile); os.IsNotExist(err) {
		// Non-default config file must exist.
		if !isDefaultConfigFile {
			return loadConfigError(err)
		}
		fmt.Printf("Config file (%s) does not exist. Using defaults.\n", preCfg.ConfigFile)
	} else {
		err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			parser.WriteHelp(os.Stderr)
			return loadConfigError(err)
		}
		configFile = preCfg.ConfigFile
	}

	// Parse command line options again to ensure they take precedence.
	_, err = parser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return loadConfigError(err)
	}

	if err = checkDriver(cfg.DBDriver); err != nil {
		return loadConfigError(err)
	}
	if cfg.Prune < 0 {
		return loadConfigError(fmt.Errorf("invalid prune count %d", cfg.Prune))
	}

	// Create the app data directory if it doesn't already exist.
	err = os.MkdirAll(cfg.AppDataDir, 0700)
	if err != nil {
		return loadConfigError(fmt.Errorf("failed to create home directory: %w", err))
	}

	// If datadir or logdir are defaults or non-default relative paths, prepend
	// the appdata directory.
	cfg.DataDir = appDataPath(cfg.AppDataDir, cfg.DataDir, defaultDataDirname)
	cfg.LogDir = appDataPath(cfg.AppDataDir, cfg.LogDir, defaultLogDirname)
	if err = os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return loadConfigError(err)
	}
	cfg.InstanceConfPath = appDataPath(cfg.AppDataDir, cfg.InstanceConfPath, defaultInstanceFilename)
	if cfg.DBConfPath != "" {
		cfg.DBConfPath = appDataPath(cfg.AppDataDir, cfg.DBConfPath, "")
	}

	// Initialize log rotation. After log rotation has been initialized, the
	// logger variables may be used. This creates the LogDir if needed.
	if cfg.MaxLogZips < 0 {
		cfg.MaxLogZips = 0
	}
	initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename), cfg.MaxLogZips)

	// Parse, validate, and set debug log level(s).
	logMaker, err := parseAndSetDebugLevels(cfg.DebugLevel)
	if err != nil {
		parser.WriteHelp(os.Stderr)
		return loadConfigError(err)
	}

	log.Infof("App data folder: %s", cfg.AppDataDir)
	log.Infof("Data folder:     %s", cfg.DataDir)
	log.Infof("Log folder:      %s", cfg.LogDir)
	log.Infof("Config file:     %s", configFile)

	return &kaupaConf{
		DataDir:          cfg.DataDir,
		InstanceConfPath: cfg.InstanceConfPath,
		DBDriver:         cfg.DBDriver,
		DBConfPath:       cfg.DBConfPath,
		ListCommits:      cfg.ListCommits,
		Prune:            cfg.Prune,
		LogMaker:         logMaker,
	}, nil
}

// appDataPath expands path, falling back to def when empty, and makes a
// relative result relative to the appdata directory.
func appDataPath(appData, path, def string) string {
	if path == "" {
		path = def
	}
	path = dex.ExpandPath(path)
	if !filepath.IsAbs(path) {
		path = filepath.Join(appData, path)
	}
	return path
}
