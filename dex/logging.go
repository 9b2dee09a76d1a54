// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package dex

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/decred/slog"
)

// Every backend constructor will accept a Logger. All logging should take place
// through the provided logger.
type Logger = slog.Logger

// Level aliases so that packages need not import slog for log levels.
const (
	LevelTrace    = slog.LevelTrace
	LevelDebug    = slog.LevelDebug
	LevelInfo     = slog.LevelInfo
	LevelWarn     = slog.LevelWarn
	LevelError    = slog.LevelError
	LevelCritical = slog.LevelCritical
	LevelOff      = slog.LevelOff

	// DefaultLogLevel is the level used when none is specified.
	DefaultLogLevel = LevelInfo
)

// Disabled is a Logger that will never output anything.
var Disabled Logger = slog.Disabled

// StdOutLogger creates a Logger with the provided subsystem name that writes to
// stdout at the specified level.
func StdOutLogger(name string, lvl slog.Level) Logger {
	backend := slog.NewBackend(os.Stdout)
	logger := backend.Logger(name)
	logger.SetLevel(lvl)
	return logger
}

// LoggerMaker allows creation of new log subsystems with predefined levels.
type LoggerMaker struct {
	*slog.Backend
	DefaultLevel slog.Level
	Levels       map[string]slog.Level
}

// NewLoggerMaker parses the debug level string into a new *LoggerMaker. The
// debugLevel string can specify a single verbosity for the entire system:
// "trace", "debug", "info", "warn", "error", "critical", "off". Or it can
// specify the verbosity for individual subsystems, separating subsystems by
// commas and assigning each specifically. Such a debugLevel string might look
// like `MKT=debug,DB=trace`. A default level may be included among the
// subsystem levels, e.g. `debug,BOOK=trace`.
func NewLoggerMaker(writer io.Writer, debugLevel string) (*LoggerMaker, error) {
	lm := &LoggerMaker{
		Backend:      slog.NewBackend(writer),
		Levels:       make(map[string]slog.Level),
		DefaultLevel: DefaultLogLevel,
	}

	for _, s := range strings.Split(debugLevel, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		fields := strings.Split(s, "=")
		switch len(fields) {
		case 1:
			lvl, ok := slog.LevelFromString(fields[0])
			if !ok {
				return nil, fmt.Errorf("unknown log level %q", fields[0])
			}
			lm.DefaultLevel = lvl
		case 2:
			subsysID, levelStr := fields[0], fields[1]
			if subsysID == "" {
				return nil, fmt.Errorf("empty subsystem in %q", s)
			}
			lvl, ok := slog.LevelFromString(levelStr)
			if !ok {
				return nil, fmt.Errorf("unknown log level %q for subsystem %s", levelStr, subsysID)
			}
			lm.Levels[subsysID] = lvl
		default:
			return nil, fmt.Errorf("invalid subsystem log level specification %q", s)
		}
	}
	return lm, nil
}

// SubLogger creates a Logger with a subsystem name "parent[name]", using any
// known log level for the parent subsystem, defaulting to the DefaultLevel if
// the parent does not have an explicitly set level.
func (lm *LoggerMaker) SubLogger(parent, name string) Logger {
	// Use the parent logger's log level, if set.
	level, ok := lm.Levels[parent]
	if !ok {
		level = lm.DefaultLevel
	}
	logger := lm.Backend.Logger(fmt.Sprintf("%s[%s]", parent, name))
	logger.SetLevel(level)
	return logger
}

// NewLogger creates a new Logger for the subsystem with the given name. If a
// log level is specified, it is used for the Logger. Otherwise the subsystem's
// configured level, or the DefaultLevel, is used.
func (lm *LoggerMaker) NewLogger(name string, level ...slog.Level) Logger {
	lvl, ok := lm.Levels[name]
	if !ok {
		lvl = lm.DefaultLevel
	}
	if len(level) > 0 {
		lvl = level[0]
	}
	logger := lm.Backend.Logger(name)
	logger.SetLevel(lvl)
	return logger
}
