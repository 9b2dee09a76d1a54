// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"decred.org/kaupa/dex"
	"decred.org/kaupa/server/book"
	"decred.org/kaupa/server/db"
	"decred.org/kaupa/server/escrow"
	"decred.org/kaupa/server/loan"
	"decred.org/kaupa/server/market"
	"github.com/jrick/logrotate/rotator"
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type logWriter struct{}

// Write writes the data in p to standard out and the log rotator.
func (logWriter) Write(p []byte) (n int, err error) {
	if logRotator == nil {
		return os.Stdout.Write(p)
	}
	os.Stdout.Write(p)
	return logRotator.Write(p) // not safe concurrent writes, so only one logWriter{} allowed!
}

// Loggers per subsystem. A single backend logger is created and all subsystem
// loggers created from it will write to the backend. When adding new
// subsystems, define it in the subsystemLoggers map.
//
// Loggers should not be used before the log rotator has been initialized with a
// log file. This must be performed early during application startup by calling
// initLogRotator.
var (
	// logRotator is one of the logging outputs. Use initLogRotator to set it.
	// It should be closed on application shutdown.
	logRotator *rotator.Rotator

	// package main's Logger.
	log = dex.Disabled

	// subsystemLoggers maps each subsystem identifier to the function that
	// sets its package logger.
	subsystemLoggers = map[string]func(dex.Logger){
		"MAIN": func(l dex.Logger) { log = l },
		"MKT":  market.UseLogger,
		"BOOK": book.UseLogger,
		"ESCR": escrow.UseLogger,
		"LOAN": loan.UseLogger,
		"DB":   db.UseLogger,
	}
)

// setLogLevels creates each subsystem logger at its configured level.
func setLogLevels(lm *dex.LoggerMaker) {
	for subsysID, use := range subsystemLoggers {
		use(lm.NewLogger(subsysID))
	}
}

// initLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory. It must be called before the
// package-global log rotater variables are used.
func initLogRotator(logFile string, maxRolls int) {
	logDir, _ := filepath.Split(logFile)
	err := os.MkdirAll(logDir, 0700)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}
	logRotator, err = rotator.New(logFile, 32*1024, false, maxRolls)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n", err)
		os.Exit(1)
	}
}
