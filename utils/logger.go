// Package utils provides utility functions shared by the SDK and the CLI.
//
// This file implements a debug logger that writes log messages to
// ~/.fdtd/debug.log for troubleshooting job submissions and tracking events.
package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

var (
	loggerMu    sync.RWMutex
	debugLogger *log.Logger
)

// DefaultDir returns ~/.fdtd, where the log and the config file live.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".fdtd")
}

// InitLogger initializes the debug logger in dir, DefaultDir() when empty
func InitLogger(dir string) error {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	logFile := filepath.Join(dir, "debug.log")
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	SetLogOutput(file)
	LogDebug("=== FDTD client started ===")
	return nil
}

// SetLogOutput sends debug messages to w. A nil writer disables logging.
func SetLogOutput(w io.Writer) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if w == nil {
		debugLogger = nil
		return
	}
	debugLogger = log.New(w, "", log.LstdFlags|log.Lshortfile)
}

// LogDebug logs a debug message
func LogDebug(format string, args ...interface{}) {
	loggerMu.RLock()
	l := debugLogger
	loggerMu.RUnlock()
	if l != nil {
		l.Output(2, fmt.Sprintf(format, args...))
	}
}
