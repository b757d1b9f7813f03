package dcc

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{ //nolint:exhaustruct
	Prefix:          "dcc",
	ReportTimestamp: true,
})

// SetLogger replaces the package logger, e.g. to silence it in tests.
func SetLogger(l *log.Logger) {
	logger = l
}

func Logger() *log.Logger {
	return logger
}

// SetLogLevel accepts debug, info, warn, error or fatal.
func SetLogLevel(level string) error {
	var lvl, err = log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	logger.SetLevel(lvl)

	return nil
}
