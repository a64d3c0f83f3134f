package abcfile

import (
	"os"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

var logger atomic.Pointer[log.Logger]

func init() {
	logger.Store(log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "abcfile",
		Level:  log.WarnLevel,
	}))
}

// SetLogger replaces the package logger. A nil l restores the default
// stderr logger at warn level.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.NewWithOptions(os.Stderr, log.Options{Prefix: "abcfile", Level: log.WarnLevel})
	}
	logger.Store(l)
}

// Logger returns the package logger.
func Logger() *log.Logger { return logger.Load() }
