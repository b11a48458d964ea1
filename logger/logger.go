// Package logger holds the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the shared logger. It is usable before Init is called.
var Log = logrus.New()

// Init configures the shared logger. It should be called once from main.
func Init(level, format string) {
	// 1. Level. Unknown values fall back to info.
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// 2. Formatter: "json" for collection, text otherwise.
	if strings.ToLower(format) == "json" {
		Log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	// 3. Output. Stdout belongs to the console and the inspector.
	Log.SetOutput(os.Stderr)
}

// SetOutput redirects the shared logger, e.g. to silence it under the
// full-screen inspector.
func SetOutput(w io.Writer) {
	Log.SetOutput(w)
}
