package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the logger shared by the library packages.
var Log = logrus.New()

func Setup() {
	// Output to stdout instead of the default stderr
	Log.Out = os.Stdout
	Log.SetLevel(logrus.InfoLevel)
}

// Debug will switch the verbosity of the library packages.
func Debug(t bool) {
	if t {
		Log.Level = logrus.DebugLevel
	} else {
		Log.Level = logrus.WarnLevel
	}
}

// SetLoggingLevel sets the shared logger level by name. Unknown names
// fall back to info.
func SetLoggingLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	Log.SetLevel(parsed)
}
