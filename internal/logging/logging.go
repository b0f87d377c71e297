// Package logging provides the module's single shared logrus instance and
// the MustGetLogger constructor every package uses to get a named,
// contextual logger.
//
// Grounded on the teacher's use of github.com/skycoin/skycoin/src/util/
// logging.MustGetLogger("pathutil")-style one-argument loggers throughout
// pkg/net and pkg/util/pathutil; this module talks to logrus directly
// rather than carrying skycoin's own wrapper package, since nothing else
// here depends on that package's master-logger/hook-registration machinery.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var root = newRootLogger()

func newRootLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// MustGetLogger returns a logrus.Entry tagged with "pkg": name, mirroring
// the teacher's per-package named logger convention.
func MustGetLogger(name string) *logrus.Entry {
	return root.WithField("pkg", name)
}

// SetLevel sets the root logger's level, shared by every MustGetLogger
// caller since they all derive from the same *logrus.Logger.
func SetLevel(level logrus.Level) { root.SetLevel(level) }
