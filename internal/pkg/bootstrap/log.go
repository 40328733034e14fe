// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package bootstrap

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ConfigureLogging sets the text formatter and level of the standard logger. Logs go to stderr so that query
// output on stdout can be piped.
func ConfigureLogging(level logrus.Level) {
	configureLogging(os.Stderr, level)
}

func configureLogging(out io.Writer, level logrus.Level) {
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	logrus.SetOutput(out)
	logrus.SetLevel(level)
}
