// Copyright 2020 Sebastian Lehmann. All rights reserved.
// Use of this source code is governed by a GNU-style
// license that can be found in the LICENSE file.

package gokinetis

import (
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var (
	logger *logrus.Logger = nil
)

const MaxLogLevel = logrus.DebugLevel

func init() {
	logger = logrus.New()
	logger.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp: true,
	})
}

func SetLogger(loggerInstance *logrus.Logger) {
	logger = loggerInstance
}

// muteLogger lowers the diagnostic verbosity to silence and returns a
// func restoring the previous level. Callers defer the restore func so
// the level comes back on every exit path.
func muteLogger() func() {
	savedLevel := logger.GetLevel()

	logger.SetLevel(logrus.PanicLevel)

	return func() {
		logger.SetLevel(savedLevel)
	}
}
