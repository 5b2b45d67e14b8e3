package main

import (
	"flag"

	prefixed "github.com/BertoldVdb/logrus-prefixed-formatter"
	"github.com/sirupsen/logrus"
)

var loglevel = flag.Int("loglevel", int(logrus.InfoLevel), "Log level, 0 (panic) to 6 (trace). 6 logs every bus frame")

func newLogger() *logrus.Entry {
	logrus.ErrorKey = "$error"
	logger := logrus.New()
	logger.SetLevel(logrus.Level(*loglevel))
	f := new(prefixed.TextFormatter)
	f.TimestampFormat = "2006-01-02 15:04:05"
	f.FullTimestamp = true
	f.PrefixPadding = 12
	logger.SetFormatter(f)
	return logrus.NewEntry(logger)
}
