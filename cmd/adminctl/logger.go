package main

import (
	"io"

	glog "github.com/goliatone/go-logger/glog"
)

// newStderrLogger builds the console logger used by --verbose.
func newStderrLogger(w io.Writer) glog.Logger {
	return glog.NewLogger(
		glog.WithWriter(w),
		glog.WithLevel("debug"),
		glog.WithLoggerTypeConsole(),
	)
}
