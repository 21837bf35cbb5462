package dataloader

import (
	"io"
	stdlog "log"
	"os"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// NewLogger builds a logfmt logger with UTC timestamps. Debug lines are kept
// only when running under SAM local or with DEBUG set.
func NewLogger(w io.Writer) log.Logger {
	logger := log.With(
		log.NewLogfmtLogger(log.NewSyncWriter(w)),
		"ts", log.DefaultTimestampUTC,
	)
	if debug() {
		logger = level.NewFilter(logger, level.AllowAll())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.NewStdlibAdapter(logger))
	return logger
}

func debug() bool {
	if os.Getenv("AWS_SAM_LOCAL") == "true" {
		return true
	}
	return os.Getenv("DEBUG") != "" || os.Getenv("debug") != ""
}
