package memutils

import (
	"os"

	"golang.org/x/exp/slog"
)

// exitProcess is swapped out by tests that exercise the release-build invariant path
var osExit = os.Exit
var exitProcess = osExit

func logAndExit(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("invariant violated", slog.String("error", err.Error()))
	exitProcess(1)
}
