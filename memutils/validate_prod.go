//go:build !debug_replay

package memutils

import "golang.org/x/exp/slog"

// ReportInvariantViolation is called when data that must have been registered earlier is
// missing. Release builds log the error and exit the process.
func ReportInvariantViolation(logger *slog.Logger, err error) {
	logAndExit(logger, err)
}
