//go:build debug_replay

package memutils

import (
	"fmt"

	"golang.org/x/exp/slog"
)

// ReportInvariantViolation is called when data that must have been registered earlier is
// missing. With the debug_replay build tag present it panics so the stack is preserved.
func ReportInvariantViolation(logger *slog.Logger, err error) {
	panic(fmt.Sprintf("%+v", err))
}
