package session

import (
	"fmt"
	"os"

	"golang.org/x/exp/slog"
)

var osExit = os.Exit
var exitProcess = osExit

// Fatal is the replay driver's failure policy: a broken session cannot produce a meaningful
// replay, so the error is logged with its stack and the process exits
func Fatal(logger *slog.Logger, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("replay failed", slog.String("error", fmt.Sprintf("%+v", err)))
	exitProcess(1)
}
