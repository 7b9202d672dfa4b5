// Package shim drives the target-frame diagnostics of a replay: it counts presents, reads
// back every render pass attachment in the target frame, captures a final screenshot, and
// tells the replay loop when to stop. It also provides the virtual swapchain used when the
// images being rendered cannot be presented directly.
package shim

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	// DefaultPrefix names the environment variables ConfigFromEnv reads when no prefix is given
	DefaultPrefix = "REPLAY"
	// DefaultCaptureFrame is the present index diagnostics are captured at
	DefaultCaptureFrame = 5
	// DefaultOutputDir is where diagnostic images are written
	DefaultOutputDir = "."
)

// Config selects the target frame and where its diagnostics are written
type Config struct {
	// CaptureFrame is the target present index. A negative value disables diagnostics.
	CaptureFrame int
	OutputDir    string
}

func DefaultConfig() Config {
	return Config{
		CaptureFrame: DefaultCaptureFrame,
		OutputDir:    DefaultOutputDir,
	}
}

// ConfigFromEnv reads <prefix>_FRAME_INDEX and <prefix>_OUTPUT_DIR, falling back to the
// defaults for unset variables. A frame index that is not an integer is an error.
func ConfigFromEnv(prefix string) (Config, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	config := DefaultConfig()

	frameVar := prefix + "_FRAME_INDEX"
	if value, ok := os.LookupEnv(frameVar); ok && strings.TrimSpace(value) != "" {
		frame, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return Config{}, errors.Wrapf(err, "%s must be an integer", frameVar)
		}
		config.CaptureFrame = frame
	}

	if value, ok := os.LookupEnv(prefix + "_OUTPUT_DIR"); ok && value != "" {
		config.OutputDir = value
	}

	return config, nil
}
