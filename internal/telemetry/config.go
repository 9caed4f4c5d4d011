package telemetry

import (
	"os"
	"path/filepath"
	"sync"
)

// DefaultDir is where events.jsonl is written when no state directory is configured.
const DefaultDir = ".agent"

var (
	calibrationModeEnabled bool
	observeEnabled         bool

	dirMu sync.RWMutex
	dir   = DefaultDir
)

func init() {
	// Read once at process start. Mid-run environment changes have no effect.
	calibrationModeEnabled = os.Getenv("AGT_CALIBRATION_MODE") == "1"

	// Observe: default to 1 when calibration=1 and AGT_OBSERVE_JSON is unset; honour explicit 0/1.
	if v, ok := os.LookupEnv("AGT_OBSERVE_JSON"); ok {
		observeEnabled = v == "1"
	} else {
		observeEnabled = calibrationModeEnabled
	}
}

// CalibrationModeEnabled reports whether calibration mode was enabled at startup.
// In calibration mode the runner sends no tool definitions to the model.
func CalibrationModeEnabled() bool {
	if os.Getenv("AGT_CALIBRATION_MODE") == "1" {
		return true
	}
	return calibrationModeEnabled
}

// ObserveEnabled reports whether JSONL emission is on. An explicit
// AGT_OBSERVE_JSON set after startup still wins, which tests rely on.
func ObserveEnabled() bool {
	if v, ok := os.LookupEnv("AGT_OBSERVE_JSON"); ok {
		return v == "1"
	}
	return observeEnabled
}

// SetDir sets the state directory events are written under.
func SetDir(d string) {
	if d == "" {
		d = DefaultDir
	}
	dirMu.Lock()
	dir = filepath.Clean(d)
	dirMu.Unlock()
}

// Dir returns the state directory. AGT_STATE_DIR overrides the configured value.
func Dir() string {
	if v := os.Getenv("AGT_STATE_DIR"); v != "" {
		return v
	}
	dirMu.RLock()
	defer dirMu.RUnlock()
	return dir
}
