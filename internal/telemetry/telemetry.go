// Package telemetry appends privacy-safe JSONL events (sizes, ids and error
// codes, never file contents or instructions) to <state dir>/events.jsonl
// when AGT_OBSERVE_JSON=1.
package telemetry

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/petasbytes/fsagent/internal/logging"
)

// EventsFile is the log file name inside Dir().
const EventsFile = "events.jsonl"

// writeMu serialises appends so concurrent requests never interleave lines.
var writeMu sync.Mutex

// Emit appends one event line stamped with the event name and a UTC
// RFC3339Nano time. fields is not modified. Failures are logged and dropped;
// telemetry never fails a tool call.
func Emit(name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}

	line := make(map[string]any, len(fields)+2)
	maps.Copy(line, fields)
	line["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	line["event"] = name

	b, err := json.Marshal(line)
	if err != nil {
		warn(name, fmt.Errorf("marshal: %w", err))
		return
	}
	if err := appendLine(Dir(), append(b, '\n')); err != nil {
		warn(name, err)
	}
}

func appendLine(dir string, b []byte) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, EventsFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func warn(event string, err error) {
	logging.Warn().
		Add(logging.Component("telemetry")).
		Add(logging.Str("event", event)).
		Add(logging.ErrorField(err)).
		Msg("event dropped")
}
