package telemetry

import (
	"context"

	"github.com/petasbytes/fsagent/internal/metrics"
)

// EmitLocalFeatures records a local_features event describing the size and
// shape of an instruction. It only runs when both calibration mode and JSONL
// observation are on, and never writes the instruction itself.
func EmitLocalFeatures(ctx context.Context, instruction string) {
	if !CalibrationModeEnabled() || !ObserveEnabled() {
		return
	}
	turnID, _ := TurnIDFromContext(ctx)
	requestID, _ := RequestIDFromContext(ctx)
	Emit("local_features", map[string]any{
		"turn_id":          turnID,
		"request_id":       requestID,
		"features_version": metrics.FeaturesVersion,
		"user":             metrics.CountFeatures(instruction).Fields(),
	})
}
