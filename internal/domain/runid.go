package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// StageEvent is a workflow telemetry record published on each state
// transition when event publishing is enabled.
type StageEvent struct {
	RunID  string    `json:"run_id"`
	State  string    `json:"state"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// GenerateRunID derives a deterministic run identifier from the requested
// region and start time. Hashing rather than random IDs keeps replayed runs
// against the same inputs correlatable in logs and event streams.
func GenerateRunID(bbox BBox, resolutionM int, start time.Time) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", bbox.RegionKey(resolutionM), start.UTC().Format(time.RFC3339Nano))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
