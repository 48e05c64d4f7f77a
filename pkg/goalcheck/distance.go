// Package goalcheck provides the default "has the goal been reached?"
// predicate: the vehicle is within a distance threshold of the target.
package goalcheck

import (
	"math"
	"sync"

	"github.com/teslashibe/go-waypoint/pkg/geom"
	"github.com/teslashibe/go-waypoint/pkg/telemetry"
	"github.com/teslashibe/go-waypoint/pkg/waypoint"
)

// DefaultThreshold is the arrival radius in meters.
const DefaultThreshold = 0.2

// Distance reports the goal reached once a pose sample newer than the last
// Reset places the vehicle within Threshold of the target. Requiring a fresh
// sample keeps a stale position from satisfying a goal that was just accepted.
type Distance struct {
	store     *telemetry.Store
	threshold float64

	mu       sync.Mutex
	resetSeq uint64
	measured bool
}

// NewDistance creates a checker over store. A non-positive or non-finite
// threshold uses DefaultThreshold.
func NewDistance(store *telemetry.Store, threshold float64) *Distance {
	if !(threshold > 0) || math.IsInf(threshold, 0) {
		threshold = DefaultThreshold
	}
	return &Distance{store: store, threshold: threshold}
}

// Threshold returns the arrival radius.
func (d *Distance) Threshold() float64 {
	return d.threshold
}

// Reset implements waypoint.Resetter.
func (d *Distance) Reset() {
	seq := d.store.Seq()
	d.mu.Lock()
	d.resetSeq = seq
	d.measured = false
	d.mu.Unlock()
}

// GoalReached implements waypoint.GoalChecker.
func (d *Distance) GoalReached(target geom.Vec3) bool {
	d.store.SetTarget(target)

	d.mu.Lock()
	if !d.measured {
		if d.store.Seq() == d.resetSeq {
			d.mu.Unlock()
			return false
		}
		d.measured = true
	}
	d.mu.Unlock()

	return d.store.Snapshot().DistanceToGoal < d.threshold
}

var (
	_ waypoint.GoalChecker = (*Distance)(nil)
	_ waypoint.Resetter    = (*Distance)(nil)
)
