package waypoint

import (
	"math"

	"github.com/teslashibe/go-waypoint/pkg/geom"
)

// SelectHeading picks the commanded heading for a position error.
//
// The current heading is held when heading control is disabled or when the
// horizontal error is inside freezeRadius; otherwise the vehicle points at
// the target. Holding near the goal keeps atan2 of a tiny vector from
// spinning the vehicle in place.
func SelectHeading(posErr geom.Vec3, ignoreHeading bool, actual, freezeRadius float64) float64 {
	if ignoreHeading {
		return actual
	}
	if h := posErr.HorizontalNorm(); h == 0 || h < freezeRadius {
		return actual
	}
	return math.Atan2(posErr.Y, posErr.X)
}
