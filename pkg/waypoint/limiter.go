package waypoint

import (
	"math"

	"github.com/teslashibe/go-waypoint/pkg/geom"
)

// LimitPolicy selects how a raw velocity is bounded.
type LimitPolicy int

const (
	// PolicyClamp saturates each axis independently.
	PolicyClamp LimitPolicy = iota
	// PolicyProportional rescales the whole vector so no axis exceeds the bound.
	PolicyProportional
)

func (p LimitPolicy) String() string {
	if p == PolicyProportional {
		return "proportional"
	}
	return "clamp"
}

// Limit bounds v to maxSpeed using policy.
func Limit(v geom.Vec3, maxSpeed float64, policy LimitPolicy) geom.Vec3 {
	if policy == PolicyProportional {
		return ScaleProportional(v, maxSpeed)
	}
	return ClampAxes(v, maxSpeed)
}

// ClampAxes clamps every axis to [-maxSpeed, maxSpeed]. Direction is not
// preserved once more than one axis saturates. maxSpeed == 0 yields the
// zero vector.
func ClampAxes(v geom.Vec3, maxSpeed float64) geom.Vec3 {
	limit := math.Abs(maxSpeed)
	return geom.Vec3{
		X: clamp(v.X, -limit, limit),
		Y: clamp(v.Y, -limit, limit),
		Z: clamp(v.Z, -limit, limit),
	}
}

// ScaleProportional walks X, Y, Z in order and, for any axis whose magnitude
// exceeds maxSpeed, scales the whole vector by |maxSpeed/axis|. Axes equal to
// zero are skipped, and maxSpeed == 0 returns v unchanged.
func ScaleProportional(v geom.Vec3, maxSpeed float64) geom.Vec3 {
	if maxSpeed == 0 {
		return v
	}
	limit := math.Abs(maxSpeed)
	for i := 0; i < 3; i++ {
		a := v.Axis(i)
		if a == 0 {
			continue
		}
		if math.Abs(a) > limit {
			v = v.Scale(limit / math.Abs(a))
		}
	}
	return v
}

// clamp restricts v to the range [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
