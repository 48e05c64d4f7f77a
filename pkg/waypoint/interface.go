// Package waypoint implements a closed-loop "go to waypoint" velocity
// controller: a fixed-rate loop that turns position error into a bounded
// velocity command plus heading until the goal is reached or cancelled.
//
// Collaborators are consumed through small interfaces so that each can be
// swapped independently (telemetry feed, goal predicate, vehicle transport).
package waypoint

import (
	"context"

	"github.com/teslashibe/go-waypoint/pkg/geom"
)

// StateProvider exposes the latest estimated vehicle state.
// Snapshot must return a copy taken under the provider's own lock.
type StateProvider interface {
	Snapshot() RuntimeState
}

// GoalChecker decides whether the vehicle has reached target.
// It is re-evaluated once per tick.
type GoalChecker interface {
	GoalReached(target geom.Vec3) bool
}

// Resetter is implemented by goal checkers that keep per-goal state.
// Reset is called when a new goal is accepted.
type Resetter interface {
	Reset()
}

// Actuator forwards commands to the vehicle.
type Actuator interface {
	SendVelocity(ctx context.Context, cmd Velocity) error
	Hold(ctx context.Context) error
}

// FeedbackFunc receives per-tick progress while a goal executes.
type FeedbackFunc func(Feedback)
