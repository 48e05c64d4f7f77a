// Package vehicle provides waypoint.Actuator implementations: an HTTP client
// for a vehicle's motion API and a kinematic simulator.
package vehicle

import (
	"context"

	"github.com/teslashibe/go-waypoint/pkg/waypoint"
)

// SpeedCommander sends velocity-with-heading setpoints.
type SpeedCommander interface {
	SendVelocity(ctx context.Context, cmd waypoint.Velocity) error
}

// Hoverer commands the vehicle to hold its current position.
type Hoverer interface {
	Hold(ctx context.Context) error
}

// Ensure implementations satisfy the controller's actuator contract.
var (
	_ waypoint.Actuator = (*HTTPActuator)(nil)
	_ waypoint.Actuator = (*Sim)(nil)
)
