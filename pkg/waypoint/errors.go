package waypoint

import "errors"

var (
	// ErrInvalidConfig is returned by Config.Validate and New.
	ErrInvalidConfig = errors.New("waypoint: invalid config")

	// ErrActuator wraps failures reported by the Actuator.
	ErrActuator = errors.New("waypoint: actuator failure")

	// ErrNoGoal is reported when Execute runs without an accepted goal.
	ErrNoGoal = errors.New("waypoint: no accepted goal")

	// ErrBusy is reported when Execute is entered while another execution runs.
	ErrBusy = errors.New("waypoint: execution already in progress")
)
