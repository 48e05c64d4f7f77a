package waypoint

import (
	"fmt"
	"math"
	"time"

	"github.com/teslashibe/go-waypoint/pkg/geom"
)

// Controller defaults.
const (
	DefaultRate                = 100 * time.Millisecond // 10 Hz
	DefaultHeadingFreezeRadius = 2.0                    // meters
	DefaultMaxSpeed            = 1.0                    // m/s
)

// Goal is a single waypoint request.
type Goal struct {
	Target        geom.Vec3
	MaxSpeed      float64 // 0 = use Config.DefaultMaxSpeed
	IgnoreHeading bool
}

// Config is fixed at construction.
type Config struct {
	DefaultMaxSpeed     float64
	ProportionalLimit   bool
	Rate                time.Duration
	HeadingFreezeRadius float64
}

// DefaultConfig returns the stock 10 Hz clamp-policy configuration.
func DefaultConfig() Config {
	return Config{
		DefaultMaxSpeed:     DefaultMaxSpeed,
		ProportionalLimit:   false,
		Rate:                DefaultRate,
		HeadingFreezeRadius: DefaultHeadingFreezeRadius,
	}
}

// Policy returns the limiter policy selected by the config.
func (c Config) Policy() LimitPolicy {
	if c.ProportionalLimit {
		return PolicyProportional
	}
	return PolicyClamp
}

// Validate reports configuration the loop cannot run with.
func (c Config) Validate() error {
	if math.IsNaN(c.DefaultMaxSpeed) || math.IsInf(c.DefaultMaxSpeed, 0) || c.DefaultMaxSpeed < 0 {
		return fmt.Errorf("%w: default max speed %v", ErrInvalidConfig, c.DefaultMaxSpeed)
	}
	if c.ProportionalLimit && c.DefaultMaxSpeed == 0 {
		return fmt.Errorf("%w: proportional limit requires a positive default max speed", ErrInvalidConfig)
	}
	if c.Rate <= 0 {
		return fmt.Errorf("%w: rate %v", ErrInvalidConfig, c.Rate)
	}
	if c.HeadingFreezeRadius < 0 || math.IsNaN(c.HeadingFreezeRadius) {
		return fmt.Errorf("%w: heading freeze radius %v", ErrInvalidConfig, c.HeadingFreezeRadius)
	}
	return nil
}

// RuntimeState is the estimator's view of the vehicle.
type RuntimeState struct {
	Position       geom.Vec3
	Heading        float64 // radians
	DistanceToGoal float64
	Speed          float64
}

// Velocity is a command for the actuator: linear velocity plus desired heading.
type Velocity struct {
	X, Y, Z float64
	Heading float64
}

// Feedback is published once per tick.
type Feedback struct {
	DistanceToGoal float64 `json:"distance_to_goal"`
	Speed          float64 `json:"speed"`
}

// Result is the terminal outcome of one execution.
type Result struct {
	Success bool
	State   State
	Err     error
}

// State is the goal lifecycle state.
type State int

const (
	StateIdle State = iota
	StateAccepted
	StateExecuting
	StateSucceeded
	StateCancelled
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccepted:
		return "accepted"
	case StateExecuting:
		return "executing"
	case StateSucceeded:
		return "succeeded"
	case StateCancelled:
		return "cancelled"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether s ends an execution.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateCancelled || s == StateAborted
}

// Response answers Accept.
type Response int

const (
	Reject Response = iota
	AcceptAndExecute
)

// CancelResponse answers Cancel.
type CancelResponse int

const (
	CancelReject CancelResponse = iota
	CancelAccept
)
