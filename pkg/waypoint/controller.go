package waypoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-waypoint/internal/log"
	"github.com/teslashibe/go-waypoint/pkg/geom"
)

// holdTimeout bounds the final hold command, which is sent even after the
// caller's context is done.
const holdTimeout = 2 * time.Second

// heartbeatTicks is how often the loop logs a progress line.
const heartbeatTicks = 100

// Controller runs one goal at a time through Accept, Cancel and Execute.
// Accept and Cancel may be called from any goroutine; Execute blocks the
// goroutine it runs on until the goal terminates.
type Controller struct {
	cfg     Config
	policy  LimitPolicy
	state   StateProvider
	checker GoalChecker
	act     Actuator
	logger  *slog.Logger

	mu        sync.RWMutex
	goal      Goal
	maxSpeed  float64 // resolved for the accepted goal
	hasGoal   bool
	gen       uint64 // bumped by Accept
	lifecycle State
	running   bool

	cancel atomic.Bool

	// Diagnostics
	tickCount  atomic.Uint64
	sendErrors atomic.Uint64
}

// New validates cfg and wires the collaborators. A config error means the
// controller must not be used.
func New(cfg Config, state StateProvider, checker GoalChecker, act Actuator) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if state == nil || checker == nil || act == nil {
		return nil, fmt.Errorf("%w: state provider, goal checker and actuator are required", ErrInvalidConfig)
	}
	return &Controller{
		cfg:      cfg,
		policy:   cfg.Policy(),
		state:    state,
		checker:  checker,
		act:      act,
		logger:   log.With("component", "waypoint"),
		maxSpeed: cfg.DefaultMaxSpeed,
	}, nil
}

// SetLogger replaces the controller's logger.
func (c *Controller) SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	c.mu.Lock()
	c.logger = l
	c.mu.Unlock()
}

// Config returns the controller's configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Accept stores goal for the next Execute. Goals are always accepted.
// A nonzero MaxSpeed overrides the default for this goal only.
func (c *Controller) Accept(goal Goal) Response {
	speed := c.cfg.DefaultMaxSpeed
	if goal.MaxSpeed != 0 {
		speed = math.Abs(goal.MaxSpeed)
	}

	c.mu.Lock()
	c.goal = goal
	c.maxSpeed = speed
	c.hasGoal = true
	c.gen++
	c.lifecycle = StateAccepted
	logger := c.logger
	c.mu.Unlock()

	c.cancel.Store(false)
	if r, ok := c.checker.(Resetter); ok {
		r.Reset()
	}

	logger.Info("goal accepted",
		"target", goal.Target,
		"max_speed", speed,
		"ignore_heading", goal.IgnoreHeading,
		"policy", c.policy.String())
	return AcceptAndExecute
}

// Cancel requests cancellation of the current goal. It never blocks; the
// running loop observes the request at the start of its next tick.
func (c *Controller) Cancel() CancelResponse {
	c.cancel.Store(true)
	c.mu.RLock()
	logger := c.logger
	c.mu.RUnlock()
	logger.Info("cancel requested")
	return CancelAccept
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lifecycle
}

// Goal returns the accepted goal and its resolved max speed.
func (c *Controller) Goal() (Goal, float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.goal, c.maxSpeed, c.hasGoal
}

// Execute runs the control loop for the accepted goal until it succeeds,
// is cancelled (via Cancel or ctx), or the actuator fails. It always returns
// exactly one Result and, once the loop started, sends exactly one hold.
func (c *Controller) Execute(ctx context.Context, feedback FeedbackFunc) Result {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return Result{State: StateAborted, Err: ErrBusy}
	}
	if !c.hasGoal {
		c.mu.Unlock()
		return Result{State: StateAborted, Err: ErrNoGoal}
	}
	goal, speed, gen := c.goal, c.maxSpeed, c.gen
	c.running = true
	c.lifecycle = StateExecuting
	logger := c.logger
	c.mu.Unlock()

	ticker := time.NewTicker(c.cfg.Rate)
	defer ticker.Stop()

	for {
		if res, done := c.tick(ctx, goal, speed, feedback); done {
			return c.finish(ctx, gen, res, logger)
		}

		// ctx.Done is not a separate exit: the next tick sees ctx.Err and
		// terminates through the normal cancellation path.
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

// tick executes one control cycle. It returns done=true with the terminal
// result when the loop must stop.
func (c *Controller) tick(ctx context.Context, goal Goal, maxSpeed float64, feedback FeedbackFunc) (Result, bool) {
	if c.cancel.Load() || ctx.Err() != nil {
		return Result{Success: false, State: StateCancelled}, true
	}
	if c.checker.GoalReached(goal.Target) {
		return Result{Success: true, State: StateSucceeded}, true
	}

	snap := c.state.Snapshot()
	posErr := goal.Target.Sub(snap.Position)

	cmd := c.command(posErr, snap.Heading, goal.IgnoreHeading, maxSpeed)
	if err := c.act.SendVelocity(ctx, cmd); err != nil {
		c.sendErrors.Add(1)
		return Result{Success: false, State: StateAborted, Err: fmt.Errorf("%w: %w", ErrActuator, err)}, true
	}

	if feedback != nil {
		feedback(Feedback{DistanceToGoal: snap.DistanceToGoal, Speed: snap.Speed})
	}

	if n := c.tickCount.Add(1); n%heartbeatTicks == 0 {
		c.mu.RLock()
		logger := c.logger
		c.mu.RUnlock()
		logger.Debug("waypoint heartbeat",
			"ticks", n,
			"distance", snap.DistanceToGoal,
			"cmd_x", cmd.X, "cmd_y", cmd.Y, "cmd_z", cmd.Z,
			"heading", cmd.Heading)
	}
	return Result{}, false
}

// command applies the heading selector and velocity limiter to posErr.
// The raw velocity is posErr itself (unit proportional gain).
func (c *Controller) command(posErr geom.Vec3, actualHeading float64, ignoreHeading bool, maxSpeed float64) Velocity {
	heading := SelectHeading(posErr, ignoreHeading, actualHeading, c.cfg.HeadingFreezeRadius)
	v := Limit(posErr, maxSpeed, c.policy)
	return Velocity{X: v.X, Y: v.Y, Z: v.Z, Heading: heading}
}

// finish sends the single hold command, records the terminal state and
// drops the goal unless a newer one was accepted while the loop ran.
func (c *Controller) finish(ctx context.Context, gen uint64, res Result, logger *slog.Logger) Result {
	holdCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), holdTimeout)
	defer cancel()
	if err := c.act.Hold(holdCtx); err != nil {
		holdErr := fmt.Errorf("%w: hold: %w", ErrActuator, err)
		if res.State == StateAborted {
			res.Err = errors.Join(res.Err, holdErr)
		} else {
			// The goal outcome stands; the hold failure is only reported.
			logger.Error("hold command failed", "err", err, "state", res.State.String())
		}
	}

	c.mu.Lock()
	c.running = false
	if c.gen == gen {
		c.lifecycle = res.State
		c.hasGoal = false
		c.cancel.Store(false)
	}
	c.mu.Unlock()

	switch res.State {
	case StateSucceeded:
		logger.Info("goal succeeded")
	case StateCancelled:
		logger.Warn("goal cancelled")
	default:
		logger.Error("goal aborted", "err", res.Err)
	}
	return res
}

// Stats returns tick and actuator error counters.
func (c *Controller) Stats() (ticks, sendErrors uint64) {
	return c.tickCount.Load(), c.sendErrors.Load()
}
