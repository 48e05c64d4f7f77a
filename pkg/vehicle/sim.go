package vehicle

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-waypoint/internal/log"
	"github.com/teslashibe/go-waypoint/pkg/geom"
	"github.com/teslashibe/go-waypoint/pkg/telemetry"
	"github.com/teslashibe/go-waypoint/pkg/waypoint"
)

// DefaultMaxYawRate is how fast the simulated vehicle turns (rad/s).
const DefaultMaxYawRate = math.Pi / 2

// ErrSimStopped is returned by commands sent after Stop.
var ErrSimStopped = errors.New("vehicle: simulator stopped")

// Sim is a point-mass vehicle that follows velocity setpoints exactly and
// turns toward the commanded heading at a bounded rate. It publishes its pose
// into a telemetry Store each step, standing in for a real estimator.
type Sim struct {
	store *telemetry.Store

	mu            sync.Mutex
	pos           geom.Vec3
	heading       float64
	vel           geom.Vec3
	targetHeading float64
	stopped       bool

	rate       time.Duration // wall-clock step period
	dt         float64       // simulated seconds per step
	maxYawRate float64
	stop       chan struct{}
	stopOnce   sync.Once

	velocityCmds atomic.Uint64
	holds        atomic.Uint64
}

// NewSim creates a simulator stepping every rate. timeScale > 1 runs
// simulated time faster than wall time.
func NewSim(store *telemetry.Store, start geom.Vec3, rate time.Duration, timeScale float64) *Sim {
	if timeScale <= 0 {
		timeScale = 1
	}
	s := &Sim{
		store:      store,
		pos:        start,
		rate:       rate,
		dt:         rate.Seconds() * timeScale,
		maxYawRate: DefaultMaxYawRate,
		stop:       make(chan struct{}),
	}
	store.UpdatePose(start, 0)
	return s
}

// SendVelocity implements waypoint.Actuator.
func (s *Sim) SendVelocity(_ context.Context, cmd waypoint.Velocity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrSimStopped
	}
	s.vel = geom.V(cmd.X, cmd.Y, cmd.Z)
	s.targetHeading = cmd.Heading
	s.velocityCmds.Add(1)
	return nil
}

// Hold implements waypoint.Actuator.
func (s *Sim) Hold(context.Context) error {
	s.mu.Lock()
	s.vel = geom.Vec3{}
	s.targetHeading = s.heading
	s.mu.Unlock()
	s.holds.Add(1)
	return nil
}

// Run steps the simulation until Stop is called.
func (s *Sim) Run() {
	ticker := time.NewTicker(s.rate)
	defer ticker.Stop()

	log.Info("vehicle simulator started", "hz", 1.0/s.rate.Seconds(), "dt", s.dt)
	for {
		select {
		case <-s.stop:
			log.Info("vehicle simulator stopped")
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

// Stop halts Run; later velocity commands fail with ErrSimStopped.
func (s *Sim) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		close(s.stop)
	})
}

// Step advances the simulation by one dt and publishes the new pose.
func (s *Sim) Step() {
	s.mu.Lock()
	s.pos = s.pos.Add(s.vel.Scale(s.dt))
	s.heading = turnToward(s.heading, s.targetHeading, s.maxYawRate*s.dt)
	pos, heading, speed := s.pos, s.heading, s.vel.Norm()
	s.mu.Unlock()

	s.store.UpdatePose(pos, heading)
	s.store.UpdateSpeed(speed)
}

// Pose returns the simulated position and heading.
func (s *Sim) Pose() (geom.Vec3, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, s.heading
}

// Counts returns how many velocity and hold commands were received.
func (s *Sim) Counts() (velocity, holds uint64) {
	return s.velocityCmds.Load(), s.holds.Load()
}

// turnToward rotates from current toward target along the short way by at
// most maxStep radians.
func turnToward(current, target, maxStep float64) float64 {
	delta := normalizeAngle(target - current)
	if math.Abs(delta) <= maxStep {
		return normalizeAngle(target)
	}
	return normalizeAngle(current + math.Copysign(maxStep, delta))
}

// normalizeAngle wraps a into [-pi, pi].
func normalizeAngle(a float64) float64 {
	if a > math.Pi || a <= -math.Pi {
		a = math.Atan2(math.Sin(a), math.Cos(a))
	}
	return a
}
