// Package telemetry holds the vehicle's estimated state and keeps it fresh
// from a WebSocket feed.
package telemetry

import (
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-waypoint/pkg/geom"
	"github.com/teslashibe/go-waypoint/pkg/protocol"
	"github.com/teslashibe/go-waypoint/pkg/waypoint"
)

// Store is the shared runtime state. Writers are the telemetry feed (or the
// simulator); the control loop only copies it through Snapshot.
type Store struct {
	mu        sync.RWMutex
	state     waypoint.RuntimeState
	target    geom.Vec3
	hasTarget bool
	seq       uint64 // incremented per pose sample
	updated   time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Snapshot implements waypoint.StateProvider.
func (s *Store) Snapshot() waypoint.RuntimeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// UpdatePose records a new position and heading sample.
func (s *Store) UpdatePose(pos geom.Vec3, heading float64) {
	s.mu.Lock()
	s.state.Position = pos
	s.state.Heading = heading
	s.seq++
	s.updated = time.Now()
	s.refreshDistance()
	s.mu.Unlock()
}

// UpdateSpeed records the current ground speed.
func (s *Store) UpdateSpeed(speed float64) {
	s.mu.Lock()
	s.state.Speed = speed
	s.mu.Unlock()
}

// Apply folds a protocol state sample into the store.
func (s *Store) Apply(d *protocol.StateData) {
	if d == nil {
		return
	}
	speed := d.Speed
	if d.Velocity != nil {
		v := d.Velocity
		speed = math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	}

	s.mu.Lock()
	s.state.Position = geom.V(d.Position[0], d.Position[1], d.Position[2])
	s.state.Heading = d.Heading
	s.state.Speed = speed
	s.seq++
	s.updated = time.Now()
	s.refreshDistance()
	s.mu.Unlock()
}

// SetTarget sets the point distance-to-goal is measured against.
func (s *Store) SetTarget(target geom.Vec3) {
	s.mu.Lock()
	if !s.hasTarget || s.target != target {
		s.target = target
		s.hasTarget = true
		s.refreshDistance()
	}
	s.mu.Unlock()
}

// ClearTarget stops distance tracking.
func (s *Store) ClearTarget() {
	s.mu.Lock()
	s.hasTarget = false
	s.state.DistanceToGoal = 0
	s.mu.Unlock()
}

// Seq returns the number of pose samples received.
func (s *Store) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// LastUpdate returns when the last pose sample arrived.
func (s *Store) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updated
}

// refreshDistance must be called with mu held.
func (s *Store) refreshDistance() {
	if s.hasTarget {
		s.state.DistanceToGoal = geom.Distance(s.target, s.state.Position)
	}
}
