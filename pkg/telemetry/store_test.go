package telemetry

import (
	"math"
	"sync"
	"testing"

	"github.com/teslashibe/go-waypoint/pkg/geom"
	"github.com/teslashibe/go-waypoint/pkg/protocol"
)

func TestStore_DistanceTracksTarget(t *testing.T) {
	s := NewStore()
	s.UpdatePose(geom.V(0, 0, 0), 0)
	if d := s.Snapshot().DistanceToGoal; d != 0 {
		t.Errorf("no target: distance %v, want 0", d)
	}

	s.SetTarget(geom.V(3, 4, 0))
	if d := s.Snapshot().DistanceToGoal; d != 5 {
		t.Errorf("after SetTarget: distance %v, want 5", d)
	}

	s.UpdatePose(geom.V(3, 0, 0), 1)
	snap := s.Snapshot()
	if snap.DistanceToGoal != 4 || snap.Heading != 1 {
		t.Errorf("after move: %+v", snap)
	}

	s.ClearTarget()
	if d := s.Snapshot().DistanceToGoal; d != 0 {
		t.Errorf("after ClearTarget: %v", d)
	}
}

func TestStore_ApplyVelocity(t *testing.T) {
	s := NewStore()
	vel := [3]float64{3, 4, 0}
	s.Apply(&protocol.StateData{Position: [3]float64{1, 2, 3}, Heading: 0.2, Velocity: &vel, Speed: 99})

	snap := s.Snapshot()
	if snap.Position != geom.V(1, 2, 3) {
		t.Errorf("Position = %+v", snap.Position)
	}
	if math.Abs(snap.Speed-5) > 1e-9 {
		t.Errorf("Speed from velocity = %v, want 5", snap.Speed)
	}
	if s.Seq() != 1 {
		t.Errorf("Seq = %d, want 1", s.Seq())
	}
	if s.LastUpdate().IsZero() {
		t.Error("LastUpdate should be set")
	}

	s.Apply(&protocol.StateData{Speed: 1.5})
	if snap := s.Snapshot(); snap.Speed != 1.5 {
		t.Errorf("explicit speed = %v", snap.Speed)
	}

	s.Apply(nil)
	if s.Seq() != 2 {
		t.Error("nil sample must be ignored")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore()
	s.SetTarget(geom.V(10, 0, 0))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(x float64) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.UpdatePose(geom.V(x, 0, 0), 0)
				s.UpdateSpeed(x)
			}
		}(float64(i))
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.Snapshot()
			}
		}()
	}
	wg.Wait()

	if s.Seq() != 1000 {
		t.Errorf("Seq = %d, want 1000", s.Seq())
	}
}
