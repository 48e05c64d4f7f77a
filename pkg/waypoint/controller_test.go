package waypoint

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-waypoint/pkg/geom"
)

// fakeState returns a fixed, mutable snapshot.
type fakeState struct {
	mu   sync.Mutex
	snap RuntimeState
}

func (f *fakeState) Snapshot() RuntimeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

// countingChecker reports the goal reached once it has been asked reachAt times.
// reachAt == 0 never reaches.
type countingChecker struct {
	mu      sync.Mutex
	calls   int
	reachAt int
	resets  int
}

func (c *countingChecker) GoalReached(geom.Vec3) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.reachAt > 0 && c.calls >= c.reachAt
}

func (c *countingChecker) Reset() {
	c.mu.Lock()
	c.resets++
	c.mu.Unlock()
}

// mockActuator records every command in order.
type mockActuator struct {
	mu      sync.Mutex
	calls   []string
	cmds    []Velocity
	holds   int
	sendErr error
	holdErr error
	onSend  func(n int)
}

func (m *mockActuator) SendVelocity(_ context.Context, cmd Velocity) error {
	m.mu.Lock()
	m.calls = append(m.calls, "velocity")
	if m.sendErr != nil {
		m.mu.Unlock()
		return m.sendErr
	}
	m.cmds = append(m.cmds, cmd)
	n := len(m.cmds)
	hook := m.onSend
	m.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (m *mockActuator) Hold(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "hold")
	m.holds++
	return m.holdErr
}

func (m *mockActuator) snapshot() ([]Velocity, int, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Velocity(nil), m.cmds...), m.holds, append([]string(nil), m.calls...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Rate = time.Millisecond
	return cfg
}

func newTestController(t *testing.T, cfg Config, state StateProvider, checker GoalChecker, act Actuator) *Controller {
	t.Helper()
	c, err := New(cfg, state, checker, act)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RejectsBadConfig(t *testing.T) {
	bad := []Config{
		{DefaultMaxSpeed: -1, Rate: time.Millisecond},
		{DefaultMaxSpeed: 1, Rate: 0},
		{DefaultMaxSpeed: 0, ProportionalLimit: true, Rate: time.Millisecond},
		{DefaultMaxSpeed: 1, Rate: time.Millisecond, HeadingFreezeRadius: -2},
	}
	for i, cfg := range bad {
		if _, err := New(cfg, &fakeState{}, &countingChecker{}, &mockActuator{}); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("config %d: got %v, want ErrInvalidConfig", i, err)
		}
	}

	if _, err := New(testConfig(), nil, &countingChecker{}, &mockActuator{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil state provider: got %v", err)
	}
}

func TestController_ClampExample(t *testing.T) {
	act := &mockActuator{}
	cfg := testConfig()
	ctrl := newTestController(t, cfg, &fakeState{}, &countingChecker{reachAt: 2}, act)

	ctrl.Accept(Goal{Target: geom.V(10, 0, 0), MaxSpeed: 2})
	res := ctrl.Execute(context.Background(), nil)

	if !res.Success || res.State != StateSucceeded {
		t.Fatalf("result: got %+v, want success", res)
	}
	cmds, holds, _ := act.snapshot()
	if len(cmds) != 1 {
		t.Fatalf("expected 1 velocity command, got %d", len(cmds))
	}
	if got := cmds[0]; !floatEquals(got.X, 2) || got.Y != 0 || got.Z != 0 || got.Heading != 0 {
		t.Errorf("command: got %+v, want {2 0 0 heading 0}", got)
	}
	if holds != 1 {
		t.Errorf("expected exactly 1 hold, got %d", holds)
	}
}

func TestController_ProportionalExample(t *testing.T) {
	act := &mockActuator{}
	cfg := testConfig()
	cfg.ProportionalLimit = true
	ctrl := newTestController(t, cfg, &fakeState{}, &countingChecker{reachAt: 2}, act)

	ctrl.Accept(Goal{Target: geom.V(10, 10, 0), MaxSpeed: 2})
	ctrl.Execute(context.Background(), nil)

	cmds, _, _ := act.snapshot()
	if len(cmds) != 1 {
		t.Fatalf("expected 1 command, got %d", len(cmds))
	}
	got := cmds[0]
	if !floatEquals(got.X, got.Y) {
		t.Errorf("1:1 ratio lost: %+v", got)
	}
	if got.X > 2 || got.Y > 2 || got.Z != 0 {
		t.Errorf("axis exceeds bound: %+v", got)
	}
}

func TestController_SuccessStopsCommands(t *testing.T) {
	act := &mockActuator{}
	ctrl := newTestController(t, testConfig(), &fakeState{}, &countingChecker{reachAt: 4}, act)

	ctrl.Accept(Goal{Target: geom.V(1, 2, 3)})
	res := ctrl.Execute(context.Background(), nil)

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	cmds, holds, calls := act.snapshot()
	if len(cmds) != 3 {
		t.Errorf("expected 3 velocity commands before success, got %d", len(cmds))
	}
	if holds != 1 {
		t.Errorf("expected 1 hold, got %d", holds)
	}
	if calls[len(calls)-1] != "hold" {
		t.Errorf("last actuator call should be hold, got %v", calls)
	}
	if ctrl.State() != StateSucceeded {
		t.Errorf("state: got %v, want succeeded", ctrl.State())
	}
}

func TestController_CancelObservedNextTick(t *testing.T) {
	act := &mockActuator{}
	ctrl := newTestController(t, testConfig(), &fakeState{}, &countingChecker{}, act)
	act.onSend = func(n int) {
		if n == 3 {
			ctrl.Cancel()
		}
	}

	ctrl.Accept(Goal{Target: geom.V(100, 0, 0)})
	res := ctrl.Execute(context.Background(), nil)

	if res.Success || res.State != StateCancelled {
		t.Fatalf("result: got %+v, want cancelled", res)
	}
	cmds, holds, calls := act.snapshot()
	if len(cmds) != 3 {
		t.Errorf("cancel at tick 3 should stop before tick 4, got %d commands", len(cmds))
	}
	if holds != 1 {
		t.Errorf("expected exactly 1 hold, got %d", holds)
	}
	if calls[len(calls)-1] != "hold" {
		t.Errorf("last call should be hold, got %v", calls)
	}
}

func TestController_CancelBeforeExecute(t *testing.T) {
	act := &mockActuator{}
	ctrl := newTestController(t, testConfig(), &fakeState{}, &countingChecker{}, act)

	ctrl.Accept(Goal{Target: geom.V(5, 5, 5)})
	if resp := ctrl.Cancel(); resp != CancelAccept {
		t.Fatalf("Cancel: got %v", resp)
	}
	res := ctrl.Execute(context.Background(), nil)

	cmds, holds, _ := act.snapshot()
	if res.State != StateCancelled || len(cmds) != 0 || holds != 1 {
		t.Errorf("got state=%v cmds=%d holds=%d", res.State, len(cmds), holds)
	}
}

func TestController_ContextCancel(t *testing.T) {
	act := &mockActuator{}
	ctrl := newTestController(t, testConfig(), &fakeState{}, &countingChecker{}, act)
	ctrl.Accept(Goal{Target: geom.V(100, 0, 0)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Result, 1)
	go func() { done <- ctrl.Execute(ctx, nil) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case res := <-done:
		if res.State != StateCancelled {
			t.Errorf("state: got %v, want cancelled", res.State)
		}
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after context cancel")
	}
	if _, holds, _ := act.snapshot(); holds != 1 {
		t.Errorf("expected 1 hold, got %d", holds)
	}
}

func TestController_ActuatorFailureAborts(t *testing.T) {
	boom := errors.New("link down")
	act := &mockActuator{sendErr: boom}
	ctrl := newTestController(t, testConfig(), &fakeState{}, &countingChecker{}, act)

	ctrl.Accept(Goal{Target: geom.V(3, 0, 0)})
	res := ctrl.Execute(context.Background(), nil)

	if res.Success || res.State != StateAborted {
		t.Fatalf("result: got %+v, want aborted", res)
	}
	if !errors.Is(res.Err, ErrActuator) || !errors.Is(res.Err, boom) {
		t.Errorf("error should wrap ErrActuator and cause, got %v", res.Err)
	}
	_, holds, calls := act.snapshot()
	if holds != 1 || len(calls) != 2 {
		t.Errorf("expected one failed send then one hold, got %v", calls)
	}
	if _, sendErrors := ctrl.Stats(); sendErrors != 1 {
		t.Errorf("sendErrors: got %d, want 1", sendErrors)
	}
}

func TestController_HoldFailureOnAbortIsJoined(t *testing.T) {
	act := &mockActuator{sendErr: errors.New("send"), holdErr: errors.New("hold")}
	ctrl := newTestController(t, testConfig(), &fakeState{}, &countingChecker{}, act)

	ctrl.Accept(Goal{Target: geom.V(3, 0, 0)})
	res := ctrl.Execute(context.Background(), nil)
	if !errors.Is(res.Err, act.holdErr) || !errors.Is(res.Err, act.sendErr) {
		t.Errorf("expected both errors in %v", res.Err)
	}
}

func TestController_HoldFailureOnSuccessKeepsOutcome(t *testing.T) {
	act := &mockActuator{holdErr: errors.New("hold")}
	ctrl := newTestController(t, testConfig(), &fakeState{}, &countingChecker{reachAt: 1}, act)

	ctrl.Accept(Goal{Target: geom.V(0, 0, 0)})
	if res := ctrl.Execute(context.Background(), nil); !res.Success || res.Err != nil {
		t.Errorf("got %+v, want plain success", res)
	}
}

func TestController_ExecuteWithoutGoal(t *testing.T) {
	act := &mockActuator{}
	ctrl := newTestController(t, testConfig(), &fakeState{}, &countingChecker{}, act)

	res := ctrl.Execute(context.Background(), nil)
	if !errors.Is(res.Err, ErrNoGoal) {
		t.Errorf("got %v, want ErrNoGoal", res.Err)
	}
	if _, holds, _ := act.snapshot(); holds != 0 {
		t.Errorf("no loop ran, so no hold expected, got %d", holds)
	}
}

func TestController_ConcurrentExecuteIsBusy(t *testing.T) {
	act := &mockActuator{}
	ctrl := newTestController(t, testConfig(), &fakeState{}, &countingChecker{}, act)
	started := make(chan struct{})
	var once sync.Once
	act.onSend = func(int) { once.Do(func() { close(started) }) }

	ctrl.Accept(Goal{Target: geom.V(50, 0, 0)})
	done := make(chan Result, 1)
	go func() { done <- ctrl.Execute(context.Background(), nil) }()
	<-started

	if res := ctrl.Execute(context.Background(), nil); !errors.Is(res.Err, ErrBusy) {
		t.Errorf("second Execute: got %v, want ErrBusy", res.Err)
	}

	ctrl.Cancel()
	if res := <-done; res.State != StateCancelled {
		t.Errorf("first Execute: got %v", res.State)
	}
}

func TestController_AcceptSpeedOverride(t *testing.T) {
	checker := &countingChecker{}
	ctrl := newTestController(t, testConfig(), &fakeState{}, checker, &mockActuator{})

	if resp := ctrl.Accept(Goal{Target: geom.V(1, 1, 1), MaxSpeed: 3.5}); resp != AcceptAndExecute {
		t.Fatalf("Accept: got %v", resp)
	}
	if _, speed, ok := ctrl.Goal(); !ok || speed != 3.5 {
		t.Errorf("override: got %v", speed)
	}

	// A zero request falls back to the default, not the previous override.
	ctrl.Accept(Goal{Target: geom.V(1, 1, 1)})
	if _, speed, _ := ctrl.Goal(); speed != DefaultMaxSpeed {
		t.Errorf("default: got %v, want %v", speed, DefaultMaxSpeed)
	}
	if checker.resets != 2 {
		t.Errorf("checker should be reset on every accept, got %d", checker.resets)
	}
	if ctrl.State() != StateAccepted {
		t.Errorf("state: got %v, want accepted", ctrl.State())
	}
}

func TestController_IgnoreHeadingHoldsActual(t *testing.T) {
	act := &mockActuator{}
	state := &fakeState{snap: RuntimeState{Heading: 0.9}}
	ctrl := newTestController(t, testConfig(), state, &countingChecker{reachAt: 3}, act)

	ctrl.Accept(Goal{Target: geom.V(0, 20, 0), IgnoreHeading: true})
	ctrl.Execute(context.Background(), nil)

	cmds, _, _ := act.snapshot()
	for i, c := range cmds {
		if c.Heading != 0.9 {
			t.Errorf("cmd %d heading: got %v, want 0.9", i, c.Heading)
		}
	}
}

func TestController_FeedbackFromProvider(t *testing.T) {
	state := &fakeState{snap: RuntimeState{DistanceToGoal: 7.5, Speed: 1.2}}
	ctrl := newTestController(t, testConfig(), state, &countingChecker{reachAt: 3}, &mockActuator{})

	var got []Feedback
	ctrl.Accept(Goal{Target: geom.V(7.5, 0, 0)})
	ctrl.Execute(context.Background(), func(f Feedback) { got = append(got, f) })

	if len(got) != 2 {
		t.Fatalf("expected feedback on each of 2 ticks, got %d", len(got))
	}
	for _, f := range got {
		if f.DistanceToGoal != 7.5 || f.Speed != 1.2 {
			t.Errorf("feedback: got %+v", f)
		}
	}
}

func TestController_ErrorUsesCurrentPosition(t *testing.T) {
	act := &mockActuator{}
	state := &fakeState{snap: RuntimeState{Position: geom.V(9, 0, 1)}}
	ctrl := newTestController(t, testConfig(), state, &countingChecker{reachAt: 2}, act)

	ctrl.Accept(Goal{Target: geom.V(10, 0, 0), MaxSpeed: 2})
	ctrl.Execute(context.Background(), nil)

	cmds, _, _ := act.snapshot()
	if len(cmds) != 1 || !floatEquals(cmds[0].X, 1) || !floatEquals(cmds[0].Z, -1) {
		t.Errorf("command should equal target-position, got %+v", cmds)
	}
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		StateIdle: "idle", StateAccepted: "accepted", StateExecuting: "executing",
		StateSucceeded: "succeeded", StateCancelled: "cancelled", StateAborted: "aborted",
	} {
		if s.String() != want {
			t.Errorf("%d: got %q, want %q", int(s), s.String(), want)
		}
		if s.Terminal() != (s >= StateSucceeded) {
			t.Errorf("%v: Terminal() wrong", s)
		}
	}
}
