package web

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-waypoint/pkg/geom"
	"github.com/teslashibe/go-waypoint/pkg/hub"
	"github.com/teslashibe/go-waypoint/pkg/protocol"
	"github.com/teslashibe/go-waypoint/pkg/telemetry"
	"github.com/teslashibe/go-waypoint/pkg/waypoint"
)

// DefaultHistorySize is how many finished goals are kept for lookup.
const DefaultHistorySize = 64

var (
	// ErrNoActiveGoal is returned when cancelling with nothing running.
	ErrNoActiveGoal = errors.New("no active goal")
	// ErrGoalMismatch is returned when cancelling a goal that is not the running one.
	ErrGoalMismatch = errors.New("goal is not running")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("goal runner closed")
)

// GoalStatus is the API view of a goal.
type GoalStatus struct {
	ID             string     `json:"id"`
	Target         [3]float64 `json:"target"`
	MaxSpeed       float64    `json:"max_speed"`
	IgnoreHeading  bool       `json:"ignore_heading"`
	State          string     `json:"state"`
	Success        bool       `json:"success"`
	Error          string     `json:"error,omitempty"`
	DistanceToGoal float64    `json:"distance_to_goal"`
	Speed          float64    `json:"speed"`
	AcceptedAt     time.Time  `json:"accepted_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

type run struct {
	id   string
	done chan struct{}
}

// Runner owns goal execution: one goal in flight, each new goal preempting
// the previous one only after its Result is in.
type Runner struct {
	ctrl   *waypoint.Controller
	store  *telemetry.Store
	hub    *hub.Hub
	logger *slog.Logger

	ctx  context.Context
	stop context.CancelFunc

	// Serializes Submit so preemption completes before the next Accept.
	submitMu sync.Mutex

	mu      sync.RWMutex
	current *run
	goals   map[string]*GoalStatus
	order   []string
	limit   int
	closed  bool
}

// NewRunner creates a runner publishing feedback and results to h (may be nil).
func NewRunner(ctrl *waypoint.Controller, store *telemetry.Store, h *hub.Hub, logger *slog.Logger, historySize int) *Runner {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Runner{
		ctrl:   ctrl,
		store:  store,
		hub:    h,
		logger: logger,
		ctx:    ctx,
		stop:   stop,
		goals:  make(map[string]*GoalStatus),
		limit:  historySize,
	}
}

// Submit accepts goal and starts executing it. A running goal is cancelled
// and awaited first.
func (r *Runner) Submit(goal waypoint.Goal) (GoalStatus, error) {
	r.submitMu.Lock()
	defer r.submitMu.Unlock()

	r.mu.RLock()
	prev, closed := r.current, r.closed
	r.mu.RUnlock()
	if closed {
		return GoalStatus{}, ErrClosed
	}
	if prev != nil {
		r.logger.Info("preempting goal", "id", prev.id)
		r.ctrl.Cancel()
		<-prev.done
	}

	r.ctrl.Accept(goal)
	_, speed, _ := r.ctrl.Goal()
	r.store.SetTarget(goal.Target)

	cur := &run{id: uuid.NewString(), done: make(chan struct{})}
	status := &GoalStatus{
		ID:            cur.id,
		Target:        [3]float64{goal.Target.X, goal.Target.Y, goal.Target.Z},
		MaxSpeed:      speed,
		IgnoreHeading: goal.IgnoreHeading,
		State:         waypoint.StateAccepted.String(),
		AcceptedAt:    time.Now(),
	}

	r.mu.Lock()
	r.current = cur
	r.remember(status)
	out := *status
	r.mu.Unlock()

	go r.execute(cur)
	return out, nil
}

// Cancel requests cancellation of the running goal. An empty id matches
// whatever is running. mu is held across the controller call so a goal
// that finishes meanwhile cannot hand the cancel to its successor.
func (r *Runner) Cancel(id string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cur := r.current
	if cur == nil {
		return "", ErrNoActiveGoal
	}
	if id != "" && id != cur.id {
		return "", ErrGoalMismatch
	}
	r.ctrl.Cancel()
	return cur.id, nil
}

// Get returns the status of a known goal.
func (r *Runner) Get(id string) (GoalStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.goals[id]
	if !ok {
		return GoalStatus{}, false
	}
	return *g, true
}

// List returns known goals, oldest first.
func (r *Runner) List() []GoalStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]GoalStatus, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.goals[id])
	}
	return out
}

// CurrentID returns the id of the running goal, if any.
func (r *Runner) CurrentID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return ""
	}
	return r.current.id
}

// Wait blocks until the running goal (if any) finishes or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.RLock()
	cur := r.current
	r.mu.RUnlock()
	if cur == nil {
		return nil
	}
	select {
	case <-cur.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any running goal, waits for it to finish and rejects
// further submissions.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.stop()
	return r.Wait(ctx)
}

func (r *Runner) execute(cur *run) {
	logger := r.logger.With("goal", cur.id)
	r.update(cur.id, func(g *GoalStatus) { g.State = waypoint.StateExecuting.String() })

	res := r.ctrl.Execute(r.ctx, func(fb waypoint.Feedback) {
		r.update(cur.id, func(g *GoalStatus) {
			g.DistanceToGoal = fb.DistanceToGoal
			g.Speed = fb.Speed
		})
		r.publish(protocol.NewFeedbackMessage(cur.id, fb.DistanceToGoal, fb.Speed))
	})

	r.store.ClearTarget()

	// Terminal state and the current slot change together, so no reader
	// sees a finished goal that is still current.
	finished := time.Now()
	r.mu.Lock()
	if g, ok := r.goals[cur.id]; ok {
		g.State = res.State.String()
		g.Success = res.Success
		g.FinishedAt = &finished
		if res.Err != nil {
			g.Error = res.Err.Error()
		}
	}
	if r.current == cur {
		r.current = nil
	}
	r.mu.Unlock()

	r.publish(protocol.NewResultMessage(cur.id, res.Success, res.State.String(), res.Err))
	if res.Err != nil {
		logger.Warn("goal finished", "state", res.State.String(), "err", res.Err)
	} else {
		logger.Info("goal finished", "state", res.State.String())
	}
	close(cur.done)
}

func (r *Runner) update(id string, fn func(*GoalStatus)) {
	r.mu.Lock()
	if g, ok := r.goals[id]; ok {
		fn(g)
	}
	r.mu.Unlock()
}

// remember stores g and evicts the oldest entries past the limit. Caller holds mu.
func (r *Runner) remember(g *GoalStatus) {
	r.goals[g.ID] = g
	r.order = append(r.order, g.ID)
	for len(r.order) > r.limit {
		delete(r.goals, r.order[0])
		r.order = r.order[1:]
	}
}

func (r *Runner) publish(msg *protocol.Message, err error) {
	if err != nil {
		r.logger.Warn("encode message", "err", err)
		return
	}
	if r.hub == nil {
		return
	}
	if err := r.hub.Publish(msg); err != nil {
		r.logger.Warn("publish message", "type", msg.Type, "err", err)
	}
}

// goalFromData converts a wire goal request.
func goalFromData(d *protocol.GoalData) waypoint.Goal {
	return waypoint.Goal{
		Target:        geom.V(d.Target[0], d.Target[1], d.Target[2]),
		MaxSpeed:      d.MaxSpeed,
		IgnoreHeading: d.IgnoreHeading,
	}
}
