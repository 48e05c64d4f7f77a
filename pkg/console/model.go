package console

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/teslashibe/go-waypoint/pkg/protocol"
	"github.com/teslashibe/go-waypoint/pkg/web"
)

// refreshInterval is how often the monitor polls /api/status.
const refreshInterval = time.Second

type (
	statusMsg struct {
		Status web.StatusResponse
		Err    error
	}
	cancelDoneMsg struct{ Err error }
	refreshMsg    struct{}
)

// Model is the Bubble Tea model for the goal monitor.
type Model struct {
	api     *API
	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	width   int

	connected bool
	connErr   error

	status     web.StatusResponse
	haveStatus bool

	// Progress of the goal seen on the feed
	goalID        string
	startDistance float64
	distance      float64
	speed         float64
	samples       int

	last *protocol.ResultData
	note string
}

// NewModel creates a monitor for api.
func NewModel(api *API) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = valueStyle

	return Model{
		api:     api,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchStatus(), scheduleRefresh())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Cancel):
			if !m.running() && m.status.GoalID == "" {
				m.note = "no goal running"
				return m, nil
			}
			m.note = "cancelling..."
			return m, m.cancelGoal()
		case key.Matches(msg, m.keys.Refresh):
			return m, m.fetchStatus()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		return m, nil

	case ConnMsg:
		m.connected = msg.Connected
		m.connErr = msg.Err
		return m, nil

	case PoseMsg:
		m.status.Position = msg.State.Position
		m.status.Heading = msg.State.Heading
		return m, nil

	case FeedbackMsg:
		fb := msg.Feedback
		if fb.ID != m.goalID {
			m.goalID = fb.ID
			m.startDistance = 0
			m.samples = 0
			m.last = nil
			m.note = ""
		}
		m.distance = fb.DistanceToGoal
		m.speed = fb.Speed
		m.samples++
		if fb.DistanceToGoal > m.startDistance {
			m.startDistance = fb.DistanceToGoal
		}
		return m, nil

	case ResultMsg:
		r := msg.Result
		if m.goalID == "" {
			m.goalID = r.ID
		}
		if r.ID == m.goalID {
			m.last = &r
			m.note = ""
		}
		return m, m.fetchStatus()

	case statusMsg:
		if msg.Err != nil {
			m.note = "status: " + msg.Err.Error()
			return m, nil
		}
		m.status = msg.Status
		m.haveStatus = true
		if m.goalID == "" && msg.Status.GoalID != "" {
			m.goalID = msg.Status.GoalID
		}
		return m, nil

	case cancelDoneMsg:
		if msg.Err != nil {
			m.note = "cancel: " + msg.Err.Error()
		} else {
			m.note = "cancel accepted"
		}
		return m, nil

	case refreshMsg:
		return m, tea.Batch(m.fetchStatus(), scheduleRefresh())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// Progress returns the fraction of the starting distance covered by the
// current goal, in [0, 1].
func (m Model) Progress() float64 {
	if m.last != nil && m.last.Success {
		return 1
	}
	if m.startDistance <= 0 {
		return 0
	}
	p := 1 - m.distance/m.startDistance
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// running reports whether a goal is in flight as far as the monitor knows.
func (m Model) running() bool {
	if m.last != nil {
		return false
	}
	return m.goalID != "" || m.status.State == "executing"
}

func (m Model) fetchStatus() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()
		st, err := api.Status(ctx)
		return statusMsg{Status: st, Err: err}
	}
}

func (m Model) cancelGoal() tea.Cmd {
	api, id := m.api, m.goalID
	if m.last != nil {
		// Our goal already finished; target whatever runs now.
		id = ""
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()
		return cancelDoneMsg{Err: api.Cancel(ctx, id)}
	}
}

func scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}
