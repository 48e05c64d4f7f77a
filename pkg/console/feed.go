package console

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-waypoint/pkg/protocol"
)

// Messages delivered to the model by the feed.
type (
	// PoseMsg carries the pose sent when the stream opens.
	PoseMsg struct{ State protocol.StateData }

	// FeedbackMsg carries one progress sample.
	FeedbackMsg struct{ Feedback protocol.FeedbackData }

	// ResultMsg carries a terminal outcome.
	ResultMsg struct{ Result protocol.ResultData }

	// ConnMsg reports stream connectivity.
	ConnMsg struct {
		Connected bool
		Err       error
	}
)

// Feed follows a waypointd feedback stream and forwards frames as tea messages.
type Feed struct {
	url    string
	dialer *websocket.Dialer
	retry  time.Duration
}

// NewFeed creates a feed for a ws:// URL.
func NewFeed(url string) *Feed {
	return &Feed{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		retry:  time.Second,
	}
}

// Run reads until ctx is done, redialing after a fixed delay. send is
// typically (*tea.Program).Send.
func (f *Feed) Run(ctx context.Context, send func(tea.Msg)) {
	for {
		err := f.session(ctx, send)
		if ctx.Err() != nil {
			return
		}
		send(ConnMsg{Connected: false, Err: err})

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.retry):
		}
	}
}

func (f *Feed) session(ctx context.Context, send func(tea.Msg)) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	send(ConnMsg{Connected: true})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		msg, err := decodeFrame(data)
		if err != nil {
			continue
		}
		if msg != nil {
			send(msg)
		}
	}
}

// decodeFrame turns one stream frame into a tea message. Unknown frame
// types yield nil.
func decodeFrame(data []byte) (tea.Msg, error) {
	m, err := protocol.ParseMessage(data)
	if err != nil {
		return nil, err
	}
	switch m.Type {
	case protocol.TypeState:
		var d protocol.StateData
		if err := m.ParseData(&d); err != nil {
			return nil, fmt.Errorf("state frame: %w", err)
		}
		return PoseMsg{State: d}, nil
	case protocol.TypeFeedback:
		var d protocol.FeedbackData
		if err := m.ParseData(&d); err != nil {
			return nil, fmt.Errorf("feedback frame: %w", err)
		}
		return FeedbackMsg{Feedback: d}, nil
	case protocol.TypeResult:
		var d protocol.ResultData
		if err := m.ParseData(&d); err != nil {
			return nil, fmt.Errorf("result frame: %w", err)
		}
		return ResultMsg{Result: d}, nil
	default:
		return nil, nil
	}
}
