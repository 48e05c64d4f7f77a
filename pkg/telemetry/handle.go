package telemetry

import (
	"fmt"
	"time"

	"github.com/teslashibe/go-waypoint/pkg/protocol"
)

// Handle applies one inbound vehicle frame to store. State samples are
// folded in; pings produce a pong reply for the caller to send.
func Handle(store *Store, data []byte) (*protocol.Message, error) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return nil, err
	}
	switch msg.Type {
	case protocol.TypeState:
		state, err := msg.GetStateData()
		if err != nil {
			return nil, err
		}
		store.Apply(state)
		return nil, nil
	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return nil, err
		}
		return protocol.NewPongMessage(ping.ID, msg.Timestamp, time.Now().UnixMilli())
	default:
		return nil, fmt.Errorf("unexpected message type %q", msg.Type)
	}
}
