// Package protocol defines the JSON envelope exchanged between the waypoint
// controller, the vehicle telemetry feed and dashboard clients.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Vehicle → controller
	TypeState MessageType = "state" // Estimated pose and speed

	// Operator → controller
	TypeGoal   MessageType = "goal"   // Go to waypoint
	TypeCancel MessageType = "cancel" // Cancel the running goal

	// Controller → dashboards
	TypeFeedback MessageType = "feedback" // Per-tick progress
	TypeResult   MessageType = "result"   // Terminal outcome

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// StateData is one estimator sample. Velocity, when present, is used to
// derive speed; otherwise Speed is taken as-is.
type StateData struct {
	Position [3]float64  `json:"position"` // x, y, z (meters)
	Heading  float64     `json:"heading"`  // radians
	Velocity *[3]float64 `json:"velocity,omitempty"`
	Speed    float64     `json:"speed,omitempty"`
}

// GoalData requests a waypoint.
type GoalData struct {
	Target        [3]float64 `json:"target"`
	MaxSpeed      float64    `json:"max_speed,omitempty"`
	IgnoreHeading bool       `json:"ignore_heading,omitempty"`
}

// CancelData cancels a goal. An empty ID cancels whatever is running.
type CancelData struct {
	ID string `json:"id,omitempty"`
}

// FeedbackData reports progress of a running goal.
type FeedbackData struct {
	ID             string  `json:"id"`
	DistanceToGoal float64 `json:"distance_to_goal"`
	Speed          float64 `json:"speed"`
}

// ResultData reports the terminal outcome of a goal.
type ResultData struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	State   string `json:"state"`
	Error   string `json:"error,omitempty"`
}

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
