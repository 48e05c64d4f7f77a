package protocol

// NewStateMessage creates a state message
func NewStateMessage(position [3]float64, heading float64, velocity *[3]float64) (*Message, error) {
	return NewMessage(TypeState, StateData{
		Position: position,
		Heading:  heading,
		Velocity: velocity,
	})
}

// NewFeedbackMessage creates a feedback message
func NewFeedbackMessage(id string, distance, speed float64) (*Message, error) {
	return NewMessage(TypeFeedback, FeedbackData{
		ID:             id,
		DistanceToGoal: distance,
		Speed:          speed,
	})
}

// NewResultMessage creates a result message
func NewResultMessage(id string, success bool, state string, err error) (*Message, error) {
	data := ResultData{ID: id, Success: success, State: state}
	if err != nil {
		data.Error = err.Error()
	}
	return NewMessage(TypeResult, data)
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// GetStateData extracts state data from a message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetGoalData extracts goal data from a message
func (m *Message) GetGoalData() (*GoalData, error) {
	var data GoalData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCancelData extracts cancel data from a message
func (m *Message) GetCancelData() (*CancelData, error) {
	var data CancelData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
