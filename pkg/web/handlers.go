package web

import (
	"errors"
	"fmt"
	"math"
	"time"

	contribws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-waypoint/pkg/hub"
	"github.com/teslashibe/go-waypoint/pkg/protocol"
	"github.com/teslashibe/go-waypoint/pkg/telemetry"
)

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	State          string     `json:"state"`
	GoalID         string     `json:"goal_id,omitempty"`
	Position       [3]float64 `json:"position"`
	Heading        float64    `json:"heading"`
	DistanceToGoal float64    `json:"distance_to_goal"`
	Speed          float64    `json:"speed"`
	Policy         string     `json:"policy"`
	Ticks          uint64     `json:"ticks"`
	SendErrors     uint64     `json:"send_errors"`
	TelemetryAgeMs int64      `json:"telemetry_age_ms"` // -1 before the first sample
	Dashboards     int        `json:"dashboards"`
	Vehicles       int64      `json:"vehicles"`
	VehicleFrames  uint64     `json:"vehicle_frames"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	snap := s.store.Snapshot()
	ticks, sendErrors := s.ctrl.Stats()

	age := int64(-1)
	if last := s.store.LastUpdate(); !last.IsZero() {
		age = time.Since(last).Milliseconds()
	}

	return c.JSON(StatusResponse{
		State:          s.ctrl.State().String(),
		GoalID:         s.runner.CurrentID(),
		Position:       [3]float64{snap.Position.X, snap.Position.Y, snap.Position.Z},
		Heading:        snap.Heading,
		DistanceToGoal: snap.DistanceToGoal,
		Speed:          snap.Speed,
		Policy:         s.ctrl.Config().Policy().String(),
		Ticks:          ticks,
		SendErrors:     sendErrors,
		TelemetryAgeMs: age,
		Dashboards:     s.feedbackHub.ClientCount(),
		Vehicles:       s.vehicleConns.Load(),
		VehicleFrames:  s.vehicleFrames.Load(),
	})
}

func (s *Server) handleListGoals(c *fiber.Ctx) error {
	return c.JSON(s.runner.List())
}

func (s *Server) handleGetGoal(c *fiber.Ctx) error {
	g, ok := s.runner.Get(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown goal")
	}
	return c.JSON(g)
}

func (s *Server) handleSubmitGoal(c *fiber.Ctx) error {
	var req protocol.GoalData
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid goal: "+err.Error())
	}
	if err := validateGoal(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	status, err := s.runner.Submit(goalFromData(&req))
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return c.Status(fiber.StatusAccepted).JSON(status)
}

func (s *Server) handleCancelGoal(c *fiber.Ctx) error {
	id := c.Params("id")
	id, err := s.runner.Cancel(id)
	switch {
	case errors.Is(err, ErrNoActiveGoal):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrGoalMismatch):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case err != nil:
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id, "cancel": "accepted"})
}

func validateGoal(d *protocol.GoalData) error {
	for i, v := range d.Target {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("target[%d] is not finite", i)
		}
	}
	if math.IsNaN(d.MaxSpeed) || math.IsInf(d.MaxSpeed, 0) {
		return errors.New("max_speed is not finite")
	}
	return nil
}

// handleFeedbackWS streams feedback and results to a dashboard. The client
// first receives the current pose.
func (s *Server) handleFeedbackWS(c *websocket.Conn) {
	client := hub.NewClient(s.feedbackHub, c)
	if client == nil {
		return
	}

	snap := s.store.Snapshot()
	if msg, err := protocol.NewStateMessage(
		[3]float64{snap.Position.X, snap.Position.Y, snap.Position.Z}, snap.Heading, nil,
	); err == nil {
		if m, err := hub.Encode(msg); err == nil {
			client.Send(m)
		}
	}

	client.Run()
}

// handleDashboardFrame accepts goal and cancel frames from dashboards.
func (s *Server) handleDashboardFrame(data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Debug("bad dashboard frame", "err", err)
		return
	}

	switch msg.Type {
	case protocol.TypeGoal:
		req, err := msg.GetGoalData()
		if err == nil {
			err = validateGoal(req)
		}
		if err != nil {
			s.logger.Warn("rejected goal frame", "err", err)
			return
		}
		// Submit may wait for a preempted goal; keep the read pump free.
		go func() {
			if _, err := s.runner.Submit(goalFromData(req)); err != nil {
				s.logger.Warn("submit goal", "err", err)
			}
		}()

	case protocol.TypeCancel:
		req, err := msg.GetCancelData()
		if err != nil {
			s.logger.Warn("rejected cancel frame", "err", err)
			return
		}
		if _, err := s.runner.Cancel(req.ID); err != nil {
			s.logger.Debug("cancel frame", "err", err)
		}

	case protocol.TypePing:
		// keepalive

	default:
		s.logger.Debug("ignoring dashboard frame", "type", msg.Type)
	}
}

// handleTelemetryWS receives state samples pushed by a vehicle.
func (s *Server) handleTelemetryWS(c *contribws.Conn) {
	n := s.vehicleConns.Add(1)
	s.logger.Info("vehicle connected", "remote", c.RemoteAddr().String(), "vehicles", n)
	defer func() {
		n := s.vehicleConns.Add(-1)
		s.logger.Info("vehicle disconnected", "vehicles", n)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		s.vehicleFrames.Add(1)

		reply, err := telemetry.Handle(s.store, data)
		if err != nil {
			s.logger.Debug("dropping vehicle frame", "err", err)
			continue
		}
		if reply == nil {
			continue
		}
		raw, err := reply.Bytes()
		if err != nil {
			continue
		}
		if err := c.WriteMessage(contribws.TextMessage, raw); err != nil {
			return
		}
	}
}
