package vehicle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-waypoint/internal/httpc"
	"github.com/teslashibe/go-waypoint/pkg/waypoint"
)

// CommandTimeout bounds each motion request. It is kept under one control
// period at the default 10 Hz so a stalled API aborts the goal quickly.
const CommandTimeout = 90 * time.Millisecond

// speedCommand is the body of POST /api/motion/speed.
type speedCommand struct {
	VX  float64 `json:"vx"`
	VY  float64 `json:"vy"`
	VZ  float64 `json:"vz"`
	Yaw float64 `json:"yaw"`
}

// HTTPActuator drives a vehicle through its HTTP motion API.
type HTTPActuator struct {
	BaseURL string
	client  *http.Client
}

// NewHTTPActuator creates an actuator for the API rooted at baseURL
// (e.g. "http://192.168.1.20:8000").
func NewHTTPActuator(baseURL string) *HTTPActuator {
	return &HTTPActuator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.NewClient(CommandTimeout),
	}
}

// SendVelocity posts a speed setpoint with a yaw angle.
func (a *HTTPActuator) SendVelocity(ctx context.Context, cmd waypoint.Velocity) error {
	err := httpc.PostJSON(ctx, a.client, a.BaseURL+"/api/motion/speed", speedCommand{
		VX:  cmd.X,
		VY:  cmd.Y,
		VZ:  cmd.Z,
		Yaw: cmd.Heading,
	})
	if err != nil {
		return fmt.Errorf("speed command: %w", err)
	}
	return nil
}

// Hold asks the vehicle to hover in place.
func (a *HTTPActuator) Hold(ctx context.Context) error {
	if err := httpc.PostJSON(ctx, a.client, a.BaseURL+"/api/motion/hover", nil); err != nil {
		return fmt.Errorf("hover command: %w", err)
	}
	return nil
}
