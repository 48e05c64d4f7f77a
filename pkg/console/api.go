// Package console is the operator side of waypointd: a small API client
// and a terminal monitor that follows goal progress over /ws/feedback.
package console

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teslashibe/go-waypoint/internal/httpc"
	"github.com/teslashibe/go-waypoint/pkg/protocol"
	"github.com/teslashibe/go-waypoint/pkg/web"
)

// RequestTimeout bounds each API call.
const RequestTimeout = 5 * time.Second

// API talks to a waypointd instance.
type API struct {
	base   string
	client *http.Client
}

// NewAPI creates a client for the server at base, e.g. "http://localhost:8080".
func NewAPI(base string) *API {
	return &API{
		base:   strings.TrimRight(base, "/"),
		client: httpc.NewClient(RequestTimeout),
	}
}

// Base returns the server URL.
func (a *API) Base() string {
	return a.base
}

// Submit sends a goal, preempting whatever is running.
func (a *API) Submit(ctx context.Context, goal protocol.GoalData) (web.GoalStatus, error) {
	var out web.GoalStatus
	err := httpc.DoJSON(ctx, a.client, http.MethodPost, a.base+"/api/goals", goal, &out)
	return out, err
}

// Cancel cancels goal id, or the running goal when id is empty.
func (a *API) Cancel(ctx context.Context, id string) error {
	if id == "" {
		id = "current"
	}
	return httpc.DoJSON(ctx, a.client, http.MethodDelete, a.base+"/api/goals/"+url.PathEscape(id), nil, nil)
}

// Status returns the controller status.
func (a *API) Status(ctx context.Context) (web.StatusResponse, error) {
	var out web.StatusResponse
	err := httpc.DoJSON(ctx, a.client, http.MethodGet, a.base+"/api/status", nil, &out)
	return out, err
}

// Goal returns one goal by id.
func (a *API) Goal(ctx context.Context, id string) (web.GoalStatus, error) {
	var out web.GoalStatus
	err := httpc.DoJSON(ctx, a.client, http.MethodGet, a.base+"/api/goals/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Goals returns the server's goal history, oldest first.
func (a *API) Goals(ctx context.Context) ([]web.GoalStatus, error) {
	var out []web.GoalStatus
	err := httpc.DoJSON(ctx, a.client, http.MethodGet, a.base+"/api/goals", nil, &out)
	return out, err
}

// FeedURL returns the websocket URL of the feedback stream.
func (a *API) FeedURL() string {
	u := a.base
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/feedback"
}
