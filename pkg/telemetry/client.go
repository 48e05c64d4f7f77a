package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teslashibe/go-waypoint/internal/log"
)

// Reconnect backoff bounds.
const (
	minBackoff = 250 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// Client subscribes to a vehicle's state stream and writes every sample
// into a Store.
type Client struct {
	url    string
	store  *Store
	dialer *websocket.Dialer
	header http.Header
	logger *slog.Logger
}

// NewClient creates a client for the given ws:// or wss:// URL.
func NewClient(url string, store *Store) *Client {
	return &Client{
		url:    url,
		store:  store,
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		logger: log.With("component", "telemetry"),
	}
}

// Run connects and reads until ctx is done, reconnecting with exponential
// backoff when the stream drops. A session that got connected starts the
// backoff over.
func (c *Client) Run(ctx context.Context) error {
	var backoff time.Duration
	for {
		connected, err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, connected)
		c.logger.Warn("telemetry stream lost", "url", c.url, "err", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// nextBackoff returns the wait before the next dial given the previous wait.
func nextBackoff(prev time.Duration, connected bool) time.Duration {
	if connected || prev <= 0 {
		return minBackoff
	}
	return min(prev*2, maxBackoff)
}

// session runs one connection to completion and reports whether the dial
// succeeded.
func (c *Client) session(ctx context.Context) (bool, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		return false, fmt.Errorf("dial telemetry: %w", err)
	}
	defer conn.Close()
	c.logger.Info("telemetry connected", "url", c.url)

	// Unblock ReadMessage when ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return true, nil
			}
			return true, fmt.Errorf("read telemetry: %w", err)
		}
		if err := c.handle(conn, data); err != nil {
			c.logger.Debug("dropping telemetry message", "err", err)
		}
	}
}

// handle applies one frame and writes any reply.
func (c *Client) handle(conn *websocket.Conn, data []byte) error {
	reply, err := Handle(c.store, data)
	if err != nil || reply == nil {
		return err
	}
	raw, err := reply.Bytes()
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, raw)
}
