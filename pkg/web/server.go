// Package web exposes the waypoint controller over HTTP and WebSocket:
// goal submission and cancellation, status, a feedback stream for
// dashboards and a push endpoint for vehicle telemetry.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	contribws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-waypoint/internal/log"
	"github.com/teslashibe/go-waypoint/pkg/hub"
	"github.com/teslashibe/go-waypoint/pkg/telemetry"
	"github.com/teslashibe/go-waypoint/pkg/waypoint"
)

// shutdownTimeout bounds how long Start waits for the running goal and
// open connections when its context ends.
const shutdownTimeout = 5 * time.Second

// Config configures the server.
type Config struct {
	Addr        string // listen address, e.g. ":8080"
	AccessLog   bool   // log every request
	HistorySize int    // finished goals kept for lookup
}

// Server is the goal API server.
type Server struct {
	app    *fiber.App
	cfg    Config
	ctrl   *waypoint.Controller
	store  *telemetry.Store
	runner *Runner
	logger *slog.Logger

	// Dashboard fan-out for feedback and results
	feedbackHub *hub.Hub

	vehicleConns  atomic.Int64
	vehicleFrames atomic.Uint64
}

// NewServer wires routes for ctrl and store.
func NewServer(cfg Config, ctrl *waypoint.Controller, store *telemetry.Store) *Server {
	s := &Server{
		cfg:         cfg,
		ctrl:        ctrl,
		store:       store,
		logger:      log.With("component", "web"),
		feedbackHub: hub.New("feedback"),
	}
	s.runner = NewRunner(ctrl, store, s.feedbackHub, s.logger, cfg.HistorySize)
	s.feedbackHub.OnMessage(s.handleDashboardFrame)

	app := fiber.New(fiber.Config{
		AppName:               "waypointd",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/goals", s.handleListGoals)
	api.Post("/goals", s.handleSubmitGoal)
	api.Delete("/goals/current", s.handleCancelGoal)
	api.Get("/goals/:id", s.handleGetGoal)
	api.Delete("/goals/:id", s.handleCancelGoal)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/feedback", websocket.New(s.handleFeedbackWS))
	app.Get("/ws/telemetry", contribws.New(s.handleTelemetryWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Runner returns the goal runner.
func (s *Server) Runner() *Runner {
	return s.runner
}

// Start listens on the configured address until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then cancels any
// running goal and shuts the app down.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.feedbackHub.Run(hubCtx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errc <- s.app.Listener(ln)
	}()

	select {
	case err := <-errc:
		s.shutdownRunner()
		return err
	case <-ctx.Done():
	}

	s.shutdownRunner()
	stopHub()
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return err
	}
	return <-errc
}

func (s *Server) shutdownRunner() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.runner.Close(ctx); err != nil {
		s.logger.Warn("running goal did not stop", "err", err)
	}
}

// errorHandler renders errors as JSON.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
