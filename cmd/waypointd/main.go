// waypointd: go-to-waypoint velocity controller daemon.
// Accepts goals over HTTP, drives the vehicle with bounded velocity
// commands and streams progress to dashboards.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-waypoint/internal/config"
	"github.com/teslashibe/go-waypoint/internal/log"
	"github.com/teslashibe/go-waypoint/pkg/geom"
	"github.com/teslashibe/go-waypoint/pkg/goalcheck"
	"github.com/teslashibe/go-waypoint/pkg/telemetry"
	"github.com/teslashibe/go-waypoint/pkg/vehicle"
	"github.com/teslashibe/go-waypoint/pkg/waypoint"
	"github.com/teslashibe/go-waypoint/pkg/web"
)

var (
	version = "0.1.0"

	configPath   = flag.String("config", "", "Config file (.toml, .yaml or .yml)")
	vehicleURL   = flag.String("vehicle", "", "Vehicle motion API base URL (or WAYPOINT_VEHICLE_URL)")
	telemetryURL = flag.String("telemetry", "", "Vehicle state stream ws:// URL (or WAYPOINT_TELEMETRY_URL)")
	port         = flag.Int("port", 0, "HTTP port (overrides listen from config / WAYPOINT_LISTEN)")
	simulate     = flag.Bool("sim", false, "Drive a simulated vehicle instead of a real one")
	logLevel     = flag.String("log-level", "", "debug, info, warn or error (or LOG_LEVEL)")
)

func main() {
	flag.Parse()

	level := firstNonEmpty(*logLevel, config.LogLevel("info"))
	log.Init(level)

	if *configPath == "" {
		fatal("missing -config")
	}
	file, err := config.Load(*configPath)
	if err != nil {
		fatal("invalid configuration", "err", err)
	}

	listen := config.Listen(file.Listen)
	if *port != 0 {
		listen = fmt.Sprintf(":%d", *port)
	}

	log.Info("waypointd starting",
		"version", version,
		"config", *configPath,
		"policy", file.Controller().Policy().String(),
		"rate_hz", file.RateHz,
		"listen", listen,
		"sim", *simulate)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store := telemetry.NewStore()

	var act waypoint.Actuator
	if *simulate {
		sim := vehicle.NewSim(store, geom.Vec3{}, 20*time.Millisecond, 1)
		go sim.Run()
		defer sim.Stop()
		act = sim
	} else {
		base := firstNonEmpty(*vehicleURL, config.VehicleURL(file.VehicleURL))
		if base == "" {
			fatal("no vehicle URL: set -vehicle, WAYPOINT_VEHICLE_URL or vehicle_url, or use -sim")
		}
		act = vehicle.NewHTTPActuator(base)
		log.Info("vehicle actuator", "url", base)

		if src := firstNonEmpty(*telemetryURL, config.TelemetryURL(file.TelemetryURL)); src != "" {
			client := telemetry.NewClient(src, store)
			go func() {
				if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("telemetry client stopped", "err", err)
				}
			}()
		} else {
			log.Info("no telemetry URL; expecting the vehicle to push state to /ws/telemetry")
		}
	}

	checker := goalcheck.NewDistance(store, file.GoalThreshold)
	ctrl, err := waypoint.New(file.Controller(), store, checker, act)
	if err != nil {
		fatal("controller init failed", "err", err)
	}

	srv := web.NewServer(web.Config{
		Addr:      listen,
		AccessLog: log.ParseLevel(level) == slog.LevelDebug,
	}, ctrl, store)

	if err := srv.Start(ctx); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
	log.Info("goodbye")
}

func fatal(msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
