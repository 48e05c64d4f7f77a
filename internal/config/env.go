// Package config loads waypointd configuration from files and environment.
package config

import "os"

// Environment variables consulted when a flag is left at its default.
const (
	EnvVehicleURL   = "WAYPOINT_VEHICLE_URL"
	EnvTelemetryURL = "WAYPOINT_TELEMETRY_URL"
	EnvListen       = "WAYPOINT_LISTEN"
	EnvLogLevel     = "LOG_LEVEL"
)

// VehicleURL returns the vehicle motion API URL from WAYPOINT_VEHICLE_URL.
// Falls back to the provided default if not set.
func VehicleURL(defaultURL string) string {
	return envOr(EnvVehicleURL, defaultURL)
}

// TelemetryURL returns the vehicle state stream URL from WAYPOINT_TELEMETRY_URL.
func TelemetryURL(defaultURL string) string {
	return envOr(EnvTelemetryURL, defaultURL)
}

// Listen returns the API listen address from WAYPOINT_LISTEN.
func Listen(defaultAddr string) string {
	return envOr(EnvListen, defaultAddr)
}

// LogLevel returns the log level from LOG_LEVEL.
func LogLevel(defaultLevel string) string {
	return envOr(EnvLogLevel, defaultLevel)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
