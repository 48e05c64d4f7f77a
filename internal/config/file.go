package config

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-waypoint/internal/log"
	"github.com/teslashibe/go-waypoint/pkg/goalcheck"
	"github.com/teslashibe/go-waypoint/pkg/waypoint"
)

// KeyProportionalSpeedLimit must be present in every config file.
const KeyProportionalSpeedLimit = "proportional_speed_limit"

var (
	// ErrMissingKey is returned when a required key is absent.
	ErrMissingKey = errors.New("config: required key missing")

	// ErrUnsupportedFormat is returned for unknown file extensions.
	ErrUnsupportedFormat = errors.New("config: unsupported file format")
)

// File is the parsed configuration file.
type File struct {
	DefaultMaxSpeed        float64
	ProportionalSpeedLimit bool
	RateHz                 float64
	HeadingFreezeRadius    float64
	GoalThreshold          float64

	VehicleURL   string
	TelemetryURL string
	Listen       string
}

// Default returns the values used for keys a file leaves out.
// ProportionalSpeedLimit has no default; files must set it.
func Default() File {
	return File{
		DefaultMaxSpeed:     waypoint.DefaultMaxSpeed,
		RateHz:              float64(time.Second / waypoint.DefaultRate),
		HeadingFreezeRadius: waypoint.DefaultHeadingFreezeRadius,
		GoalThreshold:       goalcheck.DefaultThreshold,
		Listen:              ":8080",
	}
}

// Controller converts the file into a controller configuration.
func (f File) Controller() waypoint.Config {
	return waypoint.Config{
		DefaultMaxSpeed:     f.DefaultMaxSpeed,
		ProportionalLimit:   f.ProportionalSpeedLimit,
		Rate:                time.Duration(float64(time.Second) / f.RateHz),
		HeadingFreezeRadius: f.HeadingFreezeRadius,
	}
}

// Validate checks the file and the controller configuration it produces.
func (f File) Validate() error {
	if !finite(f.RateHz) || f.RateHz <= 0 {
		return fmt.Errorf("%w: rate_hz must be positive, got %v", waypoint.ErrInvalidConfig, f.RateHz)
	}
	if !finite(f.GoalThreshold) || f.GoalThreshold <= 0 {
		return fmt.Errorf("%w: goal_threshold must be positive, got %v", waypoint.ErrInvalidConfig, f.GoalThreshold)
	}
	return f.Controller().Validate()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Load reads a .toml, .yaml or .yml file. A missing or malformed
// proportional_speed_limit is an error; the caller must not start the
// controller in that case.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}

	var f File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		f, err = decodeTOML(data)
	case ".yaml", ".yml":
		f, err = decodeYAML(data)
	default:
		return File{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return File{}, fmt.Errorf("load %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return File{}, fmt.Errorf("load %s: %w", path, err)
	}
	return f, nil
}

type tomlFile struct {
	DefaultMaxSpeed        float64 `toml:"default_max_speed"`
	ProportionalSpeedLimit bool    `toml:"proportional_speed_limit"`
	RateHz                 float64 `toml:"rate_hz"`
	HeadingFreezeRadius    float64 `toml:"heading_freeze_radius"`
	GoalThreshold          float64 `toml:"goal_threshold"`
	VehicleURL             string  `toml:"vehicle_url"`
	TelemetryURL           string  `toml:"telemetry_url"`
	Listen                 string  `toml:"listen"`
}

func decodeTOML(data []byte) (File, error) {
	cfg := Default()

	var raw tomlFile
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return File{}, fmt.Errorf("parse toml: %w", err)
	}
	if !meta.IsDefined(KeyProportionalSpeedLimit) {
		return File{}, fmt.Errorf("%w: %s", ErrMissingKey, KeyProportionalSpeedLimit)
	}
	cfg.ProportionalSpeedLimit = raw.ProportionalSpeedLimit

	if meta.IsDefined("default_max_speed") {
		cfg.DefaultMaxSpeed = raw.DefaultMaxSpeed
	}
	if meta.IsDefined("rate_hz") {
		cfg.RateHz = raw.RateHz
	}
	if meta.IsDefined("heading_freeze_radius") {
		cfg.HeadingFreezeRadius = raw.HeadingFreezeRadius
	}
	if meta.IsDefined("goal_threshold") {
		cfg.GoalThreshold = raw.GoalThreshold
	}
	if meta.IsDefined("vehicle_url") {
		cfg.VehicleURL = strings.TrimSpace(raw.VehicleURL)
	}
	if meta.IsDefined("telemetry_url") {
		cfg.TelemetryURL = strings.TrimSpace(raw.TelemetryURL)
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}

	for _, key := range meta.Undecoded() {
		log.Warn("ignoring unknown config key", "key", key.String())
	}
	return cfg, nil
}

type yamlFile struct {
	DefaultMaxSpeed        *float64 `yaml:"default_max_speed"`
	ProportionalSpeedLimit *bool    `yaml:"proportional_speed_limit"`
	RateHz                 *float64 `yaml:"rate_hz"`
	HeadingFreezeRadius    *float64 `yaml:"heading_freeze_radius"`
	GoalThreshold          *float64 `yaml:"goal_threshold"`
	VehicleURL             *string  `yaml:"vehicle_url"`
	TelemetryURL           *string  `yaml:"telemetry_url"`
	Listen                 *string  `yaml:"listen"`
}

func decodeYAML(data []byte) (File, error) {
	cfg := Default()

	var raw yamlFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return File{}, fmt.Errorf("parse yaml: %w", err)
	}
	if raw.ProportionalSpeedLimit == nil {
		return File{}, fmt.Errorf("%w: %s", ErrMissingKey, KeyProportionalSpeedLimit)
	}
	cfg.ProportionalSpeedLimit = *raw.ProportionalSpeedLimit

	setFloat(&cfg.DefaultMaxSpeed, raw.DefaultMaxSpeed)
	setFloat(&cfg.RateHz, raw.RateHz)
	setFloat(&cfg.HeadingFreezeRadius, raw.HeadingFreezeRadius)
	setFloat(&cfg.GoalThreshold, raw.GoalThreshold)
	setString(&cfg.VehicleURL, raw.VehicleURL)
	setString(&cfg.TelemetryURL, raw.TelemetryURL)
	setString(&cfg.Listen, raw.Listen)
	return cfg, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
