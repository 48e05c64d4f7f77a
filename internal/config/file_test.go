package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-waypoint/pkg/waypoint"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "waypointd.toml", `
default_max_speed = 2.5
proportional_speed_limit = true
rate_hz = 20.0
goal_threshold = 0.3
vehicle_url = " http://10.0.0.5:8000 "
`)

	f, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2.5, f.DefaultMaxSpeed)
	assert.True(t, f.ProportionalSpeedLimit)
	assert.Equal(t, 0.3, f.GoalThreshold)
	assert.Equal(t, "http://10.0.0.5:8000", f.VehicleURL)
	assert.Equal(t, waypoint.DefaultHeadingFreezeRadius, f.HeadingFreezeRadius, "unset key keeps default")
	assert.Equal(t, ":8080", f.Listen)

	cfg := f.Controller()
	assert.Equal(t, 50*time.Millisecond, cfg.Rate)
	assert.Equal(t, waypoint.PolicyProportional, cfg.Policy())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "waypointd.yaml", `
proportional_speed_limit: false
default_max_speed: 0.8
heading_freeze_radius: 1.5
telemetry_url: ws://10.0.0.5:8000/ws/state
`)

	f, err := Load(path)
	require.NoError(t, err)

	assert.False(t, f.ProportionalSpeedLimit)
	assert.Equal(t, 0.8, f.DefaultMaxSpeed)
	assert.Equal(t, 1.5, f.HeadingFreezeRadius)
	assert.Equal(t, "ws://10.0.0.5:8000/ws/state", f.TelemetryURL)
	assert.Equal(t, waypoint.DefaultRate, f.Controller().Rate)
}

func TestLoad_MissingPolicyFlag(t *testing.T) {
	for name, content := range map[string]string{
		"a.toml": "default_max_speed = 1.0\n",
		"a.yml":  "default_max_speed: 1.0\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, name, content))
			require.ErrorIs(t, err, ErrMissingKey)
		})
	}
}

func TestLoad_MalformedPolicyFlag(t *testing.T) {
	for name, content := range map[string]string{
		"b.toml": `proportional_speed_limit = "maybe"` + "\n",
		"b.yaml": "proportional_speed_limit: maybe\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, name, content))
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrMissingKey)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"zero rate":         "proportional_speed_limit = false\nrate_hz = 0.0\n",
		"negative speed":    "proportional_speed_limit = false\ndefault_max_speed = -1\n",
		"proportional zero": "proportional_speed_limit = true\ndefault_max_speed = 0\n",
		"negative goal":     "proportional_speed_limit = false\ngoal_threshold = -0.1\n",
		"zero goal":         "proportional_speed_limit = false\ngoal_threshold = 0.0\n",
		"nan goal":          "proportional_speed_limit = false\ngoal_threshold = nan\n",
		"inf goal":          "proportional_speed_limit = false\ngoal_threshold = inf\n",
		"nan rate":          "proportional_speed_limit = false\nrate_hz = nan\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.toml", content))
			require.ErrorIs(t, err, waypoint.ErrInvalidConfig)
		})
	}
}

func TestLoad_InvalidYAMLThreshold(t *testing.T) {
	_, err := Load(writeFile(t, "t.yaml", "proportional_speed_limit: true\ngoal_threshold: .nan\n"))
	require.ErrorIs(t, err, waypoint.ErrInvalidConfig)
}

func TestLoad_UnknownYAMLKeyRejected(t *testing.T) {
	_, err := Load(writeFile(t, "d.yaml", "proportional_speed_limit: true\nmax_sped: 3\n"))
	require.Error(t, err)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	_, err := Load(writeFile(t, "e.json", "{}"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvVehicleURL, "http://vehicle:8000")
	t.Setenv(EnvListen, "")

	assert.Equal(t, "http://vehicle:8000", VehicleURL("http://localhost:8000"))
	assert.Equal(t, ":9090", Listen(":9090"))
	assert.Equal(t, "ws://x", TelemetryURL("ws://x"))
}
