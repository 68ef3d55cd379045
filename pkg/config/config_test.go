package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chazu/qcircuits/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, route.DefaultConfig(), c.Route)
	assert.Equal(t, 400, c.Export.MeshCells)
	assert.Empty(t, c.Export.Layers)
	assert.Equal(t, Log{Level: "info", Format: "text"}, c.Log)
	assert.Equal(t, 5*time.Second, c.Engine.Timeout)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "qcroute.yaml", `
route:
  r: 50
  face: 2b1
  term2: 15
  airbridge:
    bridge_length: 60
  splitter:
    angles: [0, 90]
    lengths: [30, 40]
export:
  layers: [1t1_base_metal_gap_wo_grid]
engine:
  timeout: 2s
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50.0, c.Route.R)
	assert.Equal(t, "2b1", c.Route.Face)
	assert.Equal(t, 15.0, c.Route.Term2)
	assert.Equal(t, 60.0, c.Route.Airbridge.Length)
	assert.Equal(t, 20.0, c.Route.Airbridge.Width, "unset keys keep their defaults")
	assert.Equal(t, []float64{0, 90}, c.Route.Splitter.Angles)
	assert.Equal(t, []float64{30, 40}, c.Route.Splitter.Lengths)
	assert.Equal(t, []string{"1t1_base_metal_gap_wo_grid"}, c.Export.Layers)
	assert.Equal(t, 2*time.Second, c.Engine.Timeout)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "qcroute.toml", `
[route]
a = 5
b = 3

[log]
level = "debug"
format = "json"
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5.0, c.Route.A)
	assert.Equal(t, 3.0, c.Route.B)
	assert.Equal(t, Log{Level: "debug", Format: "json"}, c.Log)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("QCROUTE_ROUTE_R", "75")
	t.Setenv("QCROUTE_ROUTE_AIRBRIDGE_A", "12")
	t.Setenv("QCROUTE_ENGINE_TIMEOUT", "250ms")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 75.0, c.Route.R)
	assert.Equal(t, 12.0, c.Route.Airbridge.A)
	assert.Equal(t, 250*time.Millisecond, c.Engine.Timeout)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "qcroute.yaml", "route:\n  r: 50\n")
	t.Setenv("QCROUTE_ROUTE_R", "80")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 80.0, c.Route.R)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.yaml")
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"negative radius", "route:\n  r: -1\n", "bend radius"},
		{"face not configured", "route:\n  face: 3t3\n", "default face"},
		{"mesh cells", "export:\n  mesh_cells: 0\n", "mesh_cells"},
		{"log level", "log:\n  level: loud\n", "log"},
		{"log format", "log:\n  format: xml\n", "unknown format"},
		{"timeout", "engine:\n  timeout: 0s\n", "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRouteErrorIsConfigurationError(t *testing.T) {
	c := Default()
	c.Route.TaperLength = 0
	err := c.Validate()
	require.Error(t, err)

	var ce *route.ConfigurationError
	assert.ErrorAs(t, err, &ce)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	Log{Level: "warn", Format: "text"}.Logger(&buf, false).Info("hidden")
	assert.Empty(t, buf.String())

	Log{Level: "warn", Format: "text"}.Logger(&buf, true).Debug("shown", "node", 3)
	assert.Contains(t, buf.String(), "node=3")

	buf.Reset()
	Log{Level: "info", Format: "json"}.Logger(&buf, false).Info("routed", "length", 1000)
	assert.True(t, strings.HasPrefix(buf.String(), "{"), "json handler output: %s", buf.String())
	assert.Contains(t, buf.String(), `"length":1000`)
}
