// Package config loads qcroute settings from defaults, an optional config
// file and QCROUTE_ environment variables.
//
// Keys are grouped by section: route.* mirrors route.Config, export.*
// controls file output, log.* the logger and engine.* the script engine.
// Environment variables use underscores for the dots, e.g. QCROUTE_ROUTE_R=50.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/chazu/qcircuits/pkg/engine"
	"github.com/chazu/qcircuits/pkg/route"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "QCROUTE"

// Export controls DXF/SVG output.
type Export struct {
	// MeshCells is the marching squares resolution of region exports.
	MeshCells int `mapstructure:"mesh_cells"`
	// Layers restricts export to these layer names; empty exports all.
	Layers []string `mapstructure:"layers"`
}

// Log controls the command line logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Engine controls route script evaluation.
type Engine struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config is the complete qcroute configuration.
type Config struct {
	Route  route.Config `mapstructure:"route"`
	Export Export       `mapstructure:"export"`
	Log    Log          `mapstructure:"log"`
	Engine Engine       `mapstructure:"engine"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Route:  route.DefaultConfig(),
		Export: Export{MeshCells: 400},
		Log:    Log{Level: "info", Format: "text"},
		Engine: Engine{Timeout: engine.DefaultTimeout},
	}
}

// New returns a viper instance carrying the defaults and bound to the
// QCROUTE_ environment.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper, c Config) {
	r := c.Route
	v.SetDefault("route.a", r.A)
	v.SetDefault("route.b", r.B)
	v.SetDefault("route.r", r.R)
	v.SetDefault("route.face", r.Face)
	v.SetDefault("route.faces", r.Faces)
	v.SetDefault("route.term1", r.Term1)
	v.SetDefault("route.term2", r.Term2)
	v.SetDefault("route.taper_length", r.TaperLength)
	v.SetDefault("route.collinear_tolerance", r.CollinearTolerance)
	v.SetDefault("route.airbridge.bridge_length", r.Airbridge.Length)
	v.SetDefault("route.airbridge.bridge_width", r.Airbridge.Width)
	v.SetDefault("route.airbridge.pad_length", r.Airbridge.PadLength)
	v.SetDefault("route.airbridge.a", r.Airbridge.A)
	v.SetDefault("route.airbridge.b", r.Airbridge.B)
	v.SetDefault("route.flip_chip_length", r.FlipChipLength)
	v.SetDefault("route.splitter.angles", r.Splitter.Angles)
	v.SetDefault("route.splitter.lengths", r.Splitter.Lengths)
	v.SetDefault("route.arc_tolerance", r.ArcTolerance)

	v.SetDefault("export.mesh_cells", c.Export.MeshCells)
	v.SetDefault("export.layers", c.Export.Layers)
	v.SetDefault("log.level", c.Log.Level)
	v.SetDefault("log.format", c.Log.Format)
	v.SetDefault("engine.timeout", c.Engine.Timeout)
}

// Load reads path (any format viper understands; empty means none) over
// the defaults and the environment, then validates the result.
func Load(path string) (Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Route.Validate(); err != nil {
		return errors.Wrap(err, "route")
	}
	if c.Export.MeshCells <= 0 {
		return fmt.Errorf("export: mesh_cells %d must be positive", c.Export.MeshCells)
	}
	if _, err := c.Log.level(); err != nil {
		return errors.Wrap(err, "log")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	if c.Engine.Timeout <= 0 {
		return fmt.Errorf("engine: timeout %s must be positive", c.Engine.Timeout)
	}
	return nil
}

func (l Log) level() (slog.Level, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, err
	}
	return lv, nil
}

// Logger builds a slog logger writing to w. Verbose forces debug level.
func (l Log) Logger(w io.Writer, verbose bool) *slog.Logger {
	lv, err := l.level()
	if err != nil {
		lv = slog.LevelInfo
	}
	if verbose {
		lv = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lv}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
