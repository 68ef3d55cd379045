package route

import (
	"fmt"
	"slices"

	"github.com/chazu/qcircuits/pkg/element"
)

// AirbridgeConfig holds airbridge dimensions and the native impedance of
// in-line airbridge connections.
type AirbridgeConfig struct {
	element.Bridge `mapstructure:",squash"`
	A              float64 `mapstructure:"a"`
	B              float64 `mapstructure:"b"`
}

// SplitterConfig holds default splitter arm directions (degrees) and lengths.
type SplitterConfig struct {
	Angles  []float64 `mapstructure:"angles"`
	Lengths []float64 `mapstructure:"lengths"`
}

// Config is the router's default configuration.
type Config struct {
	A     float64  `mapstructure:"a"`
	B     float64  `mapstructure:"b"`
	R     float64  `mapstructure:"r"`
	Face  string   `mapstructure:"face"`
	Faces []string `mapstructure:"faces"`

	// Term1 and Term2 are open-end termination lengths at the first and
	// last node. Zero disables the stub.
	Term1 float64 `mapstructure:"term1"`
	Term2 float64 `mapstructure:"term2"`

	TaperLength        float64         `mapstructure:"taper_length"`
	CollinearTolerance float64         `mapstructure:"collinear_tolerance"`
	Airbridge          AirbridgeConfig `mapstructure:"airbridge"`
	FlipChipLength     float64         `mapstructure:"flip_chip_length"`
	Splitter           SplitterConfig  `mapstructure:"splitter"`
	ArcTolerance       float64         `mapstructure:"arc_tolerance"`
}

// DefaultConfig returns the stock configuration: a 10/6 µm waveguide on face
// 1t1 with 100 µm bends.
func DefaultConfig() Config {
	return Config{
		A:                  10,
		B:                  6,
		R:                  100,
		Face:               "1t1",
		Faces:              []string{"1t1", "2b1"},
		TaperLength:        31.4,
		CollinearTolerance: 1e-3,
		Airbridge: AirbridgeConfig{
			Bridge: element.Bridge{Length: 44, Width: 20, PadLength: 18},
			A:      10,
			B:      6,
		},
		FlipChipLength: 80,
		Splitter: SplitterConfig{
			Angles:  []float64{0, 180, 90},
			Lengths: []float64{50, 50, 50},
		},
		ArcTolerance: 0.01,
	}
}

// Validate checks the configuration for values no route could use.
func (c Config) Validate() error {
	switch {
	case c.A <= 0 || c.B <= 0:
		return configErr(-1, "default impedance a=%g b=%g must be positive", c.A, c.B)
	case c.R < 0:
		return configErr(-1, "bend radius %g must not be negative", c.R)
	case c.TaperLength <= 0:
		return configErr(-1, "taper length %g must be positive", c.TaperLength)
	case c.FlipChipLength <= 0:
		return configErr(-1, "flip-chip connector length %g must be positive", c.FlipChipLength)
	case c.Term1 < 0 || c.Term2 < 0:
		return configErr(-1, "termination lengths must not be negative")
	case c.CollinearTolerance < 0:
		return configErr(-1, "collinear tolerance %g must not be negative", c.CollinearTolerance)
	case c.ArcTolerance <= 0:
		return configErr(-1, "arc tolerance %g must be positive", c.ArcTolerance)
	case len(c.Faces) == 0:
		return configErr(-1, "at least one face must be configured")
	case !slices.Contains(c.Faces, c.Face):
		return configErr(-1, "default face %q is not one of %v", c.Face, c.Faces)
	case c.Airbridge.A <= 0 || c.Airbridge.B <= 0:
		return configErr(-1, "airbridge impedance a=%g b=%g must be positive", c.Airbridge.A, c.Airbridge.B)
	case len(c.Splitter.Angles) != len(c.Splitter.Lengths):
		return configErr(-1, "splitter angles (%d) and lengths (%d) differ in count", len(c.Splitter.Angles), len(c.Splitter.Lengths))
	}
	return nil
}

// otherFace returns the first configured face different from face.
func (c Config) otherFace(face string) (string, error) {
	for _, f := range c.Faces {
		if f != face {
			return f, nil
		}
	}
	return "", fmt.Errorf("no face other than %q is configured", face)
}

func (c Config) hasFace(face string) bool {
	return slices.Contains(c.Faces, face)
}
