package route

import (
	"fmt"

	"honnef.co/go/curve"
)

// ConfigurationError reports a node that references an unknown element type,
// an unresolved port name, or an invalid option combination. Node is -1 when
// the problem is not tied to a position in a sequence.
type ConfigurationError struct {
	Node   int
	Port   string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := e.Reason
	if e.Port != "" {
		msg = fmt.Sprintf("port %q: %s", e.Port, msg)
	}
	if e.Node >= 0 {
		msg = fmt.Sprintf("node %d: %s", e.Node, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "route: " + msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// DegenerateGeometryError reports geometry that cannot be constructed, such
// as coincident nodes or a straight too short for its bends.
type DegenerateGeometryError struct {
	Node   int
	Reason string
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("route: node %d: degenerate geometry: %s", e.Node, e.Reason)
}

// RootFindingError reports that the fixed-length solver could not reach the
// target length. A and B are the first and last node positions of the
// template at the lower bracket end. Its message is a stable diagnostic.
type RootFindingError struct {
	Target float64
	A, B   curve.Point
	Reason string
	Err    error
}

func (e *RootFindingError) Error() string {
	return fmt.Sprintf("Cannot create a waveguide bend with length %g between points %s and %s", e.Target, e.A, e.B)
}

func (e *RootFindingError) Unwrap() error { return e.Err }

func configErr(node int, reason string, args ...any) *ConfigurationError {
	return &ConfigurationError{Node: node, Reason: fmt.Sprintf(reason, args...)}
}

func degenerate(node int, reason string, args ...any) *DegenerateGeometryError {
	return &DegenerateGeometryError{Node: node, Reason: fmt.Sprintf(reason, args...)}
}
