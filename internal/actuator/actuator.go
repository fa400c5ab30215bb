package actuator

import "fmt"

// Axis identifies one of the two drive axes.
type Axis int

const (
	AxisPan Axis = iota
	AxisTilt
)

func (a Axis) String() string {
	switch a {
	case AxisPan:
		return "pan"
	case AxisTilt:
		return "tilt"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// Driver is a degree-addressable actuator. The motion loop calls SetAngle
// on every tick that changes a position, so implementations must be
// bounded-latency and never block on I/O.
type Driver interface {
	SetAngle(axis Axis, degrees int) error
	Close() error
}
