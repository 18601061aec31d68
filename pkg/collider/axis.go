package collider

import (
	"fmt"
	"strings"

	"github.com/Faultbox/midgard-colliders/pkg/math"
)

// Axis selects which local axis of the fitted basis follows the principal axis.
type Axis int

const (
	AxisZ Axis = iota
	AxisX
	AxisY
)

// ParseAxis parses "x", "y" or "z" (case-insensitive). Empty input means Z.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "Z":
		return AxisZ, nil
	case "X":
		return AxisX, nil
	case "Y":
		return AxisY, nil
	}
	return AxisZ, fmt.Errorf("unknown axis %q (want X, Y or Z)", s)
}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	default:
		return "Z"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Axis) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Axis) UnmarshalText(text []byte) error {
	parsed, err := ParseAxis(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// column returns the basis column index for the axis.
func (a Axis) column() int {
	switch a {
	case AxisX:
		return 0
	case AxisY:
		return 1
	default:
		return 2
	}
}

// references returns the primary and secondary world directions crossed
// against the principal axis to complete the basis.
func (a Axis) references() (math.Vec3, math.Vec3) {
	if a == AxisZ {
		return math.UnitY, math.UnitZ
	}
	return math.UnitZ, math.UnitY
}
