package physics

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// CombineRule selects how two contacting colliders' restitution or friction
// coefficients merge into one contact coefficient.
type CombineRule int

const (
	CombineAverage CombineRule = iota
	CombineMin
	CombineMultiply
	CombineMax
)

func (r CombineRule) String() string {
	switch r {
	case CombineAverage:
		return "average"
	case CombineMin:
		return "min"
	case CombineMultiply:
		return "multiply"
	case CombineMax:
		return "max"
	default:
		return fmt.Sprintf("combine(%d)", int(r))
	}
}

// ParseCombineRule parses the textual rule names used in scene documents.
func ParseCombineRule(s string) (CombineRule, error) {
	switch s {
	case "", "average":
		return CombineAverage, nil
	case "min":
		return CombineMin, nil
	case "multiply":
		return CombineMultiply, nil
	case "max":
		return CombineMax, nil
	default:
		return 0, fmt.Errorf("physics: unknown combine rule %q", s)
	}
}

// Apply merges two coefficients under the rule.
func (r CombineRule) Apply(a, b float64) float64 {
	switch r {
	case CombineMin:
		if a < b {
			return a
		}
		return b
	case CombineMultiply:
		return a * b
	case CombineMax:
		if a > b {
			return a
		}
		return b
	default:
		return (a + b) / 2
	}
}

// ActiveEvents controls which contact events an engine emits for a collider.
type ActiveEvents uint32

const (
	EventsNone         ActiveEvents = 0
	EventsCollision    ActiveEvents = 1 << 0
	EventsContactForce ActiveEvents = 1 << 1
)

// ActiveCollisionTypes controls which body-kind pairings produce contacts.
type ActiveCollisionTypes uint16

const CollisionTypesAll ActiveCollisionTypes = 0xffff

// MassProperties is the full mass description of a collider: total mass,
// local center of mass, and principal angular inertia with its frame.
type MassProperties struct {
	Mass             float64
	CenterOfMass     mgl64.Vec3
	PrincipalInertia mgl64.Vec3
	InertiaFrame     mgl64.Quat
}

// ErrMassConfig reports mutually exclusive mass parameters supplied together.
var ErrMassConfig = errors.New("physics: density, mass and mass properties are mutually exclusive")

// MassConfig holds the optional mass parameterization of a collider. At most
// one field may be set; whichever is present is applied, the others are left
// at engine defaults.
type MassConfig struct {
	Density    *float64
	Mass       *float64
	Properties *MassProperties
}

// Validate rejects configurations with more than one mass parameter set.
func (c MassConfig) Validate() error {
	n := 0
	if c.Density != nil {
		n++
	}
	if c.Mass != nil {
		n++
	}
	if c.Properties != nil {
		n++
	}
	if n > 1 {
		return fmt.Errorf("%w: %d supplied", ErrMassConfig, n)
	}
	return nil
}

// IsZero reports whether no mass parameter is supplied.
func (c MassConfig) IsZero() bool {
	return c.Density == nil && c.Mass == nil && c.Properties == nil
}
