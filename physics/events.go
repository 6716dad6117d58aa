package physics

import "github.com/go-gl/mathgl/mgl64"

// ContactEventKind names the contact-related events a collider can observe.
type ContactEventKind int

const (
	ContactStarted ContactEventKind = iota + 1
	ContactEnded
	SensorStarted
	SensorEnded
	ContactForce
)

func (k ContactEventKind) String() string {
	switch k {
	case ContactStarted:
		return "collisionenter"
	case ContactEnded:
		return "collisionexit"
	case SensorStarted:
		return "sensorenter"
	case SensorEnded:
		return "sensorexit"
	case ContactForce:
		return "contactforce"
	default:
		return "event(?)"
	}
}

// IsCollision reports whether the kind is gated by EventsCollision rather
// than EventsContactForce.
func (k ContactEventKind) IsCollision() bool {
	return k != ContactForce
}

// ContactEvent is delivered to the target registered for Collider. Other is
// the opposing collider of the contact pair, Normal points away from the
// receiving collider, Force is set for ContactForce events only.
type ContactEvent struct {
	Kind     ContactEventKind
	Collider Collider
	Other    Collider
	Normal   mgl64.Vec3
	Force    float64
}
