package physics

import "github.com/go-gl/mathgl/mgl64"

// Groups packs collision group membership (high half) and filter (low half)
// into a single word, the layout engines conventionally use.
type Groups uint32

// PackGroups builds a Groups word from membership and filter halves.
func PackGroups(memberships, filter uint16) Groups {
	return Groups(uint32(memberships)<<16 | uint32(filter))
}

func (g Groups) Memberships() uint16 { return uint16(g >> 16) }
func (g Groups) Filter() uint16      { return uint16(g) }

// GroupsAll is the default: member of every group, colliding with every group.
const GroupsAll Groups = 0xffffffff

// BodyKind classifies rigid bodies for simulation purposes.
type BodyKind int

const (
	BodyDynamic BodyKind = iota
	BodyKinematic
	BodyFixed
)

func (k BodyKind) String() string {
	switch k {
	case BodyDynamic:
		return "dynamic"
	case BodyKinematic:
		return "kinematic"
	case BodyFixed:
		return "fixed"
	default:
		return "body(?)"
	}
}

// ColliderDesc describes a collider to create. The shape is expected to be
// pre-scaled to the owning node's world scale.
type ColliderDesc struct {
	Shape  Shape
	Groups Groups
}

// RigidBody is an engine-owned simulated body colliders may attach to.
type RigidBody interface {
	Kind() BodyKind
	Position() mgl64.Vec3
	Rotation() mgl64.Quat
}

// Collider is an engine-owned collider handle. All setters are expected to
// succeed; argument validation happens at creation time.
type Collider interface {
	SetTranslation(p mgl64.Vec3)
	SetRotation(q mgl64.Quat)
	SetTranslationWrtParent(p mgl64.Vec3)
	SetRotationWrtParent(q mgl64.Quat)

	SetRestitution(r float64)
	SetRestitutionCombineRule(rule CombineRule)
	SetFriction(f float64)
	SetFrictionCombineRule(rule CombineRule)
	SetSensor(sensor bool)

	SetDensity(d float64)
	SetMass(m float64)
	SetMassProperties(p MassProperties)

	SetActiveEvents(ev ActiveEvents)
	SetActiveCollisionTypes(t ActiveCollisionTypes)
	SetContactForceEventThreshold(threshold float64)
	SetCollisionGroups(g Groups)
}

// World is the engine boundary the binding talks to: collider creation and
// removal. Creation validates shape arguments and returns a structured error
// instead of propagating an engine fault.
type World interface {
	CreateCollider(desc ColliderDesc, parent RigidBody) (Collider, error)
	RemoveCollider(c Collider, wake bool)
}
