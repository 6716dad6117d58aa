package binding

import (
	"errors"
	"fmt"
	"log"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/jmheld/tether/physics"
	"github.com/jmheld/tether/scene"
)

// Default material values applied when the corresponding prop is unset.
const (
	DefaultRestitution           = 0.0
	DefaultFriction              = 0.7
	DefaultContactForceThreshold = 0.0
)

var (
	ErrNilLoop    = errors.New("binding: loop is required")
	ErrNilWorld   = errors.New("binding: physics world is required")
	ErrNilContext = errors.New("binding: world context is required")
	ErrNilShape   = errors.New("binding: shape is required")
)

// Transform is the optional initial local transform of the collider node.
// LookAt, when set, overrides Rotation/Euler and aims the node at a
// world-space target after it is parented.
type Transform struct {
	Position *mgl64.Vec3
	Rotation *mgl64.Quat
	Euler    *mgl64.Vec3
	Scale    *mgl64.Vec3
	LookAt   *mgl64.Vec3
}

// Props are the reactive material and behavior parameters. Nil fields take
// the documented defaults. At most one of Density, Mass and MassProperties
// may be set.
type Props struct {
	Restitution            *float64
	RestitutionCombineRule *physics.CombineRule
	Friction               *float64
	FrictionCombineRule    *physics.CombineRule
	Sensor                 *bool
	ContactForceThreshold  *float64

	Density        *float64
	Mass           *float64
	MassProperties *physics.MassProperties
}

func (p Props) massConfig() physics.MassConfig {
	return physics.MassConfig{Density: p.Density, Mass: p.Mass, Properties: p.MassProperties}
}

// Validate surfaces conflicting mass parameters as a configuration error.
func (p Props) Validate() error {
	return p.massConfig().Validate()
}

// Config wires a collider component into its world. Loop, World, Context and
// Shape are required; everything else is optional.
type Config struct {
	Name string

	Loop    *scene.Loop
	World   physics.World
	Context *physics.WorldContext
	Groups  *physics.GroupRegistry

	// Parent is the scene node the collider's visual node mounts under.
	Parent *scene.Node
	// Body attaches the collider to a rigid body supplied by an ancestor.
	Body *RigidBodyContext

	Shape     physics.Shape
	Transform Transform
	Props     Props

	// CollisionGroups goes on the collider descriptor; GroupNames register
	// the collider in the shared group registry.
	CollisionGroups physics.Groups
	GroupNames      []string
}

// Collider binds one physics collider to one scene node. The engine handle
// exists exactly while the component is mounted and initialization has
// completed; every mutating path guards on its existence.
type Collider struct {
	name    string
	node    *scene.Node
	loop    *scene.Loop
	world   physics.World
	ctx     *physics.WorldContext
	groups  *physics.GroupRegistry
	body    *RigidBodyContext
	shape   physics.Shape
	props   Props
	events  *Emitter
	cgroups physics.Groups
	gnames  []string

	handle      physics.Collider
	frame       *scene.FrameHandle
	unsubscribe func()
	attached    bool
	unmounted   bool
}

// Mount constructs the collider's scene node, applies the initial local
// transform, and defers collider creation to the loop's next tick so world
// transforms are final when shape arguments are scaled. Conflicting mass
// props are rejected here, before anything touches the engine.
func Mount(cfg Config) (*Collider, error) {
	if cfg.Loop == nil {
		return nil, ErrNilLoop
	}
	if cfg.World == nil {
		return nil, ErrNilWorld
	}
	if cfg.Context == nil {
		return nil, ErrNilContext
	}
	if cfg.Shape == nil {
		return nil, ErrNilShape
	}
	if err := cfg.Props.Validate(); err != nil {
		return nil, fmt.Errorf("binding: mount %s: %w", cfg.Name, err)
	}

	node := scene.NewNode(cfg.Name)
	applyTransform(node, cfg.Transform)
	if cfg.Parent != nil {
		cfg.Parent.AddChild(node)
	}
	if cfg.Transform.LookAt != nil {
		node.LookAt(*cfg.Transform.LookAt)
	}

	c := &Collider{
		name:    cfg.Name,
		node:    node,
		loop:    cfg.Loop,
		world:   cfg.World,
		ctx:     cfg.Context,
		groups:  cfg.Groups,
		body:    cfg.Body,
		shape:   cfg.Shape,
		props:   cfg.Props,
		cgroups: cfg.CollisionGroups,
		gnames:  cfg.GroupNames,
	}
	c.events = NewEmitter(c.applyMaterial)
	if c.body != nil {
		c.unsubscribe = c.body.subscribe(c.applyMaterial)
	}

	c.loop.NextTick(c.initialize)
	c.frame = c.loop.OnFrame(c.onFrame, true)
	return c, nil
}

func applyTransform(node *scene.Node, t Transform) {
	if t.Position != nil {
		node.SetPosition(*t.Position)
	}
	switch {
	case t.Rotation != nil:
		node.SetRotation(*t.Rotation)
	case t.Euler != nil:
		e := *t.Euler
		node.SetRotation(mgl64.AnglesToQuat(e[0], e[1], e[2], mgl64.XYZ))
	}
	if t.Scale != nil {
		node.SetScale(*t.Scale)
	}
}

// Node returns the visual node the collider pose derives from.
func (c *Collider) Node() *scene.Node {
	if c == nil {
		return nil
	}
	return c.node
}

// Handle exposes the created engine collider so sibling components can
// reference it. Nil until initialization completes.
func (c *Collider) Handle() physics.Collider {
	if c == nil {
		return nil
	}
	return c.handle
}

// Attached reports whether the collider is parented to a rigid body.
func (c *Collider) Attached() bool {
	return c != nil && c.attached
}

// On registers a contact-event listener; registering or removing listeners
// re-derives the collider's active-event flags.
func (c *Collider) On(kind physics.ContactEventKind, fn Listener) func() {
	if c == nil {
		return func() {}
	}
	return c.events.On(kind, fn)
}

// HandleContactEvent implements physics.EventTarget: events route to this
// component's listeners and, when attached, to the parent body's.
func (c *Collider) HandleContactEvent(ev physics.ContactEvent) {
	if c == nil {
		return
	}
	c.events.Emit(ev)
	if c.body != nil {
		c.body.HandleContactEvent(ev)
	}
}

// SetProps replaces the material/behavior props and reapplies the whole
// parameter set. Application is idempotent and never partial: every tracked
// parameter is re-derived from current values.
func (c *Collider) SetProps(p Props) error {
	if c == nil {
		return nil
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("binding: set props %s: %w", c.name, err)
	}
	c.props = p
	c.applyMaterial()
	return nil
}

// Props returns the current prop values.
func (c *Collider) Props() Props {
	if c == nil {
		return Props{}
	}
	return c.props
}

func (c *Collider) initialize() {
	if c == nil || c.unmounted || c.handle != nil {
		return
	}

	shape := physics.ScaleShape(c.shape, c.node.WorldScale())
	desc := physics.ColliderDesc{Shape: shape, Groups: c.cgroups}

	var parent physics.RigidBody
	if c.body != nil {
		parent = c.body.Body()
	}
	handle, err := c.world.CreateCollider(desc, parent)
	if err != nil {
		log.Printf("binding: create collider %s: %v", c.name, err)
		return
	}
	c.handle = handle

	c.ctx.Register(handle, c)
	if c.groups != nil && len(c.gnames) > 0 {
		c.groups.Add(handle, c.gnames...)
	}

	if c.body != nil {
		c.attached = true
		c.applyAttachedPose()
	} else {
		c.pushWorldPose()
	}
	c.applyMaterial()
}

// applyAttachedPose expresses the collider's world pose in the parent
// body's local frame. Set once; the engine maintains the offset afterwards.
func (c *Collider) applyAttachedPose() {
	anchor := c.node.NearestRigidBodyAnchor()
	if anchor == nil {
		anchor = c.body.Node()
	}
	if anchor == nil {
		return
	}

	bodyPos := anchor.WorldPosition()
	invRot := anchor.WorldRotation().Inverse()

	rel := invRot.Rotate(c.node.WorldPosition().Sub(bodyPos))
	relRot := invRot.Mul(c.node.WorldRotation()).Normalize()

	c.handle.SetTranslationWrtParent(rel)
	c.handle.SetRotationWrtParent(relRot)
}

func (c *Collider) pushWorldPose() {
	world := c.node.World()
	c.handle.SetTranslation(world.Pos)
	c.handle.SetRotation(world.Rot)
}

// onFrame re-pushes the node's current world pose every simulation frame.
// Attached colliders skip this: the engine keeps the relative pose.
func (c *Collider) onFrame(float64) {
	if c == nil || c.handle == nil || c.attached {
		return
	}
	c.pushWorldPose()
}

// applyMaterial re-derives and applies all material/behavior parameters
// from the current props, wholesale.
func (c *Collider) applyMaterial() {
	if c == nil || c.handle == nil || c.unmounted {
		return
	}
	h := c.handle

	h.SetRestitution(floatOr(c.props.Restitution, DefaultRestitution))
	h.SetRestitutionCombineRule(ruleOr(c.props.RestitutionCombineRule))
	h.SetFriction(floatOr(c.props.Friction, DefaultFriction))
	h.SetFrictionCombineRule(ruleOr(c.props.FrictionCombineRule))
	h.SetSensor(c.props.Sensor != nil && *c.props.Sensor)
	h.SetContactForceEventThreshold(floatOr(c.props.ContactForceThreshold, DefaultContactForceThreshold))
	h.SetActiveEvents(c.activeEvents())
	h.SetActiveCollisionTypes(physics.CollisionTypesAll)

	mc := c.props.massConfig()
	switch {
	case mc.Density != nil:
		h.SetDensity(*mc.Density)
	case mc.Mass != nil:
		h.SetMass(*mc.Mass)
	case mc.Properties != nil:
		h.SetMassProperties(*mc.Properties)
	}
}

// activeEvents derives the engine flags from listener registration on this
// component and on its parent body.
func (c *Collider) activeEvents() physics.ActiveEvents {
	ev := physics.EventsNone
	collision := c.events.HasCollisionListeners()
	force := c.events.HasContactForceListeners()
	if c.body != nil {
		collision = collision || c.body.events.HasCollisionListeners()
		force = force || c.body.events.HasContactForceListeners()
	}
	if collision {
		ev |= physics.EventsCollision
	}
	if force {
		ev |= physics.EventsContactForce
	}
	return ev
}

// Unmount tears the component down. If the collider was never created this
// is a no-op toward the engine and registries; otherwise each deregistration
// and the world removal happen exactly once.
func (c *Collider) Unmount() {
	if c == nil || c.unmounted {
		return
	}
	c.unmounted = true

	if c.frame != nil {
		c.frame.Remove()
		c.frame = nil
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
	c.node.Detach()

	if c.handle == nil {
		return
	}
	c.ctx.Deregister(c.handle)
	if c.groups != nil {
		c.groups.Remove(c.handle)
	}
	c.world.RemoveCollider(c.handle, true)
	c.handle = nil
}

func floatOr(p *float64, def float64) float64 {
	if p != nil {
		return *p
	}
	return def
}

func ruleOr(p *physics.CombineRule) physics.CombineRule {
	if p != nil {
		return *p
	}
	return physics.CombineAverage
}
