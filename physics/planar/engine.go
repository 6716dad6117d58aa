// Package planar implements the physics engine boundary on top of
// Chipmunk2D for scenes constrained to the XY plane. Poses keep their X/Y
// translation and the yaw about Z; everything else is projected away.
package planar

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/jmheld/tether/common"
	"github.com/jmheld/tether/physics"
)

const colliderType cp.CollisionType = 1

// Config tunes the underlying Chipmunk space.
type Config struct {
	Gravity    mgl64.Vec3
	Iterations uint
}

// Engine owns the Chipmunk space and maps shapes back to collider handles.
// Contact events collected during Step are routed through the world context.
type Engine struct {
	space         *cp.Space
	ctx           *physics.WorldContext
	byShape       map[*cp.Shape]*Collider
	queued        []physics.ContactEvent
	stepDT        float64
	handlersReady bool
}

// New creates a planar engine delivering contact events through ctx.
func New(cfg Config, ctx *physics.WorldContext) *Engine {
	space := cp.NewSpace()
	if cfg.Iterations > 0 {
		space.Iterations = cfg.Iterations
	}
	space.SetGravity(cp.Vector{X: cfg.Gravity[0], Y: cfg.Gravity[1]})

	e := &Engine{
		space:   space,
		ctx:     ctx,
		byShape: make(map[*cp.Shape]*Collider),
	}
	e.ensureHandlers()
	return e
}

// Space returns the underlying Chipmunk space.
func (e *Engine) Space() *cp.Space {
	if e == nil {
		return nil
	}
	return e.space
}

// CreateRigidBody creates a simulated body colliders can attach to.
func (e *Engine) CreateRigidBody(kind physics.BodyKind, pos mgl64.Vec3, rot mgl64.Quat) (physics.RigidBody, error) {
	if e == nil || e.space == nil {
		return nil, fmt.Errorf("planar: create rigid body: engine not initialized")
	}

	var body *cp.Body
	switch kind {
	case physics.BodyDynamic:
		body = cp.NewBody(1, 1)
	case physics.BodyKinematic:
		body = cp.NewKinematicBody()
	case physics.BodyFixed:
		body = cp.NewStaticBody()
	default:
		return nil, fmt.Errorf("planar: create rigid body: unknown kind %v", kind)
	}
	body.SetPosition(cp.Vector{X: pos[0], Y: pos[1]})
	body.SetAngle(common.Yaw(rot))
	e.space.AddBody(body)

	return &RigidBody{body: body, kind: kind}, nil
}

// CreateCollider implements physics.World. Shape arguments are validated
// here and rejected with a structured error. Without a parent body the
// collider rides its own kinematic body so its pose can be pushed directly.
func (e *Engine) CreateCollider(desc physics.ColliderDesc, parent physics.RigidBody) (physics.Collider, error) {
	if e == nil || e.space == nil {
		return nil, fmt.Errorf("planar: create collider: engine not initialized")
	}
	if desc.Shape == nil {
		return nil, fmt.Errorf("planar: create collider: %w: nil shape", physics.ErrBadShape)
	}
	if err := desc.Shape.Validate(); err != nil {
		return nil, fmt.Errorf("planar: create collider: %w", err)
	}

	col := &Collider{
		engine:      e,
		desc:        desc,
		relRot:      mgl64.QuatIdent(),
		friction:    0,
		activeTypes: physics.CollisionTypesAll,
	}

	if parent == nil {
		body := cp.NewKinematicBody()
		e.space.AddBody(body)
		col.body = body
		col.ownBody = true
	} else {
		rb, ok := parent.(*RigidBody)
		if !ok {
			return nil, fmt.Errorf("planar: create collider: unsupported rigid body %T", parent)
		}
		col.body = rb.body
		col.parent = rb
		col.attached = true
	}

	if err := col.rebuildShape(); err != nil {
		if col.ownBody {
			e.space.RemoveBody(col.body)
		}
		return nil, err
	}
	return col, nil
}

// RemoveRigidBody removes a body created by CreateRigidBody from the space.
// Idempotent per body; colliders attached to it should be removed first.
func (e *Engine) RemoveRigidBody(b physics.RigidBody) {
	if e == nil || e.space == nil {
		return
	}
	rb, ok := b.(*RigidBody)
	if !ok || rb == nil || rb.removed {
		return
	}
	rb.removed = true
	e.space.RemoveBody(rb.body)
}

// RemoveCollider implements physics.World. Removal is idempotent per handle;
// wake reactivates an attached dynamic parent so the mass change takes
// effect immediately.
func (e *Engine) RemoveCollider(c physics.Collider, wake bool) {
	if e == nil || e.space == nil {
		return
	}
	col, ok := c.(*Collider)
	if !ok || col == nil || col.removed {
		return
	}
	col.removed = true

	if col.shape != nil {
		e.space.RemoveShape(col.shape)
		delete(e.byShape, col.shape)
		col.shape = nil
	}
	if col.ownBody {
		e.space.RemoveBody(col.body)
	} else if wake && col.parent != nil && col.parent.kind == physics.BodyDynamic {
		col.body.Activate()
	}
}

// Step advances the simulation and delivers collected contact events.
func (e *Engine) Step(dt float64) {
	if e == nil || e.space == nil || dt <= 0 {
		return
	}
	e.stepDT = dt
	e.space.Step(dt)

	queued := e.queued
	e.queued = nil
	for _, ev := range queued {
		e.ctx.Deliver(ev)
	}
}

// Colliders returns every live collider, for debug drawing.
func (e *Engine) Colliders() []*Collider {
	if e == nil {
		return nil
	}
	out := make([]*Collider, 0, len(e.byShape))
	for _, c := range e.byShape {
		out = append(out, c)
	}
	return out
}

func (e *Engine) ensureHandlers() {
	if e.handlersReady || e.space == nil {
		return
	}

	handler := e.space.NewCollisionHandler(colliderType, colliderType)
	handler.UserData = e
	handler.BeginFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
		eng, ok := userData.(*Engine)
		if ok {
			eng.queuePair(arb, true)
		}
		return true
	}
	handler.SeparateFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) {
		eng, ok := userData.(*Engine)
		if ok {
			eng.queuePair(arb, false)
		}
	}
	handler.PostSolveFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) {
		eng, ok := userData.(*Engine)
		if ok {
			eng.queueContactForce(arb)
		}
	}

	e.handlersReady = true
}

func (e *Engine) pair(arb *cp.Arbiter) (*Collider, *Collider) {
	sa, sb := arb.Shapes()
	return e.byShape[sa], e.byShape[sb]
}

func (e *Engine) queuePair(arb *cp.Arbiter, started bool) {
	ca, cb := e.pair(arb)
	if ca == nil || cb == nil {
		return
	}

	sensor := ca.sensor || cb.sensor
	var kind physics.ContactEventKind
	switch {
	case sensor && started:
		kind = physics.SensorStarted
	case sensor:
		kind = physics.SensorEnded
	case started:
		kind = physics.ContactStarted
	default:
		kind = physics.ContactEnded
	}

	n := arb.Normal()
	normal := mgl64.Vec3{n.X, n.Y, 0}
	e.queueFor(ca, cb, kind, normal, 0)
	e.queueFor(cb, ca, kind, normal.Mul(-1), 0)
}

func (e *Engine) queueContactForce(arb *cp.Arbiter) {
	ca, cb := e.pair(arb)
	if ca == nil || cb == nil || e.stepDT <= 0 {
		return
	}
	force := arb.TotalImpulse().Length() / e.stepDT

	n := arb.Normal()
	normal := mgl64.Vec3{n.X, n.Y, 0}
	if ca.activeEvents&physics.EventsContactForce != 0 && force >= ca.forceThreshold {
		e.queueFor(ca, cb, physics.ContactForce, normal, force)
	}
	if cb.activeEvents&physics.EventsContactForce != 0 && force >= cb.forceThreshold {
		e.queueFor(cb, ca, physics.ContactForce, normal.Mul(-1), force)
	}
}

func (e *Engine) queueFor(c, other *Collider, kind physics.ContactEventKind, normal mgl64.Vec3, force float64) {
	if c.activeTypes == 0 {
		return
	}
	if kind.IsCollision() && c.activeEvents&physics.EventsCollision == 0 {
		return
	}
	e.queued = append(e.queued, physics.ContactEvent{
		Kind:     kind,
		Collider: c,
		Other:    other,
		Normal:   normal,
		Force:    force,
	})
}
