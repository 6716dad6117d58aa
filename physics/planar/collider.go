package planar

import (
	"fmt"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/jmheld/tether/common"
	"github.com/jmheld/tether/physics"
)

// RigidBody wraps a Chipmunk body behind the engine boundary.
type RigidBody struct {
	body    *cp.Body
	kind    physics.BodyKind
	removed bool
}

func (r *RigidBody) Kind() physics.BodyKind {
	if r == nil {
		return physics.BodyFixed
	}
	return r.kind
}

func (r *RigidBody) Position() mgl64.Vec3 {
	if r == nil || r.body == nil {
		return mgl64.Vec3{}
	}
	p := r.body.Position()
	return mgl64.Vec3{p.X, p.Y, 0}
}

func (r *RigidBody) Rotation() mgl64.Quat {
	if r == nil || r.body == nil {
		return mgl64.QuatIdent()
	}
	return common.QuatFromYaw(r.body.Angle())
}

// Body returns the underlying Chipmunk body.
func (r *RigidBody) Body() *cp.Body {
	if r == nil {
		return nil
	}
	return r.body
}

// Collider implements physics.Collider on a Chipmunk shape. Unattached
// colliders own a kinematic body so world-pose pushes translate to body
// moves; attached colliders rebuild their shape in the parent body's local
// frame when the relative pose changes.
type Collider struct {
	engine   *Engine
	body     *cp.Body
	parent   *RigidBody
	shape    *cp.Shape
	desc     physics.ColliderDesc
	ownBody  bool
	attached bool
	removed  bool

	relPos mgl64.Vec3
	relRot mgl64.Quat

	sensor          bool
	friction        float64
	restitution     float64
	frictionRule    physics.CombineRule
	restitutionRule physics.CombineRule
	activeEvents    physics.ActiveEvents
	activeTypes     physics.ActiveCollisionTypes
	forceThreshold  float64
}

func (c *Collider) SetTranslation(p mgl64.Vec3) {
	if c == nil || c.removed || !c.ownBody {
		return
	}
	c.body.SetPosition(cp.Vector{X: p[0], Y: p[1]})
}

func (c *Collider) SetRotation(q mgl64.Quat) {
	if c == nil || c.removed || !c.ownBody {
		return
	}
	c.body.SetAngle(common.Yaw(q))
}

func (c *Collider) SetTranslationWrtParent(p mgl64.Vec3) {
	if c == nil || c.removed || !c.attached {
		return
	}
	c.relPos = p
	if err := c.rebuildShape(); err != nil {
		// shape args were validated at creation, so this should not happen
		log.Printf("planar: rebuild collider shape: %v", err)
	}
}

func (c *Collider) SetRotationWrtParent(q mgl64.Quat) {
	if c == nil || c.removed || !c.attached {
		return
	}
	c.relRot = q
	if err := c.rebuildShape(); err != nil {
		log.Printf("planar: rebuild collider shape: %v", err)
	}
}

func (c *Collider) SetRestitution(r float64) {
	if c == nil || c.removed {
		return
	}
	c.restitution = r
	c.shape.SetElasticity(r)
}

func (c *Collider) SetRestitutionCombineRule(rule physics.CombineRule) {
	if c == nil || c.removed {
		return
	}
	c.restitutionRule = rule
}

func (c *Collider) SetFriction(f float64) {
	if c == nil || c.removed {
		return
	}
	c.friction = f
	c.shape.SetFriction(f)
}

func (c *Collider) SetFrictionCombineRule(rule physics.CombineRule) {
	if c == nil || c.removed {
		return
	}
	c.frictionRule = rule
}

func (c *Collider) SetSensor(sensor bool) {
	if c == nil || c.removed {
		return
	}
	c.sensor = sensor
	c.shape.SetSensor(sensor)
}

func (c *Collider) SetDensity(d float64) {
	if c == nil || c.removed {
		return
	}
	c.applyMass(d * c.area())
}

func (c *Collider) SetMass(m float64) {
	if c == nil || c.removed {
		return
	}
	c.applyMass(m)
}

func (c *Collider) SetMassProperties(p physics.MassProperties) {
	if c == nil || c.removed || !c.dynamicParent() {
		return
	}
	// planar projection keeps mass and the Z principal inertia; the center
	// of mass offset and inertia frame have no 2D counterpart here
	c.body.SetMass(p.Mass)
	if p.PrincipalInertia[2] > 0 {
		c.body.SetMoment(p.PrincipalInertia[2])
	}
}

func (c *Collider) SetActiveEvents(ev physics.ActiveEvents) {
	if c == nil || c.removed {
		return
	}
	c.activeEvents = ev
}

func (c *Collider) SetActiveCollisionTypes(t physics.ActiveCollisionTypes) {
	if c == nil || c.removed {
		return
	}
	c.activeTypes = t
}

func (c *Collider) SetContactForceEventThreshold(threshold float64) {
	if c == nil || c.removed {
		return
	}
	c.forceThreshold = threshold
}

func (c *Collider) SetCollisionGroups(g physics.Groups) {
	if c == nil || c.removed {
		return
	}
	c.desc.Groups = g
	c.applyFilter()
}

// Desc returns the descriptor the collider was created from.
func (c *Collider) Desc() physics.ColliderDesc {
	if c == nil {
		return physics.ColliderDesc{}
	}
	return c.desc
}

func (c *Collider) Sensor() bool {
	return c != nil && c.sensor
}

// FrictionCombineRule and RestitutionCombineRule expose the stored rules.
// Chipmunk combines pairwise coefficients with its native product rule; the
// stored rules describe intent for consumers computing pair coefficients.
func (c *Collider) FrictionCombineRule() physics.CombineRule    { return c.frictionRule }
func (c *Collider) RestitutionCombineRule() physics.CombineRule { return c.restitutionRule }

// WorldPose returns the shape's world-space center and yaw.
func (c *Collider) WorldPose() (mgl64.Vec3, float64) {
	if c == nil || c.body == nil {
		return mgl64.Vec3{}, 0
	}
	angle := c.body.Angle() + common.Yaw(c.relRot)
	p := c.body.Position()
	off := rotate2(mgl64.Vec3{c.relPos[0], c.relPos[1], 0}, c.body.Angle())
	return mgl64.Vec3{p.X + off[0], p.Y + off[1], 0}, angle
}

func (c *Collider) dynamicParent() bool {
	return c.attached && c.parent != nil && c.parent.kind == physics.BodyDynamic
}

func (c *Collider) applyMass(mass float64) {
	if !c.dynamicParent() || mass <= 0 {
		return
	}
	c.body.SetMass(mass)
	c.body.SetMoment(c.moment(mass))
}

func (c *Collider) applyFilter() {
	if c.shape == nil {
		return
	}
	g := c.desc.Groups
	if g == 0 || g == physics.GroupsAll {
		return
	}
	c.shape.SetFilter(cp.NewShapeFilter(cp.NO_GROUP, uint(g.Memberships()), uint(g.Filter())))
}

// rebuildShape constructs the Chipmunk shape for the descriptor at the
// current relative pose and swaps it into the space.
func (c *Collider) rebuildShape() error {
	shape, err := c.buildShape()
	if err != nil {
		return err
	}

	if c.shape != nil {
		c.engine.space.RemoveShape(c.shape)
		delete(c.engine.byShape, c.shape)
	}

	shape.SetCollisionType(colliderType)
	shape.SetFriction(c.friction)
	shape.SetElasticity(c.restitution)
	shape.SetSensor(c.sensor)
	c.shape = shape
	c.applyFilter()
	c.engine.space.AddShape(shape)
	c.engine.byShape[shape] = c
	return nil
}

func (c *Collider) buildShape() (*cp.Shape, error) {
	yaw := common.Yaw(c.relRot)
	offset := mgl64.Vec3{c.relPos[0], c.relPos[1], 0}

	switch s := c.desc.Shape.(type) {
	case physics.Ball:
		return cp.NewCircle(c.body, s.Radius, cp.Vector{X: offset[0], Y: offset[1]}), nil
	case physics.Cuboid:
		return polyShape(c.body, boxVerts(s.HalfExtents[0], s.HalfExtents[1]), yaw, offset), nil
	case physics.Capsule:
		a := placed(mgl64.Vec3{0, -s.HalfHeight, 0}, yaw, offset)
		b := placed(mgl64.Vec3{0, s.HalfHeight, 0}, yaw, offset)
		return cp.NewSegment(c.body, cp.Vector{X: a[0], Y: a[1]}, cp.Vector{X: b[0], Y: b[1]}, s.Radius), nil
	case physics.Cylinder:
		return polyShape(c.body, boxVerts(s.Radius, s.HalfHeight), yaw, offset), nil
	case physics.Cone:
		verts := []mgl64.Vec3{
			{-s.Radius, -s.HalfHeight, 0},
			{s.Radius, -s.HalfHeight, 0},
			{0, s.HalfHeight, 0},
		}
		return polyShape(c.body, verts, yaw, offset), nil
	case physics.ConvexHull:
		verts := make([]mgl64.Vec3, len(s.Points))
		for i, p := range s.Points {
			verts[i] = mgl64.Vec3{p[0], p[1], 0}
		}
		return polyShape(c.body, verts, yaw, offset), nil
	default:
		return nil, fmt.Errorf("planar: %w: unsupported shape kind %v", physics.ErrBadShape, c.desc.Shape.Kind())
	}
}

func (c *Collider) area() float64 {
	switch s := c.desc.Shape.(type) {
	case physics.Ball:
		return math.Pi * s.Radius * s.Radius
	case physics.Cuboid:
		return 4 * s.HalfExtents[0] * s.HalfExtents[1]
	case physics.Capsule:
		return 4*s.Radius*s.HalfHeight + math.Pi*s.Radius*s.Radius
	case physics.Cylinder:
		return 4 * s.Radius * s.HalfHeight
	case physics.Cone:
		return 2 * s.Radius * s.HalfHeight
	case physics.ConvexHull:
		return polygonArea(s.Points)
	default:
		return 0
	}
}

func (c *Collider) moment(mass float64) float64 {
	offset := cp.Vector{X: c.relPos[0], Y: c.relPos[1]}
	switch s := c.desc.Shape.(type) {
	case physics.Ball:
		return cp.MomentForCircle(mass, 0, s.Radius, offset)
	case physics.Cuboid:
		return cp.MomentForBox(mass, 2*s.HalfExtents[0], 2*s.HalfExtents[1])
	case physics.Capsule:
		a := cp.Vector{X: offset.X, Y: offset.Y - s.HalfHeight}
		b := cp.Vector{X: offset.X, Y: offset.Y + s.HalfHeight}
		return cp.MomentForSegment(mass, a, b, s.Radius)
	case physics.Cylinder:
		return cp.MomentForBox(mass, 2*s.Radius, 2*s.HalfHeight)
	case physics.Cone:
		return cp.MomentForBox(mass, 2*s.Radius, 2*s.HalfHeight)
	case physics.ConvexHull:
		bb := boundsOf(s.Points)
		return cp.MomentForBox(mass, bb[0], bb[1])
	default:
		return mass
	}
}

func boxVerts(hx, hy float64) []mgl64.Vec3 {
	return []mgl64.Vec3{
		{-hx, -hy, 0},
		{hx, -hy, 0},
		{hx, hy, 0},
		{-hx, hy, 0},
	}
}

func polyShape(body *cp.Body, verts []mgl64.Vec3, yaw float64, offset mgl64.Vec3) *cp.Shape {
	placedVerts := make([]cp.Vector, len(verts))
	for i, v := range verts {
		p := placed(v, yaw, offset)
		placedVerts[i] = cp.Vector{X: p[0], Y: p[1]}
	}
	return cp.NewPolyShapeRaw(body, len(placedVerts), placedVerts, 0)
}

func placed(v mgl64.Vec3, yaw float64, offset mgl64.Vec3) mgl64.Vec3 {
	return rotate2(v, yaw).Add(offset)
}

func rotate2(v mgl64.Vec3, angle float64) mgl64.Vec3 {
	sin, cos := math.Sincos(angle)
	return mgl64.Vec3{v[0]*cos - v[1]*sin, v[0]*sin + v[1]*cos, v[2]}
}

func polygonArea(points []mgl64.Vec3) float64 {
	if len(points) < 3 {
		return 0
	}
	sum := 0.0
	for i := range points {
		a := points[i]
		b := points[(i+1)%len(points)]
		sum += a[0]*b[1] - b[0]*a[1]
	}
	return math.Abs(sum) / 2
}

func boundsOf(points []mgl64.Vec3) [2]float64 {
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p[0])
		maxX = math.Max(maxX, p[0])
		minY = math.Min(minY, p[1])
		maxY = math.Max(maxY, p[1])
	}
	return [2]float64{maxX - minX, maxY - minY}
}
