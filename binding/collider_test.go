package binding

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/jmheld/tether/physics"
	"github.com/jmheld/tether/scene"
)

type removal struct {
	collider physics.Collider
	wake     bool
}

type fakeWorld struct {
	created   []*fakeCollider
	removed   []removal
	createErr error
}

func (w *fakeWorld) CreateCollider(desc physics.ColliderDesc, parent physics.RigidBody) (physics.Collider, error) {
	if w.createErr != nil {
		return nil, w.createErr
	}
	c := &fakeCollider{desc: desc, parent: parent, calls: make(map[string]int), rotation: mgl64.QuatIdent(), relRot: mgl64.QuatIdent()}
	w.created = append(w.created, c)
	return c, nil
}

func (w *fakeWorld) RemoveCollider(c physics.Collider, wake bool) {
	w.removed = append(w.removed, removal{collider: c, wake: wake})
}

type fakeCollider struct {
	desc   physics.ColliderDesc
	parent physics.RigidBody
	calls  map[string]int

	translation mgl64.Vec3
	rotation    mgl64.Quat
	relPos      mgl64.Vec3
	relRot      mgl64.Quat

	restitution     float64
	restitutionRule physics.CombineRule
	friction        float64
	frictionRule    physics.CombineRule
	sensor          bool
	threshold       float64
	density         float64
	mass            float64
	massProps       physics.MassProperties
	activeEvents    physics.ActiveEvents
	activeTypes     physics.ActiveCollisionTypes
	groups          physics.Groups
}

func (c *fakeCollider) record(name string) { c.calls[name]++ }

func (c *fakeCollider) SetTranslation(p mgl64.Vec3) { c.record("SetTranslation"); c.translation = p }
func (c *fakeCollider) SetRotation(q mgl64.Quat)    { c.record("SetRotation"); c.rotation = q }
func (c *fakeCollider) SetTranslationWrtParent(p mgl64.Vec3) {
	c.record("SetTranslationWrtParent")
	c.relPos = p
}
func (c *fakeCollider) SetRotationWrtParent(q mgl64.Quat) {
	c.record("SetRotationWrtParent")
	c.relRot = q
}
func (c *fakeCollider) SetRestitution(r float64) { c.record("SetRestitution"); c.restitution = r }
func (c *fakeCollider) SetRestitutionCombineRule(rule physics.CombineRule) {
	c.record("SetRestitutionCombineRule")
	c.restitutionRule = rule
}
func (c *fakeCollider) SetFriction(f float64) { c.record("SetFriction"); c.friction = f }
func (c *fakeCollider) SetFrictionCombineRule(rule physics.CombineRule) {
	c.record("SetFrictionCombineRule")
	c.frictionRule = rule
}
func (c *fakeCollider) SetSensor(sensor bool) { c.record("SetSensor"); c.sensor = sensor }
func (c *fakeCollider) SetDensity(d float64)  { c.record("SetDensity"); c.density = d }
func (c *fakeCollider) SetMass(m float64)     { c.record("SetMass"); c.mass = m }
func (c *fakeCollider) SetMassProperties(p physics.MassProperties) {
	c.record("SetMassProperties")
	c.massProps = p
}
func (c *fakeCollider) SetActiveEvents(ev physics.ActiveEvents) {
	c.record("SetActiveEvents")
	c.activeEvents = ev
}
func (c *fakeCollider) SetActiveCollisionTypes(t physics.ActiveCollisionTypes) {
	c.record("SetActiveCollisionTypes")
	c.activeTypes = t
}
func (c *fakeCollider) SetContactForceEventThreshold(threshold float64) {
	c.record("SetContactForceEventThreshold")
	c.threshold = threshold
}
func (c *fakeCollider) SetCollisionGroups(g physics.Groups) {
	c.record("SetCollisionGroups")
	c.groups = g
}

type fakeBody struct {
	pos mgl64.Vec3
	rot mgl64.Quat
}

func (b *fakeBody) Kind() physics.BodyKind { return physics.BodyDynamic }
func (b *fakeBody) Position() mgl64.Vec3   { return b.pos }
func (b *fakeBody) Rotation() mgl64.Quat   { return b.rot }

func float64Ptr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool          { return &b }
func vec3Ptr(v mgl64.Vec3) *mgl64.Vec3 { return &v }

func vec3Near(a, b mgl64.Vec3, eps float64) bool {
	return math.Abs(a[0]-b[0]) < eps && math.Abs(a[1]-b[1]) < eps && math.Abs(a[2]-b[2]) < eps
}

func quatNear(a, b mgl64.Quat, eps float64) bool {
	// q and -q are the same rotation
	d := a.Dot(b)
	return math.Abs(math.Abs(d)-1) < eps
}

type fixture struct {
	loop   *scene.Loop
	world  *fakeWorld
	ctx    *physics.WorldContext
	groups *physics.GroupRegistry
	root   *scene.Node
}

func newFixture() *fixture {
	return &fixture{
		loop:   scene.NewLoop(),
		world:  &fakeWorld{},
		ctx:    physics.NewWorldContext(),
		groups: physics.NewGroupRegistry(),
		root:   scene.NewNode("root"),
	}
}

func (f *fixture) config() Config {
	return Config{
		Name:    "test",
		Loop:    f.loop,
		World:   f.world,
		Context: f.ctx,
		Groups:  f.groups,
		Parent:  f.root,
		Shape:   physics.Ball{Radius: 1},
	}
}

func TestMountValidation(t *testing.T) {
	f := newFixture()

	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"missing_loop", func(c *Config) { c.Loop = nil }, ErrNilLoop},
		{"missing_world", func(c *Config) { c.World = nil }, ErrNilWorld},
		{"missing_context", func(c *Config) { c.Context = nil }, ErrNilContext},
		{"missing_shape", func(c *Config) { c.Shape = nil }, ErrNilShape},
		{
			"conflicting_mass",
			func(c *Config) {
				c.Props.Density = float64Ptr(1)
				c.Props.Mass = float64Ptr(2)
			},
			physics.ErrMassConfig,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := f.config()
			tc.mutate(&cfg)
			if _, err := Mount(cfg); !errors.Is(err, tc.want) {
				t.Fatalf("Mount error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestInitDeferredToNextTick(t *testing.T) {
	f := newFixture()
	c, err := Mount(f.config())
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	if c.Handle() != nil || len(f.world.created) != 0 {
		t.Fatalf("collider created before the next tick")
	}

	f.loop.Step(1)

	if c.Handle() == nil || len(f.world.created) != 1 {
		t.Fatalf("collider not created after one step")
	}
	if !f.ctx.Contains(c.Handle()) {
		t.Fatalf("collider not registered in world context")
	}
}

func TestShapeScaledByWorldScale(t *testing.T) {
	f := newFixture()
	f.root.SetScale(mgl64.Vec3{2, 3, 4})

	if _, err := Mount(f.config()); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	f.loop.Step(1)

	ball, ok := f.world.created[0].desc.Shape.(physics.Ball)
	if !ok {
		t.Fatalf("expected ball descriptor, got %T", f.world.created[0].desc.Shape)
	}
	if ball.Radius != 4 {
		t.Fatalf("scaled radius = %v, want 4", ball.Radius)
	}
}

func TestDefaultMaterialValues(t *testing.T) {
	f := newFixture()
	if _, err := Mount(f.config()); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	f.loop.Step(1)

	h := f.world.created[0]
	if h.restitution != 0 {
		t.Errorf("restitution = %v, want 0", h.restitution)
	}
	if h.friction != 0.7 {
		t.Errorf("friction = %v, want 0.7", h.friction)
	}
	if h.restitutionRule != physics.CombineAverage || h.frictionRule != physics.CombineAverage {
		t.Errorf("combine rules = %v/%v, want average/average", h.restitutionRule, h.frictionRule)
	}
	if h.sensor {
		t.Errorf("sensor = true, want false")
	}
	if h.threshold != 0 {
		t.Errorf("contact force threshold = %v, want 0", h.threshold)
	}
	if h.activeTypes != physics.CollisionTypesAll {
		t.Errorf("active collision types = %v, want all", h.activeTypes)
	}
	if h.activeEvents != physics.EventsNone {
		t.Errorf("active events = %v, want none", h.activeEvents)
	}
	if h.calls["SetDensity"] != 0 || h.calls["SetMass"] != 0 || h.calls["SetMassProperties"] != 0 {
		t.Errorf("mass setters called with no mass config: %v", h.calls)
	}
}

func TestDensityOnly(t *testing.T) {
	f := newFixture()
	cfg := f.config()
	cfg.Props.Density = float64Ptr(2.5)

	if _, err := Mount(cfg); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	f.loop.Step(1)

	h := f.world.created[0]
	if h.density != 2.5 || h.calls["SetDensity"] == 0 {
		t.Fatalf("density = %v (calls %d), want 2.5 applied", h.density, h.calls["SetDensity"])
	}
	if h.calls["SetMass"] != 0 || h.calls["SetMassProperties"] != 0 {
		t.Fatalf("mass/massProperties setters must never be called: %v", h.calls)
	}
}

func TestUnattachedFrameSync(t *testing.T) {
	f := newFixture()
	c, err := Mount(f.config())
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	f.loop.Step(1)
	h := f.world.created[0]

	// the collider tracks whatever the node's world pose is at each frame
	positions := []mgl64.Vec3{{1, 0, 0}, {2, 5, 0}, {-3, 1, 2}}
	for _, p := range positions {
		f.root.SetPosition(p)
		f.loop.Step(1)
		want := c.Node().WorldPosition()
		if !vec3Near(h.translation, want, 1e-12) {
			t.Fatalf("translation = %v, want %v", h.translation, want)
		}
	}

	rot := mgl64.QuatRotate(1.1, mgl64.Vec3{0, 0, 1})
	f.root.SetRotation(rot)
	f.loop.Step(1)
	if !quatNear(h.rotation, c.Node().WorldRotation(), 1e-12) {
		t.Fatalf("rotation = %v, want %v", h.rotation, c.Node().WorldRotation())
	}
}

func TestAttachedPoseSetOnce(t *testing.T) {
	f := newFixture()

	anchor := scene.NewNode("body")
	anchor.SetPosition(mgl64.Vec3{1, 2, 0})
	anchor.SetRotation(mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1}))
	f.root.AddChild(anchor)

	bodyCtx := NewRigidBodyContext(anchor, &fakeBody{rot: mgl64.QuatIdent()})

	cfg := f.config()
	cfg.Parent = anchor
	cfg.Body = bodyCtx
	cfg.Transform.Position = vec3Ptr(mgl64.Vec3{1, 0, 0})

	c, err := Mount(cfg)
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	f.loop.Step(1)

	if !c.Attached() {
		t.Fatalf("collider should be in attached mode")
	}
	h := f.world.created[0]
	if !vec3Near(h.relPos, mgl64.Vec3{1, 0, 0}, 1e-9) {
		t.Fatalf("relative position = %v, want {1 0 0}", h.relPos)
	}
	if !quatNear(h.relRot, mgl64.QuatIdent(), 1e-9) {
		t.Fatalf("relative rotation = %v, want identity", h.relRot)
	}

	// later local mutations must not re-sync: the engine owns the offset
	wrtCalls := h.calls["SetTranslationWrtParent"]
	c.Node().SetPosition(mgl64.Vec3{9, 9, 9})
	for i := 0; i < 5; i++ {
		f.loop.Step(1)
	}
	if h.calls["SetTranslationWrtParent"] != wrtCalls {
		t.Fatalf("relative pose re-set on later frames")
	}
	if h.calls["SetTranslation"] != 0 {
		t.Fatalf("attached collider must never get world translations")
	}
}

func TestUnmountBeforeInit(t *testing.T) {
	f := newFixture()
	c, err := Mount(f.config())
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}

	c.Unmount()
	f.loop.Step(1)

	if len(f.world.created) != 0 || len(f.world.removed) != 0 {
		t.Fatalf("engine touched by unmount-before-init: created=%d removed=%d", len(f.world.created), len(f.world.removed))
	}
	if f.ctx.Len() != 0 {
		t.Fatalf("world context touched by unmount-before-init")
	}
}

func TestUnmountAfterInit(t *testing.T) {
	f := newFixture()
	cfg := f.config()
	cfg.GroupNames = []string{"crates"}

	c, err := Mount(cfg)
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	f.loop.Step(1)

	handle := c.Handle()
	if len(f.groups.Members("crates")) != 1 {
		t.Fatalf("collider not registered in group")
	}

	c.Unmount()
	c.Unmount() // idempotent

	if f.ctx.Contains(handle) {
		t.Fatalf("collider still in world context after unmount")
	}
	if len(f.groups.Members("crates")) != 0 {
		t.Fatalf("collider still in group registry after unmount")
	}
	if len(f.world.removed) != 1 {
		t.Fatalf("world removals = %d, want exactly 1", len(f.world.removed))
	}
	if !f.world.removed[0].wake {
		t.Fatalf("removal must wake affected bodies")
	}
}

func TestActiveEventsFollowListeners(t *testing.T) {
	f := newFixture()
	c, err := Mount(f.config())
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	f.loop.Step(1)
	h := f.world.created[0]

	off := c.On(physics.ContactStarted, func(physics.ContactEvent) {})
	if h.activeEvents != physics.EventsCollision {
		t.Fatalf("active events = %v, want collision", h.activeEvents)
	}

	offForce := c.On(physics.ContactForce, func(physics.ContactEvent) {})
	if h.activeEvents != physics.EventsCollision|physics.EventsContactForce {
		t.Fatalf("active events = %v, want collision|contactforce", h.activeEvents)
	}

	off()
	offForce()
	if h.activeEvents != physics.EventsNone {
		t.Fatalf("active events = %v, want none after removing listeners", h.activeEvents)
	}
}

func TestBodyListenersCountForAttached(t *testing.T) {
	f := newFixture()

	anchor := scene.NewNode("body")
	f.root.AddChild(anchor)
	bodyCtx := NewRigidBodyContext(anchor, &fakeBody{rot: mgl64.QuatIdent()})

	cfg := f.config()
	cfg.Parent = anchor
	cfg.Body = bodyCtx

	if _, err := Mount(cfg); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	f.loop.Step(1)
	h := f.world.created[0]

	bodyCtx.On(physics.SensorStarted, func(physics.ContactEvent) {})
	if h.activeEvents != physics.EventsCollision {
		t.Fatalf("active events = %v, want collision from body listener", h.activeEvents)
	}
}

func TestUnmountDropsBodySubscription(t *testing.T) {
	f := newFixture()

	anchor := scene.NewNode("body")
	f.root.AddChild(anchor)
	bodyCtx := NewRigidBodyContext(anchor, &fakeBody{rot: mgl64.QuatIdent()})

	var mounted []*Collider
	for i := 0; i < 3; i++ {
		cfg := f.config()
		cfg.Parent = anchor
		cfg.Body = bodyCtx

		c, err := Mount(cfg)
		if err != nil {
			t.Fatalf("Mount failed: %v", err)
		}
		mounted = append(mounted, c)
	}
	f.loop.Step(1)

	if len(bodyCtx.changed) != 3 {
		t.Fatalf("body subscriptions = %d, want 3", len(bodyCtx.changed))
	}

	h := f.world.created[0]
	before := h.calls["SetActiveEvents"]
	for _, c := range mounted {
		c.Unmount()
	}

	if len(bodyCtx.changed) != 0 {
		t.Fatalf("body subscriptions = %d after unmount, want 0", len(bodyCtx.changed))
	}

	// listener churn on the body must not reach unmounted colliders
	bodyCtx.On(physics.ContactStarted, func(physics.ContactEvent) {})
	if h.calls["SetActiveEvents"] != before {
		t.Fatalf("unmounted collider still reacting to body listeners")
	}
}

func TestSetPropsReappliesWholesale(t *testing.T) {
	f := newFixture()
	c, err := Mount(f.config())
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	f.loop.Step(1)
	h := f.world.created[0]

	rule := physics.CombineMax
	err = c.SetProps(Props{
		Restitution:            float64Ptr(0.4),
		RestitutionCombineRule: &rule,
		Sensor:                 boolPtr(true),
		Mass:                   float64Ptr(12),
	})
	if err != nil {
		t.Fatalf("SetProps failed: %v", err)
	}

	if h.restitution != 0.4 || h.restitutionRule != physics.CombineMax {
		t.Errorf("restitution = %v/%v, want 0.4/max", h.restitution, h.restitutionRule)
	}
	if !h.sensor {
		t.Errorf("sensor not applied")
	}
	if h.friction != 0.7 {
		t.Errorf("friction = %v, want default 0.7 reapplied", h.friction)
	}
	if h.mass != 12 || h.calls["SetMass"] != 1 {
		t.Errorf("mass = %v (calls %d), want 12 applied once", h.mass, h.calls["SetMass"])
	}

	// conflicting mass config is rejected without partial application
	before := h.calls["SetRestitution"]
	err = c.SetProps(Props{Density: float64Ptr(1), Mass: float64Ptr(2)})
	if !errors.Is(err, physics.ErrMassConfig) {
		t.Fatalf("SetProps error = %v, want ErrMassConfig", err)
	}
	if h.calls["SetRestitution"] != before {
		t.Fatalf("material reapplied despite invalid props")
	}
}

func TestCreateErrorLeavesComponentInert(t *testing.T) {
	f := newFixture()
	f.world.createErr = errors.New("boom")

	c, err := Mount(f.config())
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	f.loop.Step(1)

	if c.Handle() != nil {
		t.Fatalf("handle set despite creation failure")
	}
	c.Unmount()
	if len(f.world.removed) != 0 {
		t.Fatalf("removal issued despite creation failure")
	}
}

func TestContactEventsForwardToBody(t *testing.T) {
	f := newFixture()

	anchor := scene.NewNode("body")
	f.root.AddChild(anchor)
	bodyCtx := NewRigidBodyContext(anchor, &fakeBody{rot: mgl64.QuatIdent()})

	cfg := f.config()
	cfg.Parent = anchor
	cfg.Body = bodyCtx

	c, err := Mount(cfg)
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	f.loop.Step(1)

	var colliderGot, bodyGot int
	c.On(physics.ContactStarted, func(physics.ContactEvent) { colliderGot++ })
	bodyCtx.On(physics.ContactStarted, func(physics.ContactEvent) { bodyGot++ })

	f.ctx.Deliver(physics.ContactEvent{Kind: physics.ContactStarted, Collider: c.Handle()})

	if colliderGot != 1 || bodyGot != 1 {
		t.Fatalf("event delivery: collider=%d body=%d, want 1/1", colliderGot, bodyGot)
	}
}
