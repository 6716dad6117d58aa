package scenedef

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/jmheld/tether/behavior"
	"github.com/jmheld/tether/binding"
	"github.com/jmheld/tether/physics"
	"github.com/jmheld/tether/scene"
)

// BodyFactory creates and removes engine rigid bodies; physics backends
// implement it.
type BodyFactory interface {
	CreateRigidBody(kind physics.BodyKind, pos mgl64.Vec3, rot mgl64.Quat) (physics.RigidBody, error)
	RemoveRigidBody(b physics.RigidBody)
}

// Deps is everything a document builds against, owned by the caller.
type Deps struct {
	Loop    *scene.Loop
	World   physics.World
	Context *physics.WorldContext
	Groups  *physics.GroupRegistry
	Bodies  BodyFactory
}

// Scene is a built document: the root node plus everything that needs
// explicit teardown.
type Scene struct {
	Root      *scene.Node
	Colliders []*binding.Collider
	Runners   []*behavior.Runner

	Gravity mgl64.Vec3

	bodies  []physics.RigidBody
	factory BodyFactory
}

// Close stops every script runner, unmounts every collider, and removes the
// rigid bodies the build created from the engine.
func (s *Scene) Close() {
	if s == nil {
		return
	}
	for _, r := range s.Runners {
		r.Stop()
	}
	for _, c := range s.Colliders {
		c.Unmount()
	}
	if s.factory != nil {
		for _, b := range s.bodies {
			s.factory.RemoveRigidBody(b)
		}
	}
	s.bodies = nil
}

// Build instantiates the document against deps.
func Build(doc *Document, deps Deps) (*Scene, error) {
	if doc == nil {
		return nil, fmt.Errorf("scenedef: build: nil document")
	}
	if deps.Loop == nil || deps.World == nil || deps.Context == nil {
		return nil, fmt.Errorf("scenedef: build %s: loop, world and context are required", doc.Name)
	}

	gravity, err := vec3(doc.Gravity, "gravity")
	if err != nil {
		return nil, err
	}

	out := &Scene{Root: scene.NewNode(doc.Name), Gravity: gravity, factory: deps.Bodies}
	for i := range doc.Nodes {
		if err := buildNode(&doc.Nodes[i], out.Root, nil, deps, out); err != nil {
			out.Close()
			return nil, err
		}
	}
	return out, nil
}

func buildNode(spec *NodeSpec, parent *scene.Node, body *binding.RigidBodyContext, deps Deps, out *Scene) error {
	node, err := makeNode(spec, parent)
	if err != nil {
		return fmt.Errorf("scenedef: node %s: %w", spec.Name, err)
	}

	if spec.RigidBody != nil {
		if deps.Bodies == nil {
			return fmt.Errorf("scenedef: node %s: rigid body declared but no body factory supplied", spec.Name)
		}
		kind, err := parseBodyKind(spec.RigidBody.Kind)
		if err != nil {
			return fmt.Errorf("scenedef: node %s: %w", spec.Name, err)
		}
		rb, err := deps.Bodies.CreateRigidBody(kind, node.WorldPosition(), node.WorldRotation())
		if err != nil {
			return fmt.Errorf("scenedef: node %s: %w", spec.Name, err)
		}
		out.bodies = append(out.bodies, rb)
		body = binding.NewRigidBodyContext(node, rb)
	}

	if spec.Collider != nil {
		col, err := buildCollider(spec, node, body, deps)
		if err != nil {
			return fmt.Errorf("scenedef: node %s: %w", spec.Name, err)
		}
		out.Colliders = append(out.Colliders, col)
	}

	if spec.Script != "" {
		script, err := behavior.Compile(spec.Name, []byte(spec.Script))
		if err != nil {
			return fmt.Errorf("scenedef: node %s: %w", spec.Name, err)
		}
		out.Runners = append(out.Runners, behavior.Attach(deps.Loop, node, script))
	}

	for i := range spec.Children {
		if err := buildNode(&spec.Children[i], node, body, deps, out); err != nil {
			return err
		}
	}
	return nil
}

// makeNode builds and parents the plain scene node for a spec. look_at is
// applied after parenting so it sees the node's world position.
func makeNode(spec *NodeSpec, parent *scene.Node) (*scene.Node, error) {
	node := scene.NewNode(spec.Name)

	pos, err := optVec3(spec.Transform.Position, "position")
	if err != nil {
		return nil, err
	}
	if pos != nil {
		node.SetPosition(*pos)
	}
	rot, err := optVec3(spec.Transform.Rotation, "rotation")
	if err != nil {
		return nil, err
	}
	if rot != nil {
		node.SetRotation(mgl64.AnglesToQuat((*rot)[0], (*rot)[1], (*rot)[2], mgl64.XYZ))
	}
	scl, err := optVec3(spec.Transform.Scale, "scale")
	if err != nil {
		return nil, err
	}
	if scl != nil {
		node.SetScale(*scl)
	}

	parent.AddChild(node)

	lookAt, err := optVec3(spec.Transform.LookAt, "look_at")
	if err != nil {
		return nil, err
	}
	if lookAt != nil {
		node.LookAt(*lookAt)
	}
	return node, nil
}

func buildCollider(spec *NodeSpec, node *scene.Node, body *binding.RigidBodyContext, deps Deps) (*binding.Collider, error) {
	cs := spec.Collider
	shape, err := cs.shape()
	if err != nil {
		return nil, err
	}
	// the engine would reject these at creation time, but that happens a
	// tick later; fail the build while the document is still in hand
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("scenedef: collider %s: %w", spec.Name, err)
	}

	props := binding.Props{
		Restitution:           cs.Restitution,
		Friction:              cs.Friction,
		Sensor:                cs.Sensor,
		ContactForceThreshold: cs.ContactForceThreshold,
		Density:               cs.Density,
		Mass:                  cs.Mass,
	}
	if cs.RestitutionCombineRule != "" {
		rule, err := physics.ParseCombineRule(cs.RestitutionCombineRule)
		if err != nil {
			return nil, err
		}
		props.RestitutionCombineRule = &rule
	}
	if cs.FrictionCombineRule != "" {
		rule, err := physics.ParseCombineRule(cs.FrictionCombineRule)
		if err != nil {
			return nil, err
		}
		props.FrictionCombineRule = &rule
	}
	if cs.MassProperties != nil {
		com, err := vec3(cs.MassProperties.CenterOfMass, "center_of_mass")
		if err != nil {
			return nil, err
		}
		inertia, err := vec3(cs.MassProperties.PrincipalInertia, "principal_inertia")
		if err != nil {
			return nil, err
		}
		props.MassProperties = &physics.MassProperties{
			Mass:             cs.MassProperties.Mass,
			CenterOfMass:     com,
			PrincipalInertia: inertia,
			InertiaFrame:     mgl64.QuatIdent(),
		}
	}

	return binding.Mount(binding.Config{
		Name:       spec.Name,
		Loop:       deps.Loop,
		World:      deps.World,
		Context:    deps.Context,
		Groups:     deps.Groups,
		Parent:     node,
		Body:       body,
		Shape:      shape,
		Props:      props,
		GroupNames: cs.Groups,
	})
}

func parseBodyKind(s string) (physics.BodyKind, error) {
	switch s {
	case "", "dynamic":
		return physics.BodyDynamic, nil
	case "kinematic":
		return physics.BodyKinematic, nil
	case "fixed", "static":
		return physics.BodyFixed, nil
	default:
		return 0, fmt.Errorf("scenedef: unknown rigid body kind %q", s)
	}
}
