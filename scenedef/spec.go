// Package scenedef loads declarative YAML scene documents and builds them
// into live node trees with collider bindings.
package scenedef

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/jmheld/tether/physics"
)

var ErrUnknownShape = errors.New("scenedef: unknown shape")

// Document is the root of a scene file.
type Document struct {
	Name    string     `yaml:"name"`
	Gravity []float64  `yaml:"gravity"`
	Nodes   []NodeSpec `yaml:"nodes"`
}

// NodeSpec describes one scene node, optionally carrying a rigid body, a
// collider and a behavior script.
type NodeSpec struct {
	Name      string         `yaml:"name"`
	Transform TransformSpec  `yaml:"transform"`
	RigidBody *RigidBodySpec `yaml:"rigid_body"`
	Collider  *ColliderSpec  `yaml:"collider"`
	Script    string         `yaml:"script"`
	Children  []NodeSpec     `yaml:"children"`
}

// TransformSpec holds the optional local transform. Rotation is XYZ euler
// radians; look_at aims the node at a world-space point and wins over
// rotation.
type TransformSpec struct {
	Position []float64 `yaml:"position"`
	Rotation []float64 `yaml:"rotation"`
	Scale    []float64 `yaml:"scale"`
	LookAt   []float64 `yaml:"look_at"`
}

type RigidBodySpec struct {
	Kind string `yaml:"kind"`
}

// ColliderSpec is the declarative collider: a shape tag with its typed
// arguments plus the reactive material parameters.
type ColliderSpec struct {
	Shape       string      `yaml:"shape"`
	Radius      float64     `yaml:"radius"`
	HalfExtents []float64   `yaml:"half_extents"`
	HalfHeight  float64     `yaml:"half_height"`
	Points      [][]float64 `yaml:"points"`

	Restitution            *float64 `yaml:"restitution"`
	RestitutionCombineRule string   `yaml:"restitution_combine_rule"`
	Friction               *float64 `yaml:"friction"`
	FrictionCombineRule    string   `yaml:"friction_combine_rule"`
	Sensor                 *bool    `yaml:"sensor"`
	ContactForceThreshold  *float64 `yaml:"contact_force_event_threshold"`

	Density        *float64            `yaml:"density"`
	Mass           *float64            `yaml:"mass"`
	MassProperties *MassPropertiesSpec `yaml:"mass_properties"`

	Groups []string `yaml:"groups"`
}

type MassPropertiesSpec struct {
	Mass             float64   `yaml:"mass"`
	CenterOfMass     []float64 `yaml:"center_of_mass"`
	PrincipalInertia []float64 `yaml:"principal_inertia"`
}

// Load parses a scene document.
func Load(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("scenedef: unmarshal: %w", err)
	}
	return &doc, nil
}

// LoadFile reads and parses a scene document from disk.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenedef: load %s: %w", path, err)
	}
	doc, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("scenedef: load %s: %w", path, err)
	}
	return doc, nil
}

// shape resolves the tagged shape spec into its typed descriptor.
func (s *ColliderSpec) shape() (physics.Shape, error) {
	switch s.Shape {
	case "ball":
		return physics.Ball{Radius: s.Radius}, nil
	case "cuboid":
		he, err := vec3(s.HalfExtents, "half_extents")
		if err != nil {
			return nil, err
		}
		return physics.Cuboid{HalfExtents: he}, nil
	case "capsule":
		return physics.Capsule{HalfHeight: s.HalfHeight, Radius: s.Radius}, nil
	case "cylinder":
		return physics.Cylinder{HalfHeight: s.HalfHeight, Radius: s.Radius}, nil
	case "cone":
		return physics.Cone{HalfHeight: s.HalfHeight, Radius: s.Radius}, nil
	case "convex_hull":
		pts := make([]mgl64.Vec3, len(s.Points))
		for i, p := range s.Points {
			v, err := vec3(p, fmt.Sprintf("points[%d]", i))
			if err != nil {
				return nil, err
			}
			pts[i] = v
		}
		return physics.ConvexHull{Points: pts}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownShape, s.Shape)
	}
}

func vec3(v []float64, field string) (mgl64.Vec3, error) {
	switch len(v) {
	case 0:
		return mgl64.Vec3{}, nil
	case 2:
		return mgl64.Vec3{v[0], v[1], 0}, nil
	case 3:
		return mgl64.Vec3{v[0], v[1], v[2]}, nil
	default:
		return mgl64.Vec3{}, fmt.Errorf("scenedef: %s wants 2 or 3 components, got %d", field, len(v))
	}
}

func optVec3(v []float64, field string) (*mgl64.Vec3, error) {
	if len(v) == 0 {
		return nil, nil
	}
	out, err := vec3(v, field)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
